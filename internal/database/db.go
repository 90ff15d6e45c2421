// Package database opens the SQL store for the configured dialect, applies
// the embedded schema migrations and runs units of work in transactions
// that are retried on serialization failures.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/class-session-booking/internal/config"
)

const defaultTxMaxTries = 4

// DB bundles the connection pool with the dialect it speaks.
type DB struct {
	*sql.DB
	Dialect  Dialect
	maxTries uint
}

// Open connects to the configured database and verifies the connection.
func Open(cfg config.DBConfig) (*DB, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName(), cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}

	// Pool settings
	if d == SQLite {
		// a single writer connection serialises transactions the same way
		// row locks do on the server dialects
		db.SetMaxOpenConns(1)
	} else {
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return Wrap(db, d, cfg.TxMaxTries), nil
}

// Wrap adapts an already opened pool.  maxTries of zero uses the default.
func Wrap(db *sql.DB, d Dialect, maxTries uint) *DB {
	if maxTries == 0 {
		maxTries = defaultTxMaxTries
	}
	return &DB{DB: db, Dialect: d, maxTries: maxTries}
}

// ToMillis converts t to unix milliseconds in UTC.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NullMillis converts an optional time for storage.
func NullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ToMillis(*t), Valid: true}
}

// FromNullMillis converts a nullable column back to an optional time.
func FromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromMillis(v.Int64)
	return &t
}
