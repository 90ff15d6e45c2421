package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/class-session-booking/internal/database"
	"github.com/iliyamo/class-session-booking/internal/model"
)

// ClassRepo manages persistence for the class catalogue.
type ClassRepo struct {
	db *database.DB
}

// NewClassRepo constructs a ClassRepo with the given DB handle.
func NewClassRepo(db *database.DB) *ClassRepo {
	return &ClassRepo{db: db}
}

// Create inserts a class.  ID, CreatedAt and UpdatedAt are assigned here and
// zero defaults are replaced with the catalogue defaults.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class, now time.Time) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DefaultDurationMin == 0 {
		c.DefaultDurationMin = model.DefaultClassDurationMin
	}
	if c.DefaultCapacity == 0 {
		c.DefaultCapacity = model.DefaultClassCapacity
	}
	c.CreatedAt = now.UTC().Truncate(time.Millisecond)
	c.UpdatedAt = c.CreatedAt

	const q = `INSERT INTO classes (id, title, description, discipline, instructor_name, location_name,
                 default_duration_min, default_capacity, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q),
		c.ID, c.Title, c.Description, c.Discipline, c.InstructorName, c.LocationName,
		c.DefaultDurationMin, c.DefaultCapacity, database.ToMillis(c.CreatedAt), database.ToMillis(c.UpdatedAt))
	return err
}

const classColumns = `id, title, description, discipline, instructor_name, location_name,
                 default_duration_min, default_capacity, created_at, updated_at`

func scanClass(row rowScanner) (*model.Class, error) {
	var (
		c                    model.Class
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Discipline, &c.InstructorName, &c.LocationName,
		&c.DefaultDurationMin, &c.DefaultCapacity, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = database.FromMillis(createdAt)
	c.UpdatedAt = database.FromMillis(updatedAt)
	return &c, nil
}

// GetByID retrieves a class.  It returns ErrNotFound if there is no row.
func (r *ClassRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	q := `SELECT ` + classColumns + ` FROM classes WHERE id = ?`
	c, err := scanClass(r.db.QueryRowContext(ctx, r.db.Dialect.Rebind(q), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns a page of the catalogue ordered by title.
func (r *ClassRepo) List(ctx context.Context, limit, offset int) ([]model.Class, error) {
	q := `SELECT ` + classColumns + ` FROM classes ORDER BY title, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(q), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update overwrites the editable columns of c and stamps UpdatedAt.  The
// class is expected to exist; MySQL reports zero affected rows for an
// unchanged row, so existence is checked by loading it first.
func (r *ClassRepo) Update(ctx context.Context, c *model.Class, now time.Time) error {
	c.UpdatedAt = now.UTC().Truncate(time.Millisecond)
	const q = `UPDATE classes SET title = ?, description = ?, discipline = ?, instructor_name = ?,
                 location_name = ?, default_duration_min = ?, default_capacity = ?, updated_at = ?
               WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Dialect.Rebind(q),
		c.Title, c.Description, c.Discipline, c.InstructorName, c.LocationName,
		c.DefaultDurationMin, c.DefaultCapacity, database.ToMillis(c.UpdatedAt), c.ID)
	return err
}
