// Package config loads application configuration from environment variables.
// A .env file in the working directory is honoured when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Nested structs group the
// settings of a single collaborator (database, redis, broker, ...).
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"local"`    // application environment (local, dev, prod)
	Port      string `env:"APP_PORT" envDefault:"8080"`    // HTTP port to listen on
	Timezone  string `env:"APP_TIMEZONE" envDefault:"UTC"` // zone used for calendar-day decisions
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`  // secret used to verify access tokens

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	AMQP      AMQPConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
}

// DBConfig selects the SQL dialect and connection parameters.  When DSN is
// empty it is assembled from the individual parts.
type DBConfig struct {
	Driver       string `env:"DB_DRIVER" envDefault:"mysql"` // mysql, postgres or sqlite
	DSN          string `env:"DB_DSN"`
	User         string `env:"DB_USER"`
	Pass         string `env:"DB_PASS"`
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT"`
	Name         string `env:"DB_NAME" envDefault:"class_booking"`
	Migrate      bool   `env:"DB_MIGRATE" envDefault:"true"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	TxMaxTries   uint   `env:"DB_TX_MAX_TRIES" envDefault:"4"`
}

// AMQPConfig configures the notification event publisher and the optional
// in-process consumer.  An empty URL disables publishing.
type AMQPConfig struct {
	URL             string `env:"AMQP_URL"`
	Queue           string `env:"AMQP_QUEUE" envDefault:"notification.created"`
	ConsumerEnabled bool   `env:"AMQP_CONSUMER_ENABLED" envDefault:"false"`
	DeliveryLogDir  string `env:"AMQP_DELIVERY_LOG_DIR" envDefault:"logs"`
}

// NotifyConfig controls the notification engine and the read-path poller.
type NotifyConfig struct {
	ReminderMinMinutes int           `env:"REMINDER_WINDOW_MIN_MINUTES" envDefault:"0"`
	ReminderMaxMinutes int           `env:"REMINDER_WINDOW_MAX_MINUTES" envDefault:"60"`
	PollerMinInterval  time.Duration `env:"POLLER_MIN_INTERVAL" envDefault:"15s"`
	Locale             string        `env:"NOTIFY_LOCALE" envDefault:"es"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"class-session-booking"`
}

// Load reads the optional .env file and parses the environment into a
// Config.  Missing required variables and malformed values are reported as
// errors rather than terminating the process.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv populates target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.DB.Driver)
	}
	if c.Notify.ReminderMinMinutes < 0 || c.Notify.ReminderMaxMinutes <= c.Notify.ReminderMinMinutes {
		return fmt.Errorf("invalid reminder window [%d, %d] minutes",
			c.Notify.ReminderMinMinutes, c.Notify.ReminderMaxMinutes)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderWindow returns the reminder window bounds as durations.
func (n NotifyConfig) ReminderWindow() (lower, upper time.Duration) {
	return time.Duration(n.ReminderMinMinutes) * time.Minute, time.Duration(n.ReminderMaxMinutes) * time.Minute
}

// DataSourceName returns the DSN handed to sql.Open for the configured driver.
func (d DBConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Pass),
			Host:     d.Host + ":" + port,
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case "sqlite":
		return d.Name + ".db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	default:
		port := d.Port
		if port == "" {
			port = "3306"
		}
		auth := d.User
		if d.Pass != "" {
			auth = fmt.Sprintf("%s:%s", d.User, d.Pass)
		}
		// times are stored as unix millis, loc=UTC keeps driver-side conversions consistent
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, d.Host, port, d.Name)
	}
}
