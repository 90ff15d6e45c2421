package config

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.True(t, cfg.DB.Migrate)
	assert.Equal(t, 15*time.Second, cfg.Notify.PollerMinInterval)
	assert.Equal(t, "es", cfg.Notify.Locale)
	assert.Equal(t, []string{"GET"}, cfg.Cache.Methods)

	lower, upper := cfg.Notify.ReminderWindow()
	assert.Zero(t, lower)
	assert.Equal(t, time.Hour, upper)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Timezone: "America/Argentina/Buenos_Aires",
			DB:       DBConfig{Driver: "postgres"},
			Notify:   NotifyConfig{ReminderMinMinutes: 0, ReminderMaxMinutes: 60},
		}
	}
	require.NoError(t, base().Validate())
	assert.Equal(t, "America/Argentina/Buenos_Aires", base().Location().String())

	cases := map[string]func(*Config){
		"driver":       func(c *Config) { c.DB.Driver = "oracle" },
		"window order": func(c *Config) { c.Notify.ReminderMinMinutes = 60 },
		"negative min": func(c *Config) { c.Notify.ReminderMinMinutes = -1 },
		"unknown zone": func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDataSourceName(t *testing.T) {
	assert.Equal(t, "custom", DBConfig{Driver: "mysql", DSN: "custom"}.DataSourceName())

	my := DBConfig{Driver: "mysql", User: "app", Pass: "pw", Host: "db", Name: "booking"}.DataSourceName()
	assert.Equal(t, "app:pw@tcp(db:3306)/booking?charset=utf8mb4&parseTime=true&loc=UTC", my)

	pg := DBConfig{Driver: "postgres", User: "app", Pass: "pw", Host: "db", Port: "6432", Name: "booking"}.DataSourceName()
	assert.Equal(t, "postgres://app:pw@db:6432/booking?sslmode=disable", pg)

	lite := DBConfig{Driver: "sqlite", Name: "booking"}.DataSourceName()
	assert.True(t, strings.HasPrefix(lite, "booking.db?"))
}

func TestRateLimitNormalized(t *testing.T) {
	got := RateLimitConfig{}.Normalized()
	assert.Equal(t, 1, got.Capacity)
	assert.Equal(t, 1, got.RefillTokens)
	assert.Equal(t, time.Second, got.RefillInterval)
	assert.Equal(t, 5*time.Second, got.TTL)
}

func TestCacheAllows(t *testing.T) {
	c := CacheConfig{Methods: []string{"GET", " head "}}
	assert.True(t, c.Allows("get"))
	assert.True(t, c.Allows("HEAD"))
	assert.False(t, c.Allows("POST"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	require.NotNil(t, rdb)
	_ = rdb.Close()

	assert.Nil(t, NewRedisClient(RedisConfig{Addr: mr.Addr(), Disabled: true}))

	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: mr.Addr()}))
}
