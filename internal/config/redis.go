package config

// This file defines the Redis settings and client constructor.  Redis backs
// the distributed rate limiter, the public catalogue response cache and the
// cluster-wide notification poller throttle.  If the server cannot be reached
// at startup the constructor returns nil and callers degrade gracefully.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters for Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"` // host:port of the server
	Password string `env:"REDIS_PASSWORD"`                         // optional password
	DB       int    `env:"REDIS_DB" envDefault:"0"`                // database number
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`           // enable TLS
	Disabled bool   `env:"REDIS_DISABLED" envDefault:"false"`      // skip Redis entirely
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  The returned client is nil when Redis is disabled or the ping
// fails.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Disabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
