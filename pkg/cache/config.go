package cache

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption configures the Redis cache.
type RedisOption func(*redisSettings) error

type redisSettings struct {
	opts        redis.Options
	prefix      string
	pingTimeout time.Duration
}

func defaultRedisSettings() *redisSettings {
	return &redisSettings{
		opts: redis.Options{
			Addr:         "localhost:6379",
			PoolSize:     4,
			MinIdleConns: 1,
			PoolTimeout:  5 * time.Second,
		},
		prefix:      "plantdash",
		pingTimeout: 5 * time.Second,
	}
}

// WithRedisURL takes address, credentials and DB from a redis:// URL.
// Options applied afterwards still override it.
func WithRedisURL(rawURL string) RedisOption {
	return func(s *redisSettings) error {
		if rawURL == "" {
			return nil
		}
		parsed, err := redis.ParseURL(rawURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		s.opts.Addr = parsed.Addr
		s.opts.Username = parsed.Username
		s.opts.Password = parsed.Password
		s.opts.DB = parsed.DB
		s.opts.TLSConfig = parsed.TLSConfig
		return nil
	}
}

func WithRedisAddr(host string, port int) RedisOption {
	return func(s *redisSettings) error {
		if host != "" && port > 0 {
			s.opts.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		}
		return nil
	}
}

func WithRedisPassword(password string) RedisOption {
	return func(s *redisSettings) error {
		if password != "" {
			s.opts.Password = password
		}
		return nil
	}
}

func WithRedisDB(db int) RedisOption {
	return func(s *redisSettings) error {
		if db < 0 {
			return fmt.Errorf("redis db must be >= 0, got %d", db)
		}
		s.opts.DB = db
		return nil
	}
}

// WithRedisPrefix namespaces every key as "<prefix>:<key>".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *redisSettings) error {
		s.prefix = prefix
		return nil
	}
}

// WithRedisPingTimeout bounds the connection check in NewRedisCache.
func WithRedisPingTimeout(d time.Duration) RedisOption {
	return func(s *redisSettings) error {
		if d > 0 {
			s.pingTimeout = d
		}
		return nil
	}
}

// MemoryOption configures the memory cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory cache configuration.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	DefaultTTL      time.Duration
}

// WithMemoryMaxSize caps the number of entries; the least recently used one is evicted.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

// WithMemoryCleanup sweeps expired entries every interval. Zero disables the sweeper.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}
