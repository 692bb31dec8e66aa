package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
)

// Defaults applied when the config leaves a value unset.
const (
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	defaultDialTimeout     = 2 * time.Second
	defaultOpTimeout       = 500 * time.Millisecond
	connectRetries         = 3
)

// Sentinel errors for cache operations.
var (
	// ErrMiss is returned by Get when the key is absent.
	ErrMiss = errors.New("cache: miss")

	// ErrUnavailable is returned while the breaker is open.
	ErrUnavailable = errors.New("cache: unavailable")
)

// Client is a Redis (or Valkey) key-value client behind a circuit breaker.
// Once the breaker trips, calls fail fast with ErrUnavailable until the
// open timeout elapses, so a dead cache costs the hot path nothing.
type Client struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
}

// New builds a client without contacting the server.
func New(cfg config.CacheConfig) *Client {
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = defaultBreakerFailures
	}
	openFor := time.Duration(cfg.BreakerTimeout) * time.Second
	if openFor <= 0 {
		openFor = defaultBreakerTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultOpTimeout,
		WriteTimeout: defaultOpTimeout,
		MaxRetries:   -1, // the breaker decides, not the driver
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cache",
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(failures) // #nosec G115 -- positive config value
		},
		// A miss is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &Client{
		rdb:     rdb,
		breaker: breaker,
		ttl:     time.Duration(cfg.TTL) * time.Second,
	}
}

// Connect builds a client and pings it with a short exponential backoff.
func Connect(ctx context.Context, cfg config.CacheConfig) (*Client, error) {
	c := New(cfg)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(func() error {
		return c.rdb.Ping(ctx).Err()
	}, backoff.WithContext(backoff.WithMaxRetries(bo, connectRetries), ctx))
	if err != nil {
		c.rdb.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("cache: connecting to %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Get returns the value stored under key, ErrMiss, or ErrUnavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.rdb.Get(ctx, key).Bytes()
	})
	if err != nil {
		return nil, c.classify(err)
	}
	return res.([]byte), nil
}

// Set stores value under key with the configured TTL (0 means no expiry).
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.rdb.Set(ctx, key, value, c.ttl).Err()
	})
	return c.classify(err)
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.rdb.Del(ctx, keys...).Err()
	})
	return c.classify(err)
}

// HealthCheck pings the server, bypassing the breaker.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// State returns the breaker state name ("closed", "half-open", "open").
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrMiss
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrUnavailable
	default:
		return fmt.Errorf("cache: %w", err)
	}
}
