package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// pingTimeout bounds each connectivity check.
	pingTimeout = 5 * time.Second

	// maxRetryElapsed caps the total time spent retrying the first connect.
	maxRetryElapsed = 30 * time.Second
)

// PostgreSQL error codes the reading store classifies.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUndefinedTable  = "42P01"
	codeDuplicateTable  = "42P07"
	codeUniqueViolation = "23505"
)

// ErrConnectionFailed is returned when the pool cannot reach the server.
var ErrConnectionFailed = errors.New("postgres: connection failed")

// Pool wraps a pgx connection pool.
type Pool struct {
	*pgxpool.Pool
}

// Connect parses the URL, opens a pool and pings it, retrying with
// exponential backoff up to cfg.ConnectRetries times. Databases started
// alongside the service (compose, k8s) are often not ready on first try.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %w", ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns) // #nosec G115 -- small config value
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryElapsed
	retries := cfg.ConnectRetries
	if retries < 0 {
		retries = 0
	}

	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return pool.Ping(pingCtx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck pings the server.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (p *Pool) Close() error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	return nil
}

// IsUndefinedTable reports whether err is a missing-relation error.
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

// IsDuplicateObject reports whether err came from creating a table that a
// concurrent transaction created first. CREATE TABLE IF NOT EXISTS can still
// fail this way: 42P07 on the relation or 23505 on pg_type.
func IsDuplicateObject(err error) bool {
	return hasCode(err, codeDuplicateTable) || hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
