// Package postgres provides the PostgreSQL connection pool used by the
// postgres reading store backend.
//
// Usage:
//
//	pool, err := postgres.Connect(ctx, cfg.Readings.Postgres)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
package postgres
