package reading

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/postgres"
)

// PostgresStore keeps device tables in PostgreSQL. IDs come from a
// per-table BIGSERIAL, so row order is insertion order.
type PostgresStore struct {
	pool *postgres.Pool
}

// NewPostgresStore creates a store over pool.
func NewPostgresStore(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureExists creates the table if absent. Two sessions racing on
// CREATE TABLE IF NOT EXISTS can see a duplicate-object error from the
// loser; the table exists either way, so that counts as success.
func (s *PostgresStore) EnsureExists(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id BIGSERIAL PRIMARY KEY,
			campus TEXT NOT NULL,
			location TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			temperature INTEGER NOT NULL,
			humidity INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS ` + indexName(name) + ` ON ` + table + ` (date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil && !postgres.IsDuplicateObject(err) {
			return fmt.Errorf("%w: creating %s: %w", ErrStorage, table, err)
		}
	}
	return nil
}

// Append inserts r.
func (s *PostgresStore) Append(ctx context.Context, name string, r Reading) (Reading, error) {
	table, err := tableName(name)
	if err != nil {
		return Reading{}, err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (campus, location, date, time, temperature, humidity)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		r.Campus, r.Location, r.Date, r.Time, r.Temperature, r.Humidity,
	).Scan(&r.ID)
	if err != nil {
		return Reading{}, classifyPostgres(err, "appending to", table)
	}
	return r, nil
}

// Latest returns the row with the highest ID.
func (s *PostgresStore) Latest(ctx context.Context, name string) (Reading, error) {
	table, err := tableName(name)
	if err != nil {
		return Reading{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+readingColumns+` FROM `+table+` ORDER BY id DESC LIMIT 1`)
	r, err := scanPgReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reading{}, ErrNoReadings
		}
		return Reading{}, classifyPostgres(err, "reading latest from", table)
	}
	return r, nil
}

// History returns readings newest-first, optionally for one date.
func (s *PostgresStore) History(ctx context.Context, name, date string) ([]Reading, error) {
	table, err := tableName(name)
	if err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	query := `SELECT ` + readingColumns + ` FROM ` + table
	var args []any
	if date != "" {
		query += ` WHERE date = $1`
		args = append(args, date)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPostgres(err, "reading history from", table)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		r, err := scanPgReading(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %w", ErrStorage, table, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres(err, "iterating", table)
	}
	return readings, nil
}

// Reset deletes all rows. The sequence is not restarted.
func (s *PostgresStore) Reset(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+table); err != nil {
		return classifyPostgres(err, "resetting", table)
	}
	return nil
}

// Drop removes the table.
func (s *PostgresStore) Drop(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("%w: dropping %s: %w", ErrStorage, table, err)
	}
	return nil
}

// HealthCheck pings the server.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

func classifyPostgres(err error, op, table string) error {
	if postgres.IsUndefinedTable(err) {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, table)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrStorage, op, table, err)
}

func scanPgReading(row pgx.Row) (Reading, error) {
	var r Reading
	var humidity *int32
	if err := row.Scan(&r.ID, &r.Campus, &r.Location, &r.Date, &r.Time, &r.Temperature, &humidity); err != nil {
		return Reading{}, err
	}
	if humidity != nil {
		h := int(*humidity)
		r.Humidity = &h
	}
	return r, nil
}
