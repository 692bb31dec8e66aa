package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/database"
)

// SQLiteStore keeps device tables in the registry's SQLite database.
// The database runs a single connection, so appends to one table are
// serialised in arrival order.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store over db.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const readingColumns = `id, campus, location, date, time, temperature, humidity`

// EnsureExists creates the table and its date index if absent.
func (s *SQLiteStore) EnsureExists(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
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
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: creating %s: %w", ErrStorage, table, err)
		}
	}
	return nil
}

// Append inserts r.
func (s *SQLiteStore) Append(ctx context.Context, name string, r Reading) (Reading, error) {
	table, err := tableName(name)
	if err != nil {
		return Reading{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (campus, location, date, time, temperature, humidity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Campus, r.Location, r.Date, r.Time, r.Temperature, nullableInt(r.Humidity),
	)
	if err != nil {
		return Reading{}, classifySQLite(err, "appending to", table)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Reading{}, fmt.Errorf("%w: reading id: %w", ErrStorage, err)
	}
	r.ID = id
	return r, nil
}

// Latest returns the row with the highest ID.
func (s *SQLiteStore) Latest(ctx context.Context, name string) (Reading, error) {
	table, err := tableName(name)
	if err != nil {
		return Reading{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+readingColumns+` FROM `+table+` ORDER BY id DESC LIMIT 1`)
	r, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reading{}, ErrNoReadings
		}
		return Reading{}, classifySQLite(err, "reading latest from", table)
	}
	return r, nil
}

// History returns readings newest-first, optionally for one date.
func (s *SQLiteStore) History(ctx context.Context, name, date string) ([]Reading, error) {
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
		query += ` WHERE date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLite(err, "reading history from", table)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %w", ErrStorage, table, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %w", ErrStorage, table, err)
	}
	return readings, nil
}

// Reset deletes all rows. IDs keep increasing afterwards.
func (s *SQLiteStore) Reset(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return classifySQLite(err, "resetting", table)
	}
	return nil
}

// Drop removes the table and its index.
func (s *SQLiteStore) Drop(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("%w: dropping %s: %w", ErrStorage, table, err)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func classifySQLite(err error, op, table string) error {
	if database.IsNoSuchTable(err) {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, table)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrStorage, op, table, err)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (Reading, error) {
	var r Reading
	var humidity sql.NullInt64
	if err := s.Scan(&r.ID, &r.Campus, &r.Location, &r.Date, &r.Time, &r.Temperature, &humidity); err != nil {
		return Reading{}, err
	}
	if humidity.Valid {
		h := int(humidity.Int64)
		r.Humidity = &h
	}
	return r, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
