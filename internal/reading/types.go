package reading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/ident"
)

// Layouts of the Date and Time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// tablePrefix keeps device tables apart from the registry's own tables.
const tablePrefix = "readings_"

// Reading is one stored measurement. Campus and Location are copied from
// the registry at write time.
type Reading struct {
	ID          int64  `json:"id"`
	Campus      string `json:"campus"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Temperature int    `json:"temperature"`
	Humidity    *int   `json:"humidity"`
}

// Stamp sets Date and Time from t.
func (r *Reading) Stamp(t time.Time) {
	r.Date = t.Format(DateLayout)
	r.Time = t.Format(TimeLayout)
}

// Timestamp parses Date and Time in loc.
func (r Reading) Timestamp(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
}

// Store is the per-device reading storage.
type Store interface {
	// EnsureExists creates the device's table if absent. Idempotent and
	// safe under concurrent calls for the same name.
	EnsureExists(ctx context.Context, name string) error

	// Append stores r and returns it with its assigned ID.
	// Returns ErrUnknownDevice if the table was never created.
	Append(ctx context.Context, name string, r Reading) (Reading, error)

	// Latest returns the most recent reading, or ErrNoReadings.
	Latest(ctx context.Context, name string) (Reading, error)

	// History returns readings newest-first. A non-empty date restricts the
	// result to that day.
	History(ctx context.Context, name, date string) ([]Reading, error)

	// Reset deletes every reading but keeps the table.
	Reset(ctx context.Context, name string) error

	// Drop removes the table. Dropping a missing table is not an error.
	Drop(ctx context.Context, name string) error
}

// tableName validates name and returns the quoted table identifier.
// Names are lower-cased so SQLite and PostgreSQL agree on the table.
func tableName(name string) (string, error) {
	valid, err := ident.Validate(name)
	if err != nil {
		return "", err
	}
	return `"` + tablePrefix + strings.ToLower(valid) + `"`, nil
}

// indexName returns the quoted name of the table's date index.
func indexName(name string) string {
	return `"idx_` + tablePrefix + strings.ToLower(name) + `_date"`
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}
