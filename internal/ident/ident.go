// Package ident validates the device names that double as storage keys.
//
// A device name is interpolated into a table name, so it must never carry
// anything a query parser could interpret. Validate is the only gate: every
// store re-validates names it receives, even from trusted callers.
package ident

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the longest accepted identifier. It keeps the prefixed table
// name under PostgreSQL's 63-byte identifier limit.
const MaxLength = 48

// ErrInvalidIdentifier is returned for names that are empty, too long, or
// contain anything outside [A-Za-z0-9_] (or do not start with a letter).
var ErrInvalidIdentifier = errors.New("ident: invalid identifier")

var pattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate returns s unchanged if it is a valid identifier.
func Validate(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if len(s) > MaxLength {
		return "", fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidIdentifier, len(s), MaxLength)
	}
	if !pattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q must start with a letter followed by letters, digits or underscores",
			ErrInvalidIdentifier, s)
	}
	return s, nil
}

// Normalize maps hyphens to underscores, then validates. Sensors flashed
// with names like "room-12" reach the table room_12.
func Normalize(s string) (string, error) {
	return Validate(strings.ReplaceAll(s, "-", "_"))
}

// Equal reports whether two valid identifiers name the same storage entity.
// Table names compare case-insensitively in both SQLite and unquoted SQL.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
