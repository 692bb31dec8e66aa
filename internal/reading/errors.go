package reading

import "errors"

// Domain errors for the reading package.
var (
	// ErrUnknownDevice is returned when the device's store was never
	// provisioned.
	ErrUnknownDevice = errors.New("reading: unknown device")

	// ErrNoReadings is returned by Latest for an empty store.
	ErrNoReadings = errors.New("reading: no readings")

	// ErrStorage wraps underlying I/O failures.
	ErrStorage = errors.New("reading: storage failure")

	// ErrInvalidDate is returned for a history filter not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("reading: invalid date")
)
