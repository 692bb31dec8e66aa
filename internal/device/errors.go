package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no device has the given name.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a name already in use
	// (compared case-insensitively).
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when registration input fails validation.
	// An invalid name also matches ident.ErrInvalidIdentifier.
	ErrInvalidDevice = errors.New("device: invalid")
)
