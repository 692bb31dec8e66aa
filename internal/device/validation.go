package device

import (
	"fmt"
	"strings"

	"github.com/nerrad567/tempwatch-core/internal/ident"
)

// MaxLabelLength bounds campus and location labels.
const MaxLabelLength = 20

// validateRegistration checks a new device. Names are validated strictly:
// an operator registering "room-12" is told so, rather than getting room_12.
func validateRegistration(name, campus, location string) (Device, error) {
	valid, err := ident.Validate(name)
	if err != nil {
		return Device{}, fmt.Errorf("%w: name: %w", ErrInvalidDevice, err)
	}

	campus = strings.TrimSpace(campus)
	location = strings.TrimSpace(location)

	if err := validateLabel("campus", campus); err != nil {
		return Device{}, err
	}
	if err := validateLabel("location", location); err != nil {
		return Device{}, err
	}

	return Device{Name: valid, Campus: campus, Location: location}, nil
}

func validateLabel(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidDevice, field)
	}
	if len([]rune(value)) > MaxLabelLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidDevice, field, MaxLabelLength)
	}
	return nil
}
