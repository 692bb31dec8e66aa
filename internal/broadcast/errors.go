package broadcast

import "errors"

var (
	// ErrDeliveryFailed means a subscriber could not take an event. It is
	// never returned to publishers; the subscriber is dropped instead.
	ErrDeliveryFailed = errors.New("broadcast: delivery failed")

	// ErrHubClosed is returned by Subscribe after Close.
	ErrHubClosed = errors.New("broadcast: hub closed")
)
