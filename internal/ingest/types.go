package ingest

import (
	"fmt"
	"strings"

	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// Humidity bounds in percent.
const (
	minHumidity = 0
	maxHumidity = 100
)

// WriteRequest is a sensor's write payload.
//
// Firmware in the field sends either "temp" or "temperature". Older
// firmware also sends campus, location, date and time; those are accepted
// and ignored, because the registry and the server clock are
// authoritative.
type WriteRequest struct {
	Device      string `json:"device"`
	Temp        *int   `json:"temp,omitempty"`
	Temperature *int   `json:"temperature,omitempty"`
	Humidity    *int   `json:"humidity,omitempty"`

	Campus   string `json:"campus,omitempty"`
	Location string `json:"location,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
}

// temperature returns the reported temperature, preferring "temperature"
// over "temp".
func (r WriteRequest) temperature() *int {
	if r.Temperature != nil {
		return r.Temperature
	}
	return r.Temp
}

func (r WriteRequest) hasLegacyFields() bool {
	return r.Campus != "" || r.Location != "" || r.Date != "" || r.Time != ""
}

func (r WriteRequest) validate() error {
	if strings.TrimSpace(r.Device) == "" {
		return fmt.Errorf("%w: device is required", ErrValidation)
	}
	if r.temperature() == nil {
		return fmt.Errorf("%w: temperature is required", ErrValidation)
	}
	if h := r.Humidity; h != nil && (*h < minHumidity || *h > maxHumidity) {
		return fmt.Errorf("%w: humidity %d outside %d-%d", ErrValidation, *h, minHumidity, maxHumidity)
	}
	return nil
}

// Result describes a successful write.
type Result struct {
	Device    string          `json:"device"`
	Reading   reading.Reading `json:"reading"`
	Delivered int             `json:"-"`
}
