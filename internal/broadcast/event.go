package broadcast

import "github.com/nerrad567/tempwatch-core/internal/reading"

// Event types.
const (
	EventConnected = "connected"
	EventUpdate    = "update"
)

// Event is the JSON message delivered to subscribers.
type Event struct {
	Type   string `json:"type"`
	Device string `json:"device,omitempty"`
	Data   *Data  `json:"data,omitempty"`
}

// Data carries the stored reading of an update event.
type Data struct {
	Campus      string `json:"campus"`
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Humidity    *int   `json:"humidity"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// NewUpdate builds the update event for a stored reading.
func NewUpdate(device string, r reading.Reading) Event {
	return Event{
		Type:   EventUpdate,
		Device: device,
		Data: &Data{
			Campus:      r.Campus,
			Location:    r.Location,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Date:        r.Date,
			Time:        r.Time,
		},
	}
}
