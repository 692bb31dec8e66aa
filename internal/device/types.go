package device

import "time"

// Device is a registered sensor.
type Device struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Campus    string    `json:"campus"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarises the registry for the metrics endpoint.
type Stats struct {
	Total    int            `json:"total"`
	ByCampus map[string]int `json:"by_campus"`
}
