package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementReadings is the measurement every reading is written under.
const MeasurementReadings = "readings"

// ReadingPoint is one stored reading as mirrored to InfluxDB.
type ReadingPoint struct {
	Device      string
	Campus      string
	Location    string
	Temperature int
	Humidity    *int
	Time        time.Time
}

// WriteReading queues a reading for the next batch. The write is
// non-blocking; failures surface through SetOnError.
func (c *Client) WriteReading(p ReadingPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newReadingPoint(p))
	c.queued.Add(1)
}

// newReadingPoint tags by device, campus and location (all low cardinality)
// and omits the humidity field when the sensor did not report one.
func newReadingPoint(p ReadingPoint) *write.Point {
	fields := map[string]interface{}{
		"temperature": p.Temperature,
	}
	if p.Humidity != nil {
		fields["humidity"] = *p.Humidity
	}

	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementReadings,
		map[string]string{
			"device":   p.Device,
			"campus":   p.Campus,
			"location": p.Location,
		},
		fields,
		ts,
	)
}
