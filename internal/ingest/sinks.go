package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/broadcast"
	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// PointWriter queues reading points. influxdb.Client satisfies it.
type PointWriter interface {
	WriteReading(p influxdb.ReadingPoint)
}

// InfluxSink mirrors readings to InfluxDB for long-range graphs.
type InfluxSink struct {
	writer PointWriter
	loc    *time.Location
}

// NewInfluxSink creates a sink. loc is the zone readings were stamped in.
func NewInfluxSink(writer PointWriter, loc *time.Location) *InfluxSink {
	if loc == nil {
		loc = time.UTC
	}
	return &InfluxSink{writer: writer, loc: loc}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Write implements Sink. The point is batched by the client; delivery
// errors surface through the client's error callback.
func (s *InfluxSink) Write(_ context.Context, d device.Device, r reading.Reading) error {
	ts, err := r.Timestamp(s.loc)
	if err != nil {
		return fmt.Errorf("parsing reading time: %w", err)
	}
	s.writer.WriteReading(influxdb.ReadingPoint{
		Device:      d.Name,
		Campus:      r.Campus,
		Location:    r.Location,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Time:        ts,
	})
	return nil
}

// JSONPublisher publishes JSON messages. mqtt.Client satisfies it.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink republishes each update event on tempwatch/event/update/{device}
// for other consumers on the broker.
type MQTTSink struct {
	pub JSONPublisher
}

// NewMQTTSink creates a sink.
func NewMQTTSink(pub JSONPublisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Write implements Sink.
func (s *MQTTSink) Write(_ context.Context, d device.Device, r reading.Reading) error {
	return s.pub.PublishJSON(mqtt.Topics{}.Update(d.Name), broadcast.NewUpdate(d.Name, r))
}
