package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/mqtt"
)

// Writer accepts write requests. Service satisfies it.
type Writer interface {
	Write(ctx context.Context, req WriteRequest) (Result, error)
}

// Subscriber registers MQTT handlers. mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTTSource feeds readings published on tempwatch/write/{device} into the
// write path. The payload is the HTTP body without the device field:
//
//	{"temp": 72, "humidity": 45}
type MQTTSource struct {
	writer Writer
	client Subscriber
	qos    byte
	logger Logger
}

// NewMQTTSource creates a source. Call Start once the client is connected.
func NewMQTTSource(writer Writer, client Subscriber, qos byte) *MQTTSource {
	return &MQTTSource{
		writer: writer,
		client: client,
		qos:    qos,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the source.
func (m *MQTTSource) SetLogger(logger Logger) {
	m.logger = logger
}

// Start subscribes to the write topic.
func (m *MQTTSource) Start() error {
	topic := mqtt.Topics{}.AllWrites()
	if err := m.client.Subscribe(topic, m.qos, m.handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	m.logger.Info("listening for mqtt writes", "topic", topic)
	return nil
}

// handle processes one message. Bad messages are logged and dropped.
func (m *MQTTSource) handle(topic string, payload []byte) error {
	name, ok := mqtt.Topics{}.DeviceFromWriteTopic(topic)
	if !ok {
		m.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	var req WriteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		m.logger.Warn("ignoring malformed mqtt write", "topic", topic, "error", err)
		return nil
	}
	req.Device = name

	if _, err := m.writer.Write(context.Background(), req); err != nil {
		m.logger.Warn("mqtt write rejected", "device", name, "error", err)
	}
	return nil
}
