package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/mqtt"
)

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	f.topic, f.qos, f.handler = topic, qos, handler
	return nil
}

type recordingWriter struct {
	requests []WriteRequest
	err      error
}

func (w *recordingWriter) Write(_ context.Context, req WriteRequest) (Result, error) {
	w.requests = append(w.requests, req)
	return Result{}, w.err
}

func TestMQTTSource_Start(t *testing.T) {
	sub := &fakeSubscriber{}
	src := NewMQTTSource(&recordingWriter{}, sub, 1)

	if err := src.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != "tempwatch/write/+" || sub.qos != 1 || sub.handler == nil {
		t.Errorf("subscribed %q qos %d", sub.topic, sub.qos)
	}

	failing := NewMQTTSource(&recordingWriter{}, &fakeSubscriber{err: mqtt.ErrNotConnected}, 1)
	if err := failing.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

func TestMQTTSource_Handle(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		payload    string
		wantWrites int
		wantDevice string
	}{
		{"valid write", "tempwatch/write/room-12", `{"temp":72,"humidity":45}`, 1, "room-12"},
		{"topic device wins over payload", "tempwatch/write/lab", `{"device":"other","temperature":60}`, 1, "lab"},
		{"nested topic", "tempwatch/write/a/b", `{"temp":72}`, 0, ""},
		{"foreign topic", "other/write/lab", `{"temp":72}`, 0, ""},
		{"malformed json", "tempwatch/write/lab", `{"temp":`, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			src := NewMQTTSource(w, &fakeSubscriber{}, 1)

			if err := src.handle(tt.topic, []byte(tt.payload)); err != nil {
				t.Errorf("handle() error = %v, want nil", err)
			}
			if len(w.requests) != tt.wantWrites {
				t.Fatalf("writes = %d, want %d", len(w.requests), tt.wantWrites)
			}
			if tt.wantWrites > 0 && w.requests[0].Device != tt.wantDevice {
				t.Errorf("Device = %q, want %q", w.requests[0].Device, tt.wantDevice)
			}
		})
	}
}

func TestMQTTSource_RejectedWriteIsSwallowed(t *testing.T) {
	w := &recordingWriter{err: ErrValidation}
	src := NewMQTTSource(w, &fakeSubscriber{}, 1)

	if err := src.handle("tempwatch/write/lab", []byte(`{}`)); err != nil {
		t.Errorf("handle() error = %v, want nil", err)
	}
	if len(w.requests) != 1 {
		t.Errorf("writes = %d, want 1", len(w.requests))
	}
}
