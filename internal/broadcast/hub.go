package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tempwatch-core/internal/metrics"
)

// DefaultBufferSize is the per-subscriber queue length used when none is
// configured.
const DefaultBufferSize = 32

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is one live connection's view of the hub.
//
// The send channel is never closed, so a Publish racing with Unsubscribe
// cannot panic. Done signals the end of the subscription instead.
type Subscriber struct {
	id          uuid.UUID
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
}

// ID returns the subscriber's unique handle.
func (s *Subscriber) ID() string {
	return s.id.String()
}

// ConnectedAt returns when the subscription was opened.
func (s *Subscriber) ConnectedAt() time.Time {
	return s.connectedAt
}

// Messages returns the stream of encoded events.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Done is closed when the subscriber is unsubscribed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the subscriber has been unsubscribed.
func (s *Subscriber) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() bool {
	closed := false
	s.closeOnce.Do(func() {
		close(s.done)
		closed = true
	})
	return closed
}

// deliver offers data without blocking.
func (s *Subscriber) deliver(data []byte) error {
	if s.Closed() {
		return fmt.Errorf("%w: subscriber closed", ErrDeliveryFailed)
	}
	select {
	case s.send <- data:
		return nil
	default:
		return fmt.Errorf("%w: buffer full", ErrDeliveryFailed)
	}
}

// Hub tracks live subscribers and fans events out to them.
type Hub struct {
	bufferSize int
	logger     Logger

	subs   map[uuid.UUID]*Subscriber
	closed bool
	mu     sync.RWMutex

	connected []byte // pre-encoded connected event
}

// NewHub creates a hub whose subscribers queue up to bufferSize events.
func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	connected, _ := json.Marshal(Event{Type: EventConnected}) //nolint:errcheck // static value
	return &Hub{
		bufferSize: bufferSize,
		logger:     noopLogger{},
		subs:       make(map[uuid.UUID]*Subscriber),
		connected:  connected,
	}
}

// SetLogger sets the logger for the hub.
func (h *Hub) SetLogger(logger Logger) {
	h.logger = logger
}

// Subscribe registers a new subscriber. The connected event is queued
// before the subscriber is visible to Publish, so it is always first.
func (h *Hub) Subscribe() (*Subscriber, error) {
	sub := &Subscriber{
		id:          uuid.New(),
		send:        make(chan []byte, h.bufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
	sub.send <- h.connected

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return nil, ErrHubClosed
	}
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	metrics.LiveSubscribers.Set(float64(count))
	h.logger.Debug("live subscriber connected", "subscriber", sub.ID(), "subscribers", count)
	return sub, nil
}

// Unsubscribe removes sub. Calling it more than once, or after Close, is
// safe.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, existed := h.subs[sub.id]
	delete(h.subs, sub.id)
	count := len(h.subs)
	h.mu.Unlock()

	sub.close()
	if existed {
		metrics.LiveSubscribers.Set(float64(count))
		h.logger.Debug("live subscriber disconnected", "subscriber", sub.ID(), "subscribers", count)
	}
}

// Publish delivers ev to every current subscriber and returns how many
// accepted it. Subscribers that fail are unsubscribed. Publish never
// blocks on a subscriber.
func (h *Hub) Publish(ev Event) int {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal live event", "type", ev.Type, "error", err)
		return 0
	}

	// Snapshot under the read lock, then deliver without holding it.
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	metrics.EventsPublished.Inc()

	delivered := 0
	for _, sub := range subs {
		if err := sub.deliver(data); err != nil {
			metrics.DeliveryFailures.Inc()
			h.logger.Warn("dropping live subscriber",
				"subscriber", sub.ID(),
				"device", ev.Device,
				"error", err,
			)
			h.Unsubscribe(sub)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		h.logger.Debug("live event published", "device", ev.Device, "recipients", delivered)
	}
	return delivered
}

// Count returns the number of open subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everyone and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[uuid.UUID]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	metrics.LiveSubscribers.Set(0)
	h.logger.Info("live hub closed", "subscribers", len(subs))
}
