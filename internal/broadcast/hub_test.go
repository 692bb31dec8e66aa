package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/reading"
)

func intPtr(v int) *int { return &v }

func testUpdate(device string, temp int) Event {
	return NewUpdate(device, reading.Reading{
		Campus:      "North",
		Location:    "Lab 1",
		Date:        "2026-03-01",
		Time:        "10:00:00",
		Temperature: temp,
		Humidity:    intPtr(40),
	})
}

// next reads one event from sub or fails after a second.
func next(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case data := <-sub.Messages():
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("invalid event JSON %q: %v", data, err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func temperatureOf(ev Event) int {
	if ev.Data == nil {
		return -1
	}
	return ev.Data.Temperature
}

func expectNone(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case data := <-sub.Messages():
		t.Fatalf("unexpected event %s", data)
	default:
	}
}

func TestHub_SubscribeSendsConnectedFirst(t *testing.T) {
	hub := NewHub(4)
	sub, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer hub.Unsubscribe(sub)

	hub.Publish(testUpdate("lab", 70))

	if ev := next(t, sub); ev.Type != EventConnected {
		t.Errorf("first event type = %q, want %q", ev.Type, EventConnected)
	}
	ev := next(t, sub)
	if ev.Type != EventUpdate || ev.Device != "lab" {
		t.Errorf("second event = %+v, want update for lab", ev)
	}
	if ev.Data == nil || ev.Data.Temperature != 70 || ev.Data.Campus != "North" {
		t.Errorf("update data = %+v", ev.Data)
	}
}

func TestHub_UniqueIDs(t *testing.T) {
	hub := NewHub(1)
	a, _ := hub.Subscribe()
	b, _ := hub.Subscribe()
	if a.ID() == b.ID() {
		t.Errorf("subscribers share ID %s", a.ID())
	}
}

func TestHub_PublishFanOut(t *testing.T) {
	hub := NewHub(1)

	subs := make([]*Subscriber, 3)
	for i := range subs {
		sub, err := hub.Subscribe()
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		subs[i] = sub
	}

	// Subscribers 1 and 3 drain their connected event; subscriber 2 leaves
	// its one-slot buffer full so the next delivery fails.
	next(t, subs[0])
	next(t, subs[2])

	delivered := hub.Publish(testUpdate("lab", 71))
	if delivered != 2 {
		t.Errorf("Publish() delivered = %d, want 2", delivered)
	}

	for _, i := range []int{0, 2} {
		if ev := next(t, subs[i]); temperatureOf(ev) != 71 {
			t.Errorf("subscriber %d got %+v, want temperature 71", i+1, ev)
		}
	}

	if !subs[1].Closed() {
		t.Error("failed subscriber should be closed")
	}
	if hub.Count() != 2 {
		t.Errorf("Count() = %d, want 2", hub.Count())
	}

	// The survivors keep receiving.
	if delivered := hub.Publish(testUpdate("lab", 72)); delivered != 2 {
		t.Errorf("second Publish() delivered = %d, want 2", delivered)
	}
}

func TestHub_LateSubscriberSeesOnlyNewEvents(t *testing.T) {
	hub := NewHub(4)
	early, _ := hub.Subscribe()
	next(t, early)

	hub.Publish(testUpdate("lab", 60))

	late, _ := hub.Subscribe()
	if ev := next(t, late); ev.Type != EventConnected {
		t.Fatalf("late subscriber first event = %q, want connected", ev.Type)
	}
	expectNone(t, late)

	hub.Publish(testUpdate("lab", 61))
	if ev := next(t, late); temperatureOf(ev) != 61 {
		t.Errorf("late subscriber got %+v, want temperature 61", ev)
	}
}

func TestHub_PublishWithNoSubscribers(t *testing.T) {
	hub := NewHub(1)
	if delivered := hub.Publish(testUpdate("lab", 70)); delivered != 0 {
		t.Errorf("Publish() delivered = %d, want 0", delivered)
	}
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	hub := NewHub(1)
	sub, _ := hub.Subscribe()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)

	if !sub.Closed() {
		t.Error("Unsubscribe() should close the subscriber")
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done() should be closed")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

func TestHub_DeliverToClosedSubscriber(t *testing.T) {
	hub := NewHub(4)
	sub, _ := hub.Subscribe()
	hub.Unsubscribe(sub)

	if err := sub.deliver([]byte("{}")); !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("deliver() error = %v, want ErrDeliveryFailed", err)
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1)
	a, _ := hub.Subscribe()
	b, _ := hub.Subscribe()

	hub.Close()

	if !a.Closed() || !b.Closed() {
		t.Error("Close() should close every subscriber")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
	if _, err := hub.Subscribe(); !errors.Is(err, ErrHubClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrHubClosed", err)
	}
	// Late cleanup from transports must not panic.
	hub.Unsubscribe(a)
}

func TestHub_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	hub := NewHub(8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := hub.Subscribe()
			if err != nil {
				return
			}
			time.Sleep(time.Millisecond)
			hub.Unsubscribe(sub)
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(testUpdate("lab", i*100+j))
			}
		}(i)
	}
	wg.Wait()

	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

func TestNewHub_DefaultBuffer(t *testing.T) {
	hub := NewHub(0)
	if hub.bufferSize != DefaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", hub.bufferSize, DefaultBufferSize)
	}
}
