package reading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/tempwatch-core/internal/ident"
)

func intPtr(v int) *int { return &v }

func sample(temp int, date, clock string) Reading {
	return Reading{
		Campus:      "North",
		Location:    "Lab 1",
		Date:        date,
		Time:        clock,
		Temperature: temp,
		Humidity:    intPtr(45),
	}
}

// runStoreContract exercises the behaviour every Store implementation
// must share. newStore returns an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("ensure exists is idempotent", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			if err := s.EnsureExists(ctx, "idem"); err != nil {
				t.Fatalf("EnsureExists() call %d error = %v", i+1, err)
			}
		}
		if _, err := s.Append(ctx, "idem", sample(70, "2026-03-01", "10:00:00")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := s.EnsureExists(ctx, "idem"); err != nil {
			t.Fatalf("EnsureExists() after append error = %v", err)
		}
		history, err := s.History(ctx, "idem", "")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 1 {
			t.Errorf("EnsureExists() should keep existing rows: got %d, want 1", len(history))
		}
	})

	t.Run("ensure exists is safe concurrently", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.EnsureExists(ctx, "racer")
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Errorf("concurrent EnsureExists() error = %v", err)
			}
		}
		if _, err := s.Append(ctx, "racer", sample(70, "2026-03-01", "10:00:00")); err != nil {
			t.Fatalf("Append() after concurrent create error = %v", err)
		}
	})

	t.Run("append and read newest first", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "order"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}

		var ids []int64
		for i, temp := range []int{71, 72, 73} {
			r, err := s.Append(ctx, "order", sample(temp, "2026-03-01", fmt.Sprintf("10:00:0%d", i)))
			if err != nil {
				t.Fatalf("Append(R%d) error = %v", i+1, err)
			}
			ids = append(ids, r.ID)
		}
		if !(ids[0] < ids[1] && ids[1] < ids[2]) {
			t.Errorf("IDs = %v, want strictly increasing", ids)
		}

		latest, err := s.Latest(ctx, "order")
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if latest.Temperature != 73 || latest.ID != ids[2] {
			t.Errorf("Latest() = %+v, want R3", latest)
		}
		if latest.Humidity == nil || *latest.Humidity != 45 {
			t.Errorf("Latest().Humidity = %v, want 45", latest.Humidity)
		}

		history, err := s.History(ctx, "order", "")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		want := []int{73, 72, 71}
		if len(history) != len(want) {
			t.Fatalf("History() = %d readings, want %d", len(history), len(want))
		}
		for i, temp := range want {
			if history[i].Temperature != temp {
				t.Errorf("History()[%d].Temperature = %d, want %d", i, history[i].Temperature, temp)
			}
		}
	})

	t.Run("null humidity round trips", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "dry"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		r := sample(68, "2026-03-01", "09:00:00")
		r.Humidity = nil
		if _, err := s.Append(ctx, "dry", r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		latest, err := s.Latest(ctx, "dry")
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if latest.Humidity != nil {
			t.Errorf("Latest().Humidity = %d, want nil", *latest.Humidity)
		}
	})

	t.Run("stores are isolated", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"dev_a", "dev_b"} {
			if err := s.EnsureExists(ctx, name); err != nil {
				t.Fatalf("EnsureExists(%s) error = %v", name, err)
			}
		}
		if _, err := s.Append(ctx, "dev_a", sample(80, "2026-03-01", "12:00:00")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		if _, err := s.Latest(ctx, "dev_b"); !errors.Is(err, ErrNoReadings) {
			t.Errorf("Latest(dev_b) error = %v, want ErrNoReadings", err)
		}
		history, err := s.History(ctx, "dev_b", "")
		if err != nil {
			t.Fatalf("History(dev_b) error = %v", err)
		}
		if len(history) != 0 {
			t.Errorf("History(dev_b) = %d readings, want 0", len(history))
		}
	})

	t.Run("history date filter", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "daily"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		for _, r := range []Reading{
			sample(60, "2026-03-01", "08:00:00"),
			sample(61, "2026-03-02", "08:00:00"),
			sample(62, "2026-03-02", "09:00:00"),
		} {
			if _, err := s.Append(ctx, "daily", r); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		history, err := s.History(ctx, "daily", "2026-03-02")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 2 || history[0].Temperature != 62 || history[1].Temperature != 61 {
			t.Errorf("History(2026-03-02) = %+v, want [62 61]", history)
		}

		empty, err := s.History(ctx, "daily", "2025-01-01")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("History(2025-01-01) = %d readings, want 0", len(empty))
		}

		if _, err := s.History(ctx, "daily", "03/02/2026"); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("History() bad date error = %v, want ErrInvalidDate", err)
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Append(ctx, "ghost", sample(70, "2026-03-01", "10:00:00")); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Append() error = %v, want ErrUnknownDevice", err)
		}
		if _, err := s.Latest(ctx, "ghost"); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Latest() error = %v, want ErrUnknownDevice", err)
		}
		if _, err := s.History(ctx, "ghost", ""); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("History() error = %v, want ErrUnknownDevice", err)
		}
		if err := s.Reset(ctx, "ghost"); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Reset() error = %v, want ErrUnknownDevice", err)
		}
	})

	t.Run("reset keeps the table", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "wipe"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		first, err := s.Append(ctx, "wipe", sample(70, "2026-03-01", "10:00:00"))
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := s.Reset(ctx, "wipe"); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if _, err := s.Latest(ctx, "wipe"); !errors.Is(err, ErrNoReadings) {
			t.Errorf("Latest() after Reset error = %v, want ErrNoReadings", err)
		}
		next, err := s.Append(ctx, "wipe", sample(71, "2026-03-01", "10:05:00"))
		if err != nil {
			t.Fatalf("Append() after Reset error = %v", err)
		}
		if next.ID <= first.ID {
			t.Errorf("ID after Reset = %d, want > %d", next.ID, first.ID)
		}
	})

	t.Run("drop removes the table", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "gone"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		if err := s.Drop(ctx, "gone"); err != nil {
			t.Fatalf("Drop() error = %v", err)
		}
		if _, err := s.Latest(ctx, "gone"); !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Latest() after Drop error = %v, want ErrUnknownDevice", err)
		}
		if err := s.Drop(ctx, "gone"); err != nil {
			t.Errorf("second Drop() error = %v, want nil", err)
		}
	})

	t.Run("names are case-insensitive", func(t *testing.T) {
		s := newStore(t)
		if err := s.EnsureExists(ctx, "Porch"); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		if _, err := s.Append(ctx, "porch", sample(55, "2026-03-01", "07:00:00")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if _, err := s.Latest(ctx, "PORCH"); err != nil {
			t.Errorf("Latest() error = %v", err)
		}
	})

	t.Run("invalid names never reach storage", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{
			"",
			"room-12",
			`x"; DROP TABLE devices; --`,
			"1abc",
			"a b",
		} {
			if err := s.EnsureExists(ctx, name); !errors.Is(err, ident.ErrInvalidIdentifier) {
				t.Errorf("EnsureExists(%q) error = %v, want ErrInvalidIdentifier", name, err)
			}
			if _, err := s.Append(ctx, name, sample(1, "2026-03-01", "00:00:00")); !errors.Is(err, ident.ErrInvalidIdentifier) {
				t.Errorf("Append(%q) error = %v, want ErrInvalidIdentifier", name, err)
			}
			if err := s.Drop(ctx, name); !errors.Is(err, ident.ErrInvalidIdentifier) {
				t.Errorf("Drop(%q) error = %v, want ErrInvalidIdentifier", name, err)
			}
		}
	})
}
