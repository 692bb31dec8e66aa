package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

type deviceList struct {
	Devices []device.Device `json:"devices"`
	Count   int             `json:"count"`
}

func TestListDevices_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/devices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decode[deviceList](t, w); body.Count != 0 || body.Devices == nil {
		t.Errorf("body = %+v, want an empty list", body)
	}
}

func TestRegisterAndListDevices(t *testing.T) {
	env := newTestEnv(t)

	for _, d := range []registerDeviceRequest{
		{Name: "lab_02", Campus: "North", Location: "Lab 2"},
		{Name: "attic", Campus: "Home", Location: "Attic"},
		{Name: "lab_01", Campus: "North", Location: "Lab 1"},
	} {
		w := env.do(http.MethodPost, "/api/devices", d)
		if w.Code != http.StatusCreated {
			t.Fatalf("register %s status = %d (body %s)", d.Name, w.Code, w.Body.String())
		}
		if got := decode[device.Device](t, w); got.Name != d.Name || got.ID == 0 {
			t.Errorf("registered = %+v", got)
		}
	}

	body := decode[deviceList](t, env.do(http.MethodGet, "/api/devices", nil))
	var names []string
	for _, d := range body.Devices {
		names = append(names, d.Name)
	}
	want := []string{"attic", "lab_01", "lab_02"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}

	north := decode[deviceList](t, env.do(http.MethodGet, "/api/devices?campus=north", nil))
	if north.Count != 2 {
		t.Errorf("campus filter count = %d, want 2", north.Count)
	}
}

func TestRegisterDevice_ProvisionsStore(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodPost, "/api/devices", registerDeviceRequest{Name: "lab", Campus: "North", Location: "Lab"})

	// The table exists, it is just empty.
	if _, err := env.store.Latest(context.Background(), "lab"); err != reading.ErrNoReadings { //nolint:errorlint // unwrapped sentinel
		t.Errorf("Latest() error = %v, want ErrNoReadings", err)
	}
}

func TestRegisterDevice_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"hyphenated name", registerDeviceRequest{Name: "room-12", Campus: "North", Location: "Room"}, http.StatusBadRequest, ErrCodeValidation},
		{"missing campus", registerDeviceRequest{Name: "lab", Location: "Lab"}, http.StatusBadRequest, ErrCodeValidation},
		{"long location", registerDeviceRequest{Name: "lab", Campus: "North", Location: "a location far too long"}, http.StatusBadRequest, ErrCodeValidation},
		{"duplicate", registerDeviceRequest{Name: "EXISTING", Campus: "North", Location: "Lab"}, http.StatusConflict, ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.register(t, "existing", "North", "Lab")

			expectError(t, env.do(http.MethodPost, "/api/devices", tt.body), tt.status, tt.code)
		})
	}
}

func TestRemoveDevice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "lab", "North", "Lab")
	env.do(http.MethodPost, "/api/write", map[string]any{"device": "lab", "temp": 70})

	w := env.do(http.MethodDelete, "/api/devices/lab", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	if _, err := env.registry.Lookup(ctx, "lab"); err == nil {
		t.Error("device still registered after removal")
	}
	if _, err := env.store.Latest(ctx, "lab"); err != reading.ErrUnknownDevice { //nolint:errorlint // unwrapped sentinel
		t.Errorf("Latest() error = %v, want ErrUnknownDevice", err)
	}

	expectError(t, env.do(http.MethodDelete, "/api/devices/lab", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "lab", "North", "Lab")
	env.register(t, "attic", "Home", "Attic")
	env.register(t, "cellar", "Home", "Cellar")

	env.do(http.MethodPost, "/api/write", map[string]any{"device": "attic", "temp": 80, "humidity": 75})
	env.do(http.MethodPost, "/api/write", map[string]any{"device": "lab", "temp": 70, "humidity": 30})

	w := env.do(http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	all := decode[[]DashboardEntry](t, w)
	if len(all) != 3 {
		t.Fatalf("dashboard has %d entries, want 3", len(all))
	}

	byName := make(map[string]DashboardEntry)
	for _, e := range all {
		byName[e.Device.Name] = e
	}

	if e := byName["attic"]; e.Latest == nil || e.MoldRisk == nil || *e.MoldRisk != reading.RiskHigh {
		t.Errorf("attic = %+v, want high risk", e)
	}
	if e := byName["lab"]; e.MoldRisk == nil || *e.MoldRisk != reading.RiskNone {
		t.Errorf("lab = %+v, want no risk", e)
	}
	if e := byName["cellar"]; e.Latest != nil || e.MoldRisk != nil {
		t.Errorf("cellar = %+v, want null latest", e)
	}

	home := decode[[]DashboardEntry](t, env.do(http.MethodGet, "/api/dashboard?filter=Home", nil))
	if len(home) != 2 {
		t.Errorf("filtered dashboard has %d entries, want 2", len(home))
	}
	for _, e := range home {
		if e.Device.Campus != "Home" {
			t.Errorf("filter leaked %+v", e.Device)
		}
	}
}

// flakyLatest fails Latest for one device.
type flakyLatest struct {
	reading.Store
	device string
}

func (f flakyLatest) Latest(ctx context.Context, name string) (reading.Reading, error) {
	if name == f.device {
		return reading.Reading{}, fmt.Errorf("%w: disk I/O error", reading.ErrStorage)
	}
	return f.Store.Latest(ctx, name)
}

func TestDashboard_StorageErrorOnOneDevice(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Store = flakyLatest{Store: d.Store, device: "attic"}
	})
	env.register(t, "lab", "North", "Lab")
	env.register(t, "attic", "Home", "Attic")

	env.do(http.MethodPost, "/api/write", map[string]any{"device": "attic", "temp": 80, "humidity": 75})
	env.do(http.MethodPost, "/api/write", map[string]any{"device": "lab", "temp": 70, "humidity": 30})

	w := env.do(http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	entries := decode[[]DashboardEntry](t, w)
	if len(entries) != 2 {
		t.Fatalf("dashboard has %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		switch e.Device.Name {
		case "attic":
			if e.Latest != nil || e.MoldRisk != nil {
				t.Errorf("attic = %+v, want null latest", e)
			}
		case "lab":
			if e.Latest == nil || e.Latest.Temperature != 70 {
				t.Errorf("lab = %+v, want its latest reading", e)
			}
		}
	}
}
