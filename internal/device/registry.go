package device

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/tempwatch-core/internal/ident"
)

// Logger defines the logging interface used by the Registry.
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

// StoreProvisioner creates and destroys the per-device reading store.
// reading.Store satisfies it.
type StoreProvisioner interface {
	EnsureExists(ctx context.Context, name string) error
	Drop(ctx context.Context, name string) error
}

// nameLockStripes is the number of locks the device names hash onto.
const nameLockStripes = 64

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the write operations. All public methods are thread-safe.
//
// Register and Remove hold a per-name lock exclusively; WithDevice holds
// it shared, so a reading store is never dropped under a running write.
type Registry struct {
	repo   Repository
	stores StoreProvisioner
	logger Logger

	cache   map[string]*Device // keyed by lower-cased name
	loaded  bool               // cache holds the full device set
	cacheMu sync.RWMutex

	nameLocks [nameLockStripes]sync.RWMutex
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository, stores StoreProvisioner) *Registry {
	return &Registry{
		repo:   repo,
		stores: stores,
		logger: noopLogger{},
		cache:  make(map[string]*Device),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[cacheKey(d.Name)] = &d
	}
	r.loaded = true

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// Register adds a device and provisions its reading store. If provisioning
// fails the entry is removed again, so a registered device always has a
// store.
func (r *Registry) Register(ctx context.Context, name, campus, location string) (*Device, error) {
	d, err := validateRegistration(name, campus, location)
	if err != nil {
		return nil, err
	}

	mu := r.nameLock(d.Name)
	mu.Lock()
	defer mu.Unlock()

	if err := r.repo.Create(ctx, &d); err != nil {
		return nil, err
	}

	if err := r.stores.EnsureExists(ctx, d.Name); err != nil {
		if delErr := r.repo.Delete(ctx, d.Name); delErr != nil {
			r.logger.Error("rolling back device registration",
				"device", d.Name,
				"error", delErr,
			)
		}
		return nil, fmt.Errorf("provisioning store for %s: %w", d.Name, err)
	}

	r.cacheMu.Lock()
	stored := d
	r.cache[cacheKey(d.Name)] = &stored
	r.cacheMu.Unlock()

	r.logger.Info("device registered",
		"device", d.Name,
		"campus", d.Campus,
		"location", d.Location,
	)
	return &d, nil
}

// Lookup returns the device with the given name, or ErrDeviceNotFound.
// The returned device is a copy.
func (r *Registry) Lookup(ctx context.Context, name string) (*Device, error) {
	if _, err := ident.Validate(name); err != nil {
		return nil, err
	}

	r.cacheMu.RLock()
	cached, ok := r.cache[cacheKey(name)]
	loaded := r.loaded
	r.cacheMu.RUnlock()

	if ok {
		d := *cached
		return &d, nil
	}
	if loaded {
		return nil, ErrDeviceNotFound
	}

	d, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	stored := *d
	r.cache[cacheKey(d.Name)] = &stored
	r.cacheMu.Unlock()

	return d, nil
}

// WithDevice looks up name and calls fn with a copy of the device. Remove
// of the same name waits until fn returns. fn must not call Register or
// Remove.
func (r *Registry) WithDevice(ctx context.Context, name string, fn func(Device) error) error {
	if _, err := ident.Validate(name); err != nil {
		return err
	}

	mu := r.nameLock(name)
	mu.RLock()
	defer mu.RUnlock()

	d, err := r.Lookup(ctx, name)
	if err != nil {
		return err
	}
	return fn(*d)
}

// Remove deletes the device entry, then drops its reading store. The
// entry is gone even if dropping the store fails; the error is returned so
// the caller can report it.
func (r *Registry) Remove(ctx context.Context, name string) error {
	if _, err := ident.Validate(name); err != nil {
		return err
	}

	mu := r.nameLock(name)
	mu.Lock()
	defer mu.Unlock()

	if err := r.repo.Delete(ctx, name); err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			r.evict(name)
		}
		return err
	}
	r.evict(name)

	if err := r.stores.Drop(ctx, name); err != nil {
		r.logger.Error("dropping reading store", "device", name, "error", err)
		return fmt.Errorf("dropping store for %s: %w", name, err)
	}

	r.logger.Info("device removed", "device", name)
	return nil
}

// List returns all devices ordered by campus, location and name.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if r.loaded {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d)
		}
		r.cacheMu.RUnlock()
		sortDevices(devices)
		return devices, nil
	}
	r.cacheMu.RUnlock()

	return r.repo.List(ctx)
}

// ListByCampus returns the devices on one campus (case-insensitive), in
// List order. An empty campus returns every device.
func (r *Registry) ListByCampus(ctx context.Context, campus string) ([]Device, error) {
	devices, err := r.List(ctx)
	if err != nil || campus == "" {
		return devices, err
	}

	filtered := devices[:0]
	for _, d := range devices {
		if strings.EqualFold(d.Campus, campus) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// GetStats summarises the registered devices.
func (r *Registry) GetStats(ctx context.Context) (Stats, error) {
	devices, err := r.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(devices), ByCampus: make(map[string]int)}
	for _, d := range devices {
		stats.ByCampus[d.Campus]++
	}
	return stats, nil
}

func (r *Registry) evict(name string) {
	r.cacheMu.Lock()
	delete(r.cache, cacheKey(name))
	r.cacheMu.Unlock()
}

// nameLock returns the lock stripe for name. Names differing only in case
// share a stripe.
func (r *Registry) nameLock(name string) *sync.RWMutex {
	h := fnv.New32a()
	h.Write([]byte(cacheKey(name))) //nolint:errcheck // hash writes never fail
	return &r.nameLocks[h.Sum32()%nameLockStripes]
}

func cacheKey(name string) string {
	return strings.ToLower(name)
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if a.Campus != b.Campus {
			return a.Campus < b.Campus
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.Name < b.Name
	})
}
