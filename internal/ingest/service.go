package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/broadcast"
	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/ident"
	"github.com/nerrad567/tempwatch-core/internal/metrics"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// defaultTimeout bounds the storage calls of one write when Config leaves
// Timeout unset.
const defaultTimeout = 10 * time.Second

// Logger defines the logging interface used by the Service.
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

// DeviceLookup resolves a device name and keeps it registered while fn
// runs. device.Registry satisfies it.
type DeviceLookup interface {
	WithDevice(ctx context.Context, name string, fn func(device.Device) error) error
}

// Publisher fans an event out to live subscribers. broadcast.Hub
// satisfies it.
type Publisher interface {
	Publish(ev broadcast.Event) int
}

// Sink mirrors stored readings to a secondary system.
type Sink interface {
	Name() string
	Write(ctx context.Context, d device.Device, r reading.Reading) error
}

// Config holds the write path settings.
type Config struct {
	// Timeout bounds the lookup and storage calls of one write.
	Timeout time.Duration

	// Location is the zone readings are stamped in. Nil means UTC.
	Location *time.Location
}

// Service is the write path shared by every ingestion source.
type Service struct {
	devices DeviceLookup
	store   reading.Store
	hub     Publisher
	cfg     Config
	logger  Logger
	now     func() time.Time

	sinks   []Sink
	sinksWG sync.WaitGroup

	closeMu sync.RWMutex // held shared by writes, exclusively by Close
	closed  bool
}

// NewService creates a write service.
func NewService(devices DeviceLookup, store reading.Store, hub Publisher, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		devices: devices,
		store:   store,
		hub:     hub,
		cfg:     cfg,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddSink registers a mirror for stored readings. Call before serving.
func (s *Service) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Write validates req, stores the reading and publishes it.
//
// Errors: ErrClosed after Close, ErrValidation and
// ident.ErrInvalidIdentifier before any storage call, device.ErrDeviceNotFound for unregistered names, and
// reading.ErrStorage when the append fails (nothing is published then).
func (s *Service) Write(ctx context.Context, req WriteRequest) (Result, error) {
	timer := metrics.NewTimer()

	res, err := s.write(ctx, req)
	metrics.ReadingsWritten.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return Result{}, err
	}

	timer.ObserveDuration(metrics.IngestDuration)
	return res, nil
}

func (s *Service) write(ctx context.Context, req WriteRequest) (Result, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return Result{}, ErrClosed
	}

	if err := req.validate(); err != nil {
		return Result{}, err
	}

	name, err := ident.Normalize(strings.TrimSpace(req.Device))
	if err != nil {
		return Result{}, err
	}

	if req.hasLegacyFields() {
		s.logger.Debug("ignoring client-supplied reading fields",
			"device", name,
			"campus", req.Campus,
			"location", req.Location,
			"date", req.Date,
			"time", req.Time,
		)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var (
		dev      device.Device
		stored   reading.Reading
		storeErr error
	)
	err = s.devices.WithDevice(ctx, name, func(d device.Device) error {
		dev = d
		stored, storeErr = s.appendReading(ctx, d, req)
		return storeErr
	})
	switch {
	case storeErr != nil:
		return Result{}, storeErr
	case err != nil:
		if errors.Is(err, device.ErrDeviceNotFound) || errors.Is(err, ident.ErrInvalidIdentifier) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: looking up %s: %w", reading.ErrStorage, name, err)
	}

	delivered := s.hub.Publish(broadcast.NewUpdate(dev.Name, stored))
	s.mirror(dev, stored)

	s.logger.Debug("reading stored",
		"device", dev.Name,
		"id", stored.ID,
		"temperature", stored.Temperature,
		"subscribers", delivered,
	)

	return Result{Device: dev.Name, Reading: stored, Delivered: delivered}, nil
}

// appendReading stores the reading for d. The caller holds d registered.
func (s *Service) appendReading(ctx context.Context, d device.Device, req WriteRequest) (reading.Reading, error) {
	if err := s.store.EnsureExists(ctx, d.Name); err != nil {
		return reading.Reading{}, err
	}

	r := reading.Reading{
		Campus:      d.Campus,
		Location:    d.Location,
		Temperature: *req.temperature(),
		Humidity:    req.Humidity,
	}
	r.Stamp(s.now().In(s.cfg.Location))

	stored, err := s.store.Append(ctx, d.Name, r)
	if err != nil {
		s.logger.Error("failed to store reading", "device", d.Name, "error", err)
		return reading.Reading{}, err
	}
	return stored, nil
}

// mirror hands r to every sink in the background. Sinks get their own
// timeout-bound context; the request may already be finished.
func (s *Service) mirror(d device.Device, r reading.Reading) {
	for _, sink := range s.sinks {
		s.sinksWG.Add(1)
		go func(sink Sink) {
			defer s.sinksWG.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
			defer cancel()

			if err := sink.Write(ctx, d, r); err != nil {
				metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
				s.logger.Warn("mirror write failed",
					"sink", sink.Name(),
					"device", d.Name,
					"error", err,
				)
			}
		}(sink)
	}
}

// Close waits for in-flight writes and their sink writes. Later writes
// fail with ErrClosed. It is safe to call more than once.
func (s *Service) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	s.sinksWG.Wait()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrClosed):
		return metrics.ResultUnavailable
	case errors.Is(err, ErrValidation):
		return metrics.ResultValidationError
	case errors.Is(err, ident.ErrInvalidIdentifier):
		return metrics.ResultInvalidIdentifier
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, reading.ErrUnknownDevice):
		return metrics.ResultUnknownDevice
	default:
		return metrics.ResultStorageError
	}
}
