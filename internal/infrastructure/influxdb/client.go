package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/tempwatch-core/internal/metrics"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// sinkLabel is this mirror's value of the tempwatch_sink_errors_total label.
const sinkLabel = "influxdb"

// Client mirrors stored readings into an InfluxDB v2 bucket for long-range
// charting. The per-device tables stay the source of truth.
//
// Writes are batched and never block the ingest path. Async failures are
// counted and handed to the SetOnError callback.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI

	open    atomic.Bool
	queued  atomic.Uint64
	onError atomic.Value // func(error)

	closeOnce sync.Once
}

// Connect pings the server and prepares the batching write API. It returns
// ErrDisabled when the mirror is switched off.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := influx.Ping(pingCtx)
	switch {
	case err != nil:
		influx.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	case !healthy:
		influx.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.open.Store(true)

	go c.drainErrors(c.writeAPI.Errors())

	return c, nil
}

// writeOptions maps batch size and flush interval (seconds) onto the
// client's options, falling back to defaults for non-positive values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive duration
}

func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		metrics.SinkErrors.WithLabelValues(sinkLabel).Inc()
		if callback, ok := c.onError.Load().(func(error)); ok && callback != nil {
			callback(err)
		}
	}
}

// Close flushes pending points and releases the client. It is safe to call
// more than once.
func (c *Client) Close() error {
	if c.influx == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.open.Store(false)
		c.writeAPI.Flush()
		c.influx.Close()
	})
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.influx.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: %w", ErrUnhealthy)
	}
	return nil
}

// IsConnected reports whether the client is open.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// SetOnError registers a callback for async write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.onError.Store(callback)
}

// Queued returns the number of points handed to the write API.
func (c *Client) Queued() uint64 {
	return c.queued.Load()
}

// Flush blocks until buffered points are written. No-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}
