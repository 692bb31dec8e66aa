package influxdb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
)

// testConfig returns the InfluxDB configuration named by TEMPWATCH_TEST_INFLUXDB_URL.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           os.Getenv("TEMPWATCH_TEST_INFLUXDB_URL"),
		Token:         os.Getenv("TEMPWATCH_TEST_INFLUXDB_TOKEN"),
		Org:           "tempwatch",
		Bucket:        "readings",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test unless an InfluxDB instance is configured.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("TEMPWATCH_TEST_INFLUXDB_URL") == "" {
		t.Skip("TEMPWATCH_TEST_INFLUXDB_URL not set, skipping integration test")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	c.Flush()
	c.WriteReading(ReadingPoint{Device: "room_12"})
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 10, 2, 10, 2000},
		{"defaults", 0, -1, defaultBatchSize, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if opts.BatchSize() != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), tt.wantBatch)
			}
			if opts.FlushInterval() != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", opts.FlushInterval(), tt.wantFlush)
			}
		})
	}
}

func TestCloseTwice(t *testing.T) {
	c := &Client{}
	c.SetOnError(nil)
	if err := c.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if c.Queued() != 0 {
		t.Errorf("Queued() = %d on a closed client", c.Queued())
	}
}

func TestNewReadingPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	humidity := 55

	t.Run("with humidity", func(t *testing.T) {
		p := newReadingPoint(ReadingPoint{
			Device: "room_12", Campus: "North", Location: "Lab",
			Temperature: 72, Humidity: &humidity, Time: ts,
		})

		if p.Name() != MeasurementReadings {
			t.Errorf("Name() = %q, want %q", p.Name(), MeasurementReadings)
		}
		if !p.Time().Equal(ts) {
			t.Errorf("Time() = %v, want %v", p.Time(), ts)
		}

		tags := map[string]string{}
		for _, tag := range p.TagList() {
			tags[tag.Key] = tag.Value
		}
		if tags["device"] != "room_12" || tags["campus"] != "North" || tags["location"] != "Lab" {
			t.Errorf("tags = %v", tags)
		}

		fields := map[string]interface{}{}
		for _, f := range p.FieldList() {
			fields[f.Key] = f.Value
		}
		if fields["temperature"] != int64(72) {
			t.Errorf("temperature field = %v (%T)", fields["temperature"], fields["temperature"])
		}
		if fields["humidity"] != int64(55) {
			t.Errorf("humidity field = %v (%T)", fields["humidity"], fields["humidity"])
		}
	})

	t.Run("without humidity", func(t *testing.T) {
		p := newReadingPoint(ReadingPoint{Device: "room_12", Temperature: 70, Time: ts})

		for _, f := range p.FieldList() {
			if f.Key == "humidity" {
				t.Error("humidity field should be omitted when unknown")
			}
		}
	})

	t.Run("zero time defaults to now", func(t *testing.T) {
		before := time.Now()
		p := newReadingPoint(ReadingPoint{Device: "room_12", Temperature: 70})
		if p.Time().Before(before) {
			t.Errorf("Time() = %v, want >= %v", p.Time(), before)
		}
	})
}

func TestWriteReading_Integration(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	writeErrs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case writeErrs <- err:
		default:
		}
	})

	client.WriteReading(ReadingPoint{Device: "int_sensor", Campus: "Test", Location: "CI", Temperature: 70})
	client.Flush()
	if client.Queued() != 1 {
		t.Errorf("Queued() = %d, want 1", client.Queued())
	}

	select {
	case err := <-writeErrs:
		t.Fatalf("async write error = %v", err)
	case <-time.After(500 * time.Millisecond):
	}

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
