package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/tempwatch-core/internal/api"
	"github.com/nerrad567/tempwatch-core/internal/broadcast"
	"github.com/nerrad567/tempwatch-core/internal/device"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/cache"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/postgres"
	"github.com/nerrad567/tempwatch-core/internal/ingest"
	"github.com/nerrad567/tempwatch-core/internal/reading"
)

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled, then shuts everything down in reverse
// start order.
func run(ctx context.Context, path string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tempwatch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the registry database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete", "applied", applied)

	// Reading store backend
	store, closeStore, err := openReadingStore(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Optional latest-reading cache
	var cacheClient *cache.Client
	if cfg.Readings.Cache.Enabled {
		cacheClient, err = cache.Connect(ctx, cfg.Readings.Cache)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		defer func() {
			log.Info("closing cache connection")
			if closeErr := cacheClient.Close(); closeErr != nil {
				log.Error("error closing cache", "error", closeErr)
			}
		}()

		cached := reading.NewCachedStore(store, cacheClient)
		cached.SetLogger(log.Component("cache"))
		store = cached
		log.Info("latest-reading cache enabled", "addr", cfg.Readings.Cache.Addr)
	}

	// Device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB), store)
	registry.SetLogger(log.Component("registry"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	stats, err := registry.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("reading registry stats: %w", err)
	}
	log.Info("device registry initialised", "devices", stats.Total)

	// Broadcast hub feeding the live endpoints
	hub := broadcast.NewHub(cfg.Live.BufferSize)
	hub.SetLogger(log.Component("broadcast"))

	// Write path
	svc := ingest.NewService(registry, store, hub, ingest.Config{
		Timeout:  cfg.GetIngestTimeout(),
		Location: cfg.Location(),
	})
	svc.SetLogger(log.Component("ingest"))

	deps := api.Deps{
		Config:   cfg.API,
		Live:     cfg.Live,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Store:    store,
		Ingest:   svc,
		Hub:      hub,
		DB:       db,
		Version:  version,
	}
	if cacheClient != nil {
		deps.Cache = cacheClient
	}

	// InfluxDB mirror (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		svc.AddSink(ingest.NewInfluxSink(influxClient, cfg.Location()))
		deps.Influx = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT source and update mirror (optional)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := startMQTT(cfg, svc, log)
		if connErr != nil {
			return connErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		deps.MQTT = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
		// Sinks must drain before the MQTT and InfluxDB clients close.
		// MQTT writes arriving after this point get ErrClosed.
		log.Info("waiting for in-flight writes")
		svc.Close()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openReadingStore connects the configured reading backend. The returned
// func releases it.
func openReadingStore(ctx context.Context, cfg *config.Config, db *database.DB, log *logging.Logger) (reading.Store, func(), error) {
	switch cfg.Readings.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Readings.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		log.Info("reading store: postgres")
		return reading.NewPostgresStore(pool), func() {
			log.Info("closing PostgreSQL pool")
			if closeErr := pool.Close(); closeErr != nil {
				log.Error("error closing PostgreSQL", "error", closeErr)
			}
		}, nil
	default:
		log.Info("reading store: sqlite", "path", cfg.Database.Path)
		return reading.NewSQLiteStore(db), func() {}, nil
	}
}

// startMQTT connects to the broker, mirrors stored readings as update
// events and feeds tempwatch/write/{device} into the write path.
func startMQTT(cfg *config.Config, svc *ingest.Service, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	svc.AddSink(ingest.NewMQTTSink(client))

	source := ingest.NewMQTTSource(svc, client, byte(cfg.MQTT.QoS)) // #nosec G115 -- validated 0-2
	source.SetLogger(log.Component("mqtt_source"))
	if err := source.Start(); err != nil {
		//nolint:errcheck // Already failing; close is best-effort
		client.Close()
		return nil, fmt.Errorf("subscribing to MQTT writes: %w", err)
	}
	log.Info("MQTT write source started", "topic", mqtt.Topics{}.AllWrites())

	return client, nil
}
