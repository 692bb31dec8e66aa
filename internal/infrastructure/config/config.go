package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Reading store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the root configuration structure for tempwatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Readings  ReadingsConfig  `yaml:"readings"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	Live      LiveConfig      `yaml:"live"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"` // used to stamp reading date/time
}

// DatabaseConfig contains SQLite database settings for the device registry
// (and the reading stores when readings.backend is sqlite).
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ReadingsConfig selects where per-device readings live.
type ReadingsConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
	Cache    CacheConfig    `yaml:"cache"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	URL            string `yaml:"url"`
	MaxConns       int    `yaml:"max_conns"`
	ConnectRetries int    `yaml:"connect_retries"`
}

// CacheConfig contains the latest-reading cache settings (Redis protocol).
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // seconds

	// Breaker trips after this many consecutive cache failures.
	BreakerFailures int `yaml:"breaker_failures"`
	// BreakerTimeout is how long the breaker stays open, in seconds.
	BreakerTimeout int `yaml:"breaker_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read   int `yaml:"read"`
	Write  int `yaml:"write"`
	Idle   int `yaml:"idle"`
	Ingest int `yaml:"ingest"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// LiveConfig contains settings for the live (SSE) update stream.
type LiveConfig struct {
	BufferSize        int `yaml:"buffer_size"`
	KeepaliveInterval int `yaml:"keepalive_interval"` // seconds
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the working directory, if present
//  4. Environment variables (override file values)
//
// Selected keys can be overridden with TEMPWATCH_* variables, for example
// TEMPWATCH_DATABASE_PATH or TEMPWATCH_API_PORT; see stringEnv and intEnv.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates the process environment from a dotenv file.
// A missing file is not an error. Variables already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "tempwatch",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/tempwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Readings: ReadingsConfig{
			Backend: BackendSQLite,
			Postgres: PostgresConfig{
				MaxConns:       10,
				ConnectRetries: 5,
			},
			Cache: CacheConfig{
				Addr:            "localhost:6379",
				TTL:             86400,
				BreakerFailures: 5,
				BreakerTimeout:  30,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tempwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:   30,
				Write:  30,
				Idle:   60,
				Ingest: 10,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			},
		},
		Live: LiveConfig{
			BufferSize:        32,
			KeepaliveInterval: 15,
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "readings",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// stringEnv and intEnv list the TEMPWATCH_* variables that override a
// loaded value. Unset or empty variables leave the value alone; an int
// variable that does not parse is ignored.
func stringEnv(cfg *Config) map[string]*string {
	return map[string]*string{
		"TEMPWATCH_SITE_TIMEZONE":    &cfg.Site.Timezone,
		"TEMPWATCH_DATABASE_PATH":    &cfg.Database.Path,
		"TEMPWATCH_READINGS_BACKEND": &cfg.Readings.Backend,
		"TEMPWATCH_POSTGRES_URL":     &cfg.Readings.Postgres.URL,
		"TEMPWATCH_CACHE_ADDR":       &cfg.Readings.Cache.Addr,
		"TEMPWATCH_CACHE_PASSWORD":   &cfg.Readings.Cache.Password,
		"TEMPWATCH_MQTT_HOST":        &cfg.MQTT.Broker.Host,
		"TEMPWATCH_MQTT_USERNAME":    &cfg.MQTT.Auth.Username,
		"TEMPWATCH_MQTT_PASSWORD":    &cfg.MQTT.Auth.Password,
		"TEMPWATCH_API_HOST":         &cfg.API.Host,
		"TEMPWATCH_INFLUXDB_URL":     &cfg.InfluxDB.URL,
		"TEMPWATCH_INFLUXDB_TOKEN":   &cfg.InfluxDB.Token,
		"TEMPWATCH_LOG_LEVEL":        &cfg.Logging.Level,
	}
}

func intEnv(cfg *Config) map[string]*int {
	return map[string]*int{
		"TEMPWATCH_API_PORT":  &cfg.API.Port,
		"TEMPWATCH_MQTT_PORT": &cfg.MQTT.Broker.Port,
	}
}

func applyEnvOverrides(cfg *Config) {
	for name, target := range stringEnv(cfg) {
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}
	for name, target := range intEnv(cfg) {
		if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*target = n
		}
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	check(c.Site.ID != "", "site.id is required")
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known time zone", c.Site.Timezone))
	}
	check(c.Database.Path != "", "database.path is required")

	switch c.Readings.Backend {
	case BackendSQLite:
	case BackendPostgres:
		check(c.Readings.Postgres.URL != "", "readings.postgres.url is required when readings.backend is postgres")
	default:
		errs = append(errs, "readings.backend must be sqlite or postgres")
	}
	check(!c.Readings.Cache.Enabled || c.Readings.Cache.Addr != "", "readings.cache.addr is required when the cache is enabled")

	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")
	check(c.API.Timeouts.Ingest >= 1, "api.timeouts.ingest must be at least 1 second")
	check(c.Live.BufferSize >= 1, "live.buffer_size must be at least 1")
	check(c.Live.KeepaliveInterval >= 1, "live.keepalive_interval must be at least 1 second")
	check(!c.InfluxDB.Enabled || c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetIngestTimeout returns the per-write storage timeout as a Duration.
func (c *Config) GetIngestTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Ingest) * time.Second
}

// GetKeepaliveInterval returns the live stream keep-alive period as a Duration.
func (c *Config) GetKeepaliveInterval() time.Duration {
	return time.Duration(c.Live.KeepaliveInterval) * time.Second
}

// Location returns the site time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
