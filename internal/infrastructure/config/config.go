package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the BrightMind backend.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database Database  `yaml:"database"`
	API      API       `yaml:"api"`
	Security Security  `yaml:"security"`
	InfluxDB InfluxDB  `yaml:"influxdb"`
	MQTT     MQTT      `yaml:"mqtt"`
	Logging  Logging   `yaml:"logging"`
	Mail     Mail      `yaml:"mail"`
	WS       WebSocket `yaml:"websocket"`
}

// Database contains SQLite database settings.
type Database struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// API contains HTTP API server settings.
type API struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Timeouts Timeouts `yaml:"timeouts"`
	CORS     CORS     `yaml:"cors"`
}

// Timeouts contains HTTP timeout settings in seconds.
type Timeouts struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORS contains Cross-Origin Resource Sharing settings.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// Security contains authentication and token settings.
type Security struct {
	JWT JWT `yaml:"jwt"`

	// TokenTTLHours is the lifetime of password-reset and
	// email-verification tokens.
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// JWT contains access-token signing settings.
type JWT struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// InfluxDB contains optional time-series mirror settings for device history.
type InfluxDB struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// MQTT contains optional device value ingest settings.
type MQTT struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// Logging contains logging settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Mail contains outbound mail settings. Only the sender address is used by
// the log-only mailer; a real transport reads the rest.
type Mail struct {
	From     string `yaml:"from"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WebSocket contains live-update hub settings.
type WebSocket struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// Defaults applied when the config omits them.
const (
	defaultAccessTokenTTL = 15 // minutes
	defaultTokenTTLHours  = 24
	defaultBusyTimeout    = 5 // seconds
)

// Load reads configuration from a YAML file and applies environment overrides.
//
// Environment variables take precedence over file values:
//   - BRIGHTMIND_DB_PATH
//   - BRIGHTMIND_API_PORT
//   - BRIGHTMIND_JWT_SECRET
//   - BRIGHTMIND_INFLUXDB_TOKEN
//   - BRIGHTMIND_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator flag/env
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides replaces config values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BRIGHTMIND_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BRIGHTMIND_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("BRIGHTMIND_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("BRIGHTMIND_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("BRIGHTMIND_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

// applyDefaults fills zero values with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Security.JWT.AccessTokenTTL <= 0 {
		cfg.Security.JWT.AccessTokenTTL = defaultAccessTokenTTL
	}
	if cfg.Security.TokenTTLHours <= 0 {
		cfg.Security.TokenTTLHours = defaultTokenTTLHours
	}
	if cfg.Database.BusyTimeout <= 0 {
		cfg.Database.BusyTimeout = defaultBusyTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is required (set BRIGHTMIND_JWT_SECRET)")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required when mqtt is enabled")
	}
	if level := strings.ToLower(c.Logging.Level); level != "debug" && level != "info" &&
		level != "warn" && level != "warning" && level != "error" {
		return fmt.Errorf("logging.level %q is not valid", c.Logging.Level)
	}
	return nil
}
