package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/graydb/internal/database"
)

// Driver names accepted as keys of the databases section.
var knownDrivers = []string{"mysql", "pgsql", "mssql", "sqlite"}

// Config is the root configuration structure for graydb.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases"`
	Audit     AuditConfig               `yaml:"audit"`
	Observer  ObserverConfig            `yaml:"observer"`
	MQTT      MQTTConfig                `yaml:"mqtt"`
	API       APIConfig                 `yaml:"api"`
	WebSocket WebSocketConfig           `yaml:"websocket"`
	InfluxDB  InfluxDBConfig            `yaml:"influxdb"`
	Metrics   MetricsConfig             `yaml:"metrics"`
	Tracing   TracingConfig             `yaml:"tracing"`
	Logging   LoggingConfig             `yaml:"logging"`
	Security  SecurityConfig            `yaml:"security"`
}

// DatabaseConfig contains the connection settings for one driver.
// SQL engines use host and database; SQLite uses file.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	File     string `yaml:"file"`
}

// SessionConfig converts the section into the session configuration map.
// Empty fields are omitted.
func (d DatabaseConfig) SessionConfig() database.Config {
	cfg := database.Config{}
	set := func(key, value string) {
		if value != "" {
			cfg[key] = value
		}
	}
	set(database.KeyHost, d.Host)
	set(database.KeyDatabase, d.Database)
	set(database.KeyUser, d.User)
	set(database.KeyPass, d.Pass)
	set(database.KeyFile, d.File)
	return cfg
}

// AuditConfig contains query audit trail settings.
type AuditConfig struct {
	// Capacity is the in-memory ring size. Default: 1024
	Capacity int `yaml:"capacity"`

	// Persist stores audit entries in a SQLite database at Path.
	Persist     bool   `yaml:"persist"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ObserverConfig contains statement classification settings.
type ObserverConfig struct {
	// VerbDetection classifies writes as insert, update or delete by leading keyword.
	VerbDetection bool `yaml:"verb_detection"`

	// QueryListLimit bounds the executed-query list. 0 means unbounded.
	QueryListLimit int `yaml:"query_list_limit"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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

// APIConfig contains admin HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains live query stream settings.
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

	// ExportInterval is how often collector counters are written, in seconds.
	ExportInterval int `yaml:"export_interval"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT    JWTConfig     `yaml:"jwt"`
	Admins []AdminConfig `yaml:"admins"`
}

// AdminConfig is an account allowed to log in to the admin API.
// PasswordHash is an Argon2id PHC string (see `graydb hash-password`).
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"` // viewer or admin
}

// JWTConfig contains admin token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDB_SECTION_KEY
// For example: GRAYDB_SQLITE_FILE, GRAYDB_JWT_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Databases: map[string]DatabaseConfig{},
		Audit: AuditConfig{
			Capacity:    database.DefaultAuditCapacity,
			Path:        "./data/audit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graydb",
			},
			QoS:         1,
			TopicPrefix: "graydb",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:      100,
			FlushInterval:  10,
			ExportInterval: 60,
		},
		Metrics: MetricsConfig{
			Namespace: "graydb",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "graydb",
			SampleRate:  1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/graydb.log",
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Database keys follow the pattern GRAYDB_<DRIVER>_<KEY>, e.g. GRAYDB_PGSQL_PASS.
func applyEnvOverrides(cfg *Config) {
	if cfg.Databases == nil {
		cfg.Databases = map[string]DatabaseConfig{}
	}
	for _, name := range knownDrivers {
		prefix := "GRAYDB_" + strings.ToUpper(name) + "_"
		db, exists := cfg.Databases[name]
		changed := false
		for key, field := range map[string]*string{
			"HOST":     &db.Host,
			"DATABASE": &db.Database,
			"USER":     &db.User,
			"PASS":     &db.Pass,
			"FILE":     &db.File,
		} {
			if v := os.Getenv(prefix + key); v != "" {
				*field = v
				changed = true
			}
		}
		if exists || changed {
			cfg.Databases[name] = db
		}
	}

	// Audit
	if v := os.Getenv("GRAYDB_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYDB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYDB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYDB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("GRAYDB_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
// All problems are collected and reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Databases
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		db := c.Databases[name]
		switch name {
		case "sqlite":
			if db.File == "" {
				errs = append(errs, "databases.sqlite.file is required")
			}
		case "mysql", "pgsql", "mssql":
			if db.Host == "" {
				errs = append(errs, fmt.Sprintf("databases.%s.host is required", name))
			}
			if db.Database == "" {
				errs = append(errs, fmt.Sprintf("databases.%s.database is required", name))
			}
		default:
			errs = append(errs, fmt.Sprintf("databases.%s: unknown driver (want one of %s)", name, strings.Join(knownDrivers, ", ")))
		}
	}

	// Audit
	if c.Audit.Capacity < 0 {
		errs = append(errs, "audit.capacity must not be negative")
	}
	if c.Audit.Persist && c.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit.persist is enabled")
	}

	// Observer
	if c.Observer.QueryListLimit < 0 {
		errs = append(errs, "observer.query_list_limit must not be negative")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Tracing
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, "tracing.sample_rate must be between 0 and 1")
	}

	// API and its JWT secret are only checked when the admin API is served.
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set GRAYDB_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
		for i, a := range c.Security.Admins {
			if a.Username == "" {
				errs = append(errs, fmt.Sprintf("security.admins[%d].username is required", i))
			}
			if !strings.HasPrefix(a.PasswordHash, "$argon2id$") {
				errs = append(errs, fmt.Sprintf("security.admins[%d].password_hash must be an argon2id hash", i))
			}
			if a.Role != "viewer" && a.Role != "admin" {
				errs = append(errs, fmt.Sprintf("security.admins[%d].role must be viewer or admin", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DriverNames returns the configured driver names in sorted order.
func (c *Config) DriverNames() []string {
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
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

// GetAccessTokenTTL returns the admin token lifetime as a Duration.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// GetExportInterval returns the InfluxDB stats export interval as a Duration.
func (c *Config) GetExportInterval() time.Duration {
	return time.Duration(c.InfluxDB.ExportInterval) * time.Second
}
