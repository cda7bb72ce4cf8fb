package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validJWTSecret meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
databases:
  sqlite:
    file: "/tmp/app.db"
  pgsql:
    host: "db.local"
    database: "app"
    user: "app"
observer:
  verb_detection: true
  query_list_limit: 500
api:
  enabled: true
  port: 9000
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Databases["sqlite"].File != "/tmp/app.db" {
		t.Errorf("Databases[sqlite].File = %q, want %q", cfg.Databases["sqlite"].File, "/tmp/app.db")
	}
	if cfg.Databases["pgsql"].Host != "db.local" {
		t.Errorf("Databases[pgsql].Host = %q, want %q", cfg.Databases["pgsql"].Host, "db.local")
	}
	if !cfg.Observer.VerbDetection || cfg.Observer.QueryListLimit != 500 {
		t.Errorf("Observer = %+v", cfg.Observer)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	// Defaults survive for sections the file does not mention.
	if cfg.MQTT.TopicPrefix != "graydb" {
		t.Errorf("MQTT.TopicPrefix = %q, want default", cfg.MQTT.TopicPrefix)
	}
	if got := cfg.DriverNames(); strings.Join(got, ",") != "pgsql,sqlite" {
		t.Errorf("DriverNames() = %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
databases:
  oracle:
    host: "db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for unknown driver, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name: "all drivers",
			mutate: func(c *Config) {
				c.Databases = map[string]DatabaseConfig{
					"mysql":  {Host: "h", Database: "d"},
					"pgsql":  {Host: "h", Database: "d"},
					"mssql":  {Host: "h", Database: "d"},
					"sqlite": {File: ":memory:"},
				}
			},
		},
		{
			name: "unknown driver",
			mutate: func(c *Config) {
				c.Databases = map[string]DatabaseConfig{"oracle": {Host: "h"}}
			},
			wantErr: "unknown driver",
		},
		{
			name: "sqlite without file",
			mutate: func(c *Config) {
				c.Databases = map[string]DatabaseConfig{"sqlite": {}}
			},
			wantErr: "databases.sqlite.file",
		},
		{
			name: "mysql without host",
			mutate: func(c *Config) {
				c.Databases = map[string]DatabaseConfig{"mysql": {Database: "d"}}
			},
			wantErr: "databases.mysql.host",
		},
		{
			name: "mssql without database",
			mutate: func(c *Config) {
				c.Databases = map[string]DatabaseConfig{"mssql": {Host: "h"}}
			},
			wantErr: "databases.mssql.database",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.Tracing.SampleRate = 1.5 },
			wantErr: "tracing.sample_rate",
		},
		{
			name: "persisted audit without path",
			mutate: func(c *Config) {
				c.Audit.Persist = true
				c.Audit.Path = ""
			},
			wantErr: "audit.path",
		},
		{
			name:    "influxdb without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "api port out of range",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
				c.Security.JWT.Secret = validJWTSecret
			},
			wantErr: "api.port",
		},
		{
			name: "api without JWT secret",
			mutate: func(c *Config) {
				c.API.Enabled = true
			},
			wantErr: "security.jwt.secret is required",
		},
		{
			name: "JWT secret too short",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Security.JWT.Secret = "short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "admin with plaintext password",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Security.JWT.Secret = validJWTSecret
				c.Security.Admins = []AdminConfig{{Username: "ops", PasswordHash: "hunter2", Role: "admin"}}
			},
			wantErr: "security.admins[0].password_hash",
		},
		{
			name: "admin with unknown role",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Security.JWT.Secret = validJWTSecret
				c.Security.Admins = []AdminConfig{{Username: "ops", PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA", Role: "owner"}}
			},
			wantErr: "security.admins[0].role",
		},
		{
			name: "valid admin account",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Security.JWT.Secret = validJWTSecret
				c.Security.Admins = []AdminConfig{{Username: "ops", PasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA", Role: "viewer"}}
			},
		},
		{
			name: "JWT secret not needed when api disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.Security.JWT.Secret = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.QoS = 9
	cfg.Tracing.SampleRate = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"mqtt.qos", "tracing.sample_rate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Security: SecurityConfig{JWT: JWTConfig{AccessTokenTTL: 15}},
		InfluxDB: InfluxDBConfig{ExportInterval: 20},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetAccessTokenTTL().Minutes(); got != 15 {
		t.Errorf("GetAccessTokenTTL() = %v, want 15", got)
	}
	if got := cfg.GetExportInterval().Seconds(); got != 20 {
		t.Errorf("GetExportInterval() = %v, want 20", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()
	cfg.Databases["pgsql"] = DatabaseConfig{Host: "file-host", Database: "app"}

	t.Setenv("GRAYDB_PGSQL_PASS", "pg-secret")
	t.Setenv("GRAYDB_PGSQL_USER", "app")
	t.Setenv("GRAYDB_SQLITE_FILE", "/env/app.db")
	t.Setenv("GRAYDB_AUDIT_PATH", "/env/audit.db")
	t.Setenv("GRAYDB_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GRAYDB_MQTT_USERNAME", "testuser")
	t.Setenv("GRAYDB_MQTT_PASSWORD", "testpass")
	t.Setenv("GRAYDB_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GRAYDB_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	pg := cfg.Databases["pgsql"]
	if pg.Host != "file-host" || pg.User != "app" || pg.Pass != "pg-secret" {
		t.Errorf("Databases[pgsql] = %+v", pg)
	}
	if cfg.Databases["sqlite"].File != "/env/app.db" {
		t.Errorf("Databases[sqlite].File = %q, want %q", cfg.Databases["sqlite"].File, "/env/app.db")
	}
	if _, ok := cfg.Databases["mysql"]; ok {
		t.Error("applyEnvOverrides() created an entry for an unconfigured driver")
	}
	if cfg.Audit.Path != "/env/audit.db" {
		t.Errorf("Audit.Path = %q", cfg.Audit.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestDatabaseConfig_SessionConfig(t *testing.T) {
	got := DatabaseConfig{Host: "h", Database: "d", User: "u"}.SessionConfig()

	if got["host"] != "h" || got["database"] != "d" || got["user"] != "u" {
		t.Errorf("SessionConfig() = %v", got)
	}
	if _, ok := got["pass"]; ok {
		t.Error("SessionConfig() included an empty pass")
	}
	if got.HasCredentials() {
		t.Error("SessionConfig().HasCredentials() = true with no pass")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Audit.Capacity != 1024 {
		t.Errorf("defaultConfig Audit.Capacity = %d, want 1024", cfg.Audit.Capacity)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("defaultConfig API.Port = %d, want 8090", cfg.API.Port)
	}
	if cfg.Metrics.Namespace != "graydb" {
		t.Errorf("defaultConfig Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load(configs/config.yaml) error = %v", err)
	}
	if got := cfg.DriverNames(); len(got) != 1 || got[0] != "sqlite" {
		t.Errorf("DriverNames() = %v, want [sqlite]", got)
	}
	if cfg.API.Enabled || cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("example config should enable only the database layer")
	}
}
