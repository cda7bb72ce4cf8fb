package database

import "fmt"

// Configuration keys understood by the bundled drivers.
const (
	KeyHost     = "host"
	KeyDatabase = "database"
	KeyUser     = "user"
	KeyPass     = "pass"
	KeyFile     = "file"
)

// redactedValue replaces secrets in configuration copies handed to errors and logs.
const redactedValue = "***"

// Config is the driver-specific connection configuration.
// It is supplied once when a Session is opened and never persisted.
type Config map[string]string

// Get returns the value for key, or "" if absent.
func (c Config) Get(key string) string {
	return c[key]
}

// Require verifies that every key is present and non-empty.
// The error names the first missing key and wraps ErrMissingConfig.
func (c Config) Require(keys ...string) error {
	for _, key := range keys {
		if c[key] == "" {
			return fmt.Errorf("%w: %q", ErrMissingConfig, key)
		}
	}
	return nil
}

// HasCredentials reports whether both user and pass are set.
// If either is absent or empty the connection is made without credentials
// (trusted or local authentication).
func (c Config) HasCredentials() bool {
	return c[KeyUser] != "" && c[KeyPass] != ""
}

// Redacted returns a copy of the configuration with the password masked.
func (c Config) Redacted() Config {
	out := make(Config, len(c))
	for k, v := range c {
		if k == KeyPass && v != "" {
			v = redactedValue
		}
		out[k] = v
	}
	return out
}
