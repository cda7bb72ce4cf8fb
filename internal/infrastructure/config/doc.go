// Package config loads graydb's YAML configuration.
//
// Load reads the file, applies GRAYDB_* environment overrides, fills
// defaults and validates the result. Each entry under databases: is keyed by
// driver name (sqlite, pgsql, mysql, mssql) and becomes one registry
// session via DatabaseConfig.SessionConfig.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, name := range cfg.DriverNames() {
//	    log.Info("database configured", "driver", name,
//	        "dsn", cfg.Databases[name].SessionConfig().Redacted())
//	}
//
// Passwords, the JWT secret and broker credentials are best supplied through
// the environment so the file can stay world-readable inside an image.
package config
