// Package logging configures the log/slog logger used throughout graydb.
//
// Records are JSON by default (text for local work) and always carry
// service=graydb and the build version. Subsystems derive child loggers
// with Component so their output can be filtered:
//
//	log := logging.New(cfg.Logging, version)
//	defer log.Close()
//	apiLog := log.Component("api")
//
// With output: file, records go to a lumberjack-rotated file sized by the
// logging.file section (max_size in megabytes, max_age in days).
//
// Sessions log every statement with its bound parameters at debug level,
// so debug should not be enabled where parameters carry credentials.
package logging
