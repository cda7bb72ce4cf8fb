package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

const serviceName = "graydb"

// Logger is the slog logger shared by every graydb component.
//
// It satisfies the small Logger interfaces of the database, observer, mqtt
// and api packages. Safe for concurrent use.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New builds a logger from the logging config section.
//
// Parameters:
//   - cfg: level, format (json or text) and output (stdout, stderr or file)
//   - version: build version attached to every record
//
// Returns:
//   - *Logger: call Close on shutdown when output is "file"
func New(cfg config.LoggingConfig, version string) *Logger {
	out, closer := openOutput(cfg)
	return &Logger{
		Logger: slog.New(newHandler(out, cfg, version)),
		closer: closer,
	}
}

// openOutput returns the destination writer and, for rotated files, its closer.
func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		f := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		return f, f
	default:
		return os.Stdout, nil
	}
}

// newHandler picks the format and attaches service and version.
// At debug level records also carry their source location.
func newHandler(w io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return h.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
}

// parseLevel maps debug, info, warn(ing) and error; anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), closer: l.closer}
}

// Component returns a child logger tagged component=name, e.g. "api" or
// "registry", so records from one subsystem can be filtered.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Close releases the rotated log file. It is a no-op for stdout and stderr.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Default is the bootstrap logger used until the config has been loaded:
// JSON on stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
