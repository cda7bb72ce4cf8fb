// Package observer connects session notifications to the outside world.
//
// EventPublisher is a database.Observer that forwards every notification to
// MQTT under {prefix}/query/{driver}/{category}. Publishing happens on a
// background goroutine so a slow broker never stalls statement execution;
// when the queue is full, events are dropped and counted.
//
// StatsExporter periodically snapshots a Collector and writes it to InfluxDB
// and, optionally, as a retained MQTT message on {prefix}/stats.
package observer

// Logger interface for observer diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
