package observer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
)

// DefaultExportInterval is used when the interval is not positive.
const DefaultExportInterval = time.Minute

// StatsSource supplies the counters to export.
type StatsSource interface {
	Snapshot() database.Stats
}

// StatsWriter receives one snapshot per tick. Satisfied by *influxdb.Client.
type StatsWriter interface {
	WriteQueryStats(scope string, stats database.Stats, at time.Time)
}

// StatsExporter pushes Collector snapshots on a fixed interval.
type StatsExporter struct {
	source   StatsSource
	scope    string
	interval time.Duration
	logger   Logger

	writer    StatsWriter
	publisher Publisher
	topics    mqtt.Topics
}

// ExporterOption configures a StatsExporter.
type ExporterOption func(*StatsExporter)

// WithStatsWriter adds a time-series sink.
func WithStatsWriter(w StatsWriter) ExporterOption {
	return func(e *StatsExporter) {
		e.writer = w
	}
}

// WithStatsPublisher publishes each snapshot as a retained message on topics.Stats().
func WithStatsPublisher(p Publisher, topics mqtt.Topics) ExporterOption {
	return func(e *StatsExporter) {
		e.publisher = p
		e.topics = topics
	}
}

// WithExporterLogger sets the diagnostic logger.
func WithExporterLogger(l Logger) ExporterOption {
	return func(e *StatsExporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewStatsExporter creates an exporter. scope tags the written points,
// typically the instance or site name.
func NewStatsExporter(source StatsSource, scope string, interval time.Duration, opts ...ExporterOption) *StatsExporter {
	if interval <= 0 {
		interval = DefaultExportInterval
	}
	e := &StatsExporter{
		source:   source,
		scope:    scope,
		interval: interval,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run exports on every tick until ctx is cancelled, then exports once more
// so the final counters are not lost.
func (e *StatsExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Export(time.Now())
			return
		case now := <-ticker.C:
			e.Export(now)
		}
	}
}

// Export writes a single snapshot taken now.
func (e *StatsExporter) Export(at time.Time) {
	stats := e.source.Snapshot()

	if e.writer != nil {
		e.writer.WriteQueryStats(e.scope, stats, at)
	}

	if e.publisher != nil {
		payload, err := json.Marshal(stats)
		if err != nil {
			e.logger.Warn("encoding stats failed", "error", err)
			return
		}
		if err := e.publisher.Publish(e.topics.Stats(), payload, 1, true); err != nil {
			e.logger.Warn("publishing stats failed", "error", err)
		}
	}
}
