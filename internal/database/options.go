package database

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nerrad567/graydb/internal/database"

// Logger interface for session diagnostics.
// Statements and their parameters are logged at debug level.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures Open and NewRegistry.
type Option func(*options)

type options struct {
	logger        Logger
	collector     *Collector
	observers     []Observer
	audit         AuditLog
	policy        *ErrorPolicy
	verbDetection bool
	tracer        trace.Tracer
}

func newOptions(opts []Option) *options {
	o := &options{logger: noopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCollector shares c as the default observer instead of a fresh Collector.
func WithCollector(c *Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithObserver attaches additional observers after the Collector.
func WithObserver(obs ...Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs...)
	}
}

// WithAudit sets where executed statements are recorded.
// Without it each session keeps its own RingAudit.
func WithAudit(a AuditLog) Option {
	return func(o *options) {
		o.audit = a
	}
}

// WithErrorPolicy overrides the driver's default ErrorPolicy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(o *options) {
		o.policy = &p
	}
}

// WithVerbDetection makes Write notify insert, update or delete instead of
// write when the statement starts with that keyword.
func WithVerbDetection(enabled bool) Option {
	return func(o *options) {
		o.verbDetection = enabled
	}
}

// WithTracer sets the OpenTelemetry tracer used for statement spans.
// Defaults to the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}
