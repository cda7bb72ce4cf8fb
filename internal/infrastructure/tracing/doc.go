// Package tracing sets up the OpenTelemetry tracer provider for graydb.
//
// When tracing is enabled, spans are batched to an OTLP/HTTP collector and the
// provider is installed globally so sessions opened without an explicit
// tracer pick it up. When disabled, Tracer returns a no-op tracer.
//
// Usage:
//
//	tp, err := tracing.New(ctx, cfg.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tp.Shutdown(ctx)
//
//	session, err := database.Open(ctx, drv, dbCfg, database.WithTracer(tp.Tracer()))
package tracing
