// Package api implements the graydb admin HTTP API and live query stream.
//
// This package provides:
//   - Health, stats, recent-query and audit endpoints over JSON
//   - An admin statement endpoint running on the registry's shared sessions
//   - Prometheus exposition at /metrics
//   - A WebSocket hub that relays session notifications as they happen
//   - Password login issuing HS256 access tokens, with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Every /api/v1 route except health and login requires a bearer token.
// Viewers see counters and statement text; only admins can read the audit
// trail or run statements. Live events sent to viewers have their parameters stripped.
// WebSocket connections use single-use tickets so tokens never appear in URLs.
package api
