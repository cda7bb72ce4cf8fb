// Package database provides the driver-agnostic session layer for graydb.
//
// This package manages:
//   - One pinned native connection per Session (MySQL, PostgreSQL, MSSQL, SQLite)
//   - Parameterised read/write execution with buffered results
//   - An idempotent transaction state machine (none/active)
//   - Observer notifications classifying every statement (select, write, query, ...)
//   - A bounded audit trail of executed SQL and bound parameters
//
// Engine-specific behaviour lives behind the Driver interface (see internal/drivers).
// The only behavioural difference between engines beyond connection details is the
// ErrorPolicy: SQLite swallows prepare failures and only escalates execute failures
// that carry a native error code.
//
// Concurrency:
//
// A Session is NOT safe for concurrent use. The last query, current result and
// transaction state are plain fields; callers must serialise access, for
// example through Registry.Do. The Collector
// and RingAudit are safe for concurrent use because a single instance is normally
// shared by every session in a Registry.
//
// Usage:
//
//	reg := database.NewRegistry(database.WithLogger(log))
//	reg.Register(drivers.SQLite{}, database.Config{"file": "./data/app.db"})
//
//	sess, err := reg.Session(ctx, "sqlite")
//	if err != nil {
//	    return err
//	}
//
//	q := database.NewQuery("INSERT INTO users (name) VALUES (:name)", database.Params{"name": "ada"})
//	if err := sess.Write(ctx, q); err != nil {
//	    return err
//	}
//
//	if err := sess.Read(ctx, "SELECT * FROM users", nil); err != nil {
//	    return err
//	}
//	rows, err := sess.Result()
//
// Security Considerations:
//   - Connection failures carry the attempted configuration with "pass" redacted
//   - Bound parameters are logged at debug level; keep debug logging off in production
//     if parameters may contain secrets
package database
