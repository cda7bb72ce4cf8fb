// Package drivers provides the engine implementations of database.Driver.
//
// Each driver is a stateless value:
//   - MySQL: go-sql-driver/mysql, descriptor "mysql:dbname=...;host=...;charset=utf8"
//   - PostgreSQL: jackc/pgx/v5 stdlib, descriptor "pgsql:dbname=...;host=..."
//   - MSSQL: microsoft/go-mssqldb, descriptor "mssql:dbname=...;host=..."
//   - SQLite: mattn/go-sqlite3, descriptor "sqlite:<file>"
//
// SQLite is the only driver with LenientErrors as its default policy.
// All other drivers escalate every prepare and execute failure.
//
// Usage:
//
//	drv, err := drivers.Lookup("pgsql")
//	if err != nil {
//	    return err
//	}
//	sess, err := database.Open(ctx, drv, cfg)
package drivers
