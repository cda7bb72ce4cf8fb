// Package auditdb owns the local SQLite file that persists the query audit trail.
//
// The store is separate from the sessions being audited: it always runs on
// SQLite with WAL enabled, whatever engines the sessions talk to. Schema
// changes ship as embedded .up.sql/.down.sql pairs and are applied by Migrate.
//
// Usage:
//
//	db, err := auditdb.Open(ctx, auditdb.Config{Path: cfg.Audit.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql, with an
// optional matching .down.sql. Each migration runs in its own transaction.
package auditdb
