// Package audit persists the query audit trail to the local audit store.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/graydb/internal/database"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so executed_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Filter controls which entries List returns.
type Filter struct {
	SessionID string // optional
	Driver    string // optional
	Limit     int    // default 50, max 200
	Offset    int
}

// Normalized returns filter with Limit clamped to 1..200 (default 50) and a non-negative Offset.
func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult is one page of audit entries.
type ListResult struct {
	Entries []database.AuditEntry `json:"entries"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// Repository is a persistent database.AuditLog that can also be listed.
type Repository interface {
	database.AuditLog
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the query_audit table.
type SQLiteRepository struct {
	db *sqlx.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository over a migrated audit store.
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type auditRow struct {
	ID         string `db:"id"`
	SessionID  string `db:"session_id"`
	Driver     string `db:"driver"`
	SQL        string `db:"sql"`
	Params     string `db:"params"`
	ExecutedAt string `db:"executed_at"`
}

// Record inserts entry. ID and ExecutedAt are filled in when empty.
func (r *SQLiteRepository) Record(ctx context.Context, entry database.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	params := "{}"
	if len(entry.Params) > 0 {
		b, err := json.Marshal(entry.Params)
		if err != nil {
			return fmt.Errorf("marshalling audit params: %w", err)
		}
		params = string(b)
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO query_audit (id, session_id, driver, sql, params, executed_at)
		 VALUES (:id, :session_id, :driver, :sql, :params, :executed_at)`,
		auditRow{
			ID:         entry.ID,
			SessionID:  entry.SessionID,
			Driver:     entry.Driver,
			SQL:        entry.SQL,
			Params:     params,
			ExecutedAt: entry.ExecutedAt.UTC().Format(timeLayout),
		},
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = filter.Normalized()

	var conditions []string
	var args []any
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Driver != "" {
		conditions = append(conditions, "driver = ?")
		args = append(args, filter.Driver)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM query_audit " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	//nolint:gosec // WHERE built from parameterised conditions, not user input
	query := "SELECT id, session_id, driver, sql, params, executed_at FROM query_audit " +
		where + " ORDER BY executed_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}

	entries := make([]database.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func (row auditRow) toEntry() (database.AuditEntry, error) {
	executedAt, err := time.Parse(timeLayout, row.ExecutedAt)
	if err != nil {
		return database.AuditEntry{}, fmt.Errorf("parsing audit timestamp %q: %w", row.ExecutedAt, err)
	}

	entry := database.AuditEntry{
		ID:         row.ID,
		SessionID:  row.SessionID,
		Driver:     row.Driver,
		SQL:        row.SQL,
		ExecutedAt: executedAt,
	}
	if row.Params != "" && row.Params != "{}" {
		var params database.Params
		if json.Unmarshal([]byte(row.Params), &params) == nil {
			entry.Params = params
		}
	}
	return entry, nil
}
