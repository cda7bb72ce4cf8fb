package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/drivers"
	"github.com/nerrad567/graydb/internal/infrastructure/auditdb"
	"github.com/nerrad567/graydb/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := auditdb.Open(ctx, auditdb.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("auditdb.Open() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecordAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []database.AuditEntry{
		{SessionID: "s1", Driver: "sqlite", SQL: "SELECT 1", ExecutedAt: base},
		{SessionID: "s1", Driver: "sqlite", SQL: "INSERT INTO t (v) VALUES (:v)", Params: database.Params{"v": "x"}, ExecutedAt: base.Add(time.Second)},
		{SessionID: "s2", Driver: "mysql", SQL: "SELECT 2", ExecutedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if result.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, defaultLimit)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(result.Entries))
	}
	if result.Entries[0].SQL != "SELECT 2" {
		t.Errorf("first entry SQL = %q, want newest (SELECT 2)", result.Entries[0].SQL)
	}
	if !result.Entries[2].ExecutedAt.Equal(base) {
		t.Errorf("oldest ExecutedAt = %v, want %v", result.Entries[2].ExecutedAt, base)
	}
	if got := result.Entries[1].Params["v"]; got != "x" {
		t.Errorf("Params[v] = %v, want x", got)
	}
	for _, e := range result.Entries {
		if e.ID == "" {
			t.Error("Record() should assign an ID")
		}
	}
}

func TestListFilters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i, drv := range []string{"sqlite", "sqlite", "pgsql"} {
		e := database.AuditEntry{SessionID: "s" + drv, Driver: drv, SQL: "SELECT 1", ExecutedAt: time.Now().Add(time.Duration(i) * time.Millisecond)}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantLen   int
	}{
		{"by driver", Filter{Driver: "sqlite"}, 2, 2},
		{"by session", Filter{SessionID: "spgsql"}, 1, 1},
		{"both", Filter{Driver: "sqlite", SessionID: "spgsql"}, 0, 0},
		{"paged", Filter{Limit: 1, Offset: 1}, 3, 1},
		{"past the end", Filter{Offset: 10}, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
			if len(result.Entries) != tt.wantLen {
				t.Errorf("len(Entries) = %d, want %d", len(result.Entries), tt.wantLen)
			}
		})
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := setupRepo(t)

	result, err := repo.List(context.Background(), Filter{Limit: 5000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != maxLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, maxLimit)
	}
	if result.Offset != 0 {
		t.Errorf("Offset = %d, want 0", result.Offset)
	}
	if result.Entries == nil {
		t.Error("Entries should be an empty slice, not nil")
	}
}

func TestSessionWritesToRepository(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	s, err := database.Open(ctx, drivers.SQLite{}, database.Config{database.KeyFile: ":memory:"},
		database.WithAudit(repo))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	if err := s.Read(ctx, "SELECT :n AS n", database.Params{"n": 7}); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{SessionID: s.ID()})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}
	got := result.Entries[0]
	if got.SQL != "SELECT :n AS n" || got.Driver != drivers.NameSQLite {
		t.Errorf("entry = %+v", got)
	}
	if n, ok := got.Params["n"].(float64); !ok || n != 7 {
		t.Errorf("Params[n] = %v, want 7", got.Params["n"])
	}
}
