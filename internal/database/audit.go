package database

import (
	"context"
	"sync"
	"time"
)

// DefaultAuditCapacity is the RingAudit size when none is given.
const DefaultAuditCapacity = 1024

// AuditEntry records one executed statement and its bound parameters.
type AuditEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Driver     string    `json:"driver"`
	SQL        string    `json:"sql"`
	Params     Params    `json:"params,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// AuditLog stores executed statements.
// A Record failure never fails the statement; the session logs it and continues.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// RingAudit is an in-memory AuditLog keeping the most recent entries.
// Safe for concurrent use.
type RingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

// NewRingAudit creates a ring holding up to capacity entries.
// A non-positive capacity uses DefaultAuditCapacity.
func NewRingAudit(capacity int) *RingAudit {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &RingAudit{entries: make([]AuditEntry, capacity)}
}

// Record appends entry, overwriting the oldest when full.
func (r *RingAudit) Record(_ context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
	return nil
}

// Entries returns the retained entries in execution order.
func (r *RingAudit) Entries() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]AuditEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]AuditEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// Len returns the number of retained entries.
func (r *RingAudit) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}
