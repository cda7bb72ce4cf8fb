package api

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/nerrad567/graydb/internal/audit"
	"github.com/nerrad567/graydb/internal/database"
)

// handleListAudit returns audit entries newest first.
//
// Query parameters:
//   - driver: filter by driver name
//   - session_id: filter by session
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
//
// Without a persistent repository the shared in-memory ring is served.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Driver:    q.Get("driver"),
		SessionID: q.Get("session_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	if s.auditRepo != nil {
		result, err := s.auditRepo.List(r.Context(), filter)
		if err != nil {
			s.logger.Error("failed to list audit entries", "error", err)
			writeInternalError(w, "failed to list audit entries")
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	ring, ok := s.registry.Audit().(*database.RingAudit)
	if !ok {
		writeNotImplemented(w, "audit listing not available")
		return
	}
	writeJSON(w, http.StatusOK, listRing(ring.Entries(), filter))
}

// listRing applies filter to in-memory entries held in execution order.
func listRing(entries []database.AuditEntry, filter audit.Filter) *audit.ListResult {
	filter = filter.Normalized()

	matched := make([]database.AuditEntry, 0, len(entries))
	for _, e := range slices.Backward(entries) {
		if filter.Driver != "" && e.Driver != filter.Driver {
			continue
		}
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		matched = append(matched, e)
	}

	page := []database.AuditEntry{}
	if filter.Offset < len(matched) {
		end := min(filter.Offset+filter.Limit, len(matched))
		page = matched[filter.Offset:end]
	}

	return &audit.ListResult{
		Entries: page,
		Total:   len(matched),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
}
