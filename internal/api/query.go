package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/graydb/internal/database"
)

// queryRequest is the body of POST /api/v1/query.
type queryRequest struct {
	Driver string          `json:"driver"`
	SQL    string          `json:"sql"`
	Params database.Params `json:"params,omitempty"`
	Write  bool            `json:"write,omitempty"`
}

type queryResponse struct {
	Driver       string         `json:"driver"`
	Rows         []database.Row `json:"rows"`
	LastInsertID string         `json:"last_insert_id,omitempty"`
}

// handleQuery runs one statement on a registered session.
//
// Statements run through the registry's shared session for the driver, so
// they feed the collector, audit log and every attached observer. Requests
// for the same driver are serialized.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Driver == "" || strings.TrimSpace(req.SQL) == "" {
		writeBadRequest(w, "driver and sql are required")
		return
	}
	params := numericParams(req.Params)

	resp := queryResponse{Driver: req.Driver, Rows: []database.Row{}}
	err := s.registry.Do(r.Context(), req.Driver, func(sess *database.Session) error {
		return s.runStatement(r.Context(), sess, req, params, &resp)
	})

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, database.ErrUnknownDriver):
		writeNotFound(w, err.Error())
	case errors.Is(err, database.ErrQueryExecution):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeQueryFailed, err.Error())
	case errors.Is(err, database.ErrConnection), errors.Is(err, database.ErrMissingCapability):
		s.logger.Error("session unavailable", "driver", req.Driver, "error", err, "request_id", requestID(r))
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "database session unavailable")
	default:
		s.logger.Error("statement failed", "driver", req.Driver, "error", err, "request_id", requestID(r))
		writeInternalError(w, "statement failed")
	}
}

func (s *Server) runStatement(ctx context.Context, sess *database.Session, req queryRequest, params database.Params, resp *queryResponse) error {
	if req.Write {
		if err := sess.Write(ctx, database.NewQuery(req.SQL, params)); err != nil {
			return err
		}
		id, err := sess.LastInsertID(ctx)
		if err != nil {
			s.logger.Debug("last insert id unavailable", "driver", req.Driver, "error", err)
		}
		resp.LastInsertID = id
	} else if err := sess.Read(ctx, req.SQL, params); err != nil {
		return err
	}

	// A swallowed prepare failure leaves no result.
	if rows, err := sess.Result(); err == nil {
		resp.Rows = rows
	}
	return nil
}

// numericParams converts JSON numbers to int64 where they are integral and
// float64 otherwise, so drivers bind them with numeric types.
func numericParams(in database.Params) database.Params {
	if in == nil {
		return nil
	}
	out := make(database.Params, len(in))
	for k, v := range in {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		out[k] = v
	}
	return out
}
