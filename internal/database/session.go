package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TxState is the session's transaction state.
type TxState int

// Transaction states.
const (
	TxNone TxState = iota
	TxActive
)

func (s TxState) String() string {
	if s == TxActive {
		return "active"
	}
	return "none"
}

// runner is implemented by both the pinned connection and an open transaction.
type runner interface {
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// Session is one live connection to one engine.
//
// All statements run on a single pinned connection so that transactions and
// identity values (LastInsertID) are connection-scoped. Not safe for concurrent use.
type Session struct {
	id     string
	drv    Driver
	policy ErrorPolicy

	db   *sqlx.DB
	conn *sqlx.Conn
	tx   *sqlx.Tx

	lastQuery string
	result    []Row
	hasResult bool
	closed    bool

	collector     *Collector
	observers     []Observer
	audit         AuditLog
	logger        Logger
	tracer        trace.Tracer
	verbDetection bool
}

// Open connects to the engine described by drv and cfg.
//
// The capability check runs first and its failure is returned as is. Any
// failure to build the DSN or establish the connection is returned as an
// *Error wrapping ErrConnection, carrying cfg with the password redacted.
//
// Parameters:
//   - ctx: Context for the connection attempt
//   - drv: Engine implementation (see internal/drivers)
//   - cfg: Driver configuration (host, database, user, pass or file)
//   - opts: Logger, observers, audit and policy overrides
//
// Returns:
//   - *Session: Connected session with the default Collector attached
//   - error: Capability or connection failure
func Open(ctx context.Context, drv Driver, cfg Config, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	if err := drv.CheckCapability(); err != nil {
		return nil, err
	}

	descriptor, err := drv.FormatConnectionDescriptor(cfg)
	if err != nil {
		return nil, newConnectionError(cfg, err)
	}
	dsn, err := drv.NativeDSN(cfg)
	if err != nil {
		return nil, newConnectionError(cfg, err)
	}

	db, err := sqlx.Open(drv.SQLDriverName(), dsn)
	if err != nil {
		return nil, newConnectionError(cfg, fmt.Errorf("opening %s: %w", descriptor, err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on failed connect
		return nil, newConnectionError(cfg, fmt.Errorf("connecting %s: %w", descriptor, err))
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on failed connect
		return nil, newConnectionError(cfg, fmt.Errorf("pinning connection %s: %w", descriptor, err))
	}

	policy := drv.ErrorPolicy()
	if o.policy != nil {
		policy = *o.policy
	}
	collector := o.collector
	if collector == nil {
		collector = NewCollector()
	}
	audit := o.audit
	if audit == nil {
		audit = NewRingAudit(DefaultAuditCapacity)
	}

	s := &Session{
		id:            uuid.NewString(),
		drv:           drv,
		policy:        policy,
		db:            db,
		conn:          conn,
		collector:     collector,
		observers:     append([]Observer{collector}, o.observers...),
		audit:         audit,
		logger:        o.logger,
		tracer:        o.tracer,
		verbDetection: o.verbDetection,
	}

	s.logger.Info("database session opened",
		"driver", drv.Name(),
		"descriptor", descriptor,
		"session_id", s.id,
	)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Driver returns the driver name ("mysql", "pgsql", "mssql", "sqlite").
func (s *Session) Driver() string { return s.drv.Name() }

// Collector returns the default observer attached at Open.
func (s *Session) Collector() *Collector { return s.collector }

// LastQuery returns the most recently executed SQL string, or "" if none.
func (s *Session) LastQuery() string { return s.lastQuery }

// TxState returns the current transaction state.
func (s *Session) TxState() TxState {
	if s.tx != nil {
		return TxActive
	}
	return TxNone
}

// Attach adds an observer after those already attached.
func (s *Session) Attach(o Observer) {
	s.observers = append(s.observers, o)
}

// Read executes a SELECT-type statement and stores its rows as the current result.
// params is copied; observers and the audit log never see later changes to it.
func (s *Session) Read(ctx context.Context, query string, params Params) error {
	if s.closed {
		return ErrSessionClosed
	}
	params = maps.Clone(params)
	s.notify(ctx, CategorySelect, query, params)
	return s.query(ctx, query, params)
}

// Write executes a data-modifying statement.
// Statements that return rows (RETURNING, OUTPUT) leave them as the current result.
func (s *Session) Write(ctx context.Context, q *Query) error {
	if s.closed {
		return ErrSessionClosed
	}
	if q == nil {
		return newQueryError("", nil, NativeError{}, errors.New("nil query"))
	}
	params := maps.Clone(q.Data)
	s.notify(ctx, s.writeCategory(q.String), q.String, params)
	return s.query(ctx, q.String, params)
}

// Result returns the rows buffered by the last successful statement.
func (s *Session) Result() ([]Row, error) {
	if !s.hasResult {
		return nil, ErrNoActiveResult
	}
	return s.result, nil
}

// LastInsertID returns the identity value generated by the last insert on this
// connection. Returns "" when the engine reports none.
func (s *Session) LastInsertID(ctx context.Context) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	query := s.drv.LastInsertIDQuery()

	var id sql.NullString
	if err := s.runner().QueryRowxContext(ctx, query).Scan(&id); err != nil {
		return "", newQueryError(query, nil, s.drv.NativeError(err), err)
	}
	if !id.Valid {
		return "", nil
	}
	return id.String, nil
}

// BeginTransaction starts a transaction. It is a no-op if one is already active.
// ctx governs the whole transaction: cancelling it rolls the transaction back.
func (s *Session) BeginTransaction(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.tx != nil {
		return nil
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	s.logger.Debug("transaction started", "session_id", s.id)
	return nil
}

// Commit commits the active transaction. It is a no-op if none is active.
// The session returns to TxNone even when the commit fails.
func (s *Session) Commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.logger.Debug("transaction committed", "session_id", s.id)
	return nil
}

// Rollback rolls back the active transaction. It is a no-op if none is active.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	s.logger.Debug("transaction rolled back", "session_id", s.id)
	return nil
}

// Ping verifies the pinned connection is alive.
func (s *Session) Ping(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.drv.Name(), err)
	}
	return nil
}

// Close rolls back any open transaction and releases the connection.
// Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.Rollback(); err != nil {
		errs = append(errs, err)
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing connection: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing pool: %w", err))
	}
	s.result = nil
	s.hasResult = false

	s.logger.Info("database session closed", "driver", s.drv.Name(), "session_id", s.id)
	return errors.Join(errs...)
}

func (s *Session) runner() runner {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// query runs one statement: bookkeeping and notifications first, then
// bind, prepare, execute and buffer.
func (s *Session) query(ctx context.Context, query string, params Params) (err error) {
	ctx, span := s.tracer.Start(ctx, "database.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.drv.Name()),
			attribute.String("db.statement", query),
			attribute.String("graydb.session_id", s.id),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.logStatement(query, params)
	s.lastQuery = query

	entry := AuditEntry{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Driver:     s.drv.Name(),
		SQL:        query,
		Params:     params,
		ExecutedAt: time.Now().UTC(),
	}
	if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to record audit entry", "session_id", s.id, "error", auditErr)
	}

	s.notify(ctx, CategoryQuery, query, params)

	s.result = nil
	s.hasResult = false

	stmtSQL, args, err := bindParams(s.drv.SQLDriverName(), query, params)
	if err != nil {
		return newQueryError(query, params, NativeError{}, err)
	}

	stmt, err := s.runner().PreparexContext(ctx, stmtSQL)
	if err != nil {
		native := s.drv.NativeError(err)
		if s.policy.SwallowPrepareErrors && ctx.Err() == nil {
			s.logger.Error("statement prepare failed",
				"driver", s.drv.Name(),
				"query", query,
				"native_code", native.Code,
				"error", err,
			)
			span.SetAttributes(attribute.Bool("graydb.prepare_swallowed", true))
			return nil
		}
		return newQueryError(query, params, native, err)
	}
	defer stmt.Close() //nolint:errcheck // statement close errors are not actionable

	rows, err := s.execute(ctx, stmt, args)
	if err != nil {
		native := s.drv.NativeError(err)
		if s.policy.RequireNativeCode && native.Empty() && !clientSideError(ctx, err) {
			s.logger.Warn("statement failed without native error code",
				"driver", s.drv.Name(),
				"query", query,
				"error", err,
			)
			rows = []Row{}
		} else {
			return newQueryError(query, params, native, err)
		}
	}

	s.result = rows
	s.hasResult = true
	span.SetAttributes(attribute.Int("graydb.rows", len(rows)))
	return nil
}

func (s *Session) execute(ctx context.Context, stmt *sqlx.Stmt, args []any) ([]Row, error) {
	rs, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close() //nolint:errcheck // rows are fully drained by scanRows
	return scanRows(rs)
}

// clientSideError reports whether err was raised in Go rather than by the
// engine. Such errors always escalate.
func clientSideError(ctx context.Context, err error) bool {
	switch {
	case ctx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrSkip),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return true
	}
	// database/sql reports argument count and conversion failures as untyped
	// errors with this prefix.
	return strings.HasPrefix(err.Error(), "sql: ")
}

func (s *Session) notify(ctx context.Context, category Category, query string, params Params) {
	ev := Event{
		Category:  category,
		SessionID: s.id,
		Driver:    s.drv.Name(),
		Query:     query,
		Params:    params,
		Time:      time.Now().UTC(),
	}
	for _, o := range s.observers {
		o.Observe(ctx, ev)
	}
}

func (s *Session) writeCategory(query string) Category {
	if !s.verbDetection {
		return CategoryWrite
	}
	switch leadingKeyword(query) {
	case "INSERT":
		return CategoryInsert
	case "UPDATE":
		return CategoryUpdate
	case "DELETE":
		return CategoryDelete
	default:
		return CategoryWrite
	}
}

// leadingKeyword returns the first word of query in upper case, skipping
// leading whitespace and opening parentheses.
func leadingKeyword(query string) string {
	query = strings.TrimLeftFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	end := strings.IndexFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end >= 0 {
		query = query[:end]
	}
	return strings.ToUpper(query)
}

func (s *Session) logStatement(query string, params Params) {
	encoded, err := json.Marshal(params)
	if err != nil {
		s.logger.Warn("failed to encode statement parameters", "query", query, "error", err)
		s.logger.Debug("executing statement", "driver", s.drv.Name(), "query", query)
		return
	}
	s.logger.Debug("executing statement",
		"driver", s.drv.Name(),
		"query", query,
		"params", string(encoded),
	)
}
