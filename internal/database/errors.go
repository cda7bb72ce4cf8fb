package database

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for session operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, database.ErrNoActiveResult) {
//	    // Nothing has been executed yet
//	}
var (
	// ErrConnection indicates the native connection could not be established.
	ErrConnection = errors.New("database: connection failed")

	// ErrMissingCapability indicates the native client for a driver is not registered.
	// It is raised before any connection attempt.
	ErrMissingCapability = errors.New("database: missing native driver capability")

	// ErrQueryExecution indicates a statement failed to prepare or execute.
	ErrQueryExecution = errors.New("database: query execution failed")

	// ErrNoActiveResult indicates Result was called before any statement produced one.
	ErrNoActiveResult = errors.New("database: no active result")

	// ErrMissingConfig indicates a required configuration key is absent or empty.
	ErrMissingConfig = errors.New("database: missing configuration key")

	// ErrUnknownDriver indicates a registry lookup for a driver that was never registered.
	ErrUnknownDriver = errors.New("database: unknown driver")

	// ErrMixedParams indicates positional and named parameters were used together.
	ErrMixedParams = errors.New("database: cannot mix positional and named parameters")

	// ErrSessionClosed indicates an operation on a session after Close.
	ErrSessionClosed = errors.New("database: session closed")
)

// Error codes carried by *Error.
const (
	CodeConnectionError = "EXCEPTION_CONSTRUCT_CONNECTION_ERROR"
	CodeQueryError      = "EXCEPTION_QUERY_ERROR"
)

// NativeError is the engine's structured error descriptor.
type NativeError struct {
	SQLState string `json:"sqlstate,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Empty reports whether the descriptor carries no native error code.
func (n NativeError) Empty() bool {
	return n.Code == "" && n.SQLState == ""
}

// Error is the domain error for connection, capability and query failures.
// It carries enough context to diagnose a failure without re-running it.
type Error struct {
	// Code is the machine-readable error code (CodeQueryError, MISSING_EXTENSION_PDO_*, ...).
	Code string

	// Config is the attempted configuration for connection failures (password redacted).
	Config Config

	// SQL and Params describe the failed statement for query failures.
	SQL    string
	Params Params

	// Native is the driver's error descriptor, if any.
	Native NativeError

	// Err is the underlying cause.
	Err error

	kind error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.kind.Error())
	b.WriteString(" [")
	b.WriteString(e.Code)
	b.WriteString("]")
	if e.SQL != "" {
		fmt.Fprintf(&b, " query=%q", e.SQL)
	}
	if e.Native.Code != "" || e.Native.SQLState != "" {
		fmt.Fprintf(&b, " native=%s/%s", e.Native.SQLState, e.Native.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewCapabilityError builds the error returned when a driver's native client is absent.
func NewCapabilityError(code string) *Error {
	return &Error{Code: code, kind: ErrMissingCapability}
}

func newConnectionError(cfg Config, cause error) *Error {
	return &Error{
		Code:   CodeConnectionError,
		Config: cfg.Redacted(),
		Err:    cause,
		kind:   ErrConnection,
	}
}

func newQueryError(sql string, params Params, native NativeError, cause error) *Error {
	return &Error{
		Code:   CodeQueryError,
		SQL:    sql,
		Params: params,
		Native: native,
		Err:    cause,
		kind:   ErrQueryExecution,
	}
}
