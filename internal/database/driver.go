package database

// Driver is the per-engine capability a Session is built on.
//
// Implementations are stateless values; see internal/drivers for MySQL,
// PostgreSQL, MSSQL and SQLite.
type Driver interface {
	// Name is the driver identifier used as the registry key ("mysql", "pgsql", ...).
	Name() string

	// CheckCapability fails with an *Error wrapping ErrMissingCapability when the
	// native client is not available. It runs before any connection attempt.
	CheckCapability() error

	// FormatConnectionDescriptor renders the engine descriptor, for example
	// "mysql:dbname=app;host=db;charset=utf8". Used for logging and diagnostics.
	FormatConnectionDescriptor(cfg Config) (string, error)

	// NativeDSN renders the data source name for the database/sql driver.
	// Credentials are included only when cfg.HasCredentials() is true.
	NativeDSN(cfg Config) (string, error)

	// SQLDriverName is the name the native driver registered with database/sql.
	SQLDriverName() string

	// LastInsertIDQuery returns the statement reading the connection's last identity value.
	LastInsertIDQuery() string

	// NativeError extracts the engine's error descriptor from err.
	// It returns an empty descriptor when err is not a native engine error.
	NativeError(err error) NativeError

	// ErrorPolicy is the default failure escalation policy for this engine.
	ErrorPolicy() ErrorPolicy
}

// ErrorPolicy controls how prepare and execute failures are escalated.
type ErrorPolicy struct {
	// SwallowPrepareErrors logs prepare failures and returns without error.
	// The session is left with no current result.
	SwallowPrepareErrors bool

	// RequireNativeCode escalates engine execute failures only when the engine
	// reports a native error code. Engine failures without one are treated as
	// success with an empty result. Argument, conversion, cancellation and
	// connection-state errors raised on the Go side always escalate.
	RequireNativeCode bool
}

// Built-in error policies.
var (
	// StrictErrors escalates every prepare and execute failure.
	StrictErrors = ErrorPolicy{}

	// LenientErrors swallows prepare failures and escalates execute failures
	// only when a native error code is present.
	LenientErrors = ErrorPolicy{SwallowPrepareErrors: true, RequireNativeCode: true}
)
