package drivers

import (
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/graydb/internal/database"
)

// sqliteSQLState is the generic SQLSTATE reported for SQLite failures.
const sqliteSQLState = "HY000"

// SQLite opens a database file through mattn/go-sqlite3 (CGO).
// The "file" key may be ":memory:" for a private in-memory database.
type SQLite struct{}

func (SQLite) Name() string          { return NameSQLite }
func (SQLite) SQLDriverName() string { return "sqlite3" }

func (SQLite) CheckCapability() error {
	return checkRegistered("sqlite3", "MISSING_EXTENSION_PDO_SQLITE")
}

func (SQLite) FormatConnectionDescriptor(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyFile); err != nil {
		return "", err
	}
	return "sqlite:" + cfg.Get(database.KeyFile), nil
}

// NativeDSN returns the file path. SQLite has no credentials.
func (SQLite) NativeDSN(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyFile); err != nil {
		return "", err
	}
	return cfg.Get(database.KeyFile), nil
}

func (SQLite) LastInsertIDQuery() string { return "SELECT last_insert_rowid()" }

func (SQLite) NativeError(err error) database.NativeError {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return database.NativeError{}
	}
	return database.NativeError{
		SQLState: sqliteSQLState,
		Code:     strconv.Itoa(int(se.Code)),
		Message:  se.Error(),
	}
}

// ErrorPolicy is LenientErrors: prepare failures are logged and swallowed.
func (SQLite) ErrorPolicy() database.ErrorPolicy { return database.LenientErrors }
