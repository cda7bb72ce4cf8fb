package drivers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/nerrad567/graydb/internal/database"
)

// PostgreSQL connects through pgx's database/sql adapter.
type PostgreSQL struct{}

func (PostgreSQL) Name() string          { return NamePostgreSQL }
func (PostgreSQL) SQLDriverName() string { return "pgx" }

func (PostgreSQL) CheckCapability() error {
	return checkRegistered("pgx", "MISSING_EXTENSION_PDO_PGSQL")
}

func (PostgreSQL) FormatConnectionDescriptor(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	return fmt.Sprintf("pgsql:dbname=%s;host=%s",
		cfg.Get(database.KeyDatabase), cfg.Get(database.KeyHost)), nil
}

// NativeDSN renders a libpq keyword/value connection string.
func (PostgreSQL) NativeDSN(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	parts := []string{
		"host=" + pgQuote(cfg.Get(database.KeyHost)),
		"dbname=" + pgQuote(cfg.Get(database.KeyDatabase)),
	}
	if cfg.HasCredentials() {
		parts = append(parts,
			"user="+pgQuote(cfg.Get(database.KeyUser)),
			"password="+pgQuote(cfg.Get(database.KeyPass)),
		)
	}
	return strings.Join(parts, " "), nil
}

// pgQuote single-quotes a keyword/value setting, escaping quotes and backslashes.
func pgQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (PostgreSQL) LastInsertIDQuery() string { return "SELECT lastval()" }

func (PostgreSQL) NativeError(err error) database.NativeError {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return database.NativeError{}
	}
	return database.NativeError{
		SQLState: pe.Code,
		Code:     pe.Code,
		Message:  pe.Message,
	}
}

func (PostgreSQL) ErrorPolicy() database.ErrorPolicy { return database.StrictErrors }
