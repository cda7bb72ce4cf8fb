package drivers

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/nerrad567/graydb/internal/database"
)

// Driver names used as registry and configuration keys.
const (
	NameMySQL      = "mysql"
	NamePostgreSQL = "pgsql"
	NameMSSQL      = "mssql"
	NameSQLite     = "sqlite"
)

// registeredDrivers lists the database/sql drivers linked into the binary.
// Replaced in tests.
var registeredDrivers = sql.Drivers

// checkRegistered fails with a capability error when sqlName is not registered.
func checkRegistered(sqlName, code string) error {
	if slices.Contains(registeredDrivers(), sqlName) {
		return nil
	}
	return database.NewCapabilityError(code)
}

// All returns every bundled driver.
func All() []database.Driver {
	return []database.Driver{MySQL{}, PostgreSQL{}, MSSQL{}, SQLite{}}
}

// Names returns the names of every bundled driver.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, d := range all {
		names = append(names, d.Name())
	}
	return names
}

// Lookup returns the driver registered under name.
func Lookup(name string) (database.Driver, error) {
	for _, d := range All() {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", database.ErrUnknownDriver, name)
}
