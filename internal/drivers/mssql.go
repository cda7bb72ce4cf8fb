package drivers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/nerrad567/graydb/internal/database"
)

// MSSQL connects through microsoft/go-mssqldb.
type MSSQL struct{}

func (MSSQL) Name() string          { return NameMSSQL }
func (MSSQL) SQLDriverName() string { return "sqlserver" }

func (MSSQL) CheckCapability() error {
	return checkRegistered("sqlserver", "MISSING_EXTENSION_PDO_MSSQL")
}

func (MSSQL) FormatConnectionDescriptor(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	return fmt.Sprintf("mssql:dbname=%s;host=%s",
		cfg.Get(database.KeyDatabase), cfg.Get(database.KeyHost)), nil
}

// NativeDSN renders a sqlserver:// URL. Without credentials the driver falls
// back to integrated authentication.
func (MSSQL) NativeDSN(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     cfg.Get(database.KeyHost),
		RawQuery: url.Values{"database": {cfg.Get(database.KeyDatabase)}}.Encode(),
	}
	if cfg.HasCredentials() {
		u.User = url.UserPassword(cfg.Get(database.KeyUser), cfg.Get(database.KeyPass))
	}
	return u.String(), nil
}

func (MSSQL) LastInsertIDQuery() string { return "SELECT CAST(@@IDENTITY AS NVARCHAR(40))" }

func (MSSQL) NativeError(err error) database.NativeError {
	var me mssql.Error
	if !errors.As(err, &me) {
		return database.NativeError{}
	}
	return database.NativeError{
		SQLState: strconv.Itoa(int(me.State)),
		Code:     strconv.Itoa(int(me.Number)),
		Message:  me.Message,
	}
}

func (MSSQL) ErrorPolicy() database.ErrorPolicy { return database.StrictErrors }
