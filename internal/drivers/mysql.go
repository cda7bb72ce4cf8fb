package drivers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/nerrad567/graydb/internal/database"
)

// MySQL connects through go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string          { return NameMySQL }
func (MySQL) SQLDriverName() string { return "mysql" }

func (MySQL) CheckCapability() error {
	return checkRegistered("mysql", "MISSING_EXTENSION_PDO_MYSQL")
}

func (MySQL) FormatConnectionDescriptor(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	return fmt.Sprintf("mysql:dbname=%s;host=%s;charset=utf8",
		cfg.Get(database.KeyDatabase), cfg.Get(database.KeyHost)), nil
}

// NativeDSN renders a go-sql-driver DSN over TCP. A host without a port uses 3306.
func (MySQL) NativeDSN(cfg database.Config) (string, error) {
	if err := cfg.Require(database.KeyDatabase, database.KeyHost); err != nil {
		return "", err
	}
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = cfg.Get(database.KeyHost)
	mc.DBName = cfg.Get(database.KeyDatabase)
	mc.Params = map[string]string{"charset": "utf8"}
	if cfg.HasCredentials() {
		mc.User = cfg.Get(database.KeyUser)
		mc.Passwd = cfg.Get(database.KeyPass)
	}
	return mc.FormatDSN(), nil
}

func (MySQL) LastInsertIDQuery() string { return "SELECT LAST_INSERT_ID()" }

func (MySQL) NativeError(err error) database.NativeError {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return database.NativeError{}
	}
	return database.NativeError{
		SQLState: string(me.SQLState[:]),
		Code:     strconv.Itoa(int(me.Number)),
		Message:  me.Message,
	}
}

func (MySQL) ErrorPolicy() database.ErrorPolicy { return database.StrictErrors }
