package dbclient

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"barrel/internal/domain"
)

// MySQL has no RETURNING; callbacks receive the rows as written.
var mysqlDialect = dialect{
	driverName:  "mysql",
	placeholder: questionMark,
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	encode: encodeJSON,
}

// buildMySQLDSN constructs a MySQL DSN from a DatabaseConnection.
func buildMySQLDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range conn.Extra {
		cfg.Params[k] = v
	}
	if conn.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}
