package dbclient

import (
	"barrel/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	driverName:  "sqlite",
	placeholder: questionMark,
	quote:       doubleQuote,
	returning:   true,
	encode:      encodeJSON,
}

// buildSQLiteDSN opens the file at conn.Host in WAL mode with a busy timeout
// and foreign keys enforced, so referenced rows must be inserted first.
func buildSQLiteDSN(conn *domain.DatabaseConnection) string {
	return conn.Host + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
