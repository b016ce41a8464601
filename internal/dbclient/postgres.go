package dbclient

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"barrel/internal/domain"
)

var postgresDialect = dialect{
	driverName:  "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	quote:       pq.QuoteIdentifier,
	returning:   true,
	encode:      encodePostgres,
}

// encodePostgres sends slices as Postgres arrays and maps as JSON.
func encodePostgres(v any) (any, error) {
	if !isComposite(v) {
		return v, nil
	}
	if reflect.TypeOf(v).Kind() == reflect.Map {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return pq.Array(v), nil
}

// buildPostgresDSN constructs a Postgres connection string from a DatabaseConnection.
func buildPostgresDSN(conn *domain.DatabaseConnection, password string) string {
	port := conn.Port
	if port == 0 {
		port = 5432
	}
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		conn.Host, port, conn.Username, password, conn.Database, sslMode,
	)
}
