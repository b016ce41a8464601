package dbclient

import (
	"context"
	"fmt"

	"barrel/internal/barrel"
	"barrel/internal/domain"
)

// Store is an insert backend bound to one database connection.
type Store interface {
	barrel.Backend

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close closes the connection.
	Close() error
}

// NewStore creates a Store for the given database connection.
// The password must be provided separately (from a SecretStore).
func NewStore(conn *domain.DatabaseConnection, password string) (Store, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	var (
		store Store
		err   error
	)
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		store, err = newSQLStore(sqliteDialect, buildSQLiteDSN(conn))
	case domain.DatabaseDriverMySQL:
		store, err = newSQLStore(mysqlDialect, buildMySQLDSN(conn, password))
	case domain.DatabaseDriverPostgres:
		store, err = newSQLStore(postgresDialect, buildPostgresDSN(conn, password))
	case domain.DatabaseDriverMongoDB:
		store, err = newMongoStore(conn, password)
	case domain.DatabaseDriverMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// column maps one persisted column to the record key it is read from.
type column struct {
	name string
	key  string
}

// columnsOf returns the schema's columns in declaration order. When several
// properties share a column name the first position is kept and the last
// property's key is used.
func columnsOf(schema *barrel.Schema) []column {
	cols := make([]column, 0, len(schema.Properties))
	index := make(map[string]int, len(schema.Properties))
	for _, p := range schema.Properties {
		if i, ok := index[p.Name]; ok {
			cols[i].key = p.RecordKey()
			continue
		}
		index[p.Name] = len(cols)
		cols = append(cols, column{name: p.Name, key: p.RecordKey()})
	}
	return cols
}

// rowOf returns rec keyed by column name.
func rowOf(cols []column, rec barrel.Record) barrel.Record {
	row := make(barrel.Record, len(cols))
	for _, c := range cols {
		row[c.name] = rec[c.key]
	}
	return row
}
