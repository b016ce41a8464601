package domain

import "fmt"

// DatabaseDriver represents the type of database engine seeded by a plan.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMemory   DatabaseDriver = "memory" // dry runs; nothing leaves the process
)

// DatabaseConnection holds the metadata for connecting to the target database.
// The password is never stored here; PasswordKey names it in a SecretStore.
type DatabaseConnection struct {
	Driver      DatabaseDriver    `json:"driver" yaml:"driver"`
	Host        string            `json:"host" yaml:"host"`         // hostname, URI (mongodb) or file path (sqlite)
	Port        int               `json:"port" yaml:"port"`         // 0 means the driver default
	Database    string            `json:"database" yaml:"database"` // db name or empty for sqlite
	Username    string            `json:"username" yaml:"username"`
	SSLMode     string            `json:"sslMode" yaml:"sslMode"`
	PasswordKey string            `json:"passwordKey" yaml:"passwordKey"`
	Extra       map[string]string `json:"extra,omitempty" yaml:"extra"` // driver-specific options
}

// Validate checks the fields every driver needs.
func (c *DatabaseConnection) Validate() error {
	switch c.Driver {
	case DatabaseDriverMemory:
		return nil
	case DatabaseDriverSQLite, DatabaseDriverMongoDB:
		if c.Host == "" {
			return fmt.Errorf("%s connection needs host", c.Driver)
		}
	case DatabaseDriverMySQL, DatabaseDriverPostgres:
		if c.Host == "" || c.Database == "" {
			return fmt.Errorf("%s connection needs host and database", c.Driver)
		}
	case "":
		return fmt.Errorf("connection driver is required")
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}
	return nil
}
