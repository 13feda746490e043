// Package mysql opens relmodel databases on github.com/go-sql-driver/mysql.
package mysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coregx/relmodel"
	"github.com/go-sql-driver/mysql"
)

// DriverName is the dialect name used for databases opened by this package.
const DriverName = "mysql"

const errDupEntry = 1062

// Config is the connection configuration of the MySQL driver.
type Config = mysql.Config

// NewConfig returns a configuration with the driver defaults and ParseTime
// enabled, so DATETIME columns scan into time.Time.
func NewConfig() *Config {
	cfg := mysql.NewConfig()
	cfg.ParseTime = true
	return cfg
}

// Open opens a database described by cfg. No connection is made until the
// first statement.
func Open(cfg *Config, opts ...relmodel.Option) (*relmodel.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return relmodel.OpenConnector(connector, DriverName, opts...)
}

// OpenDSN parses a driver DSN ("user:pass@tcp(host:3306)/db") and opens a
// database on it. ParseTime is enabled unless the DSN sets it.
func OpenDSN(dsn string, opts ...relmodel.Option) (*relmodel.DB, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return Open(cfg, opts...)
}

// ParseDSN parses dsn into a Config with ParseTime enabled unless the DSN
// sets it.
func ParseDSN(dsn string) (*Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	if !strings.Contains(dsn, "parseTime=") {
		cfg.ParseTime = true
	}
	return cfg, nil
}

// IsDuplicateEntry reports whether err carries an ER_DUP_ENTRY error from
// the server.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry
}
