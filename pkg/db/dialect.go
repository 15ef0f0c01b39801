package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/smallbiznis/pricesync/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Dialect picks the gorm driver for DATABASE_TYPE. Every connection runs in
// UTC so price change timestamps compare the same across backends.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.DBType)); kind {
	case Postgres:
		return postgres.New(postgres.Config{DSN: postgresDSN(cfg)}), nil
	case MySQL:
		return mysql.New(mysql.Config{DSN: mysqlDSN(cfg)}), nil
	case SQLite:
		return sqlite.Open(cfg.DBName + ".db?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("db: unsupported database type %q", kind)
	}
}

func postgresDSN(cfg config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   cfg.DBHost + ":" + cfg.DBPort,
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.DBSSLMode)
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}

func mysqlDSN(cfg config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
