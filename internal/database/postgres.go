package database

import (
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresGormDB opens a PostgreSQL connection. The lib/pq driver is
// registered under "postgres" and gorm is pointed at it instead of pgx.
func NewPostgresGormDB(host, port, user, password, dbname, sslmode string, logLevel logger.LogLevel) (*GormDB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host, port, user, password, dbname, sslmode)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return wrap(db)
}
