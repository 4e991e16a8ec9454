package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pageza/foodgram/backend/config"
)

// GormConfig returns the gorm settings shared by every connection.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey on both drivers.
func GormConfig(log logrus.FieldLogger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// New opens the database selected by cfg.DBDriver
func New(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		log.WithFields(logrus.Fields{"host": cfg.DBHost, "port": cfg.DBPort, "user": cfg.DBUser}).
			Info("connecting to postgres")
		return open(postgres.Open(cfg.DSN()), log, 25)
	case "sqlite":
		log.WithField("path", cfg.SQLitePath).Info("opening sqlite database")
		return OpenSQLite(SQLiteDSN(cfg.SQLitePath), log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a sqlite database. A single connection serializes writers.
func OpenSQLite(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	return open(sqlite.Open(dsn), log, 1)
}

// SQLiteDSN enables foreign keys so cascades fire
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

func open(dialector gorm.Dialector, log logrus.FieldLogger, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if maxConns == 1 {
		// in-memory sqlite lives as long as its only connection
		sqlDB.SetConnMaxLifetime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	return db, nil
}

// HealthCheck checks if the database is accessible
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
