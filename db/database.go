package db

import (
	"fmt"
	"net/url"

	"timesheet_app_go/config"
	"timesheet_app_go/logger"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection. A Turso (libSQL) database is
// used when TURSO_DATABASE_URL is configured, otherwise a local SQLite file
// in WAL mode.
func Initialize(cfg *config.Config) error {
	var err error

	// Determine log level based on environment
	logLevel := gormlogger.Info
	if cfg.Environment == "production" {
		logLevel = gormlogger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	}

	if cfg.TursoDatabaseURL != "" {
		dsn, err := tursoDSN(cfg.TursoDatabaseURL, cfg.TursoAuthToken)
		if err != nil {
			return err
		}
		DB, err = gorm.Open(sqlite.New(sqlite.Config{
			DriverName: "libsql",
			DSN:        dsn,
		}), gormCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to turso database: %w", err)
		}
		logger.Log.Info("Database connection established (Turso)")
		return nil
	}

	// Enable WAL mode for better concurrency support
	dsn := cfg.DBPath + "?_journal_mode=WAL&_foreign_keys=on"

	DB, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Log.Info("Database connection established (WAL mode enabled)", zap.String("path", cfg.DBPath))
	return nil
}

// tursoDSN appends the auth token to the libSQL URL
func tursoDSN(rawURL, authToken string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid TURSO_DATABASE_URL: %w", err)
	}
	if authToken != "" {
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
