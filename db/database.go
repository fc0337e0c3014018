package db

import (
	"fmt"
	"net/url"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func gormConfig(environment string) *gorm.Config {
	// Determine log level based on environment
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}
}

// Initialize sets up the database connection with WAL mode for concurrency
func Initialize(dbPath string, environment string) error {
	var err error

	// Enable WAL mode for better concurrency support
	dsn := dbPath + "?_journal_mode=WAL"

	DB, err = gorm.Open(sqlite.Open(dsn), gormConfig(environment))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	zap.L().Info("database connection established", zap.String("driver", "sqlite"), zap.Bool("wal", true))
	return nil
}

// InitializeRemote connects to a Turso/libSQL database through the sqlite dialector
func InitializeRemote(databaseURL, authToken, environment string) error {
	dsn, err := libsqlDSN(databaseURL, authToken)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "libsql",
		DSN:        dsn,
	}), gormConfig(environment))
	if err != nil {
		return fmt.Errorf("failed to connect to remote database: %w", err)
	}

	zap.L().Info("database connection established", zap.String("driver", "libsql"))
	return nil
}

func libsqlDSN(databaseURL, authToken string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
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

	zap.L().Info("database migrations completed", zap.Int("models", len(models)))
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
