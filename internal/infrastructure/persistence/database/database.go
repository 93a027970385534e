// Package database provides SQL connection management for venue ledgers
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB wraps sql.DB with venue ledger specific functionality
type DB struct {
	*sql.DB
	logger *logging.ChanneledLogger
}

// NewConnection creates a new database connection
func NewConnection(dbURL, authToken string) (*DB, error) {
	return NewConnectionWithLogger(dbURL, authToken, nil)
}

// NewConnectionWithLogger creates a new database connection with logging support
func NewConnectionWithLogger(dbURL, authToken string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()

	var dsn string
	var driver string

	if authToken != "" {
		driver = "libsql"
		dsn = fmt.Sprintf("%s?authToken=%s", dbURL, authToken)
	} else {
		driver = "sqlite3"
		dsn = dbURL
	}

	if logger != nil {
		logger.Database().Debug("Opening database connection", "driver", driver, "url", dbURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		if logger != nil {
			logger.Database().Error("Failed to open database connection", "error", err, "driver", driver, "duration", time.Since(start))
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleMinutes) * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		if logger != nil {
			logger.Database().Error("Database ping failed", "error", err, "driver", driver, "duration", time.Since(start))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	duration := time.Since(start)
	if logger != nil {
		logger.Database().Info("Database connection established", "driver", driver, "duration", duration)
		if duration > config.SlowQueryThreshold {
			logger.LogSlowQuery("CONNECT "+driver, duration, "")
		}
	}

	return &DB{DB: db, logger: logger}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	if d.logger != nil {
		d.logger.Database().Debug("Closing database connection")
	}
	return d.DB.Close()
}
