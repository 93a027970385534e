package database

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// TestConnection verifies a ledger database is reachable before a venue
// is activated. The URL may point at a local sqlite file or a remote
// libsql instance depending on the auth token.
func TestConnection(dbURL, authToken string) error {
	return TestConnectionWithLogger(dbURL, authToken, nil)
}

// TestConnectionWithLogger verifies connectivity with logging support
func TestConnectionWithLogger(dbURL, authToken string, logger *logging.ChanneledLogger) error {
	start := time.Now()

	if logger != nil {
		logger.Database().Debug("Testing database connection", "url", dbURL)
	}

	db, err := NewConnectionWithLogger(dbURL, authToken, logger)
	if err != nil {
		if logger != nil {
			logger.Database().Error("Database connection test failed", "error", err, "duration", time.Since(start))
		}
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer db.Close()

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		if logger != nil {
			logger.Database().Error("Database test query failed", "error", err, "duration", time.Since(start))
		}
		return fmt.Errorf("test query failed: %w", err)
	}

	if logger != nil {
		logger.Database().Info("Database connection test passed", "duration", time.Since(start))
	}
	return nil
}

// CheckAndLogSlowQuery logs queries that exceed the configured threshold
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, venueID string) {
	if logger != nil && duration > config.SlowQueryThreshold {
		logger.LogSlowQuery(query, duration, venueID)
	}
}
