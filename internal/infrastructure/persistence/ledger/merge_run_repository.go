package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

const mergeRunColumns = `run_id, started_at, finished_at, status, accepted,
	       duplicates, failed, sources_payload, warnings_payload`

// MergeRunRepository persists merge run reports for the run history view.
type MergeRunRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewMergeRunRepository creates a new instance of the repository.
func NewMergeRunRepository(db *database.DB, logger *logging.ChanneledLogger) *MergeRunRepository {
	return &MergeRunRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves one merge run report.
func (r *MergeRunRepository) FindByID(venueID, runID string) (*lead.MergeReport, error) {
	query := `SELECT ` + mergeRunColumns + ` FROM merge_runs WHERE run_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading merge run", "runId", runID)

	report, err := r.scanMergeRun(r.db.QueryRow(query, runID), venueID)
	if err != nil {
		r.logger.Database().Error("Failed to scan merge run", "error", err.Error(), "runId", runID)
		return nil, err
	}
	if report == nil {
		return nil, nil
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return report, nil
}

// FindRecent retrieves the latest merge runs, newest first.
func (r *MergeRunRepository) FindRecent(venueID string, limit int) ([]*lead.MergeReport, error) {
	query := `SELECT ` + mergeRunColumns + ` FROM merge_runs ORDER BY started_at DESC LIMIT ?`

	start := time.Now()
	r.logger.Database().Debug("Loading recent merge runs", "limit", limit)

	rows, err := r.db.Query(query, limit)
	if err != nil {
		r.logger.Database().Error("Failed to query merge runs", "error", err.Error())
		return nil, fmt.Errorf("failed to query merge runs: %w", err)
	}
	defer rows.Close()

	var reports []*lead.MergeReport
	for rows.Next() {
		report, err := r.scanMergeRun(rows, venueID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Database().Info("Recent merge runs loaded", "count", len(reports), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return reports, nil
}

// Store inserts a finalized merge run report.
func (r *MergeRunRepository) Store(venueID string, report *lead.MergeReport) error {
	query := `INSERT INTO merge_runs (run_id, started_at, finished_at, status, accepted,
	          duplicates, failed, sources_payload, warnings_payload)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sourcesJSON, _ := json.Marshal(report.Sources)
	warningsJSON, _ := json.Marshal(report.Warnings)

	start := time.Now()
	r.logger.Database().Debug("Executing merge run insert", "runId", report.RunID, "status", report.Status)

	_, err := r.db.Exec(
		query,
		report.RunID,
		sqlTime(report.StartedAt),
		sqlTime(report.FinishedAt),
		report.Status,
		report.Accepted,
		report.Duplicates,
		report.Failed,
		string(sourcesJSON),
		string(warningsJSON),
	)
	if err != nil {
		r.logger.Database().Error("Merge run insert failed", "error", err.Error(), "runId", report.RunID)
		return fmt.Errorf("failed to insert merge run: %w", err)
	}

	r.logger.Database().Info("Merge run insert completed", "runId", report.RunID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return nil
}

// scanMergeRun is a helper function to scan a row into a MergeReport struct.
func (r *MergeRunRepository) scanMergeRun(row rowScanner, venueID string) (*lead.MergeReport, error) {
	var report lead.MergeReport
	var startedAt, finishedAt any
	var sourcesStr, warningsStr sql.NullString

	err := row.Scan(
		&report.RunID,
		&startedAt,
		&finishedAt,
		&report.Status,
		&report.Accepted,
		&report.Duplicates,
		&report.Failed,
		&sourcesStr,
		&warningsStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan merge run: %w", err)
	}

	report.VenueID = venueID
	report.StartedAt = scanTime(startedAt)
	report.FinishedAt = scanTime(finishedAt)

	if sourcesStr.Valid && sourcesStr.String != "" {
		if err := json.Unmarshal([]byte(sourcesStr.String), &report.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode merge run sources: %w", err)
		}
	}
	if warningsStr.Valid && warningsStr.String != "" {
		if err := json.Unmarshal([]byte(warningsStr.String), &report.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode merge run warnings: %w", err)
		}
	}
	return &report, nil
}
