package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// PreferenceRepository persists per-operator delivery preferences.
type PreferenceRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewPreferenceRepository creates a new instance of the repository.
func NewPreferenceRepository(db *database.DB, logger *logging.ChanneledLogger) *PreferenceRepository {
	return &PreferenceRepository{
		db:     db,
		logger: logger,
	}
}

// FindByOperator retrieves one operator's preferences.
func (r *PreferenceRepository) FindByOperator(venueID, operatorID string) (*repositories.OperatorPreference, error) {
	query := `SELECT operator_id, roi_alerts, merge_digest, reserve_digest, email, changed
	          FROM preferences WHERE operator_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading operator preferences", "operatorId", operatorID)

	pref, err := r.scanPreference(r.db.QueryRow(query, operatorID), venueID)
	if err != nil {
		r.logger.Database().Error("Failed to scan preferences", "error", err.Error(), "operatorId", operatorID)
		return nil, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return pref, nil
}

// FindByVenue retrieves every operator preference row for the venue.
func (r *PreferenceRepository) FindByVenue(venueID string) ([]*repositories.OperatorPreference, error) {
	query := `SELECT operator_id, roi_alerts, merge_digest, reserve_digest, email, changed
	          FROM preferences ORDER BY operator_id`

	start := time.Now()
	r.logger.Database().Debug("Loading venue preferences")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query venue preferences", "error", err.Error())
		return nil, fmt.Errorf("failed to query venue preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*repositories.OperatorPreference
	for rows.Next() {
		pref, err := r.scanPreference(rows, venueID)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return prefs, nil
}

// FindROIAlertRecipients retrieves every operator subscribed to ROI alerts
// with a deliverable address.
func (r *PreferenceRepository) FindROIAlertRecipients(venueID string) ([]*repositories.OperatorPreference, error) {
	query := `SELECT operator_id, roi_alerts, merge_digest, reserve_digest, email, changed
	          FROM preferences WHERE roi_alerts = 1 AND email IS NOT NULL AND email != ''`

	start := time.Now()
	r.logger.Database().Debug("Loading ROI alert recipients")

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("Failed to query alert recipients", "error", err.Error())
		return nil, fmt.Errorf("failed to query alert recipients: %w", err)
	}
	defer rows.Close()

	var prefs []*repositories.OperatorPreference
	for rows.Next() {
		pref, err := r.scanPreference(rows, venueID)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Database().Info("ROI alert recipients loaded", "count", len(prefs), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return prefs, nil
}

// Upsert stores an operator's preferences, overwriting any prior row.
func (r *PreferenceRepository) Upsert(venueID string, pref *repositories.OperatorPreference) error {
	query := `INSERT INTO preferences (operator_id, roi_alerts, merge_digest, reserve_digest, email, changed)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(operator_id) DO UPDATE SET
	          roi_alerts = excluded.roi_alerts, merge_digest = excluded.merge_digest,
	          reserve_digest = excluded.reserve_digest, email = excluded.email, changed = excluded.changed`

	if pref.Changed.IsZero() {
		pref.Changed = time.Now().UTC()
	}

	start := time.Now()
	r.logger.Database().Debug("Executing preference upsert", "operatorId", pref.OperatorID)

	_, err := r.db.Exec(
		query,
		pref.OperatorID,
		pref.ROIAlerts,
		pref.MergeDigest,
		pref.ReserveDigest,
		pref.Email,
		sqlTime(pref.Changed),
	)
	if err != nil {
		r.logger.Database().Error("Preference upsert failed", "error", err.Error(), "operatorId", pref.OperatorID)
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}

	r.logger.Database().Info("Preference upsert completed", "operatorId", pref.OperatorID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return nil
}

// Delete removes an operator's preferences, restoring defaults.
func (r *PreferenceRepository) Delete(venueID, operatorID string) error {
	query := `DELETE FROM preferences WHERE operator_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing preference delete", "operatorId", operatorID)

	_, err := r.db.Exec(query, operatorID)
	if err != nil {
		r.logger.Database().Error("Preference delete failed", "error", err.Error(), "operatorId", operatorID)
		return fmt.Errorf("failed to delete preferences: %w", err)
	}

	r.logger.Database().Info("Preference delete completed", "operatorId", operatorID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, venueID)
	}
	return nil
}

// scanPreference is a helper function to scan a row into an OperatorPreference.
func (r *PreferenceRepository) scanPreference(row rowScanner, venueID string) (*repositories.OperatorPreference, error) {
	var pref repositories.OperatorPreference
	var email sql.NullString
	var changed any

	err := row.Scan(
		&pref.OperatorID,
		&pref.ROIAlerts,
		&pref.MergeDigest,
		&pref.ReserveDigest,
		&email,
		&changed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan preferences: %w", err)
	}

	pref.VenueID = venueID
	pref.Email = email.String
	pref.Changed = scanTime(changed)
	return &pref, nil
}
