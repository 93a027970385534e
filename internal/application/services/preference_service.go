package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

// PreferenceService manages per-operator delivery preferences. Preferences
// are persisted rows, never process state, so toggles survive restarts and
// apply across instances.
type PreferenceService struct {
	logger *logging.ChanneledLogger
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(logger *logging.ChanneledLogger) *PreferenceService {
	return &PreferenceService{
		logger: logger,
	}
}

// Get returns one operator's preferences, falling back to the default record
// (everything off) when the operator has never saved any.
func (s *PreferenceService) Get(venueCtx *venue.Context, operatorID string) (*repositories.OperatorPreference, error) {
	if operatorID == "" {
		return nil, fmt.Errorf("operator id cannot be empty")
	}

	pref, err := venueCtx.PreferenceRepo().FindByOperator(venueCtx.VenueID, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", operatorID, err)
	}
	if pref == nil {
		return &repositories.OperatorPreference{
			OperatorID: operatorID,
			VenueID:    venueCtx.VenueID,
		}, nil
	}
	return pref, nil
}

// Save upserts an operator's preferences.
func (s *PreferenceService) Save(venueCtx *venue.Context, pref *repositories.OperatorPreference) error {
	if pref == nil || pref.OperatorID == "" {
		return fmt.Errorf("operator id cannot be empty")
	}
	pref.VenueID = venueCtx.VenueID
	pref.Changed = time.Now().UTC()

	if err := venueCtx.PreferenceRepo().Upsert(venueCtx.VenueID, pref); err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", pref.OperatorID, err)
	}

	s.logger.Venue().Info("Operator preferences saved",
		"venueId", venueCtx.VenueID, "operatorId", pref.OperatorID,
		"roiAlerts", pref.ROIAlerts, "mergeDigest", pref.MergeDigest, "reserveDigest", pref.ReserveDigest)
	return nil
}

// Reset removes an operator's stored preferences, restoring defaults.
func (s *PreferenceService) Reset(venueCtx *venue.Context, operatorID string) error {
	if operatorID == "" {
		return fmt.Errorf("operator id cannot be empty")
	}
	if err := venueCtx.PreferenceRepo().Delete(venueCtx.VenueID, operatorID); err != nil {
		return fmt.Errorf("failed to reset preferences for %s: %w", operatorID, err)
	}
	s.logger.Venue().Info("Operator preferences reset", "venueId", venueCtx.VenueID, "operatorId", operatorID)
	return nil
}
