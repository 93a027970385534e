package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// PreferenceHandlers contains the operator notification preference HTTP handlers.
// The operator is always taken from the auth token, never from the request body,
// so an operator can only touch their own record.
type PreferenceHandlers struct {
	preferenceService *services.PreferenceService
	policies          *policy.Pipeline
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewPreferenceHandlers creates preference handlers with injected dependencies
func NewPreferenceHandlers(
	preferenceService *services.PreferenceService,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *PreferenceHandlers {
	return &PreferenceHandlers{
		preferenceService: preferenceService,
		policies:          policies,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// GetPreferences handles GET /api/v1/preferences
func (h *PreferenceHandlers) GetPreferences(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_preferences_request", venueCtx.VenueID)
	defer marker.Complete()

	op := operatorFrom(c)
	if op == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	pref, err := h.preferenceService.Get(venueCtx, op.OperatorID)
	if err != nil {
		h.logger.Venue().Error("Preference lookup failed", "venueId", venueCtx.VenueID, "operatorId", op.OperatorID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, pref)
}

// PutPreferences handles PUT /api/v1/preferences
func (h *PreferenceHandlers) PutPreferences(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("put_preferences_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandPreferences) {
		marker.SetSuccess(false)
		return
	}
	op := operatorFrom(c)

	var req struct {
		ROIAlerts     bool   `json:"roiAlerts"`
		MergeDigest   bool   `json:"mergeDigest"`
		ReserveDigest bool   `json:"reserveDigest"`
		Email         string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preference payload"})
		return
	}

	pref := &repositories.OperatorPreference{
		OperatorID:    op.OperatorID,
		ROIAlerts:     req.ROIAlerts,
		MergeDigest:   req.MergeDigest,
		ReserveDigest: req.ReserveDigest,
		Email:         req.Email,
	}
	if err := h.preferenceService.Save(venueCtx, pref); err != nil {
		h.logger.Venue().Error("Preference save failed", "venueId", venueCtx.VenueID, "operatorId", op.OperatorID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, pref)
}

// DeletePreferences handles DELETE /api/v1/preferences
func (h *PreferenceHandlers) DeletePreferences(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("delete_preferences_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandPreferences) {
		marker.SetSuccess(false)
		return
	}
	op := operatorFrom(c)

	if err := h.preferenceService.Reset(venueCtx, op.OperatorID); err != nil {
		h.logger.Venue().Error("Preference reset failed", "venueId", venueCtx.VenueID, "operatorId", op.OperatorID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset preferences"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "preferences reset to defaults"})
}
