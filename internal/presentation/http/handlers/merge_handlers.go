package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// MergeHandlers contains the merge trigger and history HTTP handlers
type MergeHandlers struct {
	mergeService  *services.MergeService
	rosterService *services.RosterService
	sourceFactory *services.SourceFactory
	policies      *policy.Pipeline
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewMergeHandlers creates merge handlers with injected dependencies
func NewMergeHandlers(
	mergeService *services.MergeService,
	rosterService *services.RosterService,
	sourceFactory *services.SourceFactory,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *MergeHandlers {
	return &MergeHandlers{
		mergeService:  mergeService,
		rosterService: rosterService,
		sourceFactory: sourceFactory,
		policies:      policies,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// PostMergeTrigger handles POST /api/v1/merge - runs one merge pass now
func (h *MergeHandlers) PostMergeTrigger(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_merge_trigger_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Merge().Debug("Received merge trigger", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	if !allowCommand(c, h.policies, venueCtx, policy.CommandMerge) {
		marker.SetSuccess(false)
		return
	}

	readers := h.sourceFactory.Readers(venueCtx)
	if len(readers) == 0 {
		h.logger.Merge().Warn("Merge trigger with no sources configured", "venueId", venueCtx.VenueID)
		marker.SetSuccess(false)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no lead sources configured for this venue"})
		return
	}

	report, err := h.mergeService.Run(venueCtx, readers, h.sourceFactory.MetricsLookup(venueCtx))
	if errors.Is(err, services.ErrMergeInFlight) {
		marker.SetSuccess(false)
		c.JSON(http.StatusConflict, gin.H{"error": "a merge run is already in progress for this venue"})
		return
	}
	if err != nil {
		h.logger.Merge().Error("Merge trigger failed", "venueId", venueCtx.VenueID, "error", err.Error(), "duration", time.Since(start))
		marker.SetSuccess(false)
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostMergeTrigger request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", true)

	c.JSON(http.StatusOK, report)
}

// GetMergeHistory handles GET /api/v1/merge/history - recent run reports
func (h *MergeHandlers) GetMergeHistory(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_merge_history_request", venueCtx.VenueID)
	defer marker.Complete()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	runs, err := h.rosterService.MergeHistory(venueCtx, limit)
	if err != nil {
		h.logger.Merge().Error("Merge history query failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load merge history"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
