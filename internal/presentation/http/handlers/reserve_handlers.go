package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ReserveHandlers contains the reserve reconciliation HTTP handlers
type ReserveHandlers struct {
	reserveService *services.ReserveService
	sourceFactory  *services.SourceFactory
	policies       *policy.Pipeline
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewReserveHandlers creates reserve handlers with injected dependencies
func NewReserveHandlers(
	reserveService *services.ReserveService,
	sourceFactory *services.SourceFactory,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ReserveHandlers {
	return &ReserveHandlers{
		reserveService: reserveService,
		sourceFactory:  sourceFactory,
		policies:       policies,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// PostReserveSync handles POST /api/v1/reserve/sync - runs one reconciliation pass now
func (h *ReserveHandlers) PostReserveSync(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_reserve_sync_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Reserve().Debug("Received reserve sync trigger", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	if !allowCommand(c, h.policies, venueCtx, policy.CommandReserveSync) {
		marker.SetSuccess(false)
		return
	}

	fetcher := h.sourceFactory.ReserveFetcher(venueCtx)
	if fetcher == nil {
		h.logger.Reserve().Warn("Reserve sync trigger with no booking API configured", "venueId", venueCtx.VenueID)
		marker.SetSuccess(false)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reservations API not configured for this venue"})
		return
	}

	report, err := h.reserveService.Sync(venueCtx, fetcher)
	if errors.Is(err, services.ErrSyncInFlight) {
		marker.SetSuccess(false)
		c.JSON(http.StatusConflict, gin.H{"error": "a reserve sync is already in progress for this venue"})
		return
	}
	if err != nil {
		h.logger.Reserve().Error("Reserve sync failed", "venueId", venueCtx.VenueID, "error", err.Error(), "duration", time.Since(start))
		marker.SetSuccess(false)
		marker.SetError(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostReserveSync request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", true)

	c.JSON(http.StatusOK, report)
}
