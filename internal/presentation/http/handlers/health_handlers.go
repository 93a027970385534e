package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// HealthHandlers contains the liveness and diagnostics HTTP handlers
type HealthHandlers struct {
	venueManager *venue.Manager
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(venueManager *venue.Manager, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		venueManager: venueManager,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// GetHealth handles GET /api/v1/health - checks venue database connectivity
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	// The venue middleware flags a registered but never activated default venue
	if c.GetBool("setupNeeded") {
		c.JSON(http.StatusOK, gin.H{
			"status":  "setup_needed",
			"venueId": c.GetString("venueId"),
			"message": "venue is registered but not yet activated",
		})
		return
	}

	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_health_request", venueCtx.VenueID)
	defer marker.Complete()

	dbStatus := "connected"
	if venueCtx.Database == nil || venueCtx.Database.Conn == nil {
		dbStatus = "unavailable"
	} else if err := venueCtx.Database.Conn.Ping(); err != nil {
		dbStatus = "error"
		h.logger.Database().Error("Health check ping failed", "venueId", venueCtx.VenueID, "error", err.Error())
	}

	status := "healthy"
	if dbStatus != "connected" {
		status = "degraded"
	}

	activeVenues, err := h.venueManager.GetActiveVenueCount()
	if err != nil {
		h.logger.System().Warn("Could not read active venue count", "error", err.Error())
	}

	marker.SetSuccess(status == "healthy")
	h.logger.System().Debug("Health check completed", "venueId", venueCtx.VenueID, "status", status, "duration", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"venueId":      venueCtx.VenueID,
		"venueStatus":  venueCtx.Status,
		"database":     dbStatus,
		"activeVenues": activeVenues,
		"timestamp":    time.Now().UTC(),
	})
}

// GetPoolStatus handles GET /api/v1/health/pool - database pool diagnostics
func (h *HealthHandlers) GetPoolStatus(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_pool_status_request", venueCtx.VenueID)
	defer marker.Complete()

	stats := venue.GetPoolStats()

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"venueId": venueCtx.VenueID,
		"pools":   stats,
		"detail":  venue.GetConnectionPoolInfo(),
	})
}
