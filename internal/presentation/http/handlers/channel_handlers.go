package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ChannelHandlers contains the acquisition channel HTTP handlers
type ChannelHandlers struct {
	channelService *services.ChannelService
	policies       *policy.Pipeline
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewChannelHandlers creates channel handlers with injected dependencies
func NewChannelHandlers(
	channelService *services.ChannelService,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ChannelHandlers {
	return &ChannelHandlers{
		channelService: channelService,
		policies:       policies,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetChannels handles GET /api/v1/channels
func (h *ChannelHandlers) GetChannels(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_channels_request", venueCtx.VenueID)
	defer marker.Complete()

	channels, err := h.channelService.List(venueCtx)
	if err != nil {
		h.logger.Venue().Error("Channel listing failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"channels": channels, "count": len(channels)})
}

// GetChannel handles GET /api/v1/channels/:name
func (h *ChannelHandlers) GetChannel(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_channel_request", venueCtx.VenueID)
	defer marker.Complete()

	name := c.Param("name")

	ch, err := h.channelService.Get(venueCtx, name)
	if err != nil {
		h.logger.Venue().Error("Channel lookup failed", "venueId", venueCtx.VenueID, "channel", name, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, ch)
}

// PutChannel handles PUT /api/v1/channels/:name
func (h *ChannelHandlers) PutChannel(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("put_channel_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandChannelUpdate) {
		marker.SetSuccess(false)
		return
	}

	name := c.Param("name")

	// Pointer fields so a zero cost or inactive flag still binds.
	var req struct {
		MonthlyCost *float64 `json:"monthlyCost" binding:"required"`
		IsActive    *bool    `json:"isActive" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthlyCost and isActive are required"})
		return
	}
	if *req.MonthlyCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthlyCost cannot be negative"})
		return
	}

	ch, err := h.channelService.UpdateSpend(venueCtx, name, *req.MonthlyCost, *req.IsActive)
	if err != nil {
		h.logger.Venue().Error("Channel update failed", "venueId", venueCtx.VenueID, "channel", name, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update channel"})
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PutChannel request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", true)
	c.JSON(http.StatusOK, ch)
}
