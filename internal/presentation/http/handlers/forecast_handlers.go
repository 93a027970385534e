package handlers

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ForecastHandlers contains the revenue projection HTTP handlers
type ForecastHandlers struct {
	forecastService *services.ForecastService
	policies        *policy.Pipeline
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewForecastHandlers creates forecast handlers with injected dependencies
func NewForecastHandlers(
	forecastService *services.ForecastService,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ForecastHandlers {
	return &ForecastHandlers{
		forecastService: forecastService,
		policies:        policies,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// GetForecast handles GET /api/v1/forecast?months=3
func (h *ForecastHandlers) GetForecast(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_forecast_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandForecast) {
		marker.SetSuccess(false)
		return
	}

	monthsAhead, _ := strconv.Atoi(c.DefaultQuery("months", "0"))

	projection, etag, err := h.forecastService.Project(venueCtx, monthsAhead)
	if err != nil {
		h.logger.Analytics().Error("Forecast failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build revenue projection"})
		return
	}

	marker.SetSuccess(true)
	writeCachedJSON(c, etag, projection)
}
