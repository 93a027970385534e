package handlers

import (
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

// ReportHandlers contains the analytics report HTTP handlers
type ReportHandlers struct {
	reportService *services.ReportService
	policies      *policy.Pipeline
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewReportHandlers creates report handlers with injected dependencies
func NewReportHandlers(
	reportService *services.ReportService,
	policies *policy.Pipeline,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ReportHandlers {
	return &ReportHandlers{
		reportService: reportService,
		policies:      policies,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GetDailyReport handles GET /api/v1/reports/daily?date=2026-05-01
func (h *ReportHandlers) GetDailyReport(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_daily_report_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandReports) {
		marker.SetSuccess(false)
		return
	}

	target := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
			return
		}
		target = parsed
	}

	report, etag, err := h.reportService.Daily(venueCtx, target)
	if err != nil {
		h.logger.Analytics().Error("Daily report failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build daily report"})
		return
	}

	marker.SetSuccess(true)
	writeCachedJSON(c, etag, report)
}

// GetChannelReports handles GET /api/v1/reports/channels?days=30
func (h *ReportHandlers) GetChannelReports(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_channel_reports_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandReports) {
		marker.SetSuccess(false)
		return
	}

	daysBack, _ := strconv.Atoi(c.DefaultQuery("days", "0"))

	rows, etag, err := h.reportService.Channels(venueCtx, daysBack)
	if err != nil {
		h.logger.Analytics().Error("Channel report failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build channel report"})
		return
	}

	marker.SetSuccess(true)
	writeCachedJSON(c, etag, gin.H{"channels": rows, "count": len(rows)})
}

// GetChannelDetail handles GET /api/v1/reports/channels/:name
func (h *ReportHandlers) GetChannelDetail(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_channel_detail_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandReports) {
		marker.SetSuccess(false)
		return
	}

	name := c.Param("name")

	detail, etag, err := h.reportService.Channel(venueCtx, name)
	if err != nil {
		h.logger.Analytics().Error("Channel detail failed", "venueId", venueCtx.VenueID, "channel", name, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build channel detail"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	marker.SetSuccess(true)
	writeCachedJSON(c, etag, detail)
}

// GetSegmentReport handles GET /api/v1/reports/segments
func (h *ReportHandlers) GetSegmentReport(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_segment_report_request", venueCtx.VenueID)
	defer marker.Complete()

	if !allowCommand(c, h.policies, venueCtx, policy.CommandReports) {
		marker.SetSuccess(false)
		return
	}

	rows, etag, err := h.reportService.Segments(venueCtx)
	if err != nil {
		h.logger.Analytics().Error("Segment report failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build segment report"})
		return
	}

	marker.SetSuccess(true)
	writeCachedJSON(c, etag, gin.H{"segments": rows, "count": len(rows)})
}
