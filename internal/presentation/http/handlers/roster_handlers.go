package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// RosterHandlers contains the client roster and lead listing HTTP handlers
type RosterHandlers struct {
	rosterService *services.RosterService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewRosterHandlers creates roster handlers with injected dependencies
func NewRosterHandlers(
	rosterService *services.RosterService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *RosterHandlers {
	return &RosterHandlers{
		rosterService: rosterService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GetClients handles GET /api/v1/clients?segment=VIP
func (h *RosterHandlers) GetClients(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_clients_request", venueCtx.VenueID)
	defer marker.Complete()

	segment := c.Query("segment")
	if segment != "" {
		if _, ok := client.ParseSegment(segment); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown segment"})
			return
		}
	}

	roster, err := h.rosterService.Clients(venueCtx, segment)
	if err != nil {
		h.logger.Venue().Error("Client roster failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load client roster"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"clients": roster, "count": len(roster)})
}

// GetClient handles GET /api/v1/clients/:id
func (h *RosterHandlers) GetClient(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_client_request", venueCtx.VenueID)
	defer marker.Complete()

	id := c.Param("id")

	record, err := h.rosterService.Client(venueCtx, id)
	if err != nil {
		h.logger.Venue().Error("Client lookup failed", "venueId", venueCtx.VenueID, "clientId", id, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load client"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, record)
}

// GetLeads handles GET /api/v1/leads?from=2026-04-01&to=2026-05-01
func (h *RosterHandlers) GetLeads(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_leads_request", venueCtx.VenueID)
	defer marker.Complete()

	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be formatted YYYY-MM-DD"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be formatted YYYY-MM-DD"})
			return
		}
		to = parsed
	}

	leads, err := h.rosterService.Leads(venueCtx, from, to)
	if err != nil {
		h.logger.Venue().Error("Lead listing failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leads"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads)})
}
