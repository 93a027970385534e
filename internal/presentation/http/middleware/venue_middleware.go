// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/gin-gonic/gin"
)

// VenueMiddleware creates middleware that extracts venue information and creates a full venue context.
func VenueMiddleware(venueManager *venue.Manager, perfTracker *performance.Tracker) gin.HandlerFunc {
	logger := venueManager.GetLogger()

	return func(c *gin.Context) {
		start := time.Now()
		marker := perfTracker.StartOperation("middleware_venue_resolution", "unknown")
		defer marker.Complete()

		venueID := c.GetHeader("X-Venue-ID")
		if venueID == "" {
			venueID = c.Query("venueId") // Fallback for SSE and websockets
		}

		marker.AddMetadata("path", c.Request.URL.Path)
		marker.AddMetadata("method", c.Request.Method)
		if venueID != "" {
			marker.VenueID = venueID
		}

		if venueID == "" {
			errMsg := "X-Venue-ID header or venueId query param is required"
			logger.Venue().Warn(errMsg, "path", c.Request.URL.Path)
			marker.SetSuccess(false)
			marker.SetError(errors.New(errMsg))
			c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
			c.Abort()
			return
		}

		venueCtx, err := venueManager.GetContext(c)
		if err != nil {
			// A default venue that has never been activated still gets its
			// health endpoint, so the dashboard can prompt for setup.
			if venueID == "default" {
				detector := venueManager.GetDetector()
				if detector.GetVenueStatus("default") == "inactive" {
					c.Set("setupNeeded", true)
					c.Set("venueId", "default")
					marker.SetSuccess(true)
					c.Next()
					return
				}
			}

			logger.Venue().Error("Venue not found or failed to initialize", "error", err, "venueId", venueID)
			marker.SetSuccess(false)
			marker.SetError(err)
			c.JSON(http.StatusNotFound, gin.H{"error": "venue not found"})
			c.Abort()
			return
		}

		logger.Venue().Debug("Venue context resolved successfully",
			"venueId", venueCtx.VenueID,
			"duration", time.Since(start),
			"database", venueCtx.GetDatabaseInfo(),
		)
		marker.SetSuccess(true)

		c.Set("venue", venueCtx)

		c.Next()
	}
}

// GetVenueContext retrieves the venue context from gin context.
func GetVenueContext(c *gin.Context) (*venue.Context, bool) {
	venueCtx, exists := c.Get("venue")
	if !exists {
		return nil, false
	}

	ctx, ok := venueCtx.(*venue.Context)
	return ctx, ok
}
