// Package venue provides venue detection and validation.
package venue

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// Detector handles venue detection from HTTP requests
type Detector struct {
	registry   *VenueRegistry
	multiVenue bool
	logger     *logging.ChanneledLogger
}

// NewDetector creates a new venue detector
func NewDetector(logger *logging.ChanneledLogger) (*Detector, error) {
	registry, err := LoadVenueRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load venue registry: %w", err)
	}

	multiVenue := false
	if val := os.Getenv("ENABLE_MULTI_VENUE"); val != "" {
		multiVenue, _ = strconv.ParseBool(val)
	}

	return &Detector{
		registry:   registry,
		multiVenue: multiVenue,
		logger:     logger,
	}, nil
}

// DetectVenue extracts the venue ID from a request and auto-registers if needed
func (d *Detector) DetectVenue(c *gin.Context) (string, error) {
	var venueID string

	if d.multiVenue {
		venueID = c.GetHeader("X-Venue-ID")
		// FALLBACK: Check query parameter for stream connections.
		// EventSource API cannot set custom headers, so venueId is allowed
		// as a query param there.
		if venueID == "" {
			venueID = c.Query("venueId")
		}

		if venueID == "" {
			return "", fmt.Errorf("missing venue ID header in multi-venue mode")
		}
	} else {
		// Single venue mode - always use "default"
		venueID = "default"
	}

	// Check if venue exists in registry
	if _, exists := d.registry.Venues[venueID]; !exists {
		// Auto-register if the venue has a config directory or is default
		if venueID == "default" || d.hasConfigDirectory(venueID) {
			if err := d.registerVenue(venueID); err != nil {
				return "", fmt.Errorf("failed to auto-register venue %s: %w", venueID, err)
			}
			if err := d.RefreshRegistry(); err != nil {
				return "", fmt.Errorf("failed to reload registry after auto-registration: %w", err)
			}
		} else {
			return "", fmt.Errorf("unknown venue: %s", venueID)
		}
	}

	return venueID, nil
}

// hasConfigDirectory checks if a venue has a config directory
func (d *Detector) hasConfigDirectory(venueID string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	configDir := filepath.Join(homeDir, "leadledger-server", "config", venueID)
	if _, err := os.Stat(configDir); err == nil {
		return true
	}
	return false
}

// registerVenue adds a venue to the in-memory registry during auto-registration
func (d *Detector) registerVenue(venueID string) error {
	d.registry.Venues[venueID] = VenueInfo{
		VenueID:      venueID,
		Domains:      []string{"*"},
		Status:       "inactive",
		DatabaseType: "",
	}
	return nil
}

// ValidateDomain checks if the request domain is allowed for the venue
func (d *Detector) ValidateDomain(venueID, domain string) bool {
	venueInfo, exists := d.registry.Venues[venueID]
	if !exists {
		return false
	}

	for _, allowedDomain := range venueInfo.Domains {
		if allowedDomain == "*" {
			return true
		}
		if strings.EqualFold(allowedDomain, domain) {
			return true
		}
	}

	return false
}

// GetVenueStatus returns the current status of a venue
func (d *Detector) GetVenueStatus(venueID string) string {
	if venueInfo, exists := d.registry.Venues[venueID]; exists {
		return venueInfo.Status
	}
	return "unknown"
}

// UpdateVenueStatus updates the cached registry status
func (d *Detector) UpdateVenueStatus(venueID, status, dbType string) {
	if venueInfo, exists := d.registry.Venues[venueID]; exists {
		venueInfo.Status = status
		if dbType != "" {
			venueInfo.DatabaseType = dbType
		}
		d.registry.Venues[venueID] = venueInfo
	}
}

// RefreshRegistry reloads the venue registry from disk
func (d *Detector) RefreshRegistry() error {
	registry, err := LoadVenueRegistry()
	if err != nil {
		return fmt.Errorf("failed to refresh venue registry: %w", err)
	}
	d.registry = registry
	return nil
}

// GetRegistry returns the current registry (for external access)
func (d *Detector) GetRegistry() *VenueRegistry {
	return d.registry
}
