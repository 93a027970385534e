// Package venue handles loading and providing venue-specific configurations.
package venue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
)

// Config represents the structure of a single venue's configuration
type Config struct {
	VenueID          string   `json:"venueId"`
	Domains          []string `json:"domains"`
	Status           string   `json:"status"`
	DatabaseType     string   `json:"databaseType"`
	TursoDatabase    string   `json:"TURSO_DATABASE_URL"`
	TursoToken       string   `json:"TURSO_AUTH_TOKEN"`
	JWTSecret        string   `json:"JWT_SECRET"`
	TursoEnabled     bool     `json:"TURSO_ENABLED"`
	AdminPassword    string   `json:"ADMIN_PASSWORD,omitempty"`
	OperatorPassword string   `json:"OPERATOR_PASSWORD,omitempty"`

	// Upstream credentials for this venue's lead sources and booking system.
	FormsAPIKey         string `json:"FORMS_API_KEY,omitempty"`
	SocialAPIKey        string `json:"SOCIAL_API_KEY,omitempty"`
	SocialAccountID     string `json:"SOCIAL_ACCOUNT_ID,omitempty"`
	ReservationsAPIKey  string `json:"RESERVATIONS_API_KEY,omitempty"`
	WebMetricsToken     string `json:"WEBMETRICS_TOKEN,omitempty"`
	WebMetricsCounterID string `json:"WEBMETRICS_COUNTER_ID,omitempty"`

	// Alert delivery for this venue.
	ResendAPIKey   string `json:"RESEND_API_KEY,omitempty"`
	AlertEmailFrom string `json:"ALERT_EMAIL_FROM,omitempty"`

	ActivationToken string `json:"ACTIVATION_TOKEN,omitempty"`
	SQLitePath      string `json:"-"`
}

// LoadVenueConfig loads configuration for a specific venue from its env.json file.
func LoadVenueConfig(venueID string, logger *logging.ChanneledLogger) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not find user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, "leadledger-server", "config", venueID, "env.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("venue config file not found at %s", configPath)
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read venue config file: %w", err)
	}

	var venueConfig Config
	if err := json.Unmarshal(configFile, &venueConfig); err != nil {
		return nil, fmt.Errorf("could not parse venue config json: %w", err)
	}

	// Set computed fields
	venueConfig.VenueID = venueID
	venueConfig.SQLitePath = filepath.Join(homeDir, "leadledger-server", "db", venueID, "ledger.db")

	if logger != nil {
		logger.Venue().Debug("Loaded venue config", "venueId", venueID, "tursoEnabled", venueConfig.TursoEnabled)
	}
	return &venueConfig, nil
}

// VenueRegistry holds the global venue configuration
type VenueRegistry struct {
	Venues map[string]VenueInfo `json:"venues"`
}

// VenueInfo holds venue metadata
type VenueInfo struct {
	VenueID      string   `json:"venueId"`
	Domains      []string `json:"domains"`
	Status       string   `json:"status"`       // "unknown", "inactive", "active"
	DatabaseType string   `json:"databaseType"` // "turso", "sqlite3"
}

// LoadVenueRegistry loads the global venue registry
func LoadVenueRegistry() (*VenueRegistry, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not find user home directory: %w", err)
	}

	registryPath := filepath.Join(homeDir, "leadledger-server", "config", "system", "venues.json")

	if _, err := os.Stat(registryPath); os.IsNotExist(err) {
		// Create default registry if it doesn't exist
		defaultRegistry := &VenueRegistry{
			Venues: map[string]VenueInfo{
				"default": {
					VenueID:      "default",
					Domains:      []string{"*"},
					Status:       "inactive",
					DatabaseType: "",
				},
			},
		}
		return defaultRegistry, nil
	}

	data, err := os.ReadFile(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue registry: %w", err)
	}

	var registry VenueRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse venue registry: %w", err)
	}

	return &registry, nil
}

// RegisterVenue adds a new venue to the registry
func RegisterVenue(venueID string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find user home directory: %w", err)
	}

	registryPath := filepath.Join(homeDir, "leadledger-server", "config", "system", "venues.json")

	registry, err := LoadVenueRegistry()
	if err != nil {
		return err
	}

	// Add venue if it doesn't exist
	if _, exists := registry.Venues[venueID]; !exists {
		registry.Venues[venueID] = VenueInfo{
			VenueID:      venueID,
			Domains:      []string{"*"},
			Status:       "inactive",
			DatabaseType: "",
		}

		// Ensure directory exists
		registryDir := filepath.Dir(registryPath)
		if err := os.MkdirAll(registryDir, 0755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}

		// Save registry
		data, err := json.MarshalIndent(registry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal registry: %w", err)
		}

		if err := os.WriteFile(registryPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write registry: %w", err)
		}
	}

	return nil
}
