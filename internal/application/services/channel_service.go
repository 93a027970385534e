package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

// ChannelService manages the acquisition channel reference data: the spend
// figures behind CAC and ROI, and the active flag that scopes reports.
type ChannelService struct {
	logger *logging.ChanneledLogger
}

// NewChannelService creates a new channel service.
func NewChannelService(logger *logging.ChanneledLogger) *ChannelService {
	return &ChannelService{
		logger: logger,
	}
}

// List returns every configured channel.
func (s *ChannelService) List(venueCtx *venue.Context) ([]*channel.Channel, error) {
	channels, err := venueCtx.ChannelRepo().FindAll(venueCtx.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// Get returns one channel by name, nil when not configured.
func (s *ChannelService) Get(venueCtx *venue.Context, name string) (*channel.Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("channel name cannot be empty")
	}
	ch, err := venueCtx.ChannelRepo().FindByName(venueCtx.VenueID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", name, err)
	}
	return ch, nil
}

// UpdateSpend adjusts a channel's monthly spend and active flag, then drops
// the report cache because every cost-derived metric just changed.
func (s *ChannelService) UpdateSpend(venueCtx *venue.Context, name string, monthlyCost float64, isActive bool) (*channel.Channel, error) {
	venueID := venueCtx.VenueID
	if name == "" {
		return nil, fmt.Errorf("channel name cannot be empty")
	}
	if monthlyCost < 0 {
		return nil, fmt.Errorf("monthly cost cannot be negative")
	}

	start := time.Now()
	repo := venueCtx.ChannelRepo()
	ch, err := repo.FindByName(venueID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", name, err)
	}
	if ch == nil {
		ch = &channel.Channel{Name: name}
		ch.MonthlyCost = monthlyCost
		ch.IsActive = isActive
		if err := repo.Store(venueID, ch); err != nil {
			return nil, fmt.Errorf("failed to create channel %s: %w", name, err)
		}
	} else {
		ch.MonthlyCost = monthlyCost
		ch.IsActive = isActive
		if err := repo.Update(venueID, ch); err != nil {
			return nil, fmt.Errorf("failed to update channel %s: %w", name, err)
		}
	}

	venueCtx.CacheManager.InvalidateReports(venueID)
	s.logger.Venue().Info("Channel spend updated",
		"venueId", venueID, "channel", name, "monthlyCost", monthlyCost,
		"isActive", isActive, "duration", time.Since(start))
	return ch, nil
}
