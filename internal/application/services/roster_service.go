package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// RosterService serves canonical client and lead ledger reads. Stored
// segments are never returned as-is; every read re-derives them from the
// current thresholds.
type RosterService struct {
	logger *logging.ChanneledLogger
}

// NewRosterService creates a new roster service.
func NewRosterService(logger *logging.ChanneledLogger) *RosterService {
	return &RosterService{
		logger: logger,
	}
}

// Clients returns the canonical roster, optionally filtered to one segment.
// Filtering happens after re-derivation so a stale stored segment can never
// leak a client into the wrong slice.
func (s *RosterService) Clients(venueCtx *venue.Context, segment string) ([]*client.CanonicalClient, error) {
	start := time.Now()
	roster, err := venueCtx.ClientRepo().FindAll(venueCtx.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client roster: %w", err)
	}

	th := client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	}

	var filter client.Segment
	if segment != "" {
		parsed, ok := client.ParseSegment(segment)
		if !ok {
			return nil, fmt.Errorf("unknown segment %q", segment)
		}
		filter = parsed
	}

	result := make([]*client.CanonicalClient, 0, len(roster))
	for _, c := range roster {
		c.Segment = c.DeriveSegment(th)
		if filter != "" && c.Segment != filter {
			continue
		}
		result = append(result, c)
	}

	s.logger.Venue().Debug("Client roster served",
		"venueId", venueCtx.VenueID, "total", len(roster), "returned", len(result),
		"segment", segment, "duration", time.Since(start))
	return result, nil
}

// Client returns one canonical client by id with a re-derived segment, nil
// when unknown.
func (s *RosterService) Client(venueCtx *venue.Context, id string) (*client.CanonicalClient, error) {
	if id == "" {
		return nil, fmt.Errorf("client id cannot be empty")
	}
	c, err := venueCtx.ClientRepo().FindByID(venueCtx.VenueID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load client %s: %w", id, err)
	}
	if c == nil {
		return nil, nil
	}
	c.Segment = c.DeriveSegment(client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	})
	return c, nil
}

// Leads returns the ledger slice captured inside the period, newest first as
// stored.
func (s *RosterService) Leads(venueCtx *venue.Context, from, to time.Time) ([]*lead.Lead, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -config.MetricsWindowDays)
	}
	leads, err := venueCtx.LeadRepo().FindByPeriod(venueCtx.VenueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads for period: %w", err)
	}
	return leads, nil
}

// MergeHistory returns the most recent merge run reports, newest first.
func (s *RosterService) MergeHistory(venueCtx *venue.Context, limit int) ([]*lead.MergeReport, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	runs, err := venueCtx.MergeRunRepo().FindRecent(venueCtx.VenueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load merge history: %w", err)
	}
	return runs, nil
}
