package services

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

// VisitSource is one ranked backend for a venue's reconciled guest history.
// Sources are consulted in order and the first one that answers wins, so the
// matching path never branches on which backend is live.
type VisitSource interface {
	Name() string
	Load(venueCtx *venue.Context) ([]reserve.GuestProfile, bool)
}

// defaultVisitSources returns the standard rank order: the in-memory replica
// of reconciled profiles, the persisted reservation snapshot, then an empty
// terminal source so a ledger outage degrades matching instead of failing
// the run.
func defaultVisitSources(logger *logging.ChanneledLogger) []VisitSource {
	return []VisitSource{
		&cachedVisitSource{},
		&ledgerVisitSource{logger: logger},
		emptyVisitSource{},
	}
}

// cachedVisitSource answers from the venue's guest profile cache.
type cachedVisitSource struct{}

func (s *cachedVisitSource) Name() string { return "cache" }

func (s *cachedVisitSource) Load(venueCtx *venue.Context) ([]reserve.GuestProfile, bool) {
	return venueCtx.CacheManager.GetGuestProfiles(venueCtx.VenueID)
}

// ledgerVisitSource rebuilds profiles from the persisted reservation snapshot
// and primes the cache for the next read. It declines on a repository error.
type ledgerVisitSource struct {
	logger *logging.ChanneledLogger
}

func (s *ledgerVisitSource) Name() string { return "ledger" }

func (s *ledgerVisitSource) Load(venueCtx *venue.Context) ([]reserve.GuestProfile, bool) {
	venueID := venueCtx.VenueID
	reservations, err := venueCtx.ReservationRepo().FindAll(venueID)
	if err != nil {
		s.logger.Reserve().Warn("Guest history unavailable from ledger snapshot",
			"venueId", venueID, "error", err.Error())
		return nil, false
	}
	profiles := reserve.AggregateGuests(reservations)
	venueCtx.CacheManager.SetGuestProfiles(venueID, profiles)
	return profiles, true
}

// emptyVisitSource is the terminal rank: no history, matching is skipped.
type emptyVisitSource struct{}

func (emptyVisitSource) Name() string { return "empty" }

func (emptyVisitSource) Load(*venue.Context) ([]reserve.GuestProfile, bool) {
	return nil, true
}
