package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/identity"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/matching"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// ErrSyncInFlight is returned when a reserve sync trigger arrives while
// another sync already holds the venue's slot.
var ErrSyncInFlight = errors.New("reserve sync already in flight for this venue")

// ReserveService reconciles the reservation snapshot: fresh records from the
// booking API are merged with the persisted history (fresh wins by id), the
// union is aggregated into per-guest visit profiles, and every guest is
// folded into the canonical client roster with a re-derived segment.
type ReserveService struct {
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	inFlight    sync.Map
}

// NewReserveService creates a new reserve reconciliation service.
func NewReserveService(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *ReserveService {
	return &ReserveService{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Sync runs one reconciliation pass for the venue. A fetch that failed after
// returning some pages still contributes those pages; only an empty-handed
// failure aborts the run with the prior snapshot left untouched.
func (s *ReserveService) Sync(venueCtx *venue.Context, fetcher reserve.Fetcher) (*reserve.SyncReport, error) {
	venueID := venueCtx.VenueID
	if _, loaded := s.inFlight.LoadOrStore(venueID, struct{}{}); loaded {
		return nil, ErrSyncInFlight
	}
	defer s.inFlight.Delete(venueID)

	start := time.Now()
	report := &reserve.SyncReport{
		RunID:     security.GenerateULID(),
		VenueID:   venueID,
		StartedAt: start.UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ReserveFetchTimeout)
	defer cancel()

	fresh, err := fetcher.FetchReserves(ctx, config.ReserveLookbackDays)
	if err != nil {
		if len(fresh) == 0 {
			report.Status = lead.RunFailed
			report.FinishedAt = time.Now().UTC()
			metrics.ReserveSyncs.WithLabelValues(venueID, report.Status).Inc()
			s.logger.Reserve().Error("Reserve fetch failed, snapshot untouched", "venueId", venueID, "error", err.Error())
			return report, err
		}
		report.Warnings = append(report.Warnings, "reserve fetch incomplete: "+err.Error())
		s.logger.Reserve().Warn("Reserve fetch incomplete, keeping fetched pages", "venueId", venueID, "fetched", len(fresh), "error", err.Error())
	}
	report.FreshCount = len(fresh)

	repo := venueCtx.ReservationRepo()
	historical, err := repo.FindAll(venueID)
	if err != nil {
		report.Status = lead.RunFailed
		report.FinishedAt = time.Now().UTC()
		metrics.ReserveSyncs.WithLabelValues(venueID, report.Status).Inc()
		s.logger.Reserve().Error("Historical snapshot unreadable", "venueId", venueID, "error", err.Error())
		return report, err
	}
	report.HistoricalCount = len(historical)

	merged := reserve.MergeSnapshots(fresh, historical)
	report.MergedCount = len(merged)

	if err := repo.ReplaceAll(venueID, merged); err != nil {
		report.Status = lead.RunFailed
		report.FinishedAt = time.Now().UTC()
		metrics.ReserveSyncs.WithLabelValues(venueID, report.Status).Inc()
		s.logger.Reserve().Error("Snapshot replace failed", "venueId", venueID, "error", err.Error())
		return report, err
	}

	profiles := reserve.AggregateGuests(merged)
	report.GuestCount = len(profiles)
	venueCtx.CacheManager.SetGuestProfiles(venueID, profiles)

	s.refreshRoster(venueCtx, report, profiles)

	report.FinishedAt = time.Now().UTC()
	if len(report.Warnings) > 0 {
		report.Status = lead.RunPartial
	} else {
		report.Status = lead.RunComplete
	}

	venueCtx.CacheManager.InvalidateReports(venueID)
	metrics.ReserveSyncs.WithLabelValues(venueID, report.Status).Inc()
	s.logger.Reserve().Info("Reserve sync finished",
		"venueId", venueID, "runId", report.RunID, "status", report.Status,
		"fresh", report.FreshCount, "historical", report.HistoricalCount,
		"merged", report.MergedCount, "guests", report.GuestCount,
		"duration", time.Since(start))

	s.broadcaster.BroadcastEvent(venueID, events.Event{
		ID:      report.RunID,
		Type:    events.TypeReserveSynced,
		VenueID: venueID,
		At:      report.FinishedAt,
		Payload: map[string]any{
			"runId":  report.RunID,
			"status": report.Status,
			"merged": report.MergedCount,
			"guests": report.GuestCount,
		},
	})

	return report, nil
}

// refreshRoster folds every guest profile into the canonical client roster.
// Guests reuse the row a lead already created for the same phone or email;
// only guests unknown to the roster get a fresh row. Visit fields are
// overwritten from the aggregation because the reconciled snapshot is the
// authority on visit history.
func (s *ReserveService) refreshRoster(venueCtx *venue.Context, report *reserve.SyncReport, profiles []reserve.GuestProfile) {
	venueID := venueCtx.VenueID
	clientRepo := venueCtx.ClientRepo()

	roster, err := clientRepo.FindAll(venueID)
	if err != nil {
		report.Warnings = append(report.Warnings, "client roster unreadable, segment refresh skipped: "+err.Error())
		s.logger.Reserve().Error("Client roster unreadable", "venueId", venueID, "error", err.Error())
		return
	}

	byPhone := make(map[string]*client.CanonicalClient, len(roster))
	byEmail := make(map[string]*client.CanonicalClient, len(roster))
	for _, c := range roster {
		if key := identity.PhoneKey(c.Phone); key != "" {
			if _, exists := byPhone[key]; !exists {
				byPhone[key] = c
			}
		}
		if email := identity.NormalizeEmail(c.Email); email != "" {
			if _, exists := byEmail[email]; !exists {
				byEmail[email] = c
			}
		}
	}

	th := client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	}

	now := time.Now().UTC()
	created, updated, failures := 0, 0, 0
	for _, g := range profiles {
		existing := byPhone[identity.PhoneKey(g.Phone)]
		if existing == nil {
			existing = byEmail[identity.NormalizeEmail(g.Email)]
		}

		if existing != nil {
			matching.Enrich(existing, g)
			existing.LastSeen = now
			existing.Segment = existing.DeriveSegment(th)
			if err := clientRepo.Update(venueID, existing); err != nil {
				failures++
				continue
			}
			updated++
			continue
		}

		key := identity.ClientKey(g.Phone, g.Email)
		if key == "" {
			continue
		}
		c := &client.CanonicalClient{
			ID:        security.GenerateULID(),
			ClientKey: key,
			Phone:     g.Phone,
			Email:     g.Email,
			FirstSeen: now,
			LastSeen:  now,
		}
		matching.Enrich(c, g)
		c.Segment = c.DeriveSegment(th)
		if err := clientRepo.Store(venueID, c); err != nil {
			failures++
			continue
		}
		byPhone[identity.PhoneKey(c.Phone)] = c
		if email := identity.NormalizeEmail(c.Email); email != "" {
			byEmail[email] = c
		}
		created++
	}

	if failures > 0 {
		report.Warnings = append(report.Warnings, formatRosterWarning(failures))
	}
	s.observeSegments(venueCtx)
	s.logger.Reserve().Debug("Roster refreshed",
		"venueId", venueID, "guests", len(profiles), "created", created,
		"updated", updated, "failures", failures)
}

// observeSegments republishes the per-segment client gauge after a roster
// refresh.
func (s *ReserveService) observeSegments(venueCtx *venue.Context) {
	roster, err := venueCtx.ClientRepo().FindAll(venueCtx.VenueID)
	if err != nil {
		return
	}
	counts := make(map[client.Segment]int, len(client.AllSegments()))
	for _, c := range roster {
		counts[c.Segment]++
	}
	for _, seg := range client.AllSegments() {
		metrics.ClientsBySegment.WithLabelValues(venueCtx.VenueID, string(seg)).Set(float64(counts[seg]))
	}
}

func formatRosterWarning(failures int) string {
	if failures == 1 {
		return "1 guest row not persisted during roster refresh"
	}
	return fmt.Sprintf("%d guest rows not persisted during roster refresh", failures)
}
