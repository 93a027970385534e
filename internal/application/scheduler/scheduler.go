// Package scheduler drives the periodic reconciliation sweeps: source
// merges, reserve syncs, and ROI alert checks run on their configured
// intervals across every active venue.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// Scheduler owns the background sweep loop. Sweeps share one goroutine,
// so a slow merge simply delays the next tick instead of piling up.
type Scheduler struct {
	venueManager *venue.Manager
	merge        *services.MergeService
	reserve      *services.ReserveService
	alerts       *services.AlertService
	sources      *services.SourceFactory
	logger       *logging.ChanneledLogger
}

// New creates a scheduler over the given services.
func New(
	venueManager *venue.Manager,
	merge *services.MergeService,
	reserve *services.ReserveService,
	alerts *services.AlertService,
	sources *services.SourceFactory,
	logger *logging.ChanneledLogger,
) *Scheduler {
	return &Scheduler{
		venueManager: venueManager,
		merge:        merge,
		reserve:      reserve,
		alerts:       alerts,
		sources:      sources,
		logger:       logger,
	}
}

// Start begins the sweep loop and blocks until the context is cancelled.
// Intended to run as a goroutine from startup.
func (s *Scheduler) Start(ctx context.Context) {
	if !config.SchedulerEnabled {
		s.logger.System().Info("Scheduler disabled by configuration")
		return
	}

	mergeTicker := time.NewTicker(config.MergeSweepInterval)
	reserveTicker := time.NewTicker(config.ReserveSyncInterval)
	alertTicker := time.NewTicker(config.AlertSweepInterval)
	defer mergeTicker.Stop()
	defer reserveTicker.Stop()
	defer alertTicker.Stop()

	s.logger.System().Info("Scheduler started",
		"mergeInterval", config.MergeSweepInterval,
		"reserveInterval", config.ReserveSyncInterval,
		"alertInterval", config.AlertSweepInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.System().Info("Scheduler stopping")
			return
		case <-mergeTicker.C:
			s.eachActiveVenue(ctx, "merge sweep", s.RunMergeSweep)
		case <-reserveTicker.C:
			s.eachActiveVenue(ctx, "reserve sweep", s.RunReserveSweep)
		case <-alertTicker.C:
			s.eachActiveVenue(ctx, "alert sweep", s.RunAlertSweep)
		}
	}
}

// eachActiveVenue runs one sweep across all venues with a live context,
// stopping early on shutdown.
func (s *Scheduler) eachActiveVenue(ctx context.Context, name string, sweep func(*venue.Context) error) {
	start := time.Now()
	venueIDs := s.venueManager.ActiveVenueIDs()

	var failures int
	for _, venueID := range venueIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		venueCtx, err := s.venueManager.NewContextFromID(venueID)
		if err != nil {
			failures++
			s.logger.System().Error("Sweep skipped venue, context unavailable",
				"sweep", name, "venueId", venueID, "error", err)
			continue
		}
		if !venueCtx.IsActive() {
			continue
		}

		if err := sweep(venueCtx); err != nil {
			failures++
			s.logger.System().Error("Sweep failed for venue",
				"sweep", name, "venueId", venueID, "error", err)
		}
	}

	s.logger.System().Info("Sweep finished",
		"sweep", name, "venues", len(venueIDs), "failures", failures, "duration", time.Since(start))
}

// RunMergeSweep triggers one merge run for the venue and mails the digest.
// Venues with no configured sources are skipped; a run already in flight
// (an operator beat the timer) is not an error.
func (s *Scheduler) RunMergeSweep(venueCtx *venue.Context) error {
	readers := s.sources.Readers(venueCtx)
	if len(readers) == 0 {
		s.logger.Merge().Debug("Merge sweep skipped, no sources configured", "venueId", venueCtx.VenueID)
		return nil
	}

	report, err := s.merge.Run(venueCtx, readers, s.sources.MetricsLookup(venueCtx))
	if errors.Is(err, services.ErrMergeInFlight) {
		return nil
	}
	if report != nil {
		s.alerts.SendMergeDigest(venueCtx, report)
	}
	return err
}

// RunReserveSweep triggers one reserve sync for the venue and mails the
// digest along with the month-to-date revenue figure.
func (s *Scheduler) RunReserveSweep(venueCtx *venue.Context) error {
	fetcher := s.sources.ReserveFetcher(venueCtx)
	if fetcher == nil {
		s.logger.Reserve().Debug("Reserve sweep skipped, no reservations API configured", "venueId", venueCtx.VenueID)
		return nil
	}

	report, err := s.reserve.Sync(venueCtx, fetcher)
	if errors.Is(err, services.ErrSyncInFlight) {
		return nil
	}
	if report != nil {
		s.alerts.SendReserveDigest(venueCtx, report, s.monthToDateRevenue(venueCtx))
	}
	return err
}

// RunAlertSweep re-evaluates channel ROI for the venue and delivers any
// breach notifications.
func (s *Scheduler) RunAlertSweep(venueCtx *venue.Context) error {
	_, err := s.alerts.CheckROI(venueCtx)
	return err
}

func (s *Scheduler) monthToDateRevenue(venueCtx *venue.Context) float64 {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	revenue, err := venueCtx.ReservationRepo().MonthlyRevenue(venueCtx.VenueID, monthStart, now)
	if err != nil {
		s.logger.Reserve().Warn("Month-to-date revenue unavailable for digest",
			"venueId", venueCtx.VenueID, "error", err)
		return 0
	}
	return revenue
}
