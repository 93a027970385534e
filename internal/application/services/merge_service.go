package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
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
	"github.com/google/uuid"
)

// ErrMergeInFlight is returned when a merge trigger arrives while another run
// already holds the venue's merge slot. Triggers are rejected, not queued.
var ErrMergeInFlight = errors.New("merge run already in flight for this venue")

// MergeService runs the lead reconciliation pipeline: fetch raw records from
// every configured source, deduplicate them by identity key against the batch
// and the recent ledger, enrich the survivors with web metrics, then append
// them to the ledger and upsert their canonical clients. At most one run
// mutates a venue's ledger at a time.
type MergeService struct {
	enricher     *EnrichmentService
	broadcaster  messaging.Broadcaster
	visitSources []VisitSource
	logger       *logging.ChanneledLogger
	inFlight     sync.Map
}

// NewMergeService creates a new merge service with its dependencies.
func NewMergeService(enricher *EnrichmentService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *MergeService {
	return &MergeService{
		enricher:     enricher,
		broadcaster:  broadcaster,
		visitSources: defaultVisitSources(logger),
		logger:       logger,
	}
}

// Run executes one merge run for the venue. A second trigger while a run is
// in flight returns ErrMergeInFlight immediately. The returned report is also
// persisted, so a rejected caller can poll the run history instead.
func (s *MergeService) Run(venueCtx *venue.Context, readers []lead.SourceReader, lookup lead.MetricsLookup) (*lead.MergeReport, error) {
	venueID := venueCtx.VenueID
	if _, loaded := s.inFlight.LoadOrStore(venueID, struct{}{}); loaded {
		return nil, ErrMergeInFlight
	}
	defer s.inFlight.Delete(venueID)

	start := time.Now()
	report := &lead.MergeReport{
		RunID:     security.GenerateULID(),
		VenueID:   venueID,
		StartedAt: start.UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.MergeRunTimeout)
	defer cancel()

	s.broadcaster.BroadcastEvent(venueID, events.Event{
		ID:      report.RunID,
		Type:    events.TypeMergeStarted,
		VenueID: venueID,
		At:      report.StartedAt,
		Payload: map[string]any{"runId": report.RunID, "sources": len(readers)},
	})

	leadRepo := venueCtx.LeadRepo()
	since := start.AddDate(0, 0, -config.MergeLookbackDays)

	seen, err := s.knownClientKeys(venueCtx, since)
	if err != nil {
		return s.abortRun(venueCtx, report, start, fmt.Errorf("loading dedup keys: %w", err))
	}
	maxSeq, err := leadRepo.MaxSequence(venueID)
	if err != nil {
		return s.abortRun(venueCtx, report, start, fmt.Errorf("loading max lead sequence: %w", err))
	}

	var accepted []*lead.Lead
	for _, reader := range readers {
		result, batch := s.collectSource(ctx, venueID, reader, since, seen, &maxSeq, report)
		report.Sources = append(report.Sources, result)
		accepted = append(accepted, batch...)
	}

	enriched, warnings := s.enricher.EnrichLeads(ctx, venueID, accepted, lookup)
	report.Warnings = append(report.Warnings, warnings...)

	stored := s.persistAccepted(venueCtx, report, accepted)
	s.reconcileClients(venueCtx, report, stored)

	report.Finalize()

	if err := venueCtx.MergeRunRepo().Store(venueID, report); err != nil {
		report.Warnf("run report not persisted: %v", err)
		s.logger.Merge().Error("Merge report not persisted", "venueId", venueID, "runId", report.RunID, "error", err.Error())
	}

	venueCtx.CacheManager.InvalidateReports(venueID)
	venueCtx.CacheManager.SetLastMergeRun(venueID)

	s.observeRun(venueID, report, start)
	s.logger.LogMergeRun(venueID, report.RunID, report.Status, report.Accepted, report.Duplicates, report.Failed, time.Since(start))
	s.logger.Merge().Info("Merge run finished",
		"venueId", venueID, "runId", report.RunID, "status", report.Status,
		"accepted", report.Accepted, "duplicates", report.Duplicates,
		"failed", report.Failed, "enriched", enriched, "duration", time.Since(start))

	s.broadcaster.BroadcastEvent(venueID, events.Event{
		ID:      report.RunID,
		Type:    events.TypeMergeCompleted,
		VenueID: venueID,
		At:      report.FinishedAt,
		Payload: map[string]any{
			"runId":      report.RunID,
			"status":     report.Status,
			"accepted":   report.Accepted,
			"duplicates": report.Duplicates,
			"failed":     report.Failed,
		},
	})

	return report, nil
}

// knownClientKeys builds the dedup working set from the cache when warm,
// falling back to the recent slice of the ledger.
func (s *MergeService) knownClientKeys(venueCtx *venue.Context, since time.Time) (map[string]struct{}, error) {
	if cached, found := venueCtx.CacheManager.GetDedupKeys(venueCtx.VenueID); found {
		seen := make(map[string]struct{}, len(cached))
		for key := range cached {
			seen[key] = struct{}{}
		}
		return seen, nil
	}

	recent, err := venueCtx.LeadRepo().FindSince(venueCtx.VenueID, since)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(recent))
	warm := make(map[string]bool, len(recent))
	for _, l := range recent {
		if l.ClientKey == "" {
			continue
		}
		seen[l.ClientKey] = struct{}{}
		warm[l.ClientKey] = true
	}
	venueCtx.CacheManager.SetDedupKeys(venueCtx.VenueID, warm)
	return seen, nil
}

// collectSource fetches one source and folds its records through identity
// normalization and dedup. A fetch failure is isolated to this source; the
// caller keeps processing the others.
func (s *MergeService) collectSource(ctx context.Context, venueID string, reader lead.SourceReader, since time.Time, seen map[string]struct{}, maxSeq *int, report *lead.MergeReport) (lead.SourceResult, []*lead.Lead) {
	result := lead.SourceResult{Source: reader.Name()}

	fetchCtx, cancel := context.WithTimeout(ctx, config.SourceFetchTimeout)
	raws, err := reader.FetchNewRecords(fetchCtx, since)
	cancel()
	if err != nil {
		result.Error = err.Error()
		report.Warnf("source %s failed: %v", reader.Name(), err)
		metrics.UpstreamErrors.WithLabelValues(venueID, reader.Name()).Inc()
		s.logger.Merge().Error("Source fetch failed", "venueId", venueID, "source", reader.Name(), "error", err.Error())
		return result, nil
	}

	result.Fetched = len(raws)
	metrics.LeadsFetched.WithLabelValues(venueID, reader.Name()).Add(float64(len(raws)))

	var accepted []*lead.Lead
	for _, raw := range raws {
		key := identity.ClientKey(raw.Phone, raw.Email)
		if key == "" {
			// No phone digits and no usable email: nothing to dedup or
			// match on, so the record cannot enter the ledger.
			result.Failed++
			continue
		}
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		*maxSeq++
		accepted = append(accepted, buildLead(raw, key, *maxSeq))
		result.Accepted++
	}

	s.logger.Merge().Debug("Source collected",
		"venueId", venueID, "source", reader.Name(), "fetched", result.Fetched,
		"accepted", result.Accepted, "duplicates", result.Duplicates, "failed", result.Failed)
	return result, accepted
}

// buildLead turns an accepted raw record into a ledger lead with its assigned
// sequence identifier and derived acquisition channel.
func buildLead(raw lead.RawLead, clientKey string, seq int) *lead.Lead {
	return &lead.Lead{
		LeadID:          lead.FormatID(seq),
		ClientKey:       clientKey,
		Source:          raw.Source,
		CaptureTime:     raw.CaptureTime,
		Name:            raw.Name,
		Phone:           raw.Phone,
		Email:           raw.Email,
		Channel:         channel.FromUTM(raw.UTMSource, raw.UTMMedium),
		UTMSource:       raw.UTMSource,
		UTMMedium:       raw.UTMMedium,
		UTMCampaign:     raw.UTMCampaign,
		ExternalClientA: raw.ExternalClientA,
		ExternalClientB: raw.ExternalClientB,
		CreatedAt:       time.Now().UTC(),
	}
}

// persistAccepted appends the enriched batch to the ledger, one row at a
// time. A failed write flips that lead from accepted to failed on its source
// tally; earlier writes are kept, matching the append-only ledger model.
func (s *MergeService) persistAccepted(venueCtx *venue.Context, report *lead.MergeReport, accepted []*lead.Lead) []*lead.Lead {
	venueID := venueCtx.VenueID
	leadRepo := venueCtx.LeadRepo()

	srcByName := make(map[string]*lead.SourceResult, len(report.Sources))
	for i := range report.Sources {
		srcByName[report.Sources[i].Source] = &report.Sources[i]
	}

	stored := make([]*lead.Lead, 0, len(accepted))
	for _, l := range accepted {
		// Leads that arrived without tracker ids get synthetic ones just
		// before the write, so the stored row always carries join keys.
		if l.ExternalClientA == "" {
			l.ExternalClientA = uuid.NewString()
		}
		if l.ExternalClientB == "" {
			l.ExternalClientB = uuid.NewString()
		}

		if err := leadRepo.Store(venueID, l); err != nil {
			if res := srcByName[l.Source]; res != nil {
				res.Accepted--
				res.Failed++
			}
			report.Warnf("lead %s not stored: %v", l.LeadID, err)
			s.logger.Merge().Error("Lead not stored", "venueId", venueID, "leadId", l.LeadID, "error", err.Error())
			continue
		}
		venueCtx.CacheManager.AddDedupKey(venueID, l.ClientKey)
		stored = append(stored, l)
	}
	return stored
}

// reconcileClients upserts a canonical client for every stored lead, matching
// it against the reconciled guest history so visit counts and revenue land on
// the client row, then re-deriving its segment.
func (s *MergeService) reconcileClients(venueCtx *venue.Context, report *lead.MergeReport, stored []*lead.Lead) {
	if len(stored) == 0 {
		return
	}
	venueID := venueCtx.VenueID
	clientRepo := venueCtx.ClientRepo()
	matcher := matching.NewMatcher(s.guestProfiles(venueCtx))
	th := client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	}

	for _, l := range stored {
		existing, err := clientRepo.FindByClientKey(venueID, l.ClientKey)
		if err != nil {
			report.Warnf("client lookup for lead %s failed: %v", l.LeadID, err)
			continue
		}

		if existing != nil {
			existing.LastSeen = time.Now().UTC()
			if existing.DisplayName == "" {
				existing.DisplayName = l.Name
			}
			existing.Segment = existing.DeriveSegment(th)
			if err := clientRepo.Update(venueID, existing); err != nil {
				report.Warnf("client %s not updated: %v", existing.ID, err)
			}
			continue
		}

		c := &client.CanonicalClient{
			ID:          security.GenerateULID(),
			ClientKey:   l.ClientKey,
			DisplayName: l.Name,
			Phone:       l.Phone,
			Email:       l.Email,
			Channel:     l.Channel,
			FirstSeen:   time.Now().UTC(),
			LastSeen:    time.Now().UTC(),
		}
		if g, ok := matcher.Match(l.Phone, l.Email); ok {
			matching.Enrich(c, g)
		}
		c.Segment = c.DeriveSegment(th)
		if err := clientRepo.Store(venueID, c); err != nil {
			report.Warnf("client for lead %s not stored: %v", l.LeadID, err)
		}
	}
}

// guestProfiles walks the ranked visit sources and returns the first answer.
func (s *MergeService) guestProfiles(venueCtx *venue.Context) []reserve.GuestProfile {
	for _, src := range s.visitSources {
		if profiles, ok := src.Load(venueCtx); ok {
			return profiles
		}
	}
	return nil
}

// abortRun terminates a run that failed before any source was processed.
func (s *MergeService) abortRun(venueCtx *venue.Context, report *lead.MergeReport, start time.Time, err error) (*lead.MergeReport, error) {
	venueID := venueCtx.VenueID
	report.Warnf("%v", err)
	report.FinishedAt = time.Now().UTC()
	report.Status = lead.RunFailed

	if storeErr := venueCtx.MergeRunRepo().Store(venueID, report); storeErr != nil {
		s.logger.Merge().Error("Failed merge report not persisted", "venueId", venueID, "runId", report.RunID, "error", storeErr.Error())
	}
	metrics.MergeRuns.WithLabelValues(venueID, report.Status).Inc()
	s.logger.LogMergeRun(venueID, report.RunID, report.Status, 0, 0, 0, time.Since(start))

	s.broadcaster.BroadcastEvent(venueID, events.Event{
		ID:      report.RunID,
		Type:    events.TypeMergeCompleted,
		VenueID: venueID,
		At:      report.FinishedAt,
		Payload: map[string]any{"runId": report.RunID, "status": report.Status},
	})
	return report, err
}

func (s *MergeService) observeRun(venueID string, report *lead.MergeReport, start time.Time) {
	metrics.MergeRuns.WithLabelValues(venueID, report.Status).Inc()
	metrics.MergeRunDuration.WithLabelValues(venueID).Observe(time.Since(start).Seconds())
	for _, src := range report.Sources {
		metrics.LeadsAccepted.WithLabelValues(venueID, src.Source).Add(float64(src.Accepted))
		metrics.LeadsDuplicate.WithLabelValues(venueID, src.Source).Add(float64(src.Duplicates))
		metrics.LeadsFailed.WithLabelValues(venueID, src.Source).Add(float64(src.Failed))
	}
}
