// Package services provides application-level services that orchestrate
// business logic and coordinate between repositories and domain entities.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// EnrichmentService annotates accepted leads with behavioral web counters
// from the external metrics API. Lookups run in fixed-size chunks with a
// pause between chunks so the upstream rate limit is never tripped; within
// one chunk the lookups are issued concurrently and awaited as a group.
type EnrichmentService struct {
	logger *logging.ChanneledLogger
}

// NewEnrichmentService creates a new enrichment service.
func NewEnrichmentService(logger *logging.ChanneledLogger) *EnrichmentService {
	return &EnrichmentService{
		logger: logger,
	}
}

type enrichResult struct {
	idx     int
	metrics lead.WebMetrics
	err     error
}

// EnrichLeads fetches web metrics for every lead that carries a tracker
// client id, over the window ending at its capture time. Leads without a
// tracker id are left untouched. A lookup failure degrades that lead to zero
// metrics and the run continues; an authentication failure stops further
// chunk dispatch because every remaining lookup would fail the same way.
// Completed chunks always keep their results.
func (s *EnrichmentService) EnrichLeads(ctx context.Context, venueID string, leads []*lead.Lead, lookup lead.MetricsLookup) (enriched int, warnings []string) {
	if lookup == nil || len(leads) == 0 {
		return 0, nil
	}
	start := time.Now()

	eligible := make([]*lead.Lead, 0, len(leads))
	for _, l := range leads {
		if l.ExternalClientA != "" && !l.CaptureTime.IsZero() {
			eligible = append(eligible, l)
		}
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	chunkSize := config.MetricsChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	degraded := 0
	for offset := 0; offset < len(eligible); offset += chunkSize {
		if offset > 0 {
			select {
			case <-ctx.Done():
				warnings = append(warnings, "enrichment stopped early: run deadline reached")
				s.finishLog(venueID, len(eligible), enriched, degraded, start)
				return enriched, warnings
			case <-time.After(config.MetricsChunkPause):
			}
		}

		end := offset + chunkSize
		if end > len(eligible) {
			end = len(eligible)
		}
		chunk := eligible[offset:end]

		results := make([]enrichResult, len(chunk))
		var wg sync.WaitGroup
		for i, l := range chunk {
			wg.Add(1)
			go func(i int, l *lead.Lead) {
				defer wg.Done()
				fetchCtx, cancel := context.WithTimeout(ctx, config.MetricsFetchTimeout)
				defer cancel()

				from := l.CaptureTime.AddDate(0, 0, -config.MetricsWindowDays)
				m, err := lookup.FetchMetrics(fetchCtx, l.ExternalClientA, from, l.CaptureTime)
				results[i] = enrichResult{idx: i, metrics: m, err: err}
			}(i, l)
		}
		wg.Wait()

		authFailed := false
		for _, res := range results {
			l := chunk[res.idx]
			switch {
			case res.err == nil:
				m := res.metrics
				l.Metrics = &m
				enriched++
			case errors.Is(res.err, lead.ErrNoData):
				l.Metrics = &lead.WebMetrics{}
			case errors.Is(res.err, lead.ErrUpstreamAuth):
				l.Metrics = &lead.WebMetrics{}
				authFailed = true
			default:
				l.Metrics = &lead.WebMetrics{}
				degraded++
				s.logger.Analytics().Warn("Metrics lookup failed, lead degraded to zero metrics",
					"venueId", venueID, "leadId", l.LeadID, "error", res.err.Error())
			}
		}

		if authFailed {
			warnings = append(warnings, "metrics lookup authentication failed, enrichment halted")
			s.logger.Analytics().Error("Metrics lookup authentication failed, halting enrichment",
				"venueId", venueID, "enriched", enriched, "remaining", len(eligible)-end)
			s.finishLog(venueID, len(eligible), enriched, degraded, start)
			return enriched, warnings
		}
	}

	if degraded > 0 {
		warnings = append(warnings, formatDegradedWarning(degraded))
	}
	s.finishLog(venueID, len(eligible), enriched, degraded, start)
	return enriched, warnings
}

func (s *EnrichmentService) finishLog(venueID string, eligible, enriched, degraded int, start time.Time) {
	s.logger.Analytics().Info("Lead enrichment pass complete",
		"venueId", venueID, "eligible", eligible, "enriched", enriched,
		"degraded", degraded, "duration", time.Since(start))
}

func formatDegradedWarning(degraded int) string {
	if degraded == 1 {
		return "1 metrics lookup failed, lead recorded with zero metrics"
	}
	return fmt.Sprintf("%d metrics lookups failed, leads recorded with zero metrics", degraded)
}
