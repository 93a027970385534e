package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

func enrichable(id, trackerID string) *lead.Lead {
	return &lead.Lead{
		LeadID:          id,
		ClientKey:       "key-" + id,
		Source:          lead.SourceSite,
		CaptureTime:     time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		ExternalClientA: trackerID,
	}
}

func withChunking(t *testing.T, size int, pause time.Duration) {
	t.Helper()
	prevSize, prevPause := config.MetricsChunkSize, config.MetricsChunkPause
	config.MetricsChunkSize = size
	config.MetricsChunkPause = pause
	t.Cleanup(func() {
		config.MetricsChunkSize = prevSize
		config.MetricsChunkPause = prevPause
	})
}

func TestEnrichLeadsAttachesMetricsToEligibleLeads(t *testing.T) {
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{metrics: map[string]lead.WebMetrics{
		"ext-1": {Visits: 4, PageViews: 12},
	}}

	eligible := enrichable("LEAD_1", "ext-1")
	noTracker := enrichable("LEAD_2", "")
	noCapture := enrichable("LEAD_3", "ext-3")
	noCapture.CaptureTime = time.Time{}

	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1",
		[]*lead.Lead{eligible, noTracker, noCapture}, lookup)

	assert.Equal(t, 1, enriched)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, lookup.askedCount())

	require.NotNil(t, eligible.Metrics)
	assert.Equal(t, 4, eligible.Metrics.Visits)
	assert.Nil(t, noTracker.Metrics)
	assert.Nil(t, noCapture.Metrics)
}

func TestEnrichLeadsDegradesFailedLookupToZeroMetrics(t *testing.T) {
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{
		metrics: map[string]lead.WebMetrics{"ext-1": {Visits: 2}},
		errs:    map[string]error{"ext-2": errors.New("counter timeout")},
	}

	good := enrichable("LEAD_1", "ext-1")
	bad := enrichable("LEAD_2", "ext-2")

	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1",
		[]*lead.Lead{good, bad}, lookup)

	assert.Equal(t, 1, enriched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "zero metrics")

	require.NotNil(t, bad.Metrics)
	assert.True(t, bad.Metrics.IsZero())
}

func TestEnrichLeadsTreatsNoDataAsClean(t *testing.T) {
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{errs: map[string]error{"ext-1": lead.ErrNoData}}

	unknown := enrichable("LEAD_1", "ext-1")
	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1",
		[]*lead.Lead{unknown}, lookup)

	assert.Equal(t, 0, enriched)
	assert.Empty(t, warnings)
	require.NotNil(t, unknown.Metrics)
	assert.True(t, unknown.Metrics.IsZero())
}

func TestEnrichLeadsHaltsOnAuthFailure(t *testing.T) {
	withChunking(t, 1, time.Millisecond)
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{errs: map[string]error{"ext-1": lead.ErrUpstreamAuth}}

	first := enrichable("LEAD_1", "ext-1")
	second := enrichable("LEAD_2", "ext-2")
	third := enrichable("LEAD_3", "ext-3")

	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1",
		[]*lead.Lead{first, second, third}, lookup)

	assert.Equal(t, 0, enriched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "authentication")

	// Only the first chunk was dispatched; the rest were never asked for
	// and stay untouched.
	assert.Equal(t, 1, lookup.askedCount())
	require.NotNil(t, first.Metrics)
	assert.True(t, first.Metrics.IsZero())
	assert.Nil(t, second.Metrics)
	assert.Nil(t, third.Metrics)
}

func TestEnrichLeadsKeepsCompletedChunksOnAuthFailure(t *testing.T) {
	withChunking(t, 2, time.Millisecond)
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{
		metrics: map[string]lead.WebMetrics{
			"ext-1": {Visits: 1},
			"ext-2": {Visits: 2},
		},
		errs: map[string]error{"ext-3": lead.ErrUpstreamAuth},
	}

	first := enrichable("LEAD_1", "ext-1")
	second := enrichable("LEAD_2", "ext-2")
	third := enrichable("LEAD_3", "ext-3")

	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1",
		[]*lead.Lead{first, second, third}, lookup)

	assert.Equal(t, 2, enriched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "halted")

	require.NotNil(t, first.Metrics)
	assert.Equal(t, 1, first.Metrics.Visits)
	require.NotNil(t, second.Metrics)
	assert.Equal(t, 2, second.Metrics.Visits)
	require.NotNil(t, third.Metrics)
	assert.True(t, third.Metrics.IsZero())
}

func TestEnrichLeadsStopsAtRunDeadline(t *testing.T) {
	withChunking(t, 1, time.Millisecond)
	svc := NewEnrichmentService(testLogger(t))
	lookup := &stubLookup{metrics: map[string]lead.WebMetrics{
		"ext-1": {Visits: 1},
		"ext-2": {Visits: 2},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := enrichable("LEAD_1", "ext-1")
	second := enrichable("LEAD_2", "ext-2")

	// The first chunk is always dispatched; the cancelled context is
	// noticed at the inter-chunk pause.
	enriched, warnings := svc.EnrichLeads(ctx, "venue-1", []*lead.Lead{first, second}, lookup)

	assert.Equal(t, 1, enriched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "stopped early")
	assert.Equal(t, 1, lookup.askedCount())
	assert.Nil(t, second.Metrics)
}

func TestEnrichLeadsNilLookupIsNoop(t *testing.T) {
	svc := NewEnrichmentService(testLogger(t))

	l := enrichable("LEAD_1", "ext-1")
	enriched, warnings := svc.EnrichLeads(context.Background(), "venue-1", []*lead.Lead{l}, nil)

	assert.Equal(t, 0, enriched)
	assert.Empty(t, warnings)
	assert.Nil(t, l.Metrics)
}
