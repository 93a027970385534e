package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

func newMergeService(t *testing.T) (*MergeService, *recordingBroadcaster) {
	t.Helper()
	logger := testLogger(t)
	broadcaster := &recordingBroadcaster{}
	return NewMergeService(NewEnrichmentService(logger), broadcaster, logger), broadcaster
}

func TestMergeRunDedupesAcrossSourcesAndCountsUnidentifiable(t *testing.T) {
	vc := newTestVenue(t)
	svc, broadcaster := newMergeService(t)
	captured := time.Now().UTC().Add(-48 * time.Hour)

	site := &stubSource{name: lead.SourceSite, records: []lead.RawLead{
		{RecordID: "f-1", Source: lead.SourceSite, CaptureTime: captured, Name: "Anna", Phone: "8 (916) 123-45-67", UTMSource: "yandex", UTMMedium: "cpc"},
		{RecordID: "f-2", Source: lead.SourceSite, CaptureTime: captured, Name: "Boris", Email: "Boris@Example.com"},
	}}
	social := &stubSource{name: lead.SourceSocial, records: []lead.RawLead{
		// Same person as f-1, spelled the international way.
		{RecordID: "s-1", Source: lead.SourceSocial, CaptureTime: captured, Name: "Anna K", Phone: "+7 916 123-45-67"},
		{RecordID: "s-2", Source: lead.SourceSocial, CaptureTime: captured, Name: "Vera", Phone: "89031112233"},
		{RecordID: "s-3", Source: lead.SourceSocial, CaptureTime: captured, Name: "Ghost"},
	}}

	report, err := svc.Run(vc, []lead.SourceReader{site, social}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, lead.RunPartial, report.Status)
	require.Len(t, report.Sources, 2)
	assert.Equal(t, 2, report.Sources[0].Accepted)
	assert.Equal(t, 1, report.Sources[1].Accepted)
	assert.Equal(t, 1, report.Sources[1].Duplicates)
	assert.Equal(t, 1, report.Sources[1].Failed)

	stored, err := vc.LeadRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	byID := make(map[string]*lead.Lead, len(stored))
	for _, l := range stored {
		byID[l.LeadID] = l
	}
	require.Contains(t, byID, "LEAD_1")
	require.Contains(t, byID, "LEAD_2")
	require.Contains(t, byID, "LEAD_3")
	assert.Equal(t, "Anna", byID["LEAD_1"].Name)
	assert.Equal(t, "Yandex", byID["LEAD_1"].Channel)
	assert.Equal(t, "Direct", byID["LEAD_2"].Channel)
	assert.Equal(t, "Vera", byID["LEAD_3"].Name)

	// Every stored lead becomes a canonical client; without visit history
	// they all classify as prospects.
	roster, err := vc.ClientRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	for _, c := range roster {
		assert.Equal(t, client.SegmentPotential, c.Segment)
	}

	keys, found := vc.CacheManager.GetDedupKeys(vc.VenueID)
	require.True(t, found)
	assert.Len(t, keys, 3)

	assert.Equal(t, []string{events.TypeMergeStarted, events.TypeMergeCompleted}, broadcaster.eventTypes())

	history, err := vc.MergeRunRepo().FindRecent(vc.VenueID, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.RunID, history[0].RunID)
}

func TestMergeRunIsIdempotentAndSequencesStayMonotonic(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)
	captured := time.Now().UTC().Add(-24 * time.Hour)

	records := []lead.RawLead{
		{RecordID: "f-1", Source: lead.SourceSite, CaptureTime: captured, Name: "Anna", Phone: "89161234567"},
		{RecordID: "f-2", Source: lead.SourceSite, CaptureTime: captured, Name: "Boris", Phone: "89031112233"},
	}

	first, err := svc.Run(vc, []lead.SourceReader{&stubSource{name: lead.SourceSite, records: records}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Accepted)
	assert.Equal(t, lead.RunComplete, first.Status)

	// Replaying the same records plus one new identity accepts only the
	// newcomer, and its id continues the sequence instead of restarting it.
	again := append(records, lead.RawLead{
		RecordID: "f-3", Source: lead.SourceSite, CaptureTime: captured, Name: "Vera", Phone: "89997776655",
	})
	second, err := svc.Run(vc, []lead.SourceReader{&stubSource{name: lead.SourceSite, records: again}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Accepted)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, lead.RunComplete, second.Status)

	stored, err := vc.LeadRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	ids := make([]string, 0, len(stored))
	for _, l := range stored {
		ids = append(ids, l.LeadID)
	}
	assert.ElementsMatch(t, []string{"LEAD_1", "LEAD_2", "LEAD_3"}, ids)
}

func TestMergeRunIsolatesSourceFailure(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)
	captured := time.Now().UTC().Add(-24 * time.Hour)

	broken := &stubSource{name: lead.SourceSite, err: errors.New("upstream exploded")}
	healthy := &stubSource{name: lead.SourceSocial, records: []lead.RawLead{
		{RecordID: "s-1", Source: lead.SourceSocial, CaptureTime: captured, Name: "Vera", Phone: "89031112233"},
	}}

	report, err := svc.Run(vc, []lead.SourceReader{broken, healthy}, nil)
	require.NoError(t, err)

	assert.Equal(t, lead.RunPartial, report.Status)
	require.Len(t, report.Sources, 2)
	assert.Contains(t, report.Sources[0].Error, "upstream exploded")
	assert.Equal(t, 0, report.Sources[0].Accepted)
	assert.Equal(t, 1, report.Sources[1].Accepted)
	assert.NotEmpty(t, report.Warnings)

	stored, err := vc.LeadRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestMergeRunFailsWhenEverySourceFails(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)

	report, err := svc.Run(vc, []lead.SourceReader{
		&stubSource{name: lead.SourceSite, err: errors.New("site down")},
		&stubSource{name: lead.SourceSocial, err: errors.New("social down")},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, lead.RunFailed, report.Status)
	assert.Equal(t, 0, report.Accepted)
}

// blockingSource parks inside the fetch until released, so a test can overlap
// two runs deterministically.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) Name() string { return lead.SourceSite }

func (s *blockingSource) FetchNewRecords(ctx context.Context, since time.Time) ([]lead.RawLead, error) {
	close(s.entered)
	<-s.release
	return nil, nil
}

func TestMergeRunRejectsConcurrentTrigger(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)

	slow := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan *lead.MergeReport, 1)
	go func() {
		report, _ := svc.Run(vc, []lead.SourceReader{slow}, nil)
		done <- report
	}()

	<-slow.entered
	report, err := svc.Run(vc, nil, nil)
	require.ErrorIs(t, err, ErrMergeInFlight)
	assert.Nil(t, report)

	close(slow.release)
	firstReport := <-done
	require.NotNil(t, firstReport)

	// With the slot released a new trigger is accepted again.
	_, err = svc.Run(vc, []lead.SourceReader{&stubSource{name: lead.SourceSite}}, nil)
	assert.NoError(t, err)
}

func TestMergeRunMatchesLeadAgainstGuestHistory(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)
	captured := time.Now().UTC().Add(-24 * time.Hour)

	// Five prior visits at a 10000 average puts this guest over both VIP
	// thresholds.
	visits := make([]reserve.Reservation, 0, 5)
	for i := 0; i < 5; i++ {
		visits = append(visits, reserve.Reservation{
			ID:       "rsv-" + string(rune('a'+i)),
			Name:     "Anna",
			Phone:    "+79161234567",
			TimeFrom: time.Date(2024, time.January, 5+i, 19, 0, 0, 0, time.UTC),
			OrderSum: 10000,
			Status:   "closed",
		})
	}
	require.NoError(t, vc.ReservationRepo().ReplaceAll(vc.VenueID, visits))

	site := &stubSource{name: lead.SourceSite, records: []lead.RawLead{
		{RecordID: "f-1", Source: lead.SourceSite, CaptureTime: captured, Name: "Anna", Phone: "89161234567"},
	}}
	report, err := svc.Run(vc, []lead.SourceReader{site}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Accepted)

	roster, err := vc.ClientRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, roster, 1)

	matched := roster[0]
	assert.Equal(t, 5, matched.TotalVisits)
	assert.InDelta(t, 50000, matched.TotalRevenue, 0.01)
	assert.Equal(t, client.SegmentVIP, matched.Segment)
	assert.False(t, matched.FirstVisit.IsZero())
	assert.False(t, matched.LastVisit.IsZero())
	assert.Len(t, matched.VisitHistory, 5)
}

func TestMergeRunBackfillsTrackerIDs(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)
	captured := time.Now().UTC().Add(-24 * time.Hour)

	lookup := &stubLookup{metrics: map[string]lead.WebMetrics{}}
	site := &stubSource{name: lead.SourceSite, records: []lead.RawLead{
		{RecordID: "f-1", Source: lead.SourceSite, CaptureTime: captured, Name: "Anna", Phone: "89161234567"},
	}}

	report, err := svc.Run(vc, []lead.SourceReader{site}, lookup)
	require.NoError(t, err)
	require.Equal(t, 1, report.Accepted)

	// No tracker id arrived, so the lookup is never consulted, but the
	// stored row still carries synthetic join keys.
	assert.Equal(t, 0, lookup.askedCount())

	stored, err := vc.LeadRepo().FindByID(vc.VenueID, "LEAD_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ExternalClientA)
	assert.NotEmpty(t, stored.ExternalClientB)
	assert.Nil(t, stored.Metrics)
}

func TestMergeRunAttachesWebMetrics(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newMergeService(t)
	captured := time.Now().UTC().Add(-24 * time.Hour)

	lookup := &stubLookup{metrics: map[string]lead.WebMetrics{
		"ext-1": {Visits: 3, PageViews: 9, BounceRate: 0.25, AvgDuration: 140},
	}}
	site := &stubSource{name: lead.SourceSite, records: []lead.RawLead{
		{RecordID: "f-1", Source: lead.SourceSite, CaptureTime: captured, Name: "Anna", Phone: "89161234567", ExternalClientA: "ext-1"},
	}}

	report, err := svc.Run(vc, []lead.SourceReader{site}, lookup)
	require.NoError(t, err)
	require.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, lookup.askedCount())

	stored, err := vc.LeadRepo().FindByID(vc.VenueID, "LEAD_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.Metrics)
	assert.Equal(t, 3, stored.Metrics.Visits)
	assert.Equal(t, 9, stored.Metrics.PageViews)
	assert.InDelta(t, 0.25, stored.Metrics.BounceRate, 0.0001)
}
