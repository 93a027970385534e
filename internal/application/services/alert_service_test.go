package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

func newAlertService(t *testing.T) (*AlertService, *recordingBroadcaster) {
	t.Helper()
	logger := testLogger(t)
	broadcaster := &recordingBroadcaster{}
	return NewAlertService(NewReportService(logger), broadcaster, logger), broadcaster
}

func TestCheckROIFlagsChannelsUnderTheFloor(t *testing.T) {
	vc := newTestVenue(t)
	svc, broadcaster := newAlertService(t)

	// Yandex spends 50000 for 6000 back; Google spends 40000 for 30000,
	// which stays above the -50% floor.
	seedConvertedChannel(t, vc, "LEAD_1", "Yandex", "89161234567", 6000)
	seedConvertedChannel(t, vc, "LEAD_2", "Google", "89039998877", 30000)

	breaching, err := svc.CheckROI(vc)
	require.NoError(t, err)
	require.NotEmpty(t, breaching)

	names := make([]string, 0, len(breaching))
	for _, line := range breaching {
		names = append(names, line.Channel)
	}
	assert.Contains(t, names, "Yandex")
	assert.NotContains(t, names, "Google")

	for _, line := range breaching {
		assert.Less(t, line.ROI, -0.5)
		assert.Greater(t, line.Spend, 0.0)
	}

	last, ok := broadcaster.lastEvent()
	require.True(t, ok)
	assert.Equal(t, events.TypeROIAlert, last.Type)
	assert.Contains(t, last.Payload["channels"], "Yandex")
}

func TestCheckROIAllClearBroadcastsNothing(t *testing.T) {
	vc := newTestVenue(t)
	svc, broadcaster := newAlertService(t)

	// Retire every spending channel except Google, then give Google a
	// healthy return.
	repo := vc.ChannelRepo()
	for _, name := range channel.Names() {
		updated := &channel.Channel{Name: name, IsActive: false}
		if name == "Google" {
			updated.MonthlyCost = 40000
			updated.IsActive = true
		}
		require.NoError(t, repo.Update(vc.VenueID, updated))
	}
	seedConvertedChannel(t, vc, "LEAD_1", "Google", "89039998877", 30000)

	breaching, err := svc.CheckROI(vc)
	require.NoError(t, err)
	assert.Empty(t, breaching)
	assert.Empty(t, broadcaster.eventTypes())
}

type recordingSink struct {
	name    string
	err     error
	reports []*AlertReport
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, _ *venue.Context, report *AlertReport) error {
	s.reports = append(s.reports, report)
	return s.err
}

func TestCheckROIDeliversThroughEverySink(t *testing.T) {
	vc := newTestVenue(t)
	svc, _ := newAlertService(t)

	failing := &recordingSink{name: "failing", err: errors.New("transport down")}
	second := &recordingSink{name: "second"}
	svc.sinks = []ReportSink{failing, second}

	seedConvertedChannel(t, vc, "LEAD_1", "Yandex", "89161234567", 6000)

	breaching, err := svc.CheckROI(vc)
	require.NoError(t, err)
	require.NotEmpty(t, breaching)

	// A failing sink never blocks the ones after it.
	require.Len(t, failing.reports, 1)
	require.Len(t, second.reports, 1)
	assert.Equal(t, events.TypeROIAlert, second.reports[0].Kind)
	assert.Equal(t, vc.VenueID, second.reports[0].VenueID)
}

func TestDigestsWithoutSubscribersAreQuiet(t *testing.T) {
	vc := newTestVenue(t)
	svc, broadcaster := newAlertService(t)

	mergeReport := &lead.MergeReport{
		RunID:     "01HX0000000000000000000001",
		VenueID:   vc.VenueID,
		StartedAt: time.Now().UTC(),
		Status:    lead.RunComplete,
	}
	svc.SendMergeDigest(vc, mergeReport)

	syncReport := &reserve.SyncReport{
		RunID:     "01HX0000000000000000000002",
		VenueID:   vc.VenueID,
		StartedAt: time.Now().UTC(),
		Status:    lead.RunComplete,
	}
	svc.SendReserveDigest(vc, syncReport, 0)

	assert.Empty(t, broadcaster.eventTypes())
}
