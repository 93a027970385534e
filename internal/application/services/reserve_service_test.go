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
	"github.com/AtRiskMedia/leadledger-go/internal/domain/identity"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

func TestReserveSyncFreshWinsOverHistorical(t *testing.T) {
	vc := newTestVenue(t)
	broadcaster := &recordingBroadcaster{}
	svc := NewReserveService(broadcaster, testLogger(t))

	historical := []reserve.Reservation{
		{ID: "r-1", Name: "Anna", Phone: "89161234567", TimeFrom: time.Date(2024, 1, 5, 19, 0, 0, 0, time.UTC), OrderSum: 5000, Status: "closed"},
		{ID: "r-2", Name: "Boris", Phone: "89031112233", TimeFrom: time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC), OrderSum: 3000, Status: "closed"},
	}
	require.NoError(t, vc.ReservationRepo().ReplaceAll(vc.VenueID, historical))

	// r-1 comes back amended; r-2 is outside the fetch window and must
	// survive the union untouched.
	fetcher := &stubFetcher{reservations: []reserve.Reservation{
		{ID: "r-1", Name: "Anna", Phone: "89161234567", TimeFrom: time.Date(2024, 1, 5, 19, 0, 0, 0, time.UTC), OrderSum: 7000, Status: "closed"},
		{ID: "r-3", Name: "Anna", Phone: "+79161234567", TimeFrom: time.Date(2024, 2, 1, 19, 0, 0, 0, time.UTC), OrderSum: 4000, Status: "closed"},
	}}

	report, err := svc.Sync(vc, fetcher)
	require.NoError(t, err)

	assert.Equal(t, config.ReserveLookbackDays, fetcher.daysBack)
	assert.Equal(t, 2, report.FreshCount)
	assert.Equal(t, 2, report.HistoricalCount)
	assert.Equal(t, 3, report.MergedCount)
	assert.Equal(t, 2, report.GuestCount)
	assert.Equal(t, lead.RunComplete, report.Status)
	assert.Empty(t, report.Warnings)

	snapshot, err := vc.ReservationRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	for _, r := range snapshot {
		if r.ID == "r-1" {
			assert.InDelta(t, 7000, r.OrderSum, 0.01)
		}
	}

	profiles, found := vc.CacheManager.GetGuestProfiles(vc.VenueID)
	require.True(t, found)
	assert.Len(t, profiles, 2)

	roster, err := vc.ClientRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	bySegment := make(map[string]client.Segment, len(roster))
	for _, c := range roster {
		bySegment[c.Phone] = c.Segment
		if c.Phone == "79161234567" {
			assert.Equal(t, 2, c.TotalVisits)
			assert.InDelta(t, 11000, c.TotalRevenue, 0.01)
		}
	}
	// Two visits averaging 5500 is active but short of the regular visit
	// floor; a single 3000 visit is merely new.
	assert.Equal(t, client.SegmentActive, bySegment["79161234567"])
	assert.Equal(t, client.SegmentNew, bySegment["79031112233"])

	last, ok := broadcaster.lastEvent()
	require.True(t, ok)
	assert.Equal(t, events.TypeReserveSynced, last.Type)
	assert.Equal(t, report.RunID, last.ID)
}

func TestReserveSyncReusesLeadCreatedClientRow(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReserveService(&recordingBroadcaster{}, testLogger(t))

	// A merge run already created this row from a web form; the booking
	// snapshot for the same phone must update it, not add a twin.
	existing := &client.CanonicalClient{
		ID:          "01HX0000000000000000000000",
		ClientKey:   identity.ClientKey("89161234567", ""),
		DisplayName: "Anna",
		Phone:       "+79161234567",
		Channel:     "Yandex",
		Segment:     client.SegmentPotential,
		FirstSeen:   time.Now().UTC(),
		LastSeen:    time.Now().UTC(),
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, existing))

	fetcher := &stubFetcher{reservations: []reserve.Reservation{
		{ID: "r-1", Name: "Anna K", Phone: "89161234567", TimeFrom: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC), OrderSum: 6000, Status: "closed"},
	}}

	report, err := svc.Sync(vc, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 1, report.GuestCount)

	roster, err := vc.ClientRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, roster, 1)

	updated := roster[0]
	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, "Anna", updated.DisplayName)
	assert.Equal(t, "Yandex", updated.Channel)
	assert.Equal(t, 1, updated.TotalVisits)
	assert.InDelta(t, 6000, updated.TotalRevenue, 0.01)
	assert.Equal(t, client.SegmentNew, updated.Segment)
}

func TestReserveSyncEmptyFetchFailureLeavesSnapshotUntouched(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReserveService(&recordingBroadcaster{}, testLogger(t))

	historical := []reserve.Reservation{
		{ID: "r-1", Phone: "89161234567", TimeFrom: time.Date(2024, 1, 5, 19, 0, 0, 0, time.UTC), OrderSum: 5000},
	}
	require.NoError(t, vc.ReservationRepo().ReplaceAll(vc.VenueID, historical))

	fetcher := &stubFetcher{err: errors.New("booking api down")}
	report, err := svc.Sync(vc, fetcher)
	require.Error(t, err)
	assert.Equal(t, lead.RunFailed, report.Status)
	assert.Equal(t, 0, report.FreshCount)

	snapshot, findErr := vc.ReservationRepo().FindAll(vc.VenueID)
	require.NoError(t, findErr)
	assert.Len(t, snapshot, 1)
}

func TestReserveSyncPartialFetchKeepsReturnedPages(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReserveService(&recordingBroadcaster{}, testLogger(t))

	fetcher := &stubFetcher{
		reservations: []reserve.Reservation{
			{ID: "r-1", Phone: "89161234567", TimeFrom: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC), OrderSum: 4500, Status: "closed"},
		},
		err: errors.New("page 2 timed out"),
	}

	report, err := svc.Sync(vc, fetcher)
	require.NoError(t, err)
	assert.Equal(t, lead.RunPartial, report.Status)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "incomplete")

	snapshot, findErr := vc.ReservationRepo().FindAll(vc.VenueID)
	require.NoError(t, findErr)
	assert.Len(t, snapshot, 1)
}

// blockingFetcher parks inside the fetch until released.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchReserves(ctx context.Context, daysBack int) ([]reserve.Reservation, error) {
	close(f.entered)
	<-f.release
	return nil, nil
}

func TestReserveSyncRejectsConcurrentTrigger(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReserveService(&recordingBroadcaster{}, testLogger(t))

	slow := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Sync(vc, slow)
	}()

	<-slow.entered
	report, err := svc.Sync(vc, &stubFetcher{})
	require.ErrorIs(t, err, ErrSyncInFlight)
	assert.Nil(t, report)

	close(slow.release)
	<-done
}
