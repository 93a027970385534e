package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
)

func TestClientsRederivesSegmentsBeforeFiltering(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewRosterService(testLogger(t))
	now := time.Now().UTC()

	// Stored as VIP with zero visits; the filter must see it as a prospect.
	stale := &client.CanonicalClient{
		ID:        "client-1",
		ClientKey: "key-1",
		Segment:   client.SegmentVIP,
		FirstSeen: now,
		LastSeen:  now,
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, stale))

	vip := &client.CanonicalClient{
		ID:        "client-2",
		ClientKey: "key-2",
		Segment:   client.SegmentPotential,
		FirstSeen: now,
		LastSeen:  now,
	}
	for i := 0; i < 5; i++ {
		vip.AddVisit(client.Visit{Date: now.AddDate(0, 0, -(i + 1)), Amount: 10000})
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, vip))

	vips, err := svc.Clients(vc, "vip")
	require.NoError(t, err)
	require.Len(t, vips, 1)
	assert.Equal(t, "client-2", vips[0].ID)
	assert.Equal(t, client.SegmentVIP, vips[0].Segment)

	prospects, err := svc.Clients(vc, "POTENTIAL")
	require.NoError(t, err)
	require.Len(t, prospects, 1)
	assert.Equal(t, "client-1", prospects[0].ID)

	everyone, err := svc.Clients(vc, "")
	require.NoError(t, err)
	assert.Len(t, everyone, 2)

	_, err = svc.Clients(vc, "WHALES")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown segment")
}

func TestClientLookupRederivesSegment(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewRosterService(testLogger(t))
	now := time.Now().UTC()

	stored := &client.CanonicalClient{
		ID:        "client-1",
		ClientKey: "key-1",
		Segment:   client.SegmentVIP,
		FirstSeen: now,
		LastSeen:  now,
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, stored))

	c, err := svc.Client(vc, "client-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, client.SegmentPotential, c.Segment)

	missing, err := svc.Client(vc, "client-999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.Client(vc, "")
	assert.Error(t, err)
}

func TestLeadsDefaultsToTrailingWindow(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewRosterService(testLogger(t))
	now := time.Now().UTC()

	require.NoError(t, vc.LeadRepo().Store(vc.VenueID, &lead.Lead{
		LeadID: "LEAD_1", ClientKey: "key-1", Source: lead.SourceSite,
		Channel: "Direct", CaptureTime: now.AddDate(0, 0, -3),
	}))
	require.NoError(t, vc.LeadRepo().Store(vc.VenueID, &lead.Lead{
		LeadID: "LEAD_2", ClientKey: "key-2", Source: lead.SourceSite,
		Channel: "Direct", CaptureTime: now.AddDate(0, 0, -90),
	}))

	recent, err := svc.Leads(vc, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "LEAD_1", recent[0].LeadID)

	all, err := svc.Leads(vc, now.AddDate(0, 0, -120), now)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMergeHistoryClampsLimit(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewRosterService(testLogger(t))
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, vc.MergeRunRepo().Store(vc.VenueID, &lead.MergeReport{
			RunID:      string(rune('a'+i)) + "-run",
			VenueID:    vc.VenueID,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Status:     lead.RunComplete,
		}))
	}

	runs, err := svc.MergeHistory(vc, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// Newest first.
	assert.Equal(t, "c-run", runs[0].RunID)

	one, err := svc.MergeHistory(vc, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "c-run", one[0].RunID)
}
