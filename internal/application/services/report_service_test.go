package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

// seedConvertedChannel stores a lead on the named channel plus a canonical
// client with the given in-window visit amounts.
func seedConvertedChannel(t *testing.T, vc *venue.Context, leadID, channelName, phone string, amounts ...float64) {
	t.Helper()
	now := time.Now().UTC()

	key := "key-" + leadID
	require.NoError(t, vc.LeadRepo().Store(vc.VenueID, &lead.Lead{
		LeadID:      leadID,
		ClientKey:   key,
		Source:      lead.SourceSite,
		Channel:     channelName,
		Phone:       phone,
		CaptureTime: now.AddDate(0, 0, -5),
	}))

	c := &client.CanonicalClient{
		ID:        "client-" + leadID,
		ClientKey: key,
		Phone:     phone,
		Channel:   channelName,
		Segment:   client.SegmentPotential,
		FirstSeen: now,
		LastSeen:  now,
	}
	for i, amount := range amounts {
		c.AddVisit(client.Visit{Date: now.AddDate(0, 0, -(i + 1)), Amount: amount})
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, c))
}

func TestChannelReportRollsUpLeadsAndRevenue(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReportService(testLogger(t))
	now := time.Now().UTC()

	seedConvertedChannel(t, vc, "LEAD_1", "Yandex", "89161234567", 6000)
	seedConvertedChannel(t, vc, "LEAD_3", "Google", "89039998877", 12000)

	// A second Yandex lead that never converted.
	require.NoError(t, vc.LeadRepo().Store(vc.VenueID, &lead.Lead{
		LeadID:      "LEAD_2",
		ClientKey:   "key-LEAD_2",
		Source:      lead.SourceSocial,
		Channel:     "Yandex",
		CaptureTime: now.AddDate(0, 0, -4),
	}))

	rows, etag, err := svc.Channels(vc, 30)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.True(t, strings.HasPrefix(etag, `"`))

	// Revenue sorts the converted channels to the front.
	assert.Equal(t, "Google", rows[0].Name)
	assert.Equal(t, "Yandex", rows[1].Name)

	byName := make(map[string]ChannelReport, len(rows))
	for _, row := range rows {
		byName[row.Name] = row
	}

	yandex := byName["Yandex"]
	assert.Equal(t, 2, yandex.Leads)
	assert.Equal(t, 1, yandex.Clients)
	assert.InDelta(t, 6000, yandex.Revenue, 0.01)
	assert.InDelta(t, 50000, yandex.CAC, 0.01)
	assert.InDelta(t, 6000, yandex.LTV, 0.01)
	assert.InDelta(t, (6000-50000)/50000.0, yandex.ROI, 0.0001)
	assert.InDelta(t, 0.5, yandex.Conversion, 0.0001)

	google := byName["Google"]
	assert.Equal(t, 1, google.Leads)
	assert.InDelta(t, 1.0, google.Conversion, 0.0001)
	assert.InDelta(t, 40000, google.CAC, 0.01)

	// Idle seeded channels report zeroes rather than disappearing.
	telegram := byName["Telegram"]
	assert.Equal(t, 0, telegram.Leads)
	assert.InDelta(t, 0, telegram.CAC, 0.0001)
	assert.InDelta(t, -1.0, telegram.ROI, 0.0001)

	// A second read is served from the cache with the same validator.
	again, cachedTag, err := svc.Channels(vc, 30)
	require.NoError(t, err)
	assert.Equal(t, etag, cachedTag)
	assert.Equal(t, rows, again)
}

func TestChannelDetailComputesPaybackVisits(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReportService(testLogger(t))

	seedConvertedChannel(t, vc, "LEAD_1", "Google", "89039998877", 12000)

	detail, etag, err := svc.Channel(vc, "google")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.NotEmpty(t, etag)
	assert.Equal(t, "Google", detail.Name)
	// CAC 40000 against a 2000 average check (LTV 12000 over six visits).
	assert.InDelta(t, 20, detail.PaybackVisits, 0.0001)

	// Channels with no clients have no payback estimate.
	idle, _, err := svc.Channel(vc, "Telegram")
	require.NoError(t, err)
	require.NotNil(t, idle)
	assert.Zero(t, idle.PaybackVisits)

	missing, missingTag, err := svc.Channel(vc, "Billboard")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Empty(t, missingTag)
}

func TestSegmentReportIgnoresStoredSegment(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReportService(testLogger(t))
	now := time.Now().UTC()

	// Stored as VIP, but with no visits the row can only be a prospect.
	stale := &client.CanonicalClient{
		ID:        "client-1",
		ClientKey: "key-1",
		Segment:   client.SegmentVIP,
		FirstSeen: now,
		LastSeen:  now,
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, stale))

	regular := &client.CanonicalClient{
		ID:        "client-2",
		ClientKey: "key-2",
		Segment:   client.SegmentPotential,
		FirstSeen: now,
		LastSeen:  now,
	}
	for i := 0; i < 3; i++ {
		regular.AddVisit(client.Visit{Date: now.AddDate(0, 0, -(i + 1)), Amount: 5000})
	}
	require.NoError(t, vc.ClientRepo().Store(vc.VenueID, regular))

	rows, _, err := svc.Segments(vc)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySegment := make(map[string]SegmentReport, len(rows))
	for _, row := range rows {
		bySegment[row.Segment] = row
	}

	require.Contains(t, bySegment, string(client.SegmentPotential))
	require.Contains(t, bySegment, string(client.SegmentRegular))
	assert.NotContains(t, bySegment, string(client.SegmentVIP))

	reg := bySegment[string(client.SegmentRegular)]
	assert.Equal(t, 1, reg.Clients)
	assert.InDelta(t, 15000, reg.TotalRevenue, 0.01)
	assert.InDelta(t, 3, reg.AvgVisits, 0.0001)
	assert.InDelta(t, 5000, reg.AvgCheck, 0.0001)
	assert.InDelta(t, 50, reg.Percentage, 0.0001)
}

func TestDailyReportAggregatesWindowAndFlagsBreaches(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReportService(testLogger(t))
	now := time.Now().UTC()

	seedConvertedChannel(t, vc, "LEAD_1", "Yandex", "89161234567", 6000)

	// Captured at today's midnight, so it counts as a new lead.
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, vc.LeadRepo().Store(vc.VenueID, &lead.Lead{
		LeadID:      "LEAD_2",
		ClientKey:   "key-LEAD_2",
		Source:      lead.SourceSite,
		Channel:     "Yandex",
		CaptureTime: dayStart,
	}))

	report, etag, err := svc.Daily(vc, now)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, etag)

	assert.Equal(t, now.Format("2006-01-02"), report.Date)
	assert.Equal(t, 1, report.NewLeads)
	assert.Equal(t, 2, report.TotalLeads)
	assert.Equal(t, 1, report.TotalClients)
	assert.InDelta(t, 0.5, report.Conversion, 0.0001)
	assert.InDelta(t, 6000, report.Revenue, 0.01)

	require.NotEmpty(t, report.TopChannels)
	assert.Equal(t, "Yandex", report.TopChannels[0].Name)
	assert.LessOrEqual(t, len(report.TopChannels), 5)

	require.NotEmpty(t, report.Segments)

	// Yandex spends 50000 for one client: both the CAC ceiling and the ROI
	// floor are breached.
	joined := strings.Join(report.Alerts, "\n")
	assert.Contains(t, joined, "Yandex: high CAC")
	assert.Contains(t, joined, "critically low ROI")

	// The cached snapshot is handed back untouched.
	cached, cachedTag, err := svc.Daily(vc, now)
	require.NoError(t, err)
	assert.Same(t, report, cached)
	assert.Equal(t, etag, cachedTag)
}

func TestDailyReportWarnsOnUnconfiguredChannel(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewReportService(testLogger(t))

	// "Partner" never went through channel setup, so it has no cost row.
	seedConvertedChannel(t, vc, "LEAD_1", "Partner", "89161234567", 9000)

	report, _, err := svc.Daily(vc, time.Now().UTC())
	require.NoError(t, err)

	joined := strings.Join(report.Warnings, "\n")
	assert.Contains(t, joined, `channel "Partner" has no configured cost`)

	require.NotEmpty(t, report.TopChannels)
	assert.Equal(t, "Partner", report.TopChannels[0].Name)
	assert.InDelta(t, 9000, report.TopChannels[0].Revenue, 0.01)
	// Revenue with zero recorded spend reports as full return.
	assert.InDelta(t, 1.0, report.TopChannels[0].ROI, 0.0001)
}
