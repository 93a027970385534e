package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

func TestForecastProjectsFromTrailingRevenue(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewForecastService(testLogger(t))
	now := time.Now().UTC()

	require.NoError(t, vc.ReservationRepo().ReplaceAll(vc.VenueID, []reserve.Reservation{
		{ID: "r-1", Phone: "89161234567", TimeFrom: now.AddDate(0, -2, 0), OrderSum: 60000, Status: "closed"},
		{ID: "r-2", Phone: "89031112233", TimeFrom: now.AddDate(0, -3, 0), OrderSum: 60000, Status: "closed"},
	}))

	projection, etag, err := svc.Project(vc, 3)
	require.NoError(t, err)
	require.NotNil(t, projection)
	assert.NotEmpty(t, etag)

	assert.InDelta(t, 10000, projection.HistoricalAvg, 0.01)
	require.Len(t, projection.Months, 3)

	// Each month applies its seasonal coefficient and one more compounding
	// step of the growth trend.
	for i, m := range projection.Months {
		expected := projection.HistoricalAvg * m.Seasonal * math.Pow(projection.GrowthRate, float64(i+1))
		assert.InDelta(t, expected, m.Projected, 0.01, "month %s", m.Label)
		assert.Greater(t, m.Projected, 0.0)
	}
	assert.Greater(t, projection.Total, 0.0)

	// A zero horizon falls back to the default and lands on the same cached
	// projection.
	cached, cachedTag, err := svc.Project(vc, 0)
	require.NoError(t, err)
	assert.Same(t, projection, cached)
	assert.Equal(t, etag, cachedTag)
}

func TestForecastEmptyLedgerProjectsZeros(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewForecastService(testLogger(t))

	projection, _, err := svc.Project(vc, 6)
	require.NoError(t, err)
	require.Len(t, projection.Months, 6)

	assert.Zero(t, projection.HistoricalAvg)
	assert.Zero(t, projection.Total)
	for _, m := range projection.Months {
		assert.Zero(t, m.Projected)
		assert.Greater(t, m.Seasonal, 0.0)
	}
}

func TestForecastClampsHorizon(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewForecastService(testLogger(t))

	projection, _, err := svc.Project(vc, 99)
	require.NoError(t, err)
	assert.Len(t, projection.Months, maxForecastMonths)
}
