package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_SeasonalAndGrowth(t *testing.T) {
	// 1.2M over twelve months: 100k monthly average.
	from := time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)
	p := Project(1200000, from, 3, 1.02)

	require.Len(t, p.Months, 3)
	assert.Equal(t, 100000.0, p.HistoricalAvg)

	// November: 100000 * 1.2 * 1.02
	assert.Equal(t, time.November, p.Months[0].Month)
	assert.InDelta(t, 100000*1.2*1.02, p.Months[0].Projected, 1e-6)

	// December peaks: 100000 * 1.5 * 1.02^2
	assert.Equal(t, time.December, p.Months[1].Month)
	assert.InDelta(t, 100000*1.5*math.Pow(1.02, 2), p.Months[1].Projected, 1e-6)

	// January rolls the year: 100000 * 1.0 * 1.02^3
	assert.Equal(t, time.January, p.Months[2].Month)
	assert.Equal(t, 2026, p.Months[2].Year)
	assert.Equal(t, "2026-01", p.Months[2].Label)
	assert.InDelta(t, 100000*math.Pow(1.02, 3), p.Months[2].Projected, 1e-6)

	want := p.Months[0].Projected + p.Months[1].Projected + p.Months[2].Projected
	assert.InDelta(t, want, p.Total, 1e-6)
}

func TestProject_ZeroHistoryAllZero(t *testing.T) {
	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	p := Project(0, from, 6, 1.02)

	require.Len(t, p.Months, 6)
	assert.Equal(t, 0.0, p.Total)
	for _, m := range p.Months {
		assert.Equal(t, 0.0, m.Projected)
	}
}

func TestProject_MonthEndAnchor(t *testing.T) {
	// From January 31 the first projected month must be February, not March.
	from := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	p := Project(1200000, from, 1, 1.02)

	require.Len(t, p.Months, 1)
	assert.Equal(t, time.February, p.Months[0].Month)
}

func TestProject_NoMonths(t *testing.T) {
	p := Project(500000, time.Now(), 0, 1.02)
	assert.Empty(t, p.Months)
	assert.Equal(t, 0.0, p.Total)
}

func TestProject_DefaultGrowthRate(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	p := Project(1200000, from, 1, 0)
	assert.Equal(t, DefaultGrowthRate, p.GrowthRate)
}
