package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCAC(t *testing.T) {
	assert.Equal(t, 500.0, CAC(50000, 100))
	assert.Equal(t, 0.0, CAC(50000, 0))
	assert.Equal(t, 0.0, CAC(0, 10))
}

func TestLTV_WithAmounts(t *testing.T) {
	assert.Equal(t, 14800.0, LTV(5000, 3, []float64{4500, 5500, 4800}))

	// Only the first six amounts count toward the bounded window.
	amounts := []float64{1000, 1000, 1000, 1000, 1000, 1000, 9999, 9999}
	assert.Equal(t, 6000.0, LTV(0, 8, amounts))
}

func TestLTV_FallbackToAvgCheck(t *testing.T) {
	assert.Equal(t, 15000.0, LTV(5000, 3, nil))
	// Visit count caps at the window.
	assert.Equal(t, 30000.0, LTV(5000, 12, nil))
	assert.Equal(t, 0.0, LTV(0, 0, nil))
}

func TestROI(t *testing.T) {
	assert.InDelta(t, 1.4, ROI(120000, 50000), 1e-9)
	assert.InDelta(t, -0.4, ROI(30000, 50000), 1e-9)
	assert.Equal(t, 0.0, ROI(50000, 50000))
}

func TestROI_ZeroCostPolicy(t *testing.T) {
	// Inherited asymmetric policy: free channel with revenue reads as 100%.
	assert.Equal(t, 1.0, ROI(10000, 0))
	assert.Equal(t, 0.0, ROI(0, 0))
}

func TestConversion(t *testing.T) {
	assert.Equal(t, 0.25, Conversion(25, 100))
	assert.Equal(t, 0.0, Conversion(25, 0))
	assert.Equal(t, 1.0, Conversion(100, 100))
}

func TestChannelRating_Bounds(t *testing.T) {
	// Hopeless channel still floors at 1.
	assert.Equal(t, 1.0, ChannelRating(-2.0, 0, 100000))
	// A perfect channel caps at 5.
	assert.Equal(t, 5.0, ChannelRating(3.0, 0.9, 500))
}

func TestChannelRating_Blend(t *testing.T) {
	// roi 0 -> 2.5, conversion 0.25 -> 2.5, cac 500 -> 5.0
	// 2.5*0.5 + 2.5*0.3 + 5.0*0.2 = 3.0
	assert.InDelta(t, 3.0, ChannelRating(0, 0.25, 500), 1e-9)

	// cac 30000 sits halfway down the band: score 3.0
	// 5.0*0.5 + 5.0*0.3 + 3.0*0.2 = 4.6
	assert.InDelta(t, 4.6, ChannelRating(1.0, 0.5, 30000), 1e-9)
}

func TestSeasonalCoefficient(t *testing.T) {
	assert.Equal(t, 1.5, SeasonalCoefficient(time.December))
	assert.Equal(t, 0.9, SeasonalCoefficient(time.July))
	assert.Equal(t, 1.0, SeasonalCoefficient(time.January))

	// Peak always beats trough.
	assert.Greater(t, SeasonalCoefficient(time.December), SeasonalCoefficient(time.August))

	// Unknown month degrades to neutral.
	assert.Equal(t, 1.0, SeasonalCoefficient(time.Month(13)))
}
