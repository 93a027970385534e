// Package forecast projects short-term monthly revenue from the trailing
// yearly average, the seasonal demand curve and a compound growth trend.
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/metrics"
)

// DefaultGrowthRate is the month-over-month compound trend applied on top of
// seasonality.
const DefaultGrowthRate = 1.02

// MonthForecast is one projected month.
type MonthForecast struct {
	Year      int        `json:"year"`
	Month     time.Month `json:"month"`
	Label     string     `json:"label"`
	Seasonal  float64    `json:"seasonal"`
	Projected float64    `json:"projected"`
}

// Projection is the full forecast returned to reporting surfaces.
type Projection struct {
	HistoricalAvg float64         `json:"historicalAvg"`
	GrowthRate    float64         `json:"growthRate"`
	Months        []MonthForecast `json:"months"`
	Total         float64         `json:"total"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// Project computes the forecast: trailing twelve-month revenue averaged per
// month, then for each month ahead multiplied by its seasonal coefficient and
// the compounded growth rate. Zero history projects to all zeros, never an
// error.
func Project(trailingTwelveMonthRevenue float64, from time.Time, monthsAhead int, growthRate float64) Projection {
	if growthRate <= 0 {
		growthRate = DefaultGrowthRate
	}
	p := Projection{
		HistoricalAvg: trailingTwelveMonthRevenue / 12,
		GrowthRate:    growthRate,
		GeneratedAt:   time.Now().UTC(),
	}
	if monthsAhead <= 0 {
		return p
	}

	p.Months = make([]MonthForecast, 0, monthsAhead)
	year, month := from.Year(), from.Month()
	for i := 1; i <= monthsAhead; i++ {
		// Anchor on the first of the month so long months never spill over.
		target := time.Date(year, month+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		coef := metrics.SeasonalCoefficient(target.Month())
		projected := p.HistoricalAvg * coef * math.Pow(growthRate, float64(i))

		p.Months = append(p.Months, MonthForecast{
			Year:      target.Year(),
			Month:     target.Month(),
			Label:     fmt.Sprintf("%04d-%02d", target.Year(), int(target.Month())),
			Seasonal:  coef,
			Projected: projected,
		})
		p.Total += projected
	}
	return p
}
