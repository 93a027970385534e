package metrics

import "time"

// seasonalCoefficients reflects the hospitality demand curve: December banquet
// season peaks at 1.5x, summer months dip to 0.9x.
var seasonalCoefficients = map[time.Month]float64{
	time.January:   1.0,
	time.February:  1.1,
	time.March:     1.1,
	time.April:     1.2,
	time.May:       1.2,
	time.June:      0.9,
	time.July:      0.9,
	time.August:    0.9,
	time.September: 1.15,
	time.October:   1.15,
	time.November:  1.2,
	time.December:  1.5,
}

// SeasonalCoefficient returns the demand multiplier for a month. Unknown
// months fall back to a neutral 1.0.
func SeasonalCoefficient(m time.Month) float64 {
	if c, ok := seasonalCoefficients[m]; ok {
		return c
	}
	return 1.0
}
