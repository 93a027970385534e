// Package metrics holds the acquisition-economics formulas. Every function is
// pure and total: identical inputs always yield identical outputs, degenerate
// inputs yield zeros rather than errors.
package metrics

// LTVWindow bounds the lifetime-value model to the most recent visits.
const LTVWindow = 6

// Rating normalization bands for ChannelRating.
const (
	cacBestCost  = 10000.0 // at or below this CAC scores 5.0
	cacWorstCost = 50000.0 // at or above this CAC scores 1.0
)

// CAC returns the customer acquisition cost: channel spend divided by the
// number of acquired clients. Zero clients yields 0, not a division error.
func CAC(channelCost float64, clients int) float64 {
	if clients == 0 {
		return 0
	}
	return channelCost / float64(clients)
}

// LTV estimates lifetime value over the bounded visit window. When per-visit
// amounts are available it sums the first LTVWindow of them; otherwise it falls
// back to the average check times the capped visit count.
func LTV(avgCheck float64, visits int, amounts []float64) float64 {
	if len(amounts) > 0 {
		n := len(amounts)
		if n > LTVWindow {
			n = LTVWindow
		}
		var sum float64
		for _, a := range amounts[:n] {
			sum += a
		}
		return sum
	}
	capped := visits
	if capped > LTVWindow {
		capped = LTVWindow
	}
	return avgCheck * float64(capped)
}

// ROI returns (revenue-cost)/cost as a ratio, so 1.4 means a 140% return.
// The zero-cost case is an inherited asymmetric policy: any revenue on a free
// channel counts as a 100% return, no revenue as 0%.
func ROI(revenue, cost float64) float64 {
	if cost == 0 {
		if revenue > 0 {
			return 1.0
		}
		return 0
	}
	return (revenue - cost) / cost
}

// Conversion returns the clients-per-lead ratio. Zero leads yields 0.
func Conversion(clients, leads int) float64 {
	if leads == 0 {
		return 0
	}
	return float64(clients) / float64(leads)
}

// ChannelRating blends ROI (50%), conversion (30%) and CAC (20%) into a 1..5
// score. Each component is linearly normalized onto the band first: ROI 0 maps
// to 2.5 and 1.0 to 5.0, a 50% conversion maps to 5.0, and CAC maps from 5.0
// at 10000 down to 1.0 at 50000.
func ChannelRating(roi, conversion, cac float64) float64 {
	roiScore := clampScore((roi + 1) * 2.5)
	convScore := clampScore(conversion * 10)

	var cacScore float64
	switch {
	case cac <= cacBestCost:
		cacScore = 5
	case cac >= cacWorstCost:
		cacScore = 1
	default:
		cacScore = 5 - (cac-cacBestCost)/(cacWorstCost-cacBestCost)*4
	}

	rating := roiScore*0.5 + convScore*0.3 + cacScore*0.2
	return clampScore(rating)
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
