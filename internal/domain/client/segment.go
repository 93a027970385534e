package client

import "strings"

// Segment is the behavioral tier of a client.
type Segment string

const (
	SegmentPotential Segment = "POTENTIAL" // lead with no recorded visit yet
	SegmentNew       Segment = "NEW"       // exactly one visit
	SegmentActive    Segment = "ACTIVE"    // repeat guest
	SegmentRegular   Segment = "REGULAR"   // frequent with a healthy check
	SegmentVIP       Segment = "VIP"       // high value or very frequent
)

// RecentVisitWindow is how many of the newest visits feed the recent-average
// used by the classifier.
const RecentVisitWindow = 3

// Thresholds carries the tunable boundaries of the segment rule table.
type Thresholds struct {
	VIPVisits     int     // visit count that promotes to VIP outright
	VIPAvgAmount  float64 // recent average spend that promotes to VIP
	RegularVisits int     // minimum visits for REGULAR
	RegularAvg    float64 // minimum recent average for REGULAR
}

// AllSegments lists every tier in promotion order, for report iteration.
func AllSegments() []Segment {
	return []Segment{SegmentPotential, SegmentNew, SegmentActive, SegmentRegular, SegmentVIP}
}

// ParseSegment maps raw input onto a known tier, case-insensitively.
func ParseSegment(raw string) (Segment, bool) {
	candidate := Segment(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range AllSegments() {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// DetermineSegment runs the rule table top-down, first match wins:
//
//	1. no visits            -> POTENTIAL
//	2. recent avg or visits -> VIP
//	3. visits + recent avg  -> REGULAR
//	4. two or more visits   -> ACTIVE
//	5. otherwise            -> NEW
//
// When per-visit amounts are unavailable the recent average falls back to
// totalRevenue/visits, keeping the same threshold shape. Pure and stateless;
// re-evaluated on every read.
func DetermineSegment(visits int, recentAmounts []float64, totalRevenue float64, th Thresholds) Segment {
	if visits == 0 {
		return SegmentPotential
	}

	var recentAvg float64
	if len(recentAmounts) > 0 {
		n := len(recentAmounts)
		if n > RecentVisitWindow {
			n = RecentVisitWindow
		}
		var sum float64
		for _, a := range recentAmounts[:n] {
			sum += a
		}
		recentAvg = sum / float64(n)
	} else {
		recentAvg = totalRevenue / float64(visits)
	}

	switch {
	case recentAvg > th.VIPAvgAmount || visits >= th.VIPVisits:
		return SegmentVIP
	case visits >= th.RegularVisits && recentAvg > th.RegularAvg:
		return SegmentRegular
	case visits >= 2:
		return SegmentActive
	default:
		return SegmentNew
	}
}
