package client

import (
	"testing"
	"time"
)

func testThresholds() Thresholds {
	return Thresholds{
		VIPVisits:     5,
		VIPAvgAmount:  8000,
		RegularVisits: 3,
		RegularAvg:    3000,
	}
}

func TestDetermineSegment_ZeroVisitsAlwaysPotential(t *testing.T) {
	th := testThresholds()
	cases := []struct {
		amounts []float64
		revenue float64
	}{
		{nil, 0},
		{nil, 999999},
		{[]float64{50000, 50000}, 100000},
	}
	for _, c := range cases {
		if got := DetermineSegment(0, c.amounts, c.revenue, th); got != SegmentPotential {
			t.Errorf("DetermineSegment(0, %v, %v) = %s, want POTENTIAL", c.amounts, c.revenue, got)
		}
	}
}

func TestDetermineSegment_RuleTable(t *testing.T) {
	th := testThresholds()
	cases := []struct {
		name    string
		visits  int
		amounts []float64
		revenue float64
		want    Segment
	}{
		{"high recent average promotes to VIP", 2, []float64{9000, 8500}, 17500, SegmentVIP},
		{"visit count alone promotes to VIP", 5, []float64{1000, 1000, 1000}, 5000, SegmentVIP},
		{"frequent with healthy check is REGULAR", 3, []float64{4000, 3500, 3200}, 10700, SegmentRegular},
		{"frequent with weak check is ACTIVE", 4, []float64{500, 700, 600}, 2400, SegmentActive},
		{"two visits is ACTIVE", 2, []float64{2000, 1500}, 3500, SegmentActive},
		{"single visit is NEW", 1, []float64{2500}, 2500, SegmentNew},
	}
	for _, c := range cases {
		if got := DetermineSegment(c.visits, c.amounts, c.revenue, th); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestDetermineSegment_FallbackWithoutAmounts(t *testing.T) {
	th := testThresholds()

	// 4 visits, 36000 total: average 9000 clears the VIP bar.
	if got := DetermineSegment(4, nil, 36000, th); got != SegmentVIP {
		t.Errorf("fallback VIP: got %s", got)
	}
	// 3 visits, 10500 total: average 3500 clears the REGULAR bar.
	if got := DetermineSegment(3, nil, 10500, th); got != SegmentRegular {
		t.Errorf("fallback REGULAR: got %s", got)
	}
	// 2 visits, low spend.
	if got := DetermineSegment(2, nil, 1000, th); got != SegmentActive {
		t.Errorf("fallback ACTIVE: got %s", got)
	}
	if got := DetermineSegment(1, nil, 1000, th); got != SegmentNew {
		t.Errorf("fallback NEW: got %s", got)
	}
}

func TestDetermineSegment_RecentWindowOnly(t *testing.T) {
	th := testThresholds()
	// Older cheap visits beyond the window must not drag the average down:
	// only the first three (newest) amounts count.
	amounts := []float64{9000, 9000, 9000, 100, 100, 100}
	if got := DetermineSegment(6, amounts, 27300, th); got != SegmentVIP {
		t.Errorf("recent window: got %s, want VIP", got)
	}
}

func TestAddVisit_CapAndOrdering(t *testing.T) {
	c := &CanonicalClient{}
	base := time.Date(2025, time.March, 1, 19, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		c.AddVisit(Visit{Date: base.AddDate(0, 0, i), Amount: 1000})
	}

	if len(c.VisitHistory) != VisitHistoryCap {
		t.Fatalf("history length = %d, want %d", len(c.VisitHistory), VisitHistoryCap)
	}
	if c.TotalVisits != 13 {
		t.Errorf("TotalVisits = %d, want 13", c.TotalVisits)
	}
	// Totals keep counting past the cap.
	if c.TotalRevenue != 13000 {
		t.Errorf("TotalRevenue = %v, want 13000", c.TotalRevenue)
	}
	// Newest first.
	for i := 1; i < len(c.VisitHistory); i++ {
		if c.VisitHistory[i].Date.After(c.VisitHistory[i-1].Date) {
			t.Fatalf("history not newest-first at %d", i)
		}
	}
	if !c.VisitHistory[0].Date.Equal(base.AddDate(0, 0, 12)) {
		t.Errorf("newest visit = %v", c.VisitHistory[0].Date)
	}
	if !c.FirstVisit.Equal(base) {
		t.Errorf("FirstVisit = %v, want %v", c.FirstVisit, base)
	}
	if !c.LastVisit.Equal(base.AddDate(0, 0, 12)) {
		t.Errorf("LastVisit = %v", c.LastVisit)
	}
}

func TestDeriveSegment_UsesHistory(t *testing.T) {
	c := &CanonicalClient{}
	base := time.Date(2025, time.June, 10, 20, 0, 0, 0, time.UTC)
	c.AddVisit(Visit{Date: base, Amount: 9000})
	c.AddVisit(Visit{Date: base.AddDate(0, 0, 7), Amount: 9500})

	if got := c.DeriveSegment(testThresholds()); got != SegmentVIP {
		t.Errorf("DeriveSegment = %s, want VIP", got)
	}
}
