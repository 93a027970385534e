// Package client models the canonical customer identity: one deduplicated
// record per client key, accumulated across every channel the customer touched.
package client

import (
	"sort"
	"time"
)

// VisitHistoryCap bounds the per-client visit list. The oldest visit is
// evicted beyond the cap; TotalVisits and TotalRevenue keep counting, so past
// the cap TotalRevenue may exceed the sum of the retained history.
const VisitHistoryCap = 10

// Visit is a single completed or booked table visit owned by one client.
type Visit struct {
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	PartySize int       `json:"partySize"`
}

// CanonicalClient is the authoritative per-customer ledger row. Created on the
// first unseen client key, mutated additively afterwards, never deleted.
type CanonicalClient struct {
	ID           string    `json:"id"`
	ClientKey    string    `json:"clientKey"`
	DisplayName  string    `json:"displayName"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Channel      string    `json:"channel"` // channel of first contact
	VisitHistory []Visit   `json:"visitHistory"`
	TotalVisits  int       `json:"totalVisits"`
	TotalRevenue float64   `json:"totalRevenue"`
	FirstVisit   time.Time `json:"firstVisit,omitempty"`
	LastVisit    time.Time `json:"lastVisit,omitempty"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
	// Segment is a denormalized reporting echo. Reads re-derive it; it is
	// never trusted as stored state.
	Segment Segment `json:"segment"`
}

// AddVisit records a visit, keeps the history newest-first and enforces the
// cap. Totals accumulate independently of the capped list.
func (c *CanonicalClient) AddVisit(v Visit) {
	c.TotalVisits++
	c.TotalRevenue += v.Amount
	c.VisitHistory = append(c.VisitHistory, v)
	sort.Slice(c.VisitHistory, func(i, j int) bool {
		return c.VisitHistory[i].Date.After(c.VisitHistory[j].Date)
	})
	if len(c.VisitHistory) > VisitHistoryCap {
		c.VisitHistory = c.VisitHistory[:VisitHistoryCap]
	}
	if c.FirstVisit.IsZero() || v.Date.Before(c.FirstVisit) {
		c.FirstVisit = v.Date
	}
	if v.Date.After(c.LastVisit) {
		c.LastVisit = v.Date
	}
}

// RecentAmounts returns up to n amounts from the newest-first history.
func (c *CanonicalClient) RecentAmounts(n int) []float64 {
	if n > len(c.VisitHistory) {
		n = len(c.VisitHistory)
	}
	amounts := make([]float64, 0, n)
	for _, v := range c.VisitHistory[:n] {
		amounts = append(amounts, v.Amount)
	}
	return amounts
}

// AvgCheck is the all-time average spend per visit.
func (c *CanonicalClient) AvgCheck() float64 {
	if c.TotalVisits == 0 {
		return 0
	}
	return c.TotalRevenue / float64(c.TotalVisits)
}

// DeriveSegment classifies the client from its current history. Always a
// fresh evaluation, never a read of the stored Segment field.
func (c *CanonicalClient) DeriveSegment(th Thresholds) Segment {
	return DetermineSegment(c.TotalVisits, c.RecentAmounts(RecentVisitWindow), c.TotalRevenue, th)
}
