// Package matching attaches reconciled visit history to incoming leads.
// Matching is exact: phone-suffix equality or normalized-email equality,
// first profile wins, no fuzzy scoring.
package matching

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/identity"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

// Matcher indexes guest profiles by phone suffix and email for lookup during
// a merge run. Build once per run; the index is read-only afterwards.
type Matcher struct {
	profiles []reserve.GuestProfile
	byPhone  map[string]int
	byEmail  map[string]int
}

// NewMatcher builds the identity index. When two profiles collide on a key
// the earlier one is kept, preserving first-match-wins over the input order.
func NewMatcher(profiles []reserve.GuestProfile) *Matcher {
	m := &Matcher{
		profiles: profiles,
		byPhone:  make(map[string]int, len(profiles)),
		byEmail:  make(map[string]int, len(profiles)),
	}
	for i, g := range profiles {
		if key := identity.PhoneKey(g.Phone); key != "" {
			if _, exists := m.byPhone[key]; !exists {
				m.byPhone[key] = i
			}
		}
		if email := identity.NormalizeEmail(g.Email); email != "" {
			if _, exists := m.byEmail[email]; !exists {
				m.byEmail[email] = i
			}
		}
	}
	return m
}

// Match resolves a lead's raw phone/email against the guest history. When the
// phone and the email point at different profiles, the one appearing earlier
// in the input wins.
func (m *Matcher) Match(rawPhone, rawEmail string) (reserve.GuestProfile, bool) {
	phoneIdx, phoneOK := -1, false
	if key := identity.PhoneKey(rawPhone); key != "" {
		phoneIdx, phoneOK = lookup(m.byPhone, key)
	}
	emailIdx, emailOK := -1, false
	if email := identity.NormalizeEmail(rawEmail); email != "" {
		emailIdx, emailOK = lookup(m.byEmail, email)
	}

	switch {
	case phoneOK && emailOK:
		if emailIdx < phoneIdx {
			return m.profiles[emailIdx], true
		}
		return m.profiles[phoneIdx], true
	case phoneOK:
		return m.profiles[phoneIdx], true
	case emailOK:
		return m.profiles[emailIdx], true
	default:
		return reserve.GuestProfile{}, false
	}
}

func lookup(index map[string]int, key string) (int, bool) {
	idx, ok := index[key]
	return idx, ok
}

// Enrich copies the matched visit history onto the canonical client: visit
// count, revenue, first/last visit dates and the capped newest-first history
// that feeds the LTV window.
func Enrich(c *client.CanonicalClient, g reserve.GuestProfile) {
	c.TotalVisits = g.TotalVisits
	c.TotalRevenue = g.TotalRevenue
	c.FirstVisit = g.FirstVisit
	c.LastVisit = g.LastVisit
	c.VisitHistory = append([]client.Visit(nil), g.Visits...)
	if c.DisplayName == "" {
		c.DisplayName = g.Name
	}
}
