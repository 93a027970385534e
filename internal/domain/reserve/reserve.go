// Package reserve reconciles reservation records fetched from the booking
// system with the persisted historical snapshot, and aggregates them into
// per-guest visit profiles consumed by the client matcher.
package reserve

import (
	"context"
	"sort"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/identity"
)

// Reservation is one booking-system record.
type Reservation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	TimeFrom  time.Time `json:"timeFrom"`
	Status    string    `json:"status"`
	OrderSum  float64   `json:"orderSum"`
	PartySize int       `json:"partySize"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fetcher is the reservation-API collaborator.
type Fetcher interface {
	FetchReserves(ctx context.Context, daysBack int) ([]Reservation, error)
}

// GuestProfile is the aggregated visit history of one guest, keyed by phone.
type GuestProfile struct {
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Email        string         `json:"email"`
	Visits       []client.Visit `json:"visits"` // newest-first, capped
	TotalVisits  int            `json:"totalVisits"`
	TotalRevenue float64        `json:"totalRevenue"`
	FirstVisit   time.Time      `json:"firstVisit,omitempty"`
	LastVisit    time.Time      `json:"lastVisit,omitempty"`
}

// MergeSnapshots unions freshly fetched records with the persisted snapshot.
// Fresh records win by reservation id; historical records whose id is absent
// from the fresh set are retained. Historical records without an id are
// dropped, they cannot be reconciled on a later run.
func MergeSnapshots(fresh, historical []Reservation) []Reservation {
	freshIDs := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		freshIDs[r.ID] = struct{}{}
	}

	merged := make([]Reservation, 0, len(fresh)+len(historical))
	merged = append(merged, fresh...)
	for _, h := range historical {
		if h.ID == "" {
			continue
		}
		if _, seen := freshIDs[h.ID]; !seen {
			merged = append(merged, h)
		}
	}
	return merged
}

// AggregateGuests groups reservations by phone suffix into guest profiles.
// Visits sharing an identical (date, amount) pair are counted once per guest,
// which keeps overlapping fetch windows from double counting. Each profile's
// visit list is sorted newest-first and truncated to the history cap; totals
// accumulate over every deduplicated visit, including evicted ones.
func AggregateGuests(reserves []Reservation) []GuestProfile {
	type visitKey struct {
		date   time.Time
		amount float64
	}

	guests := make(map[string]*GuestProfile)
	seen := make(map[string]map[visitKey]struct{})
	order := make([]string, 0)

	for _, r := range reserves {
		key := identity.PhoneKey(r.Phone)
		if key == "" {
			continue
		}

		g, ok := guests[key]
		if !ok {
			g = &GuestProfile{
				Name:  r.Name,
				Phone: identity.NormalizePhone(r.Phone),
				Email: identity.NormalizeEmail(r.Email),
			}
			guests[key] = g
			seen[key] = make(map[visitKey]struct{})
			order = append(order, key)
		}

		if g.Name == "" && r.Name != "" {
			g.Name = r.Name
		}
		if g.Email == "" {
			g.Email = identity.NormalizeEmail(r.Email)
		}

		if r.TimeFrom.IsZero() || r.OrderSum <= 0 {
			continue
		}
		vk := visitKey{date: r.TimeFrom, amount: r.OrderSum}
		if _, dup := seen[key][vk]; dup {
			continue
		}
		seen[key][vk] = struct{}{}

		g.Visits = append(g.Visits, client.Visit{
			Date:      r.TimeFrom,
			Amount:    r.OrderSum,
			Status:    r.Status,
			PartySize: r.PartySize,
		})
		g.TotalVisits++
		g.TotalRevenue += r.OrderSum
		if g.FirstVisit.IsZero() || r.TimeFrom.Before(g.FirstVisit) {
			g.FirstVisit = r.TimeFrom
		}
		if r.TimeFrom.After(g.LastVisit) {
			g.LastVisit = r.TimeFrom
		}
	}

	profiles := make([]GuestProfile, 0, len(order))
	for _, key := range order {
		g := guests[key]
		sort.Slice(g.Visits, func(i, j int) bool {
			return g.Visits[i].Date.After(g.Visits[j].Date)
		})
		if len(g.Visits) > client.VisitHistoryCap {
			g.Visits = g.Visits[:client.VisitHistoryCap]
		}
		profiles = append(profiles, *g)
	}
	return profiles
}

// SyncReport summarizes one reconciliation run.
type SyncReport struct {
	RunID           string    `json:"runId"`
	VenueID         string    `json:"venueId"`
	FreshCount      int       `json:"freshCount"`
	HistoricalCount int       `json:"historicalCount"`
	MergedCount     int       `json:"mergedCount"`
	GuestCount      int       `json:"guestCount"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	Warnings        []string  `json:"warnings,omitempty"`
	Status          string    `json:"status"`
}
