package reserve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
)

func res(id, phone string, at time.Time, sum float64) Reservation {
	return Reservation{ID: id, Phone: phone, TimeFrom: at, OrderSum: sum, Status: "completed", PartySize: 2}
}

func TestMergeSnapshots_FreshWins(t *testing.T) {
	at := time.Date(2025, time.May, 3, 19, 0, 0, 0, time.UTC)
	fresh := []Reservation{res("r1", "89161234567", at, 5000)}
	historical := []Reservation{
		res("r1", "89161234567", at, 4000), // superseded by fresh
		res("r2", "89161234567", at.AddDate(0, 0, -30), 3000),
	}

	merged := MergeSnapshots(fresh, historical)
	require.Len(t, merged, 2)
	assert.Equal(t, 5000.0, merged[0].OrderSum, "fresh record must win by id")
	assert.Equal(t, "r2", merged[1].ID)
}

func TestMergeSnapshots_DropsHistoricalWithoutID(t *testing.T) {
	at := time.Date(2025, time.May, 3, 19, 0, 0, 0, time.UTC)
	historical := []Reservation{res("", "89161234567", at, 3000)}

	merged := MergeSnapshots(nil, historical)
	assert.Empty(t, merged)
}

func TestAggregateGuests_DedupByDateAndAmount(t *testing.T) {
	at := time.Date(2025, time.April, 12, 20, 0, 0, 0, time.UTC)
	reserves := []Reservation{
		res("r1", "89161234567", at, 4500),
		res("r9", "+79161234567", at, 4500), // same guest, same (date, amount): overlap
		res("r2", "89161234567", at.AddDate(0, 0, 7), 4500),
	}

	guests := AggregateGuests(reserves)
	require.Len(t, guests, 1)
	g := guests[0]
	assert.Equal(t, 2, g.TotalVisits)
	assert.Equal(t, 9000.0, g.TotalRevenue)
	assert.Len(t, g.Visits, 2)
}

func TestAggregateGuests_NewestFirstAndCapped(t *testing.T) {
	base := time.Date(2025, time.January, 5, 18, 0, 0, 0, time.UTC)
	reserves := make([]Reservation, 0, 14)
	for i := 0; i < 14; i++ {
		reserves = append(reserves, res(
			"r"+string(rune('a'+i)), "89161234567", base.AddDate(0, 0, i), float64(1000+i)))
	}

	guests := AggregateGuests(reserves)
	require.Len(t, guests, 1)
	g := guests[0]

	assert.Len(t, g.Visits, client.VisitHistoryCap)
	assert.Equal(t, 14, g.TotalVisits, "totals count evicted visits too")
	for i := 1; i < len(g.Visits); i++ {
		assert.False(t, g.Visits[i].Date.After(g.Visits[i-1].Date), "visits must be newest-first")
	}
	assert.Equal(t, base.AddDate(0, 0, 13), g.Visits[0].Date)
	assert.Equal(t, base, g.FirstVisit)
	assert.Equal(t, base.AddDate(0, 0, 13), g.LastVisit)
}

func TestAggregateGuests_SkipsUnusableRecords(t *testing.T) {
	at := time.Date(2025, time.April, 12, 20, 0, 0, 0, time.UTC)
	reserves := []Reservation{
		res("r1", "", at, 3000),              // no phone: cannot group
		res("r2", "89161234567", at, 0),      // zero amount: not a visit
		{ID: "r3", Phone: "89161234567"},     // no date, no amount
		res("r4", "89161234567", at, 2500),
	}

	guests := AggregateGuests(reserves)
	require.Len(t, guests, 1)
	assert.Equal(t, 1, guests[0].TotalVisits)
	assert.Equal(t, 2500.0, guests[0].TotalRevenue)
}

func TestAggregateGuests_BackfillsNameAndEmail(t *testing.T) {
	at := time.Date(2025, time.April, 12, 20, 0, 0, 0, time.UTC)
	reserves := []Reservation{
		{ID: "r1", Phone: "89161234567", TimeFrom: at, OrderSum: 1000},
		{ID: "r2", Phone: "89161234567", Name: "Anna", Email: "ANNA@Example.com", TimeFrom: at.AddDate(0, 0, 1), OrderSum: 2000},
	}

	guests := AggregateGuests(reserves)
	require.Len(t, guests, 1)
	assert.Equal(t, "Anna", guests[0].Name)
	assert.Equal(t, "anna@example.com", guests[0].Email)
}

func TestAggregateGuests_MergedOverlapCountsOnce(t *testing.T) {
	// A record present in both the fresh fetch and the historical snapshot,
	// under different reservation ids, still yields exactly one visit.
	at := time.Date(2025, time.March, 8, 19, 30, 0, 0, time.UTC)
	fresh := []Reservation{res("api-77", "89161234567", at, 6200)}
	historical := []Reservation{res("hist-3", "+7 916 123-45-67", at, 6200)}

	guests := AggregateGuests(MergeSnapshots(fresh, historical))
	require.Len(t, guests, 1)
	assert.Equal(t, 1, guests[0].TotalVisits)
	assert.Equal(t, 6200.0, guests[0].TotalRevenue)
}
