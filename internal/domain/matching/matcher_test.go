package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

func guestFixture() []reserve.GuestProfile {
	first := time.Date(2025, time.February, 1, 19, 0, 0, 0, time.UTC)
	last := time.Date(2025, time.May, 20, 20, 0, 0, 0, time.UTC)
	return []reserve.GuestProfile{
		{
			Name:  "Olga",
			Phone: "79161234567",
			Email: "olga@example.com",
			Visits: []client.Visit{
				{Date: last, Amount: 5200},
				{Date: first, Amount: 4100},
			},
			TotalVisits:  2,
			TotalRevenue: 9300,
			FirstVisit:   first,
			LastVisit:    last,
		},
		{
			Name:         "Pavel",
			Phone:        "79031112233",
			Email:        "pavel@example.com",
			TotalVisits:  1,
			TotalRevenue: 2500,
		},
	}
}

func TestMatch_ByPhoneSuffix(t *testing.T) {
	m := NewMatcher(guestFixture())

	for _, phone := range []string{"89161234567", "+79161234567", "9161234567"} {
		g, ok := m.Match(phone, "")
		require.True(t, ok, "phone %s should match", phone)
		assert.Equal(t, "Olga", g.Name)
	}
}

func TestMatch_ByEmailWhenPhoneUnknown(t *testing.T) {
	m := NewMatcher(guestFixture())

	g, ok := m.Match("89998887766", "PAVEL@example.com")
	require.True(t, ok)
	assert.Equal(t, "Pavel", g.Name)
}

func TestMatch_FirstProfileWinsOnConflict(t *testing.T) {
	m := NewMatcher(guestFixture())

	// Phone points at Pavel, email at Olga; Olga appears first in the input.
	g, ok := m.Match("79031112233", "olga@example.com")
	require.True(t, ok)
	assert.Equal(t, "Olga", g.Name)
}

func TestMatch_NoMatch(t *testing.T) {
	m := NewMatcher(guestFixture())

	_, ok := m.Match("80000000000", "stranger@example.com")
	assert.False(t, ok)

	_, ok = m.Match("", "")
	assert.False(t, ok)
}

func TestEnrich_CopiesHistory(t *testing.T) {
	guests := guestFixture()
	c := &client.CanonicalClient{ID: "LEAD_7"}

	Enrich(c, guests[0])

	assert.Equal(t, 2, c.TotalVisits)
	assert.Equal(t, 9300.0, c.TotalRevenue)
	assert.Equal(t, guests[0].FirstVisit, c.FirstVisit)
	assert.Equal(t, guests[0].LastVisit, c.LastVisit)
	require.Len(t, c.VisitHistory, 2)
	assert.Equal(t, 5200.0, c.VisitHistory[0].Amount)
	assert.Equal(t, "Olga", c.DisplayName)

	// The copy is independent of the source profile.
	c.VisitHistory[0].Amount = 1
	assert.Equal(t, 5200.0, guests[0].Visits[0].Amount)
}

func TestEnrich_KeepsExistingDisplayName(t *testing.T) {
	c := &client.CanonicalClient{DisplayName: "O. Smirnova"}
	Enrich(c, guestFixture()[0])
	assert.Equal(t, "O. Smirnova", c.DisplayName)
}
