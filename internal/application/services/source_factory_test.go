package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

func withUpstreamBases(t *testing.T, forms, social, webmetrics, reservations string) {
	t.Helper()
	prevForms, prevSocial := config.FormsAPIBase, config.SocialAPIBase
	prevWeb, prevReserve := config.WebMetricsAPIBase, config.ReservationsAPIBase
	config.FormsAPIBase = forms
	config.SocialAPIBase = social
	config.WebMetricsAPIBase = webmetrics
	config.ReservationsAPIBase = reservations
	t.Cleanup(func() {
		config.FormsAPIBase = prevForms
		config.SocialAPIBase = prevSocial
		config.WebMetricsAPIBase = prevWeb
		config.ReservationsAPIBase = prevReserve
	})
}

func TestSourceFactoryBuildsConfiguredReaders(t *testing.T) {
	withUpstreamBases(t, "https://forms.example", "https://social.example", "", "")
	vc := newTestVenue(t)
	vc.Config.FormsAPIKey = "forms-key"
	vc.Config.SocialAPIKey = "social-key"
	vc.Config.SocialAccountID = "acct-1"

	factory := NewSourceFactory(testLogger(t))
	readers := factory.Readers(vc)
	require.Len(t, readers, 2)

	// Site submissions hold merge precedence, so the forms reader is first.
	assert.Equal(t, lead.SourceSite, readers[0].Name())
	assert.Equal(t, lead.SourceSocial, readers[1].Name())
}

func TestSourceFactorySkipsUnconfiguredSources(t *testing.T) {
	withUpstreamBases(t, "https://forms.example", "https://social.example", "", "")
	vc := newTestVenue(t)
	// A forms key without the social credentials yields only the forms
	// reader.
	vc.Config.FormsAPIKey = "forms-key"
	vc.Config.SocialAPIKey = "social-key"

	factory := NewSourceFactory(testLogger(t))
	readers := factory.Readers(vc)
	require.Len(t, readers, 1)
	assert.Equal(t, lead.SourceSite, readers[0].Name())

	vc.Config.FormsAPIKey = ""
	vc.Config.SocialAPIKey = ""
	assert.Empty(t, factory.Readers(vc))
}

func TestSourceFactoryOptionalCollaborators(t *testing.T) {
	withUpstreamBases(t, "", "", "https://metrika.example", "https://reserve.example")
	vc := newTestVenue(t)
	factory := NewSourceFactory(testLogger(t))

	assert.Nil(t, factory.MetricsLookup(vc))
	assert.Nil(t, factory.ReserveFetcher(vc))

	vc.Config.WebMetricsToken = "wm-token"
	vc.Config.WebMetricsCounterID = "12345"
	assert.NotNil(t, factory.MetricsLookup(vc))

	vc.Config.ReservationsAPIKey = "rp-key"
	assert.NotNil(t, factory.ReserveFetcher(vc))
}
