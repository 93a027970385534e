package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
)

func TestPreferenceDefaultsWhenNeverSaved(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewPreferenceService(testLogger(t))

	pref, err := svc.Get(vc, "irina")
	require.NoError(t, err)
	require.NotNil(t, pref)

	assert.Equal(t, "irina", pref.OperatorID)
	assert.Equal(t, vc.VenueID, pref.VenueID)
	assert.False(t, pref.ROIAlerts)
	assert.False(t, pref.MergeDigest)
	assert.False(t, pref.ReserveDigest)

	_, err = svc.Get(vc, "")
	assert.Error(t, err)
}

func TestPreferenceSaveRoundtripAndUpsert(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewPreferenceService(testLogger(t))

	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID: "irina",
		ROIAlerts:  true,
		Email:      "irina@venue.example",
	}))

	loaded, err := svc.Get(vc, "irina")
	require.NoError(t, err)
	assert.True(t, loaded.ROIAlerts)
	assert.False(t, loaded.MergeDigest)
	assert.Equal(t, "irina@venue.example", loaded.Email)
	assert.False(t, loaded.Changed.IsZero())

	// A second save replaces the row, it never duplicates it.
	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID:  "irina",
		ROIAlerts:   false,
		MergeDigest: true,
		Email:       "irina@venue.example",
	}))

	reloaded, err := svc.Get(vc, "irina")
	require.NoError(t, err)
	assert.False(t, reloaded.ROIAlerts)
	assert.True(t, reloaded.MergeDigest)

	all, err := vc.PreferenceRepo().FindByVenue(vc.VenueID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Error(t, svc.Save(vc, &repositories.OperatorPreference{}))
}

func TestPreferenceResetRestoresDefaults(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewPreferenceService(testLogger(t))

	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID: "oleg",
		ROIAlerts:  true,
		Email:      "oleg@venue.example",
	}))
	require.NoError(t, svc.Reset(vc, "oleg"))

	pref, err := svc.Get(vc, "oleg")
	require.NoError(t, err)
	assert.False(t, pref.ROIAlerts)
	assert.Empty(t, pref.Email)
}

func TestROIAlertRecipientsNeedOptInAndAddress(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewPreferenceService(testLogger(t))

	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID: "irina", ROIAlerts: true, Email: "irina@venue.example",
	}))
	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID: "oleg", ROIAlerts: false, Email: "oleg@venue.example",
	}))
	require.NoError(t, svc.Save(vc, &repositories.OperatorPreference{
		OperatorID: "mute", ROIAlerts: true,
	}))

	recipients, err := vc.PreferenceRepo().FindROIAlertRecipients(vc.VenueID)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "irina", recipients[0].OperatorID)
}
