package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSpendAdjustsExistingChannel(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewChannelService(testLogger(t))

	updated, err := svc.UpdateSpend(vc, "Yandex", 75000, true)
	require.NoError(t, err)
	assert.InDelta(t, 75000, updated.MonthlyCost, 0.01)
	assert.True(t, updated.IsActive)

	loaded, err := svc.Get(vc, "Yandex")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.InDelta(t, 75000, loaded.MonthlyCost, 0.01)
}

func TestUpdateSpendCreatesUnknownChannel(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewChannelService(testLogger(t))

	before, err := svc.List(vc)
	require.NoError(t, err)

	created, err := svc.UpdateSpend(vc, "Billboard", 12000, true)
	require.NoError(t, err)
	assert.Equal(t, "Billboard", created.Name)
	assert.InDelta(t, 12000, created.MonthlyCost, 0.01)

	after, err := svc.List(vc)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestUpdateSpendValidatesInput(t *testing.T) {
	vc := newTestVenue(t)
	svc := NewChannelService(testLogger(t))

	_, err := svc.UpdateSpend(vc, "", 1000, true)
	assert.Error(t, err)

	_, err = svc.UpdateSpend(vc, "Yandex", -1, true)
	assert.Error(t, err)

	_, err = svc.Get(vc, "")
	assert.Error(t, err)
}

func TestUpdateSpendInvalidatesReportCache(t *testing.T) {
	vc := newTestVenue(t)
	channels := NewChannelService(testLogger(t))
	reports := NewReportService(testLogger(t))

	seedConvertedChannel(t, vc, "LEAD_1", "Yandex", "89161234567", 6000)

	rows, before, err := reports.Channels(vc, 30)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	_, err = channels.UpdateSpend(vc, "Yandex", 6000, true)
	require.NoError(t, err)

	// The cached rollup was dropped, so the next read reprices CAC from the
	// new spend figure.
	fresh, after, err := reports.Channels(vc, 30)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	for _, row := range fresh {
		if row.Name == "Yandex" {
			assert.InDelta(t, 6000, row.CAC, 0.01)
			assert.InDelta(t, 0.0, row.ROI, 0.0001)
		}
	}
}
