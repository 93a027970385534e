package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormsReaderFetchNewRecords(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2024-03-15 10:30:00","name":"Anna","phone":"+7 916 123-45-67","email":"anna@example.com",
			 "utm_source":"yandex","utm_medium":"cpc","utm_campaign":"spring","utm_content":"banner","utm_term":"dinner",
			 "ga_client_id":"GA1.2.3","ym_client_id":"17263541","form_name":"Booking","button_text":"Reserve"},
			{"date":"garbage","name":"Boris","phone":"89161112233","email":""}
		]`))
	}))
	defer server.Close()

	reader := NewFormsReader(NewHTTPClient(time.Second), server.URL, "key-123", "venue-1", testLogger(t))
	assert.Equal(t, lead.SourceSite, reader.Name())

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	raws, err := reader.FetchNewRecords(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Contains(t, gotQuery, "api_key=key-123")
	assert.Contains(t, gotQuery, "since=2024-03-01T00%3A00%3A00Z")

	first := raws[0]
	assert.Equal(t, lead.SourceSite, first.Source)
	assert.Equal(t, "Anna", first.Name)
	assert.Equal(t, "+7 916 123-45-67", first.Phone)
	assert.Equal(t, "17263541", first.ExternalClientA)
	assert.Equal(t, "GA1.2.3", first.ExternalClientB)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), first.CaptureTime)
	assert.NotEmpty(t, first.RecordID)

	// Unreadable capture times pass through as zero, they are never dropped.
	assert.True(t, raws[1].CaptureTime.IsZero())
	assert.Equal(t, "Boris", raws[1].Name)
}

func TestFormsReaderAuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	reader := NewFormsReader(NewHTTPClient(time.Second), server.URL, "bad-key", "venue-1", testLogger(t))
	raws, err := reader.FetchNewRecords(context.Background(), time.Time{})
	require.ErrorIs(t, err, lead.ErrUpstreamAuth)
	assert.Nil(t, raws)
}
