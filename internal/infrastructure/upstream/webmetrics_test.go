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

func TestWebMetricsClientMapsValues(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"metrics":[12,47,25.5,183.2]}]}`))
	}))
	defer server.Close()

	client := NewWebMetricsClient(NewHTTPClient(time.Second), server.URL, "oauth-token", "1234567", "venue-1", testLogger(t))

	from := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	metrics, err := client.FetchMetrics(context.Background(), "17263541", from, to)
	require.NoError(t, err)

	assert.Equal(t, 12, metrics.Visits)
	assert.Equal(t, 47, metrics.PageViews)
	assert.Equal(t, 25.5, metrics.BounceRate)
	assert.Equal(t, 183.2, metrics.AvgDuration)

	assert.Equal(t, "OAuth oauth-token", gotAuth)
	assert.Contains(t, gotQuery, "id=1234567")
	assert.Contains(t, gotQuery, "date1=2024-02-14")
	assert.Contains(t, gotQuery, "date2=2024-03-15")
	assert.Contains(t, gotQuery, "17263541")
}

func TestWebMetricsClientNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewWebMetricsClient(NewHTTPClient(time.Second), server.URL, "tok", "1", "venue-1", testLogger(t))
	metrics, err := client.FetchMetrics(context.Background(), "unknown-visitor", time.Now().AddDate(0, 0, -30), time.Now())
	require.ErrorIs(t, err, lead.ErrNoData)
	assert.True(t, metrics.IsZero())
}

func TestWebMetricsClientAuthRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewWebMetricsClient(NewHTTPClient(time.Second), server.URL, "expired", "1", "venue-1", testLogger(t))
	_, err := client.FetchMetrics(context.Background(), "17263541", time.Now().AddDate(0, 0, -30), time.Now())
	require.ErrorIs(t, err, lead.ErrUpstreamAuth)
}
