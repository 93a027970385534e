package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationsClientWalksAllPages(t *testing.T) {
	config.ReservePageSize = 2
	config.ReserveFetchRetries = 0

	pages := map[string]string{
		"1": `{"data":[
				{"id":"r1","name":"Anna","phone":"+79161234567","time_from":"2024-03-20 19:00:00","status":"completed","order_sum":4500,"count":2,"source":"site","created_at":"2024-03-10 12:00:00","updated_at":"2024-03-20 21:00:00"},
				{"id":"r2","name":"Boris","phone":"89167654321","time_from":"2024-03-21 20:00:00","status":"completed","order_sum":3200,"count":4,"source":"phone","created_at":"2024-03-11 09:00:00","updated_at":"2024-03-21 22:00:00"}
			],"pagination":{"current_page":1,"total_pages":2}}`,
		"2": `{"data":[
				{"id":"r3","name":"Vera","phone":"+79160000001","time_from":"2024-03-22 18:00:00","status":"cancelled","order_sum":0,"count":3,"source":"site","created_at":"2024-03-12 15:00:00","updated_at":"2024-03-22 19:00:00"}
			],"pagination":{"current_page":2,"total_pages":2}}`,
	}

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		requests = append(requests, fmt.Sprintf("page=%s limit=%s key=%s",
			page, r.URL.Query().Get("limit"), r.URL.Query().Get("api_key")))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pages[page]))
	}))
	defer server.Close()

	client := NewReservationsClient(NewHTTPClient(time.Second), server.URL, "rp-key", "venue-1", testLogger(t))
	reserves, err := client.FetchReserves(context.Background(), 45)
	require.NoError(t, err)
	require.Len(t, reserves, 3)

	require.Len(t, requests, 2)
	assert.Equal(t, "page=1 limit=2 key=rp-key", requests[0])
	assert.Equal(t, "page=2 limit=2 key=rp-key", requests[1])

	first := reserves[0]
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, 2, first.PartySize)
	assert.Equal(t, 4500.0, first.OrderSum)
	assert.Equal(t, time.Date(2024, 3, 20, 19, 0, 0, 0, time.UTC), first.TimeFrom)
	assert.Equal(t, "cancelled", reserves[2].Status)
}

func TestReservationsClientKeepsPartialOnPageFailure(t *testing.T) {
	config.ReservePageSize = 1
	config.ReserveFetchRetries = 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`{"data":[{"id":"r1","name":"Anna","phone":"+79161234567","time_from":"2024-03-20 19:00:00","status":"completed","order_sum":1000,"count":2}],"pagination":{"current_page":1,"total_pages":3}}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewReservationsClient(NewHTTPClient(time.Second), server.URL, "rp-key", "venue-1", testLogger(t))
	reserves, err := client.FetchReserves(context.Background(), 45)
	require.Error(t, err)
	// The first page's records survive the second page's failure.
	require.Len(t, reserves, 1)
	assert.Equal(t, "r1", reserves[0].ID)
}

func TestReservationsClientAuthFailureAborts(t *testing.T) {
	config.ReservePageSize = 1
	config.ReserveFetchRetries = 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewReservationsClient(NewHTTPClient(time.Second), server.URL, "bad", "venue-1", testLogger(t))
	reserves, err := client.FetchReserves(context.Background(), 45)
	require.ErrorIs(t, err, lead.ErrUpstreamAuth)
	assert.Nil(t, reserves)
}
