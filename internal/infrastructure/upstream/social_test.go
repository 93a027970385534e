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

func TestSocialReaderFetchNewRecords(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"15.03.2024","name":"Dasha","phone":"8 916 555 44 33","email":"","utm_source":"instagram","utm_medium":"social"}
		]`))
	}))
	defer server.Close()

	reader := NewSocialReader(NewHTTPClient(time.Second), server.URL, "tok-9", "acct-42", "venue-1", testLogger(t))
	assert.Equal(t, lead.SourceSocial, reader.Name())

	raws, err := reader.FetchNewRecords(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, raws, 1)

	assert.Equal(t, "/accounts/acct-42/leads", gotPath)
	assert.Equal(t, "Bearer tok-9", gotAuth)

	rec := raws[0]
	assert.Equal(t, lead.SourceSocial, rec.Source)
	assert.Equal(t, "Dasha", rec.Name)
	assert.Empty(t, rec.Email)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), rec.CaptureTime)
	assert.Equal(t, "instagram", rec.UTMSource)
}
