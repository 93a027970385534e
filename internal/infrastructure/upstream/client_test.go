package upstream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError,
		ChannelLevels:   map[logging.Channel]slog.Level{},
	})
	if err != nil {
		t.Fatalf("test logger: %v", err)
	}
	return logger
}

func TestParseCaptureTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15.03.2024 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"15.03.2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := parseCaptureTime(c.in); !got.Equal(c.want) {
			t.Errorf("parseCaptureTime(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if got := parseCaptureTime("not a date"); !got.IsZero() {
		t.Errorf("parseCaptureTime on garbage = %v, want zero", got)
	}
	if got := parseCaptureTime(""); !got.IsZero() {
		t.Errorf("parseCaptureTime on empty = %v, want zero", got)
	}
}

func TestGetJSONMapsAuthFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var out any
	status, err := getJSON(context.Background(), NewHTTPClient(time.Second), server.URL, nil, &out)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if !errors.Is(err, lead.ErrUpstreamAuth) {
		t.Fatalf("err = %v, want ErrUpstreamAuth", err)
	}
}

func TestGetJSONSurfacesBodySnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	var out any
	_, err := getJSON(context.Background(), NewHTTPClient(time.Second), server.URL, nil, &out)
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if got := err.Error(); !strings.Contains(got, "upstream exploded") {
		t.Errorf("error %q does not carry the body snippet", got)
	}
}

func TestGetJSONSetsHeaders(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var out map[string]any
	if _, err := getJSON(context.Background(), NewHTTPClient(time.Second), server.URL,
		map[string]string{"Authorization": "Bearer abc"}, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if seen != "Bearer abc" {
		t.Errorf("Authorization header = %q", seen)
	}
}
