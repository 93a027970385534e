package services

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
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

// newTestVenue builds a venue context backed by an in-memory ledger with the
// full schema and the default channel seed.
func newTestVenue(t *testing.T) *venue.Context {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	// A second pooled connection would see an empty in-memory database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	creator := database.NewTableCreator()
	if err := creator.CreateSchema(conn); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if err := creator.SeedInitialContent(conn); err != nil {
		t.Fatalf("seed channels: %v", err)
	}

	logger := testLogger(t)
	cacheManager := manager.NewManager(logger)

	const venueID = "venue-1"
	cacheManager.InitializeVenue(venueID)

	return &venue.Context{
		VenueID: venueID,
		Status:  "active",
		Config: &venue.Config{
			VenueID:   venueID,
			JWTSecret: "test-signing-secret",
		},
		Database: &venue.Database{
			Conn:    conn,
			VenueID: venueID,
		},
		CacheManager: cacheManager,
		Logger:       logger,
	}
}

// stubSource is a canned lead source.
type stubSource struct {
	name    string
	records []lead.RawLead
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchNewRecords(ctx context.Context, since time.Time) ([]lead.RawLead, error) {
	s.calls++
	return s.records, s.err
}

// stubLookup answers metrics lookups from a fixed table and counts how many
// ids were asked for.
type stubLookup struct {
	mu      sync.Mutex
	metrics map[string]lead.WebMetrics
	errs    map[string]error
	asked   []string
}

func (s *stubLookup) FetchMetrics(ctx context.Context, externalClientID string, from, to time.Time) (lead.WebMetrics, error) {
	s.mu.Lock()
	s.asked = append(s.asked, externalClientID)
	s.mu.Unlock()

	if err, ok := s.errs[externalClientID]; ok {
		return lead.WebMetrics{}, err
	}
	return s.metrics[externalClientID], nil
}

func (s *stubLookup) askedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.asked)
}

// stubFetcher is a canned booking-system client.
type stubFetcher struct {
	reservations []reserve.Reservation
	err          error
	daysBack     int
}

func (s *stubFetcher) FetchReserves(ctx context.Context, daysBack int) ([]reserve.Reservation, error) {
	s.daysBack = daysBack
	return s.reservations, s.err
}

// recordingBroadcaster captures broadcast events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBroadcaster) AddClient(venueID string) chan string { return make(chan string, 1) }

func (b *recordingBroadcaster) RemoveClient(ch chan string, venueID string) {}

func (b *recordingBroadcaster) GetConnectionCount(venueID string) int { return 0 }

func (b *recordingBroadcaster) BroadcastEvent(venueID string, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.Type)
	}
	return types
}

func (b *recordingBroadcaster) lastEvent() (events.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return events.Event{}, false
	}
	return b.events[len(b.events)-1], true
}
