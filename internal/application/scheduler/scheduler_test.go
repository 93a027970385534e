package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
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

func newTestScheduler(t *testing.T) (*Scheduler, *recordingBroadcaster) {
	t.Helper()
	logger := testLogger(t)
	broadcaster := &recordingBroadcaster{}

	enricher := services.NewEnrichmentService(logger)
	merge := services.NewMergeService(enricher, broadcaster, logger)
	reserveSvc := services.NewReserveService(broadcaster, logger)
	reports := services.NewReportService(logger)
	alerts := services.NewAlertService(reports, broadcaster, logger)
	sources := services.NewSourceFactory(logger)

	return New(nil, merge, reserveSvc, alerts, sources, logger), broadcaster
}

func TestMergeSweepSkipsVenueWithoutSources(t *testing.T) {
	vc := newTestVenue(t)
	sched, broadcaster := newTestScheduler(t)

	require.NoError(t, sched.RunMergeSweep(vc))

	runs, err := vc.MergeRunRepo().FindRecent(vc.VenueID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "no sources configured, so no run should be recorded")
	assert.Empty(t, broadcaster.eventTypes())
}

func TestReserveSweepSkipsVenueWithoutBookingAPI(t *testing.T) {
	vc := newTestVenue(t)
	sched, broadcaster := newTestScheduler(t)

	require.NoError(t, sched.RunReserveSweep(vc))

	snapshot, err := vc.ReservationRepo().FindAll(vc.VenueID)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.Empty(t, broadcaster.eventTypes())
}

func TestAlertSweepRaisesROIBreaches(t *testing.T) {
	vc := newTestVenue(t)
	sched, broadcaster := newTestScheduler(t)

	// Seeded channels all carry spend and no revenue, so every one breaches.
	require.NoError(t, sched.RunAlertSweep(vc))

	assert.Contains(t, broadcaster.eventTypes(), events.TypeROIAlert)
}

func TestStartReturnsWhenSchedulerDisabled(t *testing.T) {
	prev := config.SchedulerEnabled
	config.SchedulerEnabled = false
	t.Cleanup(func() { config.SchedulerEnabled = prev })

	sched, _ := newTestScheduler(t)

	done := make(chan struct{})
	go func() {
		sched.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start should return immediately when the scheduler is disabled")
	}
}
