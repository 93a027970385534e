// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
)

// EventBroadcaster manages venue-scoped SSE connections for operator dashboards.
type EventBroadcaster struct {
	venueClients map[string][]chan string // venueId -> []channels
	mu           sync.Mutex
	logger       *logging.ChanneledLogger
}

var (
	globalBroadcaster *EventBroadcaster
	once              sync.Once
)

// NewEventBroadcaster creates the singleton EventBroadcaster instance.
func NewEventBroadcaster(logger *logging.ChanneledLogger) *EventBroadcaster {
	once.Do(func() {
		globalBroadcaster = &EventBroadcaster{
			venueClients: make(map[string][]chan string),
			logger:       logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new stream client for a venue.
func (b *EventBroadcaster) AddClient(venueID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.venueClients[venueID] = append(b.venueClients[venueID], ch)

	b.logger.Stream().Debug("Stream client registered", "venueId", venueID)
	return ch
}

// RemoveClient removes a stream client from a venue.
func (b *EventBroadcaster) RemoveClient(ch chan string, venueID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, exists := b.venueClients[venueID]; exists {
		newClients := make([]chan string, 0, len(clients)-1)
		for _, client := range clients {
			if client != ch {
				newClients = append(newClients, client)
			}
		}
		b.venueClients[venueID] = newClients

		if len(b.venueClients[venueID]) == 0 {
			delete(b.venueClients, venueID)
		}
	}
	b.logger.Stream().Debug("Stream client unregistered", "venueId", venueID)
}

// GetConnectionCount returns the connection count for a venue.
func (b *EventBroadcaster) GetConnectionCount(venueID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.venueClients[venueID])
}

// BroadcastEvent sends an event to every dashboard watching the venue.
func (b *EventBroadcaster) BroadcastEvent(venueID string, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Stream().Error("Panic recovered in BroadcastEvent", "error", r, "venueId", venueID, "event", event.Type)
		}
	}()

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Stream().Error("Failed to marshal stream event", "error", err, "venueId", venueID, "event", event.Type)
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.venueClients[venueID]
	for _, ch := range clients {
		select {
		case ch <- message:
		default:
			b.logger.Stream().Warn("Stream channel full, event dropped", "venueId", venueID, "event", event.Type)
		}
	}
	b.logger.LogStreamEvent(event.Type, venueID, len(clients))
}
