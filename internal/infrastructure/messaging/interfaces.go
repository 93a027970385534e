// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/AtRiskMedia/leadledger-go/internal/domain/events"

// Broadcaster defines the interface for managing stream client connections and broadcasting venue events.
type Broadcaster interface {
	AddClient(venueID string) chan string
	RemoveClient(ch chan string, venueID string)
	GetConnectionCount(venueID string) int
	BroadcastEvent(venueID string, event events.Event)
}
