package messaging

import (
	"encoding/json"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
	"github.com/gorilla/websocket"
)

// OpsClient represents a single connected ops dashboard client.
type OpsClient struct {
	Conn    *websocket.Conn
	VenueID string
	Send    chan []byte
}

// GuestState represents one guest on the board, colored by segment and faded
// by visit recency.
type GuestState struct {
	Segment   string    `json:"segment"`
	IsVIP     bool      `json:"isVip"`
	LastVisit time.Time `json:"lastVisit"`
}

// GuestBoardPayload is the complete data structure sent to the frontend on each tick.
type GuestBoardPayload struct {
	GuestStates    []GuestState `json:"guestStates"`
	DisplayMode    string       `json:"displayMode"` // "1:1" or "PROPORTIONAL"
	TotalCount     int          `json:"totalCount"`
	VIPCount       int          `json:"vipCount"`
	RegularCount   int          `json:"regularCount"`
	ActiveCount    int          `json:"activeCount"`
	NewCount       int          `json:"newCount"`
	PotentialCount int          `json:"potentialCount"`
}

// guestStats holds the raw per-segment counts for proportional calculation.
type guestStats struct{ Total, VIP, Regular, Active, New, Potential int }

// OpsBoardBroadcaster manages all connected ops dashboard clients and
// broadcasts the guest board for each venue on a fixed tick.
type OpsBoardBroadcaster struct {
	venueClients map[string]map[*OpsClient]bool
	register     chan *OpsClient
	unregister   chan *OpsClient
	venueManager *venue.Manager
	mu           sync.RWMutex
}

// NewOpsBoardBroadcaster creates a new broadcaster instance.
func NewOpsBoardBroadcaster(vm *venue.Manager) *OpsBoardBroadcaster {
	return &OpsBoardBroadcaster{
		venueClients: make(map[string]map[*OpsClient]bool),
		register:     make(chan *OpsClient),
		unregister:   make(chan *OpsClient),
		venueManager: vm,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *OpsBoardBroadcaster) Run() {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.venueClients[client.VenueID]; !ok {
				b.venueClients[client.VenueID] = make(map[*OpsClient]bool)
			}
			b.venueClients[client.VenueID][client] = true
			log.Printf("Ops board client registered for venue: %s", client.VenueID)
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.venueClients[client.VenueID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.venueClients, client.VenueID)
					}
				}
			}
			log.Printf("Ops board client unregistered for venue: %s", client.VenueID)
			b.mu.Unlock()

		case <-ticker.C:
			b.broadcastGuestBoards()
		}
	}
}

// Register queues a client for registration.
func (b *OpsBoardBroadcaster) Register(client *OpsClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *OpsBoardBroadcaster) Unregister(client *OpsClient) {
	b.unregister <- client
}

// broadcastGuestBoards gathers and sends the guest board for all venues with active clients.
func (b *OpsBoardBroadcaster) broadcastGuestBoards() {
	b.mu.RLock()
	venueIDs := make([]string, 0, len(b.venueClients))
	for venueID := range b.venueClients {
		venueIDs = append(venueIDs, venueID)
	}
	b.mu.RUnlock()

	for _, venueID := range venueIDs {
		fullBoard := b.getGuestStatesForVenue(venueID)
		payload := b.preparePayload(fullBoard)

		message, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Error marshaling guest board for venue %s: %v", venueID, err)
			continue
		}

		b.mu.RLock()
		if clients, ok := b.venueClients[venueID]; ok {
			for client := range clients {
				select {
				case client.Send <- message:
				default:
				}
			}
		}
		b.mu.RUnlock()
	}
}

// getGuestStatesForVenue reads the client ledger and re-derives each segment.
// The context is shared with request handlers, so it must not be closed here.
func (b *OpsBoardBroadcaster) getGuestStatesForVenue(venueID string) []GuestState {
	ctx, err := b.venueManager.NewContextFromID(venueID)
	if err != nil {
		log.Printf("Ops board broadcaster could not create context for venue %s: %v", venueID, err)
		return []GuestState{}
	}

	guests, err := ctx.ClientRepo().FindAll(venueID)
	if err != nil {
		log.Printf("Ops board broadcaster could not load clients for venue %s: %v", venueID, err)
		return []GuestState{}
	}

	th := client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	}

	states := make([]GuestState, 0, len(guests))
	for _, guest := range guests {
		segment := guest.DeriveSegment(th)
		states = append(states, GuestState{
			Segment:   string(segment),
			IsVIP:     segment == client.SegmentVIP,
			LastVisit: guest.LastVisit,
		})
	}
	return states
}

// preparePayload handles the logic for proportional scaling.
func (b *OpsBoardBroadcaster) preparePayload(fullBoard []GuestState) GuestBoardPayload {
	stats := b.calculateStats(fullBoard)
	var displayStates []GuestState
	displayMode := "1:1"

	// Switch to proportional mode when the ledger outgrows the board
	if stats.Total > 200 {
		displayMode = "PROPORTIONAL"
		displayStates = b.calculateProportionalStates(fullBoard, 200)
	} else {
		displayStates = fullBoard
	}

	return GuestBoardPayload{
		GuestStates:    displayStates,
		DisplayMode:    displayMode,
		TotalCount:     stats.Total,
		VIPCount:       stats.VIP,
		RegularCount:   stats.Regular,
		ActiveCount:    stats.Active,
		NewCount:       stats.New,
		PotentialCount: stats.Potential,
	}
}

// calculateStats calculates per-segment counts from the full board.
func (b *OpsBoardBroadcaster) calculateStats(fullBoard []GuestState) (stats guestStats) {
	stats.Total = len(fullBoard)
	for _, g := range fullBoard {
		switch client.Segment(g.Segment) {
		case client.SegmentVIP:
			stats.VIP++
		case client.SegmentRegular:
			stats.Regular++
		case client.SegmentActive:
			stats.Active++
		case client.SegmentNew:
			stats.New++
		default:
			stats.Potential++
		}
	}
	return stats
}

// recencyTier buckets a guest by days since the last visit, driving the fade
// applied on the frontend.
func recencyTier(lastVisit time.Time, now time.Time) string {
	if lastVisit.IsZero() {
		return "cold"
	}
	days := now.Sub(lastVisit).Hours() / 24
	switch {
	case days <= 7:
		return "fresh"
	case days <= 30:
		return "recent"
	case days <= 90:
		return "warm"
	case days <= 180:
		return "cool"
	default:
		return "cold"
	}
}

// calculateProportionalStates compresses the ledger into a fixed number of
// blocks, keeping the segment and recency mix of the full board.
func (b *OpsBoardBroadcaster) calculateProportionalStates(fullBoard []GuestState, displayCount int) []GuestState {
	total := len(fullBoard)
	if total == 0 {
		return []GuestState{}
	}

	now := time.Now()
	// Representative timestamps for each recency tier to trigger the correct CSS on the frontend.
	timeTiers := map[string]time.Time{
		"fresh":  now.AddDate(0, 0, -1),
		"recent": now.AddDate(0, 0, -14),
		"warm":   now.AddDate(0, 0, -60),
		"cool":   now.AddDate(0, 0, -120),
		"cold":   now.AddDate(0, 0, -365),
	}

	segmentOrder := []client.Segment{
		client.SegmentVIP, client.SegmentRegular, client.SegmentActive,
		client.SegmentNew, client.SegmentPotential,
	}
	tierOrder := []string{"fresh", "recent", "warm", "cool", "cold"}

	// 1. Group guests into buckets by segment and recency tier.
	counts := make(map[string]int)
	for _, g := range fullBoard {
		counts[g.Segment+"_"+recencyTier(g.LastVisit, now)]++
	}

	// 2. Build the block list from the calculated proportions.
	proportionalStates := make([]GuestState, 0, displayCount)
	for _, segment := range segmentOrder {
		for _, tier := range tierOrder {
			categoryCount := counts[string(segment)+"_"+tier]
			if categoryCount == 0 {
				continue
			}

			template := GuestState{
				Segment:   string(segment),
				IsVIP:     segment == client.SegmentVIP,
				LastVisit: timeTiers[tier],
			}

			numBlocks := int(math.Round((float64(categoryCount) / float64(total)) * float64(displayCount)))
			for i := 0; i < numBlocks; i++ {
				proportionalStates = append(proportionalStates, template)
			}
		}
	}

	// 3. Sort by segment rank and adjust for rounding errors to keep an exact count.
	rank := make(map[string]int, len(segmentOrder))
	for i, segment := range segmentOrder {
		rank[string(segment)] = i
	}
	sort.SliceStable(proportionalStates, func(i, j int) bool {
		return rank[proportionalStates[i].Segment] < rank[proportionalStates[j].Segment]
	})

	if len(proportionalStates) > displayCount {
		return proportionalStates[:displayCount]
	}
	for len(proportionalStates) < displayCount {
		// Pad with the most common "potential cold" state if we're short due to rounding
		proportionalStates = append(proportionalStates, GuestState{
			Segment:   string(client.SegmentPotential),
			LastVisit: timeTiers["cold"],
		})
	}

	return proportionalStates
}
