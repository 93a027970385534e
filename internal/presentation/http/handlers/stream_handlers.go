package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	maxStreamConnections = 100 // Per process, across all venues

	opsWriteWait  = 10 * time.Second
	opsPongWait   = 60 * time.Second
	opsPingPeriod = (opsPongWait * 9) / 10
)

var activeStreamConnections int64

// Origin enforcement happens in the domain validation middleware before the
// upgrade is attempted.
var opsBoardUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandlers contains the live event stream HTTP handlers
type StreamHandlers struct {
	broadcaster *messaging.EventBroadcaster
	opsBoard    *messaging.OpsBoardBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewStreamHandlers creates stream handlers with injected dependencies
func NewStreamHandlers(
	broadcaster *messaging.EventBroadcaster,
	opsBoard *messaging.OpsBoardBroadcaster,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *StreamHandlers {
	return &StreamHandlers{
		broadcaster: broadcaster,
		opsBoard:    opsBoard,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetEventStream handles GET /api/v1/stream - establishes a Server-Sent Events connection
func (h *StreamHandlers) GetEventStream(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_event_stream_request", venueCtx.VenueID)
	defer marker.Complete()
	h.logger.Stream().Debug("Received stream connection request", "method", c.Request.Method, "path", c.Request.URL.Path, "venueId", venueCtx.VenueID)

	currentConnections := atomic.LoadInt64(&activeStreamConnections)
	if currentConnections >= maxStreamConnections {
		h.logger.Stream().Warn("Stream connection limit reached",
			"venueId", venueCtx.VenueID,
			"currentConnections", currentConnections,
			"maxConnections", maxStreamConnections)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Stream connection limit reached. Please try again later.",
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := h.broadcaster.AddClient(venueCtx.VenueID)

	atomic.AddInt64(&activeStreamConnections, 1)
	defer func() {
		atomic.AddInt64(&activeStreamConnections, -1)
		h.broadcaster.RemoveClient(ch, venueCtx.VenueID)
	}()

	// Send initial connection confirmation
	connected := fmt.Sprintf("data: {\"type\":\"connected\",\"venueId\":\"%s\",\"timestamp\":\"%s\"}\n\n", venueCtx.VenueID, time.Now().Format(time.RFC3339))
	if _, err := c.Writer.WriteString(connected); err != nil {
		h.logger.Stream().Error("Stream initial write failed", "venueId", venueCtx.VenueID, "error", err.Error())
		return
	}
	c.Writer.Flush()

	clientCtx := c.Request.Context()

	h.logger.Stream().Info("Stream connection established",
		"venueId", venueCtx.VenueID,
		"venueConnections", h.broadcaster.GetConnectionCount(venueCtx.VenueID),
		"totalConnections", atomic.LoadInt64(&activeStreamConnections),
		"setupDuration", time.Since(start))

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for GetEventStream request", "duration", marker.Duration, "venueId", venueCtx.VenueID, "success", true)

	// Keep connection alive and relay broadcast events
	ticker := time.NewTicker(30 * time.Second) // Heartbeat every 30 seconds
	defer ticker.Stop()

	connectionStart := time.Now()
	for {
		select {
		case <-clientCtx.Done():
			h.logger.Stream().Info("Stream client disconnected",
				"venueId", venueCtx.VenueID,
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				h.logger.Stream().Info("Stream channel closed",
					"venueId", venueCtx.VenueID,
					"connectionDuration", time.Since(connectionStart))
				return
			}

			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.Stream().Error("Stream write failed",
					"venueId", venueCtx.VenueID,
					"error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			heartbeat := fmt.Sprintf("data: {\"type\":\"heartbeat\",\"timestamp\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
			if _, err := c.Writer.WriteString(heartbeat); err != nil {
				h.logger.Stream().Error("Stream heartbeat failed",
					"venueId", venueCtx.VenueID,
					"error", err.Error())
				return
			}
			c.Writer.Flush()
		}
	}
}

// GetOpsBoard handles GET /api/v1/stream/opsboard - upgrades to a websocket
// carrying the live guest board
func (h *StreamHandlers) GetOpsBoard(c *gin.Context) {
	venueCtx, exists := middleware.GetVenueContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "venue context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("get_ops_board_request", venueCtx.VenueID)
	defer marker.Complete()

	conn, err := opsBoardUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Stream().Error("Ops board upgrade failed", "venueId", venueCtx.VenueID, "error", err.Error())
		marker.SetSuccess(false)
		return
	}

	client := &messaging.OpsClient{
		Conn:    conn,
		VenueID: venueCtx.VenueID,
		Send:    make(chan []byte, 8),
	}
	h.opsBoard.Register(client)

	h.logger.Stream().Info("Ops board connection established", "venueId", venueCtx.VenueID)
	marker.SetSuccess(true)

	go h.opsBoardWritePump(client)
	go h.opsBoardReadPump(client)
}

// opsBoardReadPump drains inbound frames until the peer goes away. The board
// is one-directional, so everything read is discarded.
func (h *StreamHandlers) opsBoardReadPump(client *messaging.OpsClient) {
	defer func() {
		h.opsBoard.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(opsPongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(opsPongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Stream().Warn("Ops board read error", "venueId", client.VenueID, "error", err.Error())
			}
			return
		}
	}
}

// opsBoardWritePump relays board payloads to the peer and keeps the
// connection alive with pings.
func (h *StreamHandlers) opsBoardWritePump(client *messaging.OpsClient) {
	ticker := time.NewTicker(opsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(opsWriteWait))
			if !ok {
				// The broadcaster closed the channel on unregister
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Stream().Debug("Ops board write failed", "venueId", client.VenueID, "error", err.Error())
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(opsWriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
