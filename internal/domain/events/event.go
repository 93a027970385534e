// Package events provides venue stream event types
package events

import "time"

// Stream event types pushed to connected dashboards.
const (
	TypeMergeStarted   = "merge_started"
	TypeMergeCompleted = "merge_completed"
	TypeReserveSynced  = "reserve_synced"
	TypeROIAlert       = "roi_alert"
	TypeSegmentChanged = "segment_changed"
)

// Event is one dashboard stream event. Payload carries the event specific
// fields and is marshaled as-is into the stream frame.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	VenueID string         `json:"venueId"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}
