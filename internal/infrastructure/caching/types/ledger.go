// Package types defines cache data structures for multi-venue ledger and report data.
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
)

// VenueLedgerCache holds merged leads, canonical clients, and channel
// definitions for a single venue
type VenueLedgerCache struct {
	Leads            map[string]*lead.Lead // leadId -> lead
	LeadIDsByKey     map[string][]string   // clientKey -> []leadId
	AllLeadIDs       []string              // cached list of all lead IDs

	Clients       map[string]*client.CanonicalClient // id -> client
	ClientIDByKey map[string]string                  // clientKey -> id
	AllClientIDs  []string                           // cached list of all client IDs

	Channels map[string]*channel.Channel // name -> channel

	// Cache metadata
	LastMergeRun time.Time
	LastUpdated  time.Time
	Mu           sync.RWMutex // Exported for access
}

// VenueReportCache holds computed report payloads, aggregated guest
// profiles, and the dedup key set for a single venue
type VenueReportCache struct {
	Reports map[string]*ReportEntry // reportKey -> entry

	// Guest aggregation snapshot (longer TTL)
	GuestProfiles    []reserve.GuestProfile
	GuestsComputedAt time.Time

	// Historical dedup keys for merge runs (longest TTL)
	DedupKeys       map[string]bool
	DedupComputedAt time.Time

	// Cache metadata
	LastUpdated time.Time
	Mu          sync.RWMutex // Exported for access
}

// ReportEntry represents a cached report payload with freshness metadata
type ReportEntry struct {
	Payload    any       `json:"payload"`
	ETag       string    `json:"etag"`
	ComputedAt time.Time `json:"computedAt"`
}
