// Package interfaces defines cache operation contracts for multi-venue lead reconciliation.
package interfaces

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/types"
)

// LedgerCache defines operations for lead, client, and channel caching
type LedgerCache interface {
	GetLead(venueID, leadID string) (*lead.Lead, bool)
	SetLead(venueID string, l *lead.Lead)
	RemoveLead(venueID, leadID string)
	GetLeadIDsByClientKey(venueID, clientKey string) ([]string, bool)
	GetAllLeadIDs(venueID string) ([]string, bool)
	SetAllLeadIDs(venueID string, ids []string)
	GetClient(venueID, id string) (*client.CanonicalClient, bool)
	GetClientByKey(venueID, clientKey string) (*client.CanonicalClient, bool)
	SetClient(venueID string, c *client.CanonicalClient)
	RemoveClient(venueID, id string)
	GetAllClientIDs(venueID string) ([]string, bool)
	SetAllClientIDs(venueID string, ids []string)
	GetChannel(venueID, name string) (*channel.Channel, bool)
	SetChannel(venueID string, ch *channel.Channel)
	GetAllChannels(venueID string) ([]*channel.Channel, bool)
	SetLastMergeRun(venueID string)
	GetLastMergeRun(venueID string) (int64, bool)
	InvalidateLedgerCache(venueID string)
}

// ReportCache defines operations for computed report caching
type ReportCache interface {
	GetReport(venueID, reportKey string) (*types.ReportEntry, bool)
	SetReport(venueID, reportKey string, payload any, etag string)
	InvalidateReports(venueID string)
	GetGuestProfiles(venueID string) ([]reserve.GuestProfile, bool)
	SetGuestProfiles(venueID string, profiles []reserve.GuestProfile)
	InvalidateGuestProfiles(venueID string)
	GetDedupKeys(venueID string) (map[string]bool, bool)
	SetDedupKeys(venueID string, keys map[string]bool)
	AddDedupKey(venueID, key string)
	PurgeExpiredReports(venueID string) int
}

// Cache is the main interface that combines all cache operations
type Cache interface {
	LedgerCache
	ReportCache
	InitializeVenue(venueID string)
	InvalidateVenue(venueID string)
	GetVenueStats(venueID string) CacheStats
	GetMemoryStats() map[string]any
	ActiveVenues() []string
	InvalidateAll()
	Health() map[string]any
}

// ReadOnlyReportCache prevents report consumers from writing to cache
type ReadOnlyReportCache interface {
	GetReport(venueID, reportKey string) (*types.ReportEntry, bool)
	GetGuestProfiles(venueID string) ([]reserve.GuestProfile, bool)
	GetDedupKeys(venueID string) (map[string]bool, bool)
}

// WriteOnlyReportCache prevents background sweeps from reading during computation
type WriteOnlyReportCache interface {
	SetReport(venueID, reportKey string, payload any, etag string)
	SetGuestProfiles(venueID string, profiles []reserve.GuestProfile)
	SetDedupKeys(venueID string, keys map[string]bool)
	InvalidateReports(venueID string)
	InvalidateGuestProfiles(venueID string)
}

type CacheStats struct {
	Leads         int   `json:"leads"`
	Clients       int   `json:"clients"`
	Channels      int   `json:"channels"`
	Reports       int   `json:"reports"`
	GuestProfiles int   `json:"guestProfiles"`
	DedupKeys     int   `json:"dedupKeys"`
	MemoryBytes   int64 `json:"memoryBytes"`
}
