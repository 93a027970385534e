package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// ReportsStore implements computed report caching operations with venue isolation.
// Entries carry a ComputedAt stamp and expire against the TTLs in pkg/config.
type ReportsStore struct {
	venueCaches map[string]*types.VenueReportCache
	mu          sync.RWMutex
}

// NewReportsStore creates a new report cache store
func NewReportsStore() *ReportsStore {
	return &ReportsStore{
		venueCaches: make(map[string]*types.VenueReportCache),
	}
}

// InitializeVenue creates cache structures for a venue
func (rs *ReportsStore) InitializeVenue(venueID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.venueCaches[venueID] == nil {
		rs.venueCaches[venueID] = &types.VenueReportCache{
			Reports:     make(map[string]*types.ReportEntry),
			DedupKeys:   nil,
			LastUpdated: time.Now().UTC(),
		}
	}
}

// GetVenueCache safely retrieves a venue's report cache
func (rs *ReportsStore) GetVenueCache(venueID string) (*types.VenueReportCache, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	cache, exists := rs.venueCaches[venueID]
	return cache, exists
}

// DropVenue removes a venue's report cache entirely
func (rs *ReportsStore) DropVenue(venueID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.venueCaches, venueID)
}

// =============================================================================
// Report Payload Operations
// =============================================================================

// GetReport retrieves a cached report entry, honoring the report TTL
func (rs *ReportsStore) GetReport(venueID, reportKey string) (*types.ReportEntry, bool) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	entry, exists := cache.Reports[reportKey]
	if !exists {
		return nil, false
	}
	if time.Since(entry.ComputedAt) > config.ReportCacheTTL {
		return nil, false
	}
	return entry, true
}

// SetReport stores a computed report payload
func (rs *ReportsStore) SetReport(venueID, reportKey string, payload any, etag string) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		rs.InitializeVenue(venueID)
		cache, _ = rs.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Reports[reportKey] = &types.ReportEntry{
		Payload:    payload,
		ETag:       etag,
		ComputedAt: time.Now().UTC(),
	}
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateReports clears every cached report payload for a venue
func (rs *ReportsStore) InvalidateReports(venueID string) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Reports = make(map[string]*types.ReportEntry)
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Guest Profile Operations
// =============================================================================

// GetGuestProfiles retrieves the aggregated guest snapshot, honoring its TTL
func (rs *ReportsStore) GetGuestProfiles(venueID string) ([]reserve.GuestProfile, bool) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.GuestProfiles == nil {
		return nil, false
	}
	if time.Since(cache.GuestsComputedAt) > config.GuestProfileTTL {
		return nil, false
	}
	return cache.GuestProfiles, true
}

// SetGuestProfiles stores the aggregated guest snapshot
func (rs *ReportsStore) SetGuestProfiles(venueID string, profiles []reserve.GuestProfile) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		rs.InitializeVenue(venueID)
		cache, _ = rs.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.GuestProfiles = profiles
	cache.GuestsComputedAt = time.Now().UTC()
	cache.LastUpdated = cache.GuestsComputedAt
}

// InvalidateGuestProfiles drops the aggregated guest snapshot
func (rs *ReportsStore) InvalidateGuestProfiles(venueID string) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.GuestProfiles = nil
	cache.GuestsComputedAt = time.Time{}
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Dedup Key Operations
// =============================================================================

// GetDedupKeys retrieves the historical dedup key set, honoring its TTL
func (rs *ReportsStore) GetDedupKeys(venueID string) (map[string]bool, bool) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.DedupKeys == nil {
		return nil, false
	}
	if time.Since(cache.DedupComputedAt) > config.ClientKeysTTL {
		return nil, false
	}
	return cache.DedupKeys, true
}

// SetDedupKeys stores the historical dedup key set
func (rs *ReportsStore) SetDedupKeys(venueID string, keys map[string]bool) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		rs.InitializeVenue(venueID)
		cache, _ = rs.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.DedupKeys = keys
	cache.DedupComputedAt = time.Now().UTC()
	cache.LastUpdated = cache.DedupComputedAt
}

// AddDedupKey appends a single key to the set so accepted leads from the
// current run dedup later runs without a reload
func (rs *ReportsStore) AddDedupKey(venueID, key string) {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.DedupKeys == nil {
		return
	}
	cache.DedupKeys[key] = true
}

// =============================================================================
// Expiry Sweep
// =============================================================================

// PurgeExpired removes expired report entries and stale snapshots,
// returning the number of items evicted
func (rs *ReportsStore) PurgeExpired(venueID string) int {
	cache, exists := rs.GetVenueCache(venueID)
	if !exists {
		return 0
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	var evicted int
	for key, entry := range cache.Reports {
		if time.Since(entry.ComputedAt) > config.ReportCacheTTL {
			delete(cache.Reports, key)
			evicted++
		}
	}
	if cache.GuestProfiles != nil && time.Since(cache.GuestsComputedAt) > config.GuestProfileTTL {
		cache.GuestProfiles = nil
		cache.GuestsComputedAt = time.Time{}
		evicted++
	}
	if cache.DedupKeys != nil && time.Since(cache.DedupComputedAt) > config.ClientKeysTTL {
		cache.DedupKeys = nil
		cache.DedupComputedAt = time.Time{}
		evicted++
	}
	if evicted > 0 {
		cache.LastUpdated = time.Now().UTC()
	}
	return evicted
}
