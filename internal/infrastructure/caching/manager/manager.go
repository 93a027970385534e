// Package manager provides centralized cache operations with proper venue isolation
package manager

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
)

// Interface assertions to ensure Manager implements all required interfaces.
var (
	_ interfaces.Cache                = (*Manager)(nil)
	_ interfaces.ReadOnlyReportCache  = (*Manager)(nil)
	_ interfaces.WriteOnlyReportCache = (*Manager)(nil)
)

// Manager provides centralized cache operations with proper venue isolation by delegating to specialized stores.
type Manager struct {
	Mu           sync.RWMutex
	LastAccessed map[string]time.Time
	ledgerStore  *stores.LedgerStore
	reportsStore *stores.ReportsStore
	logger       *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"ledger", "reports"})
	}

	return &Manager{
		LastAccessed: make(map[string]time.Time),
		ledgerStore:  stores.NewLedgerStore(),
		reportsStore: stores.NewReportsStore(),
		logger:       logger,
	}
}

func (m *Manager) GetVenueLedgerCache(venueID string) (*types.VenueLedgerCache, error) {
	cache, exists := m.ledgerStore.GetVenueCache(venueID)
	if !exists {
		return nil, fmt.Errorf("venue %s ledger cache not initialized", venueID)
	}
	return cache, nil
}

func (m *Manager) GetVenueReportCache(venueID string) (*types.VenueReportCache, error) {
	cache, exists := m.reportsStore.GetVenueCache(venueID)
	if !exists {
		return nil, fmt.Errorf("venue %s report cache not initialized", venueID)
	}
	return cache, nil
}

func (m *Manager) updateVenueAccessTime(venueID string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LastAccessed[venueID] = time.Now().UTC()
}

func (m *Manager) InitializeVenue(venueID string) {
	start := time.Now()
	if m.logger != nil {
		m.logger.Cache().Debug("Initializing venue cache", "venueId", venueID)
	}

	m.ledgerStore.InitializeVenue(venueID)
	m.reportsStore.InitializeVenue(venueID)
	m.updateVenueAccessTime(venueID)

	if m.logger != nil {
		m.logger.Cache().Info("Venue cache initialized", "venueId", venueID, "duration", time.Since(start))
	}
}

// =============================================================================
// Ledger Delegation
// =============================================================================

func (m *Manager) GetLead(venueID, leadID string) (*lead.Lead, bool) {
	return m.ledgerStore.GetLead(venueID, leadID)
}

func (m *Manager) SetLead(venueID string, l *lead.Lead) {
	m.ledgerStore.SetLead(venueID, l)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) RemoveLead(venueID, leadID string) {
	m.ledgerStore.RemoveLead(venueID, leadID)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetLeadIDsByClientKey(venueID, clientKey string) ([]string, bool) {
	return m.ledgerStore.GetLeadIDsByClientKey(venueID, clientKey)
}

func (m *Manager) GetAllLeadIDs(venueID string) ([]string, bool) {
	return m.ledgerStore.GetAllLeadIDs(venueID)
}

func (m *Manager) SetAllLeadIDs(venueID string, ids []string) {
	m.ledgerStore.SetAllLeadIDs(venueID, ids)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetClient(venueID, id string) (*client.CanonicalClient, bool) {
	return m.ledgerStore.GetClient(venueID, id)
}

func (m *Manager) GetClientByKey(venueID, clientKey string) (*client.CanonicalClient, bool) {
	return m.ledgerStore.GetClientByKey(venueID, clientKey)
}

func (m *Manager) SetClient(venueID string, c *client.CanonicalClient) {
	m.ledgerStore.SetClient(venueID, c)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) RemoveClient(venueID, id string) {
	m.ledgerStore.RemoveClient(venueID, id)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetAllClientIDs(venueID string) ([]string, bool) {
	return m.ledgerStore.GetAllClientIDs(venueID)
}

func (m *Manager) SetAllClientIDs(venueID string, ids []string) {
	m.ledgerStore.SetAllClientIDs(venueID, ids)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetChannel(venueID, name string) (*channel.Channel, bool) {
	return m.ledgerStore.GetChannel(venueID, name)
}

func (m *Manager) SetChannel(venueID string, ch *channel.Channel) {
	m.ledgerStore.SetChannel(venueID, ch)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetAllChannels(venueID string) ([]*channel.Channel, bool) {
	return m.ledgerStore.GetAllChannels(venueID)
}

func (m *Manager) SetLastMergeRun(venueID string) {
	m.ledgerStore.SetLastMergeRun(venueID)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetLastMergeRun(venueID string) (int64, bool) {
	return m.ledgerStore.GetLastMergeRun(venueID)
}

func (m *Manager) InvalidateLedgerCache(venueID string) {
	start := time.Now()
	m.ledgerStore.InvalidateLedgerCache(venueID)
	m.updateVenueAccessTime(venueID)
	if m.logger != nil {
		m.logger.Cache().Info("Ledger cache invalidated", "venueId", venueID, "duration", time.Since(start))
	}
}

// =============================================================================
// Report Delegation
// =============================================================================

func (m *Manager) GetReport(venueID, reportKey string) (*types.ReportEntry, bool) {
	return m.reportsStore.GetReport(venueID, reportKey)
}

func (m *Manager) SetReport(venueID, reportKey string, payload any, etag string) {
	m.reportsStore.SetReport(venueID, reportKey, payload, etag)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) InvalidateReports(venueID string) {
	m.reportsStore.InvalidateReports(venueID)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetGuestProfiles(venueID string) ([]reserve.GuestProfile, bool) {
	return m.reportsStore.GetGuestProfiles(venueID)
}

func (m *Manager) SetGuestProfiles(venueID string, profiles []reserve.GuestProfile) {
	m.reportsStore.SetGuestProfiles(venueID, profiles)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) InvalidateGuestProfiles(venueID string) {
	m.reportsStore.InvalidateGuestProfiles(venueID)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) GetDedupKeys(venueID string) (map[string]bool, bool) {
	return m.reportsStore.GetDedupKeys(venueID)
}

func (m *Manager) SetDedupKeys(venueID string, keys map[string]bool) {
	m.reportsStore.SetDedupKeys(venueID, keys)
	m.updateVenueAccessTime(venueID)
}

func (m *Manager) AddDedupKey(venueID, key string) {
	m.reportsStore.AddDedupKey(venueID, key)
	m.updateVenueAccessTime(venueID)
}

// PurgeExpiredReports runs the TTL sweep for one venue and reports evictions
func (m *Manager) PurgeExpiredReports(venueID string) int {
	return m.reportsStore.PurgeExpired(venueID)
}

// =============================================================================
// Lifecycle and Introspection
// =============================================================================

func (m *Manager) InvalidateVenue(venueID string) {
	start := time.Now()

	m.ledgerStore.DropVenue(venueID)
	m.reportsStore.DropVenue(venueID)

	m.Mu.Lock()
	delete(m.LastAccessed, venueID)
	m.Mu.Unlock()

	if m.logger != nil {
		m.logger.Cache().Info("Venue cache invalidated", "venueId", venueID, "duration", time.Since(start))
	}
}

func (m *Manager) InvalidateAll() {
	for _, venueID := range m.ActiveVenues() {
		m.InvalidateVenue(venueID)
	}
}

func (m *Manager) ActiveVenues() []string {
	return m.ledgerStore.VenueIDs()
}

func (m *Manager) GetVenueStats(venueID string) interfaces.CacheStats {
	var stats interfaces.CacheStats

	if cache, exists := m.ledgerStore.GetVenueCache(venueID); exists {
		cache.Mu.RLock()
		stats.Leads = len(cache.Leads)
		stats.Clients = len(cache.Clients)
		stats.Channels = len(cache.Channels)
		cache.Mu.RUnlock()
	}
	if cache, exists := m.reportsStore.GetVenueCache(venueID); exists {
		cache.Mu.RLock()
		stats.Reports = len(cache.Reports)
		stats.GuestProfiles = len(cache.GuestProfiles)
		stats.DedupKeys = len(cache.DedupKeys)
		cache.Mu.RUnlock()
	}
	return stats
}

func (m *Manager) GetMemoryStats() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	venues := m.ActiveVenues()
	return map[string]any{
		"activeVenues":  len(venues),
		"heapAllocMB":   ms.HeapAlloc / 1024 / 1024,
		"heapSysMB":     ms.HeapSys / 1024 / 1024,
		"numGC":         ms.NumGC,
		"lastCollected": time.Now().UTC(),
	}
}

func (m *Manager) Health() map[string]any {
	m.Mu.RLock()
	defer m.Mu.RUnlock()

	venues := make(map[string]any, len(m.LastAccessed))
	for venueID, accessed := range m.LastAccessed {
		venues[venueID] = accessed
	}
	return map[string]any{
		"status":       "ok",
		"lastAccessed": venues,
	}
}
