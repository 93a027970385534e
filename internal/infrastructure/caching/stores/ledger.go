// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/channel"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/types"
)

// LedgerStore implements lead and client caching operations with venue isolation
type LedgerStore struct {
	venueCaches map[string]*types.VenueLedgerCache
	mu          sync.RWMutex
}

// NewLedgerStore creates a new ledger cache store
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		venueCaches: make(map[string]*types.VenueLedgerCache),
	}
}

// InitializeVenue creates cache structures for a venue
func (ls *LedgerStore) InitializeVenue(venueID string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.venueCaches[venueID] == nil {
		ls.venueCaches[venueID] = &types.VenueLedgerCache{
			Leads:         make(map[string]*lead.Lead),
			LeadIDsByKey:  make(map[string][]string),
			AllLeadIDs:    nil,
			Clients:       make(map[string]*client.CanonicalClient),
			ClientIDByKey: make(map[string]string),
			AllClientIDs:  nil,
			Channels:      make(map[string]*channel.Channel),
			LastUpdated:   time.Now().UTC(),
		}
	}
}

// GetVenueCache safely retrieves a venue's ledger cache
func (ls *LedgerStore) GetVenueCache(venueID string) (*types.VenueLedgerCache, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	cache, exists := ls.venueCaches[venueID]
	return cache, exists
}

// DropVenue removes a venue's ledger cache entirely
func (ls *LedgerStore) DropVenue(venueID string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.venueCaches, venueID)
}

// VenueIDs returns the IDs of all venues with an initialized cache
func (ls *LedgerStore) VenueIDs() []string {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	ids := make([]string, 0, len(ls.venueCaches))
	for id := range ls.venueCaches {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// Lead Operations
// =============================================================================

// GetLead retrieves a merged lead by ID
func (ls *LedgerStore) GetLead(venueID, leadID string) (*lead.Lead, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	l, exists := cache.Leads[leadID]
	return l, exists
}

// SetLead stores a merged lead and maintains the client key index.
// The cached ID list is extended in place so a full reload is not
// needed after every merge run.
func (ls *LedgerStore) SetLead(venueID string, l *lead.Lead) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	_, known := cache.Leads[l.LeadID]
	cache.Leads[l.LeadID] = l
	if !known {
		if l.ClientKey != "" {
			cache.LeadIDsByKey[l.ClientKey] = append(cache.LeadIDsByKey[l.ClientKey], l.LeadID)
		}
		if cache.AllLeadIDs != nil {
			cache.AllLeadIDs = append(cache.AllLeadIDs, l.LeadID)
		}
	}
	cache.LastUpdated = time.Now().UTC()
}

// RemoveLead evicts a lead and its index entries
func (ls *LedgerStore) RemoveLead(venueID, leadID string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	l, known := cache.Leads[leadID]
	if !known {
		return
	}
	delete(cache.Leads, leadID)
	if l.ClientKey != "" {
		ids := cache.LeadIDsByKey[l.ClientKey]
		for i, id := range ids {
			if id == leadID {
				cache.LeadIDsByKey[l.ClientKey] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(cache.LeadIDsByKey[l.ClientKey]) == 0 {
			delete(cache.LeadIDsByKey, l.ClientKey)
		}
	}
	cache.AllLeadIDs = nil
	cache.LastUpdated = time.Now().UTC()
}

// GetLeadIDsByClientKey retrieves lead IDs sharing a client key
func (ls *LedgerStore) GetLeadIDsByClientKey(venueID, clientKey string) ([]string, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	ids, exists := cache.LeadIDsByKey[clientKey]
	return ids, exists
}

// GetAllLeadIDs retrieves the cached list of all lead IDs
func (ls *LedgerStore) GetAllLeadIDs(venueID string) ([]string, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.AllLeadIDs == nil {
		return nil, false
	}
	return cache.AllLeadIDs, true
}

// SetAllLeadIDs stores the list of all lead IDs
func (ls *LedgerStore) SetAllLeadIDs(venueID string, ids []string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.AllLeadIDs = ids
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Client Operations
// =============================================================================

// GetClient retrieves a canonical client by ID
func (ls *LedgerStore) GetClient(venueID, id string) (*client.CanonicalClient, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	c, exists := cache.Clients[id]
	return c, exists
}

// GetClientByKey retrieves a canonical client by its identity key
func (ls *LedgerStore) GetClientByKey(venueID, clientKey string) (*client.CanonicalClient, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	id, exists := cache.ClientIDByKey[clientKey]
	if !exists {
		return nil, false
	}
	c, exists := cache.Clients[id]
	return c, exists
}

// SetClient stores a canonical client and maintains the key index
func (ls *LedgerStore) SetClient(venueID string, c *client.CanonicalClient) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	_, known := cache.Clients[c.ID]
	cache.Clients[c.ID] = c
	if c.ClientKey != "" {
		cache.ClientIDByKey[c.ClientKey] = c.ID
	}
	if !known && cache.AllClientIDs != nil {
		cache.AllClientIDs = append(cache.AllClientIDs, c.ID)
	}
	cache.LastUpdated = time.Now().UTC()
}

// RemoveClient evicts a canonical client and its key index entry
func (ls *LedgerStore) RemoveClient(venueID, id string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	c, known := cache.Clients[id]
	if !known {
		return
	}
	delete(cache.Clients, id)
	if c.ClientKey != "" && cache.ClientIDByKey[c.ClientKey] == id {
		delete(cache.ClientIDByKey, c.ClientKey)
	}
	cache.AllClientIDs = nil
	cache.LastUpdated = time.Now().UTC()
}

// GetAllClientIDs retrieves the cached list of all client IDs
func (ls *LedgerStore) GetAllClientIDs(venueID string) ([]string, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.AllClientIDs == nil {
		return nil, false
	}
	return cache.AllClientIDs, true
}

// SetAllClientIDs stores the list of all client IDs
func (ls *LedgerStore) SetAllClientIDs(venueID string, ids []string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.AllClientIDs = ids
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Channel Operations
// =============================================================================

// GetChannel retrieves a channel definition by name
func (ls *LedgerStore) GetChannel(venueID, name string) (*channel.Channel, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	ch, exists := cache.Channels[name]
	return ch, exists
}

// SetChannel stores a channel definition
func (ls *LedgerStore) SetChannel(venueID string, ch *channel.Channel) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Channels[ch.Name] = ch
	cache.LastUpdated = time.Now().UTC()
}

// GetAllChannels retrieves every cached channel definition
func (ls *LedgerStore) GetAllChannels(venueID string) ([]*channel.Channel, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if len(cache.Channels) == 0 {
		return nil, false
	}
	channels := make([]*channel.Channel, 0, len(cache.Channels))
	for _, ch := range cache.Channels {
		channels = append(channels, ch)
	}
	return channels, true
}

// =============================================================================
// Merge Run Metadata
// =============================================================================

// SetLastMergeRun records the completion time of the latest merge run
func (ls *LedgerStore) SetLastMergeRun(venueID string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		ls.InitializeVenue(venueID)
		cache, _ = ls.GetVenueCache(venueID)
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.LastMergeRun = time.Now().UTC()
	cache.LastUpdated = cache.LastMergeRun
}

// GetLastMergeRun returns the unix time of the latest merge run
func (ls *LedgerStore) GetLastMergeRun(venueID string) (int64, bool) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return 0, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.LastMergeRun.IsZero() {
		return 0, false
	}
	return cache.LastMergeRun.Unix(), true
}

// InvalidateLedgerCache clears all ledger data for a venue
func (ls *LedgerStore) InvalidateLedgerCache(venueID string) {
	cache, exists := ls.GetVenueCache(venueID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Leads = make(map[string]*lead.Lead)
	cache.LeadIDsByKey = make(map[string][]string)
	cache.AllLeadIDs = nil
	cache.Clients = make(map[string]*client.CanonicalClient)
	cache.ClientIDByKey = make(map[string]string)
	cache.AllClientIDs = nil
	cache.Channels = make(map[string]*channel.Channel)
	cache.LastUpdated = time.Now().UTC()
}
