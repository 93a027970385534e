// Package venue manages venue-specific configurations and context,
// isolating multi-venue logic from the rest of the application.
package venue

import (
	"fmt"
	"log"
	"sync"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// Manager coordinates venue detection and context creation
type Manager struct {
	detector       *Detector
	cacheManager   *manager.Manager
	contexts       map[string]*Context
	contextMutexes sync.Map // Per-venue mutexes for fine-grained locking
	globalMutex    sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a new venue manager.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	detector, err := NewDetector(logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize venue detector: %v", err))
	}

	cacheManager := manager.NewManager(logger)

	return &Manager{
		detector:     detector,
		cacheManager: cacheManager,
		contexts:     make(map[string]*Context),
		logger:       logger,
	}
}

// GetContext creates or retrieves a venue context for the request
func (m *Manager) GetContext(c *gin.Context) (*Context, error) {
	venueID, err := m.detector.DetectVenue(c)
	if err != nil {
		return nil, fmt.Errorf("venue detection failed: %w", err)
	}

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[venueID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}

	venueMutexInterface, _ := m.contextMutexes.LoadOrStore(venueID, &sync.Mutex{})
	venueMutex := venueMutexInterface.(*sync.Mutex)

	venueMutex.Lock()
	defer venueMutex.Unlock()

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[venueID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}

	return m.createContext(venueID)
}

// NewContextFromID creates a new venue context from a venue ID string.
func (m *Manager) NewContextFromID(venueID string) (*Context, error) {
	m.globalMutex.RLock()
	if ctx, exists := m.contexts[venueID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}
	return m.createContext(venueID)
}

// createContext creates a new venue context
func (m *Manager) createContext(venueID string) (*Context, error) {
	config, err := LoadVenueConfig(venueID, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue config: %w", err)
	}

	db, err := NewDatabase(config, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	// The schema statements are idempotent, so every context creation
	// guarantees a usable ledger before the first query runs.
	tableCreator := database.NewTableCreator()
	if err := tableCreator.CreateSchema(db.Conn); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger schema: %w", err)
	}
	if err := tableCreator.SeedInitialContent(db.Conn); err != nil {
		return nil, fmt.Errorf("failed to seed ledger defaults: %w", err)
	}

	status := m.detector.GetVenueStatus(venueID)

	ctx := &Context{
		VenueID:      venueID,
		Config:       config,
		Database:     db,
		Status:       status,
		CacheManager: m.cacheManager,
		Logger:       m.logger,
	}

	m.cacheManager.InitializeVenue(venueID)

	// Warm the channel cache so spend lookups never miss mid-report.
	if _, err := ctx.ChannelRepo().FindAll(venueID); err != nil && m.logger != nil {
		m.logger.Venue().Warn("Channel cache warm failed", "venueId", venueID, "error", err)
	}

	m.globalMutex.Lock()
	m.contexts[venueID] = ctx
	m.globalMutex.Unlock()

	if m.logger != nil {
		m.logger.Venue().Info("Venue context created", "venueId", venueID, "database", ctx.GetDatabaseInfo())
	}
	return ctx, nil
}

// PreActivateAllVenues activates all venues in the registry during startup
func (m *Manager) PreActivateAllVenues() error {
	registry, err := LoadVenueRegistry()
	if err != nil {
		return fmt.Errorf("failed to load venue registry for pre-activation: %w", err)
	}

	if len(registry.Venues) == 0 {
		return nil
	}

	var failedVenues []string

	for venueID, venueInfo := range registry.Venues {
		if venueInfo.Status == "active" {
			continue
		}

		if err := m.preActivateSingleVenue(venueID); err != nil {
			failedVenues = append(failedVenues, venueID)
			continue
		}
	}

	if err := m.detector.RefreshRegistry(); err != nil {
		return fmt.Errorf("failed to refresh detector registry: %w", err)
	}

	if len(failedVenues) > 0 {
		return fmt.Errorf("pre-activation failed for venues: %v", failedVenues)
	}

	return nil
}

// preActivateSingleVenue activates a single venue during startup
func (m *Manager) preActivateSingleVenue(venueID string) error {
	ctx, err := m.createContext(venueID)
	if err != nil {
		return fmt.Errorf("failed to create context for venue %s: %w", venueID, err)
	}

	if err := ctx.Database.Conn.Ping(); err != nil {
		return fmt.Errorf("database connection test failed for venue %s: %w", venueID, err)
	}

	dbType := "sqlite3"
	if ctx.Database.UseTurso {
		dbType = "turso"
	}
	m.detector.UpdateVenueStatus(venueID, "active", dbType)

	return nil
}

// ValidatePreActivation verifies all venues are active after pre-activation
func (m *Manager) ValidatePreActivation() error {
	log.Println("=== Validating pre-activation results ===")

	registry, err := LoadVenueRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry for validation: %w", err)
	}

	if len(registry.Venues) == 0 {
		log.Println("No venues to validate")
		return nil
	}

	inactiveVenues := make([]string, 0)
	activeVenues := make([]string, 0)
	reservedVenues := make([]string, 0)

	for venueID, venueInfo := range registry.Venues {
		switch venueInfo.Status {
		case "active":
			activeVenues = append(activeVenues, venueID)
		case "reserved":
			reservedVenues = append(reservedVenues, venueID)
		default:
			inactiveVenues = append(inactiveVenues, venueID)
		}
	}

	log.Printf("Active venues: %v", activeVenues)
	if len(reservedVenues) > 0 {
		log.Printf("Reserved venues (awaiting activation): %v", reservedVenues)
	}

	if len(inactiveVenues) > 0 {
		log.Printf("Inactive venues: %v", inactiveVenues)
		return fmt.Errorf("validation failed - %d venues still inactive: %v",
			len(inactiveVenues), inactiveVenues)
	}

	log.Printf("Validation passed - %d venues active, %d reserved", len(activeVenues), len(reservedVenues))
	return nil
}

// GetActiveVenueCount returns the number of active venues
func (m *Manager) GetActiveVenueCount() (int, error) {
	registry, err := LoadVenueRegistry()
	if err != nil {
		return 0, fmt.Errorf("failed to load venue registry: %w", err)
	}

	activeCount := 0
	for _, venueInfo := range registry.Venues {
		if venueInfo.Status == "active" {
			activeCount++
		}
	}

	return activeCount, nil
}

// GetCacheManager returns the cache manager for external access
func (m *Manager) GetCacheManager() *manager.Manager {
	return m.cacheManager
}

// GetDetector returns the detector for external access (needed by startup code)
func (m *Manager) GetDetector() *Detector {
	return m.detector
}

// ActiveVenueIDs lists the venues with a live context.
func (m *Manager) ActiveVenueIDs() []string {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()

	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	return ids
}

// Close cleans up all venue contexts
func (m *Manager) Close() error {
	m.globalMutex.Lock()
	defer m.globalMutex.Unlock()

	for _, ctx := range m.contexts {
		if err := ctx.Close(); err != nil {
			continue
		}
	}

	m.contexts = make(map[string]*Context)
	return nil
}

// SetLogger sets the logger for the venue manager after container initialization
func (m *Manager) SetLogger(logger *logging.ChanneledLogger) {
	m.logger = logger

	if m.detector != nil && logger != nil {
		m.detector.logger = logger
	}
}

// GetLogger returns the logger for middleware access
func (m *Manager) GetLogger() *logging.ChanneledLogger {
	return m.logger
}
