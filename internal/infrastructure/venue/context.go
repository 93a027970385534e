// Package venue provides venue context management for multi-venue support.
package venue

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/persistence/ledger"
)

// Context holds venue-specific request context
type Context struct {
	VenueID      string
	Config       *Config
	Database     *Database
	Status       string
	CacheManager *manager.Manager
	Logger       *logging.ChanneledLogger
}

// Close cleans up the venue context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// GetVenueID returns the venue ID for this context
func (ctx *Context) GetVenueID() string {
	return ctx.VenueID
}

// GetConfig returns the venue configuration
func (ctx *Context) GetConfig() *Config {
	return ctx.Config
}

// GetDatabase returns the venue database connection
func (ctx *Context) GetDatabase() *Database {
	return ctx.Database
}

// GetStatus returns the venue status
func (ctx *Context) GetStatus() string {
	return ctx.Status
}

// GetCacheManager returns the cache manager
func (ctx *Context) GetCacheManager() *manager.Manager {
	return ctx.CacheManager
}

// IsActive returns true if the venue is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// IsReserved returns true if the venue is reserved (awaiting activation)
func (ctx *Context) IsReserved() bool {
	return ctx.Status == "reserved"
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

func (ctx *Context) db() *database.DB {
	return &database.DB{DB: ctx.Database.Conn}
}

// LeadRepo returns a lead ledger repository instance
func (ctx *Context) LeadRepo() repositories.LeadRepository {
	return ledger.NewLeadRepository(ctx.db(), ctx.CacheManager, ctx.Logger)
}

// ClientRepo returns a canonical client repository instance
func (ctx *Context) ClientRepo() repositories.ClientRepository {
	return ledger.NewClientRepository(ctx.db(), ctx.CacheManager, ctx.Logger)
}

// ChannelRepo returns a channel repository instance
func (ctx *Context) ChannelRepo() repositories.ChannelRepository {
	return ledger.NewChannelRepository(ctx.db(), ctx.CacheManager, ctx.Logger)
}

// ReservationRepo returns a reservation snapshot repository instance
func (ctx *Context) ReservationRepo() repositories.ReservationRepository {
	return ledger.NewReservationRepository(ctx.db(), ctx.Logger)
}

// MergeRunRepo returns a merge run repository instance
func (ctx *Context) MergeRunRepo() repositories.MergeRunRepository {
	return ledger.NewMergeRunRepository(ctx.db(), ctx.Logger)
}

// PreferenceRepo returns an operator preference repository instance
func (ctx *Context) PreferenceRepo() repositories.PreferenceRepository {
	return ledger.NewPreferenceRepository(ctx.db(), ctx.Logger)
}
