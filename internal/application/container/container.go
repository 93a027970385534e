// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/leadledger-go/internal/application/policy"
	"github.com/AtRiskMedia/leadledger-go/internal/application/services"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Ledger services (stateless singletons)
	MergeService      *services.MergeService
	ReserveService    *services.ReserveService
	EnrichmentService *services.EnrichmentService
	ReportService     *services.ReportService
	ForecastService   *services.ForecastService
	AlertService      *services.AlertService
	AuthService       *services.AuthService
	PreferenceService *services.PreferenceService
	ChannelService    *services.ChannelService
	RosterService     *services.RosterService
	SourceFactory     *services.SourceFactory

	// Command dispatch policies, evaluated before any operator command runs
	Policies *policy.Pipeline

	// Infrastructure Dependencies
	VenueManager        *venue.Manager
	CacheManager        *manager.Manager
	Logger              *logging.ChanneledLogger
	PerfTracker         *performance.Tracker
	Broadcaster         *messaging.EventBroadcaster
	OpsBoardBroadcaster *messaging.OpsBoardBroadcaster
	LogBroadcaster      *logging.LogBroadcaster
}

// NewContainer creates and wires all singleton services
func NewContainer(venueManager *venue.Manager, cacheManager *manager.Manager, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())
	broadcaster := messaging.NewEventBroadcaster(logger)
	opsBoard := messaging.NewOpsBoardBroadcaster(venueManager)

	// Enrichment and reports are shared by the composite services below.
	enrichment := services.NewEnrichmentService(logger)
	reports := services.NewReportService(logger)

	return &Container{
		MergeService:      services.NewMergeService(enrichment, broadcaster, logger),
		ReserveService:    services.NewReserveService(broadcaster, logger),
		EnrichmentService: enrichment,
		ReportService:     reports,
		ForecastService:   services.NewForecastService(logger),
		AlertService:      services.NewAlertService(reports, broadcaster, logger),
		AuthService:       services.NewAuthService(logger),
		PreferenceService: services.NewPreferenceService(logger),
		ChannelService:    services.NewChannelService(logger),
		RosterService:     services.NewRosterService(logger),
		SourceFactory:     services.NewSourceFactory(logger),

		Policies: policy.NewPipeline(
			policy.NewRateLimitPolicy(),
			policy.NewAdminOnlyPolicy(),
		),

		// Infrastructure
		VenueManager:        venueManager,
		CacheManager:        cacheManager,
		Logger:              logger,
		PerfTracker:         perfTracker,
		Broadcaster:         broadcaster,
		OpsBoardBroadcaster: opsBoard,
		LogBroadcaster:      logging.GetBroadcaster(),
	}
}
