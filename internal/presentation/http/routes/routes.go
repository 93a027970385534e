// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/leadledger-go/internal/application/container"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Prometheus scrape endpoint stays outside venue resolution
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	mergeHandlers := handlers.NewMergeHandlers(container.MergeService, container.RosterService, container.SourceFactory, container.Policies, container.Logger, container.PerfTracker)
	reserveHandlers := handlers.NewReserveHandlers(container.ReserveService, container.SourceFactory, container.Policies, container.Logger, container.PerfTracker)
	reportHandlers := handlers.NewReportHandlers(container.ReportService, container.Policies, container.Logger, container.PerfTracker)
	forecastHandlers := handlers.NewForecastHandlers(container.ForecastService, container.Policies, container.Logger, container.PerfTracker)
	rosterHandlers := handlers.NewRosterHandlers(container.RosterService, container.Logger, container.PerfTracker)
	channelHandlers := handlers.NewChannelHandlers(container.ChannelService, container.Policies, container.Logger, container.PerfTracker)
	preferenceHandlers := handlers.NewPreferenceHandlers(container.PreferenceService, container.Policies, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewStreamHandlers(container.Broadcaster, container.OpsBoardBroadcaster, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.VenueManager, container.Logger, container.PerfTracker)
	opsHandlers := handlers.NewOpsHandlers(container)

	// API routes with venue middleware
	api := r.Group("/api/v1")
	api.Use(middleware.VenueMiddleware(container.VenueManager, container.PerfTracker))
	api.Use(middleware.DomainValidationMiddleware(container.VenueManager))
	{
		// Liveness
		api.GET("/health", healthHandlers.GetHealth)

		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
			auth.GET("/status", authHandlers.GetAuthStatus)
		}

		// Live streams are venue-scoped but unauthenticated so dashboards can
		// connect before login completes
		api.GET("/stream", streamHandlers.GetEventStream)
		api.GET("/stream/opsboard", streamHandlers.GetOpsBoard)

		// Operator endpoints
		ledger := api.Group("/")
		ledger.Use(authHandlers.AuthMiddleware())
		{
			ledger.POST("/merge", mergeHandlers.PostMergeTrigger)
			ledger.GET("/merge/history", mergeHandlers.GetMergeHistory)
			ledger.POST("/reserve/sync", reserveHandlers.PostReserveSync)

			reports := ledger.Group("/reports")
			{
				reports.GET("/daily", reportHandlers.GetDailyReport)
				reports.GET("/channels", reportHandlers.GetChannelReports)
				reports.GET("/channels/:name", reportHandlers.GetChannelDetail)
				reports.GET("/segments", reportHandlers.GetSegmentReport)
			}

			ledger.GET("/forecast", forecastHandlers.GetForecast)

			ledger.GET("/clients", rosterHandlers.GetClients)
			ledger.GET("/clients/:id", rosterHandlers.GetClient)
			ledger.GET("/leads", rosterHandlers.GetLeads)

			ledger.GET("/channels", channelHandlers.GetChannels)
			ledger.GET("/channels/:name", channelHandlers.GetChannel)
			ledger.PUT("/channels/:name", channelHandlers.PutChannel)

			ledger.GET("/preferences", preferenceHandlers.GetPreferences)
			ledger.PUT("/preferences", preferenceHandlers.PutPreferences)
			ledger.DELETE("/preferences", preferenceHandlers.DeletePreferences)
		}

		// Admin-only operational endpoints
		ops := api.Group("/ops")
		ops.Use(authHandlers.AdminOnlyMiddleware())
		{
			ops.GET("/activity", opsHandlers.GetActivity)
			ops.GET("/health/pool", healthHandlers.GetPoolStatus)
			ops.GET("/logs/levels", opsHandlers.GetLogLevels)
			ops.POST("/logs/levels", opsHandlers.SetLogLevel)
			ops.GET("/logs/stream", opsHandlers.StreamLogs)
		}
	}

	return r
}
