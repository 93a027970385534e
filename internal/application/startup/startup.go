// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/application/container"
	"github.com/AtRiskMedia/leadledger-go/internal/application/scheduler"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete multi-venue startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
 _                    _ _              _
| |    ___  __ _  __| | |    ___  __| | __ _  ___ _ __
| |   / _ \/ _` + "`" + ` |/ _` + "`" + ` | |   / _ \/ _` + "`" + ` |/ _` + "`" + ` |/ _ \ '__|
| |__|  __/ (_| | (_| | |__|  __/ (_| | (_| |  __/ |
|_____\___|\__,_|\__,_|_____\___|\__,_|\__, |\___|_|
                                       |___/
` + "\033[97m" + `
  made by At Risk Media
` + "\033[0m")

	// Step 1: Create the channeled logger
	log.Println("Initializing...")
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Startup().Info("Channeled logger online")

	// Step 2: Initialize venue system
	venueManager := venue.NewManager(logger)

	// Step 3: Load venue registry to discover all venues
	log.Println("Loading venue registry...")
	registry, err := venue.LoadVenueRegistry()
	if err != nil {
		return fmt.Errorf("failed to load venue registry: %w", err)
	}

	if len(registry.Venues) == 0 {
		log.Println("No venues found in registry - creating default venue")
		if err := venue.RegisterVenue("default"); err != nil {
			return fmt.Errorf("failed to register default venue: %w", err)
		}
		registry, err = venue.LoadVenueRegistry()
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}
	}

	log.Printf("Found %d venues in registry", len(registry.Venues))

	// Step 4: Pre-activate inactive venues only
	log.Println("Starting venue pre-activation...")
	if err := venueManager.PreActivateAllVenues(); err != nil {
		return fmt.Errorf("venue pre-activation failed: %w", err)
	}

	// Step 5: Validate venue activation
	log.Println("Validating venue activation...")
	if err := venueManager.ValidatePreActivation(); err != nil {
		return fmt.Errorf("venue validation failed: %w", err)
	}

	// Step 6: Verify active venue connections
	log.Println("Verifying active venue database connections...")
	activeCount, err := venueManager.GetActiveVenueCount()
	if err != nil {
		return fmt.Errorf("failed to get active venue count: %w", err)
	}
	log.Printf("✓ %d active venue connections verified", activeCount)

	// Step 7: Initialize cache system
	log.Println("Initializing cache system...")
	cacheManager := venueManager.GetCacheManager()
	reporter := cleanup.NewReporter(cacheManager)

	for venueID, venueInfo := range registry.Venues {
		if venueInfo.Status == "active" {
			reporter.LogStage("Priming ledger cache for venue: %s", venueID)
			cacheManager.InitializeVenue(venueID)
			fmt.Print(reporter.GenerateVenueReport(venueID))
		}
	}

	// Step 8: Create dependency injection container
	log.Println("Initializing dependency injection container...")
	appContainer := container.NewContainer(venueManager, cacheManager, logger)
	log.Println("✓ Dependency injection container created with singleton services.")

	logger.Startup().Info("Container initialization complete - switching to channeled logging")

	// Step 9: Start background cleanup worker
	logger.Startup().Info("Starting background cleanup worker...")
	cleanupWorker := cleanup.NewWorker(cacheManager, cleanup.NewConfig())
	go cleanupWorker.Start(ctx)

	// Step 10: Start the reconciliation scheduler
	logger.Startup().Info("Starting reconciliation scheduler...",
		"mergeSweep", config.MergeSweepInterval,
		"reserveSync", config.ReserveSyncInterval,
		"alertSweep", config.AlertSweepInterval)
	sweeper := scheduler.New(
		venueManager,
		appContainer.MergeService,
		appContainer.ReserveService,
		appContainer.AlertService,
		appContainer.SourceFactory,
		logger,
	)
	go sweeper.Start(ctx)

	// Step 11: Start the ops board broadcaster
	logger.Startup().Info("Starting ops board broadcaster...")
	go appContainer.OpsBoardBroadcaster.Run()

	// Step 12: Start the database pool sweeper
	go func() {
		ticker := time.NewTicker(config.DBPoolCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				venue.CleanupStaleConnections(logger)
			}
		}
	}()

	// Step 13: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	totalStartupTime := time.Since(start)
	logger.Startup().Info("Application startup complete",
		"totalDuration", totalStartupTime,
		"activeVenues", activeCount,
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Close venue manager
	logger.Shutdown().Info("Closing venue manager...")
	if err := venueManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing venue manager", "error", err.Error())
	} else {
		logger.Shutdown().Info("Venue manager closed successfully")
	}

	elapsed := time.Since(start)
	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", elapsed,
		"shutdownDuration", time.Since(shutdownStart))

	// Stop the log stream broadcaster and flush the logger
	appContainer.LogBroadcaster.Shutdown()
	if err := logger.Close(); err != nil {
		log.Printf("Error closing logger: %v", err)
	}

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
