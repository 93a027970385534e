// Package cleanup provides background worker
package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/caching/interfaces"
)

// Worker handles background cache cleanup operations
type Worker struct {
	cache  interfaces.Cache
	config *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache interfaces.Cache, config *Config) *Worker {
	return &Worker{
		cache:  cache,
		config: config,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	log.Printf("Cache cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache cleanup worker stopping...")
			return
		case <-ticker.C:
			w.performCleanup(ctx)
		}
	}
}

// performCleanup executes cleanup for all active venues
func (w *Worker) performCleanup(ctx context.Context) {
	start := time.Now()
	reporter := NewReporter(w.cache)

	venues := w.cache.ActiveVenues()

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC CACHE CLEANUP")
		for _, venueID := range venues {
			fmt.Print(reporter.GenerateVenueReport(venueID))
		}
	}

	var totalEvicted int
	for _, venueID := range venues {
		select {
		case <-ctx.Done():
			return
		default:
			totalEvicted += w.cache.PurgeExpiredReports(venueID)
		}
	}

	duration := time.Since(start)
	if totalEvicted > 0 {
		reporter.LogSuccess("Cache cleanup finished: %d items evicted from %d venues in %v",
			totalEvicted, len(venues), duration)
	} else if w.config.VerboseReporting {
		reporter.LogInfo("Cache cleanup completed - no expired items found (%v)", duration)
	}
}
