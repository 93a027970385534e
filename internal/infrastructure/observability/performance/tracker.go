// Package performance provides performance tracking and monitoring capabilities
// for LeadLedger operations with multi-venue support and real-time metrics.
package performance

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker     // Active and completed markers by unique ID
	snapshots  []*PerformanceSnapshot // Historical performance snapshots
	alerts     []*PerformanceAlert    // Active performance alerts
	thresholds *AlertThresholds       // Configurable alert thresholds
	mu         sync.RWMutex           // Protects concurrent access
	started    time.Time              // When tracking started
	config     *TrackerConfig         // Tracker configuration
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers          int           `json:"maxMarkers"`          // Maximum number of markers to retain
	MaxSnapshots        int           `json:"maxSnapshots"`        // Maximum number of snapshots to retain
	MaxAlerts           int           `json:"maxAlerts"`           // Maximum number of alerts to retain
	SnapshotInterval    time.Duration `json:"snapshotInterval"`    // How often to take performance snapshots
	CleanupInterval     time.Duration `json:"cleanupInterval"`     // How often to clean up old data
	EnableDetailedStats bool          `json:"enableDetailedStats"` // Whether to collect detailed memory stats
	EnableAlerts        bool          `json:"enableAlerts"`        // Whether to generate performance alerts
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:          10000,
		MaxSnapshots:        100,
		MaxAlerts:           500,
		SnapshotInterval:    time.Minute * 5,
		CleanupInterval:     time.Minute * 10,
		EnableDetailedStats: true,
		EnableAlerts:        true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	// Response time thresholds
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`     // 500ms
	VerySlowResponseThreshold time.Duration `json:"verySlowResponseThreshold"` // 2s
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"` // 5s

	// Cache performance thresholds
	LowCacheHitRatio      float64 `json:"lowCacheHitRatio"`      // 0.85 (85%)
	CriticalCacheHitRatio float64 `json:"criticalCacheHitRatio"` // 0.70 (70%)

	// Memory thresholds (in MB)
	HighMemoryUsage     int64 `json:"highMemoryUsage"`     // 500MB
	CriticalMemoryUsage int64 `json:"criticalMemoryUsage"` // 1GB

	// Operation-specific thresholds
	MergeRunThreshold      time.Duration `json:"mergeRunThreshold"`      // 30s
	ReserveSyncThreshold   time.Duration `json:"reserveSyncThreshold"`   // 20s
	ReportQueryThreshold   time.Duration `json:"reportQueryThreshold"`   // 1s
	UpstreamCallThreshold  time.Duration `json:"upstreamCallThreshold"`  // 5s
	DatabaseQueryThreshold time.Duration `json:"databaseQueryThreshold"` // 50ms
	AuthOperationThreshold time.Duration `json:"authOperationThreshold"` // 200ms
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     time.Millisecond * 500,
		VerySlowResponseThreshold: time.Second * 2,
		CriticalResponseThreshold: time.Second * 5,
		LowCacheHitRatio:          0.85,
		CriticalCacheHitRatio:     0.70,
		HighMemoryUsage:           500 * 1024 * 1024,  // 500MB
		CriticalMemoryUsage:       1024 * 1024 * 1024, // 1GB
		MergeRunThreshold:         time.Second * 30,
		ReserveSyncThreshold:      time.Second * 20,
		ReportQueryThreshold:      time.Second * 1,
		UpstreamCallThreshold:     time.Second * 5,
		DatabaseQueryThreshold:    time.Millisecond * 50,
		AuthOperationThreshold:    time.Millisecond * 200,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	tracker := &Tracker{
		markers:    make(map[string]*Marker),
		snapshots:  make([]*PerformanceSnapshot, 0),
		alerts:     make([]*PerformanceAlert, 0),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}

	return tracker
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, venueID string) *Marker {
	marker := &Marker{
		Operation: operation,
		VenueID:   venueID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	// Generate unique ID for this marker
	markerID := fmt.Sprintf("%s_%s_%d", venueID, operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	t.mu.Unlock()

	return marker
}

// StartOperationWithContext creates a performance marker with context cancellation support
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation, venueID string) *Marker {
	marker := t.StartOperation(operation, venueID)

	// Monitor context cancellation
	go func() {
		<-ctx.Done()
		if !marker.Completed {
			marker.SetError(ctx.Err())
			marker.Complete()
		}
	}()

	return marker
}

// CompleteOperation manually completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}

	marker.Complete()

	// Check for performance alerts if enabled
	if t.config.EnableAlerts {
		t.checkForAlerts(marker)
	}
}

// checkForAlerts evaluates a completed marker against alert thresholds
func (t *Tracker) checkForAlerts(marker *Marker) {
	if marker == nil || !marker.Completed {
		return
	}

	alerts := t.evaluateThresholds(marker)

	t.mu.Lock()
	for _, alert := range alerts {
		t.alerts = append(t.alerts, alert)

		// Maintain max alerts limit
		if len(t.alerts) > t.config.MaxAlerts {
			// Remove oldest alerts
			t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
		}
	}
	t.mu.Unlock()
}

// evaluateThresholds checks a marker against all relevant thresholds
func (t *Tracker) evaluateThresholds(marker *Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert

	// Check general response time thresholds
	if marker.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			"Operation exceeded critical response time threshold"))
	} else if marker.Duration > t.thresholds.VerySlowResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			"Operation exceeded slow response time threshold"))
	}

	// Check operation-specific thresholds
	switch {
	case strings.Contains(marker.Operation, "merge"):
		if marker.Duration > t.thresholds.MergeRunThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Merge run exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "reserve"):
		if marker.Duration > t.thresholds.ReserveSyncThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Reserve sync exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "report"), strings.Contains(marker.Operation, "forecast"):
		if marker.Duration > t.thresholds.ReportQueryThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Report query exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "upstream"):
		if marker.Duration > t.thresholds.UpstreamCallThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Upstream call exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "auth"):
		if marker.Duration > t.thresholds.AuthOperationThreshold {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Authentication operation exceeded threshold"))
		}
	}

	// Check cache hit ratio
	if marker.CacheHits+marker.CacheMisses > 0 {
		hitRatio := marker.GetCacheHitRatio()
		if hitRatio < t.thresholds.CriticalCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertCritical,
				"Cache hit ratio critically low"))
		} else if hitRatio < t.thresholds.LowCacheHitRatio {
			alerts = append(alerts, t.createAlert(marker, AlertWarning,
				"Cache hit ratio below optimal"))
		}
	}

	// Check memory usage
	memoryMB := marker.MemoryUsage / (1024 * 1024)
	if marker.MemoryUsage > t.thresholds.CriticalMemoryUsage {
		alerts = append(alerts, t.createAlert(marker, AlertCritical,
			fmt.Sprintf("Critical memory usage: %d MB", memoryMB)))
	} else if marker.MemoryUsage > t.thresholds.HighMemoryUsage {
		alerts = append(alerts, t.createAlert(marker, AlertWarning,
			fmt.Sprintf("High memory usage: %d MB", memoryMB)))
	}

	return alerts
}

// createAlert creates a new performance alert
func (t *Tracker) createAlert(marker *Marker, severity AlertSeverity, message string) *PerformanceAlert {
	return &PerformanceAlert{
		ID:        fmt.Sprintf("alert_%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		VenueID:   marker.VenueID,
		Severity:  severity,
		Operation: marker.Operation,
		Actual:    marker.Duration,
		Message:   message,
		Metadata: map[string]any{
			"cacheHitRatio": marker.GetCacheHitRatio(),
			"memoryUsageMB": marker.MemoryUsage / (1024 * 1024),
			"success":       marker.Success,
		},
	}
}

// GetMetrics returns performance metrics for a specific venue
func (t *Tracker) GetMetrics(venueID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.VenueID == venueID && marker.Completed {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetRecentMetrics returns metrics for operations completed within the specified duration
func (t *Tracker) GetRecentMetrics(venueID string, within time.Duration) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := time.Now().Add(-within)
	var metrics []Marker

	for _, marker := range t.markers {
		if marker.VenueID == venueID && marker.Completed && marker.EndTime.After(cutoff) {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetActiveOperations returns currently running operations for a venue
func (t *Tracker) GetActiveOperations(venueID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []Marker
	for _, marker := range t.markers {
		if marker.VenueID == venueID && !marker.Completed {
			metrics := *marker
			// Calculate current duration for active operations
			metrics.Duration = time.Since(marker.StartTime)
			active = append(active, metrics)
		}
	}
	return active
}

// GetAlerts returns performance alerts for a specific venue
func (t *Tracker) GetAlerts(venueID string) []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var alerts []*PerformanceAlert
	for _, alert := range t.alerts {
		if alert.VenueID == venueID {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// TakeSnapshot creates a performance snapshot for the specified venue
func (t *Tracker) TakeSnapshot(venueID string) *PerformanceSnapshot {
	metrics := t.GetRecentMetrics(venueID, time.Minute*5)
	activeOps := t.GetActiveOperations(venueID)

	snapshot := &PerformanceSnapshot{
		Timestamp:           time.Now(),
		VenueID:             venueID,
		ActiveOperations:    len(activeOps),
		CompletedOperations: len(metrics),
		OverallHealth:       t.calculateHealth(metrics, activeOps),
	}

	// Categorize metrics by operation type
	snapshot.Merge = t.extractMergeMetrics(metrics)
	snapshot.Reserve = t.extractReserveMetrics(metrics)
	snapshot.Report = t.extractReportMetrics(metrics)

	t.mu.Lock()
	t.snapshots = append(t.snapshots, snapshot)

	// Maintain max snapshots limit
	if len(t.snapshots) > t.config.MaxSnapshots {
		t.snapshots = t.snapshots[len(t.snapshots)-t.config.MaxSnapshots:]
	}
	t.mu.Unlock()

	return snapshot
}

// calculateHealth determines overall system health based on recent metrics
func (t *Tracker) calculateHealth(metrics, activeOps []Marker) HealthStatus {
	if len(metrics) == 0 && len(activeOps) == 0 {
		return HealthUnknown
	}

	criticalIssues := 0
	warningIssues := 0
	totalOps := len(metrics) + len(activeOps)

	allOps := append(metrics, activeOps...)

	for _, op := range allOps {
		duration := op.Duration
		if !op.Completed {
			duration = time.Since(op.StartTime)
		}

		if duration > t.thresholds.CriticalResponseThreshold || !op.Success {
			criticalIssues++
		} else if duration > t.thresholds.VerySlowResponseThreshold {
			warningIssues++
		}
	}

	criticalRatio := float64(criticalIssues) / float64(totalOps)
	warningRatio := float64(warningIssues) / float64(totalOps)

	if criticalRatio > 0.1 { // More than 10% critical issues
		return HealthUnhealthy
	} else if criticalRatio > 0.05 || warningRatio > 0.2 { // More than 5% critical or 20% warning
		return HealthDegraded
	}

	return HealthHealthy
}

// extractMergeMetrics filters metrics for merge operations
func (t *Tracker) extractMergeMetrics(metrics []Marker) *MergePerformanceTracker {
	tracker := &MergePerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "fetch"):
			if tracker.SourceFetch == nil || metric.EndTime.After(tracker.SourceFetch.EndTime) {
				m := metric
				tracker.SourceFetch = &m
			}
		case strings.Contains(metric.Operation, "dedup"):
			if tracker.DedupScan == nil || metric.EndTime.After(tracker.DedupScan.EndTime) {
				m := metric
				tracker.DedupScan = &m
			}
		case strings.Contains(metric.Operation, "insert"):
			if tracker.LeadInsert == nil || metric.EndTime.After(tracker.LeadInsert.EndTime) {
				m := metric
				tracker.LeadInsert = &m
			}
		case strings.Contains(metric.Operation, "enrich"):
			if tracker.MetricsEnrichment == nil || metric.EndTime.After(tracker.MetricsEnrichment.EndTime) {
				m := metric
				tracker.MetricsEnrichment = &m
			}
		}
	}

	return tracker
}

// extractReserveMetrics filters metrics for reserve operations
func (t *Tracker) extractReserveMetrics(metrics []Marker) *ReservePerformanceTracker {
	tracker := &ReservePerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "snapshot"):
			if tracker.SnapshotFetch == nil || metric.EndTime.After(tracker.SnapshotFetch.EndTime) {
				m := metric
				tracker.SnapshotFetch = &m
			}
		case strings.Contains(metric.Operation, "aggregate"):
			if tracker.GuestAggregation == nil || metric.EndTime.After(tracker.GuestAggregation.EndTime) {
				m := metric
				tracker.GuestAggregation = &m
			}
		case strings.Contains(metric.Operation, "match"):
			if tracker.ClientMatch == nil || metric.EndTime.After(tracker.ClientMatch.EndTime) {
				m := metric
				tracker.ClientMatch = &m
			}
		}
	}

	return tracker
}

// extractReportMetrics filters metrics for report operations
func (t *Tracker) extractReportMetrics(metrics []Marker) *ReportPerformanceTracker {
	tracker := &ReportPerformanceTracker{}

	for _, metric := range metrics {
		switch {
		case strings.Contains(metric.Operation, "daily"):
			if tracker.DailyReport == nil || metric.EndTime.After(tracker.DailyReport.EndTime) {
				m := metric
				tracker.DailyReport = &m
			}
		case strings.Contains(metric.Operation, "channel"):
			if tracker.ChannelReport == nil || metric.EndTime.After(tracker.ChannelReport.EndTime) {
				m := metric
				tracker.ChannelReport = &m
			}
		case strings.Contains(metric.Operation, "segment"):
			if tracker.SegmentReport == nil || metric.EndTime.After(tracker.SegmentReport.EndTime) {
				m := metric
				tracker.SegmentReport = &m
			}
		case strings.Contains(metric.Operation, "forecast"):
			if tracker.ForecastBuild == nil || metric.EndTime.After(tracker.ForecastBuild.EndTime) {
				m := metric
				tracker.ForecastBuild = &m
			}
		}
	}

	return tracker
}

// Cleanup removes old markers and snapshots to prevent memory leaks
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Clean up old completed markers
	cutoff := time.Now().Add(-time.Hour) // Keep last hour of markers
	for id, marker := range t.markers {
		if marker.Completed && marker.EndTime.Before(cutoff) {
			delete(t.markers, id)
		}
	}

	// Maintain max markers limit
	if len(t.markers) > t.config.MaxMarkers {
		count := 0
		for id := range t.markers {
			if count > t.config.MaxMarkers/2 {
				delete(t.markers, id)
			}
			count++
		}
	}
}

// GetOverallStats returns overall tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	activeCount := 0
	completedCount := 0

	for _, marker := range t.markers {
		if marker.Completed {
			completedCount++
		} else {
			activeCount++
		}
	}

	return map[string]any{
		"trackerUptime":       time.Since(t.started),
		"totalMarkers":        len(t.markers),
		"activeOperations":    activeCount,
		"completedOperations": completedCount,
		"totalSnapshots":      len(t.snapshots),
		"totalAlerts":         len(t.alerts),
		"memoryUsageMB":       memStats.Alloc / (1024 * 1024),
		"systemMemoryMB":      memStats.Sys / (1024 * 1024),
	}
}
