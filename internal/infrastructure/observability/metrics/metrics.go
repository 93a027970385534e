// Package metrics exposes Prometheus counters and histograms for
// merge runs, reserve syncs, and upstream source health.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadledger"

var (
	// LeadsFetched counts raw records pulled from a source before dedup.
	LeadsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_fetched_total",
		Help:      "Raw lead records fetched from sources.",
	}, []string{"venue", "source"})

	// LeadsAccepted counts records that survived dedup and were assigned an ID.
	LeadsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_accepted_total",
		Help:      "Lead records accepted into the ledger.",
	}, []string{"venue", "source"})

	// LeadsDuplicate counts records rejected as in-batch or historical duplicates.
	LeadsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_duplicate_total",
		Help:      "Lead records rejected as duplicates.",
	}, []string{"venue", "source"})

	// LeadsFailed counts records dropped because normalization or persistence failed.
	LeadsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_failed_total",
		Help:      "Lead records dropped during a merge run.",
	}, []string{"venue", "source"})

	// MergeRuns counts merge runs by terminal status.
	MergeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "merge_runs_total",
		Help:      "Merge runs by terminal status.",
	}, []string{"venue", "status"})

	// MergeRunDuration observes end-to-end merge run latency.
	MergeRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "merge_run_duration_seconds",
		Help:      "End-to-end merge run duration.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"venue"})

	// ReserveSyncs counts reserve reconciliation runs by terminal status.
	ReserveSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reserve_syncs_total",
		Help:      "Reserve reconciliation runs by terminal status.",
	}, []string{"venue", "status"})

	// UpstreamErrors counts failed calls to source APIs.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Failed upstream source API calls.",
	}, []string{"venue", "source"})

	// ReportBuildDuration observes report computation latency by report kind.
	ReportBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_build_duration_seconds",
		Help:      "Report computation duration by report kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"venue", "report"})

	// ROIAlerts counts ROI alerts raised per channel.
	ROIAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roi_alerts_total",
		Help:      "ROI alerts raised per channel.",
	}, []string{"venue", "channel"})

	// ClientsBySegment tracks the canonical client count per segment.
	ClientsBySegment = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clients_by_segment",
		Help:      "Canonical clients per loyalty segment.",
	}, []string{"venue", "segment"})
)

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
