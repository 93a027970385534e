// Package lead defines inbound lead records, the accepted ledger rows they
// become, and the contracts the merge pipeline consumes them through.
package lead

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors shared by the upstream contracts.
var (
	// ErrNoData marks a lookup that completed but had nothing for the
	// requested identity. Treated as a degraded result, never fatal.
	ErrNoData = errors.New("no data for requested identity")
	// ErrUpstreamAuth marks a total authentication failure upstream. The
	// only run-fatal condition: further dispatch halts.
	ErrUpstreamAuth = errors.New("upstream authentication failed")
)

// RawLead is one immutable inbound record as captured at the source.
type RawLead struct {
	RecordID        string    `json:"recordId"`
	Source          string    `json:"source"`
	CaptureTime     time.Time `json:"captureTime"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	UTMSource       string    `json:"utmSource"`
	UTMMedium       string    `json:"utmMedium"`
	UTMCampaign     string    `json:"utmCampaign"`
	UTMContent      string    `json:"utmContent"`
	UTMTerm         string    `json:"utmTerm"`
	ExternalClientA string    `json:"externalClientA"` // web-metrics counter id
	ExternalClientB string    `json:"externalClientB"` // secondary tracker id
}

// Lead is an accepted ledger row with its assigned monotonic identifier.
type Lead struct {
	LeadID          string      `json:"leadId"`
	ClientKey       string      `json:"clientKey"`
	Source          string      `json:"source"`
	CaptureTime     time.Time   `json:"captureTime"`
	Name            string      `json:"name"`
	Phone           string      `json:"phone"`
	Email           string      `json:"email"`
	Channel         string      `json:"channel"`
	UTMSource       string      `json:"utmSource"`
	UTMMedium       string      `json:"utmMedium"`
	UTMCampaign     string      `json:"utmCampaign"`
	ExternalClientA string      `json:"externalClientA"`
	ExternalClientB string      `json:"externalClientB"`
	Metrics         *WebMetrics `json:"metrics,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// WebMetrics is site behavior attached to a lead from the external counter.
// The zero value doubles as the documented no-data sentinel.
type WebMetrics struct {
	Visits      int     `json:"visits"`
	PageViews   int     `json:"pageViews"`
	BounceRate  float64 `json:"bounceRate"`
	AvgDuration float64 `json:"avgDuration"`
}

// IsZero reports whether the metrics carry any observed behavior.
func (m WebMetrics) IsZero() bool {
	return m.Visits == 0 && m.PageViews == 0 && m.BounceRate == 0 && m.AvgDuration == 0
}

// SourceReader is one uncoordinated lead source. Implementations fetch
// everything captured after the given time; a failing reader never blocks
// the other sources.
type SourceReader interface {
	Name() string
	FetchNewRecords(ctx context.Context, since time.Time) ([]RawLead, error)
}

// Source names, in merge precedence order: site submissions are processed
// before social capture, so when both carry the same identity the richer
// site record wins the dedup race.
const (
	SourceSite   = "site"
	SourceSocial = "social"
)

// MetricsLookup fetches site-behavior metrics for one external client id over
// a window. Returns ErrNoData when the counter knows nothing about the id and
// ErrUpstreamAuth when the credential itself is rejected.
type MetricsLookup interface {
	FetchMetrics(ctx context.Context, externalClientID string, from, to time.Time) (WebMetrics, error)
}

const idPrefix = "LEAD_"

// FormatID renders the monotonic ledger identifier for sequence n.
func FormatID(n int) string {
	return idPrefix + strconv.Itoa(n)
}

// SequenceFromID extracts n from a LEAD_<n> identifier. Non-conforming ids
// report ok=false and are ignored when computing the next sequence.
func SequenceFromID(id string) (int, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextSequence returns max(existing)+1 so identifiers stay monotonic and are
// never reused, even after a full ledger reload.
func NextSequence(existingIDs []string) int {
	maxSeq := 0
	for _, id := range existingIDs {
		if n, ok := SequenceFromID(id); ok && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq + 1
}

// SourceResult is the per-source slice of a merge run.
type SourceResult struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// Merge run status values.
const (
	RunComplete = "complete"
	RunPartial  = "partial"
	RunFailed   = "failed"
)

// MergeReport summarizes one merge run: per-source counts, suppressed
// duplicates and accumulated warnings. Per-item failures are counted here,
// never raised out of the run.
type MergeReport struct {
	RunID      string         `json:"runId"`
	VenueID    string         `json:"venueId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Sources    []SourceResult `json:"sources"`
	Accepted   int            `json:"accepted"`
	Duplicates int            `json:"duplicates"`
	Failed     int            `json:"failed"`
	Warnings   []string       `json:"warnings,omitempty"`
	Status     string         `json:"status"`
}

// Warnf appends a formatted warning to the report.
func (r *MergeReport) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finalize rolls the per-source counts up and derives the run status.
func (r *MergeReport) Finalize() {
	r.Accepted, r.Duplicates, r.Failed = 0, 0, 0
	failedSources := 0
	for _, s := range r.Sources {
		r.Accepted += s.Accepted
		r.Duplicates += s.Duplicates
		r.Failed += s.Failed
		if s.Error != "" {
			failedSources++
		}
	}
	switch {
	case len(r.Sources) > 0 && failedSources == len(r.Sources):
		r.Status = RunFailed
	case failedSources > 0 || r.Failed > 0:
		r.Status = RunPartial
	default:
		r.Status = RunComplete
	}
	r.FinishedAt = time.Now().UTC()
}
