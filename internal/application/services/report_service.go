package services

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/client"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	obsmetrics "github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// Daily alert floors, carried over from the operator playbook: a channel is
// flagged when conversion drops under 5% or acquisition cost passes 15000.
const (
	lowConversionFloor = 0.05
	highCACCeiling     = 15000
)

// ChannelReport is the per-channel metrics row for the analysis window.
type ChannelReport struct {
	Name        string  `json:"name"`
	MonthlyCost float64 `json:"monthlyCost"`
	Leads       int     `json:"leads"`
	Clients     int     `json:"clients"`
	Revenue     float64 `json:"revenue"`
	CAC         float64 `json:"cac"`
	LTV         float64 `json:"ltv"`
	ROI         float64 `json:"roi"`
	Conversion  float64 `json:"conversion"`
	Rating      float64 `json:"rating"`
}

// ChannelDetail extends the channel row with the payback estimate shown on
// the single-channel view. PaybackVisits is zero while the channel has no
// revenue to estimate an average check from.
type ChannelDetail struct {
	ChannelReport
	PaybackVisits float64 `json:"paybackVisits"`
}

// SegmentReport is one loyalty segment's roster slice.
type SegmentReport struct {
	Segment      string  `json:"segment"`
	Clients      int     `json:"clients"`
	TotalRevenue float64 `json:"totalRevenue"`
	AvgRevenue   float64 `json:"avgRevenue"`
	AvgVisits    float64 `json:"avgVisits"`
	AvgCheck     float64 `json:"avgCheck"`
	Percentage   float64 `json:"percentage"`
}

// TopChannel is the compact channel row embedded in the daily report.
type TopChannel struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	ROI     float64 `json:"roi"`
	Clients int     `json:"clients"`
}

// DailyReport is the aggregate venue snapshot for one calendar day, with the
// trailing window rollup behind it.
type DailyReport struct {
	Date         string          `json:"date"`
	NewLeads     int             `json:"newLeads"`
	TotalLeads   int             `json:"totalLeads"`
	TotalClients int             `json:"totalClients"`
	Conversion   float64         `json:"conversion"`
	Revenue      float64         `json:"revenue"`
	Cost         float64         `json:"cost"`
	ROI          float64         `json:"roi"`
	TopChannels  []TopChannel    `json:"topChannels"`
	Segments     []SegmentReport `json:"segments"`
	Alerts       []string        `json:"alerts,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// ReportService computes the reporting surface: daily rollups, channel and
// segment analytics. Results are cached per venue with an ETag so the
// presentation layer can serve conditional requests; any ledger mutation
// invalidates the cache.
type ReportService struct {
	logger *logging.ChanneledLogger
}

// NewReportService creates a new report service.
func NewReportService(logger *logging.ChanneledLogger) *ReportService {
	return &ReportService{
		logger: logger,
	}
}

// Daily builds the venue snapshot for the target day over the configured
// trailing window. A missing channel cost degrades that channel to zero cost
// with a warning instead of failing the report.
func (s *ReportService) Daily(venueCtx *venue.Context, target time.Time) (*DailyReport, string, error) {
	venueID := venueCtx.VenueID
	if target.IsZero() {
		target = time.Now().UTC()
	}
	day := target.Format("2006-01-02")
	cacheKey := "daily:" + day

	if entry, found := venueCtx.CacheManager.GetReport(venueID, cacheKey); found {
		if cached, ok := entry.Payload.(*DailyReport); ok {
			return cached, entry.ETag, nil
		}
	}

	start := time.Now()
	from := target.AddDate(0, 0, -config.MetricsWindowDays)
	rows, warnings, err := s.channelAnalytics(venueCtx, from, target)
	if err != nil {
		return nil, "", err
	}

	report := &DailyReport{Date: day, Warnings: warnings}
	for _, row := range rows {
		report.TotalLeads += row.Leads
		report.TotalClients += row.Clients
		report.Revenue += row.Revenue
		report.Cost += row.MonthlyCost
	}
	report.Conversion = metrics.Conversion(report.TotalClients, report.TotalLeads)
	report.ROI = metrics.ROI(report.Revenue, report.Cost)

	dayStart := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	todayLeads, err := venueCtx.LeadRepo().FindByPeriod(venueID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		report.Warnings = append(report.Warnings, "today's lead count unavailable: "+err.Error())
	} else {
		report.NewLeads = len(todayLeads)
	}

	top := len(rows)
	if top > 5 {
		top = 5
	}
	for _, row := range rows[:top] {
		report.TopChannels = append(report.TopChannels, TopChannel{
			Name:    row.Name,
			Revenue: row.Revenue,
			ROI:     row.ROI,
			Clients: row.Clients,
		})
	}

	segments, _, err := s.Segments(venueCtx)
	if err != nil {
		report.Warnings = append(report.Warnings, "segment rollup unavailable: "+err.Error())
	} else {
		report.Segments = segments
	}

	report.Alerts = dailyAlerts(rows)

	etag := s.finishReport(venueCtx, "daily", cacheKey, report, start)
	return report, etag, nil
}

// Channels analyzes every active channel over the trailing window, rated and
// sorted by revenue.
func (s *ReportService) Channels(venueCtx *venue.Context, daysBack int) ([]ChannelReport, string, error) {
	if daysBack <= 0 {
		daysBack = config.MetricsWindowDays
	}
	cacheKey := fmt.Sprintf("channels:%d", daysBack)
	if entry, found := venueCtx.CacheManager.GetReport(venueCtx.VenueID, cacheKey); found {
		if cached, ok := entry.Payload.([]ChannelReport); ok {
			return cached, entry.ETag, nil
		}
	}

	start := time.Now()
	to := time.Now().UTC()
	rows, _, err := s.channelAnalytics(venueCtx, to.AddDate(0, 0, -daysBack), to)
	if err != nil {
		return nil, "", err
	}

	etag := s.finishReport(venueCtx, "channels", cacheKey, rows, start)
	return rows, etag, nil
}

// Channel analyzes one channel by name over the default window. A nil report
// with no error means the channel is not configured.
func (s *ReportService) Channel(venueCtx *venue.Context, name string) (*ChannelDetail, string, error) {
	cacheKey := "channel:" + strings.ToLower(name)
	if entry, found := venueCtx.CacheManager.GetReport(venueCtx.VenueID, cacheKey); found {
		if cached, ok := entry.Payload.(*ChannelDetail); ok {
			return cached, entry.ETag, nil
		}
	}

	start := time.Now()
	rows, _, err := s.Channels(venueCtx, config.MetricsWindowDays)
	if err != nil {
		return nil, "", err
	}

	var found *ChannelReport
	for i := range rows {
		if strings.EqualFold(rows[i].Name, name) {
			found = &rows[i]
			break
		}
	}
	if found == nil {
		return nil, "", nil
	}

	detail := &ChannelDetail{ChannelReport: *found}
	// Payback is the visit count needed before revenue per client covers the
	// acquisition cost, assuming the LTV window of six visits.
	if detail.CAC > 0 && detail.LTV > 0 {
		avgCheck := detail.LTV / 6
		if avgCheck > 0 {
			detail.PaybackVisits = detail.CAC / avgCheck
		}
	}

	etag := s.finishReport(venueCtx, "channel", cacheKey, detail, start)
	return detail, etag, nil
}

// Segments rolls the canonical roster up by loyalty segment. The stored
// segment column is ignored; every row is re-derived from the current
// thresholds before counting.
func (s *ReportService) Segments(venueCtx *venue.Context) ([]SegmentReport, string, error) {
	cacheKey := "segments"
	if entry, found := venueCtx.CacheManager.GetReport(venueCtx.VenueID, cacheKey); found {
		if cached, ok := entry.Payload.([]SegmentReport); ok {
			return cached, entry.ETag, nil
		}
	}

	start := time.Now()
	roster, err := venueCtx.ClientRepo().FindAll(venueCtx.VenueID)
	if err != nil {
		return nil, "", fmt.Errorf("loading client roster: %w", err)
	}

	th := client.Thresholds{
		VIPVisits:     config.VIPVisitThreshold,
		VIPAvgAmount:  config.VIPAmountThreshold,
		RegularVisits: config.RegularVisitThreshold,
		RegularAvg:    config.RegularAvgThreshold,
	}

	type rollup struct {
		clients int
		revenue float64
		visits  int
	}
	rollups := make(map[client.Segment]*rollup)
	for _, c := range roster {
		seg := c.DeriveSegment(th)
		r, ok := rollups[seg]
		if !ok {
			r = &rollup{}
			rollups[seg] = r
		}
		r.clients++
		r.revenue += c.TotalRevenue
		r.visits += c.TotalVisits
	}

	reports := make([]SegmentReport, 0, len(rollups))
	for seg, r := range rollups {
		row := SegmentReport{
			Segment:      string(seg),
			Clients:      r.clients,
			TotalRevenue: r.revenue,
		}
		if r.clients > 0 {
			row.AvgRevenue = r.revenue / float64(r.clients)
			row.AvgVisits = float64(r.visits) / float64(r.clients)
		}
		if r.visits > 0 {
			row.AvgCheck = r.revenue / float64(r.visits)
		}
		if len(roster) > 0 {
			row.Percentage = float64(r.clients) / float64(len(roster)) * 100
		}
		reports = append(reports, row)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Clients != reports[j].Clients {
			return reports[i].Clients > reports[j].Clients
		}
		return reports[i].Segment < reports[j].Segment
	})

	etag := s.finishReport(venueCtx, "segments", cacheKey, reports, start)
	return reports, etag, nil
}

// channelAnalytics is the shared rollup: leads in the window grouped by
// channel, joined to their canonical clients for conversion and revenue.
// Revenue per channel is taken from the retained visit history of the
// channel's clients, scoped to the window.
func (s *ReportService) channelAnalytics(venueCtx *venue.Context, from, to time.Time) ([]ChannelReport, []string, error) {
	venueID := venueCtx.VenueID

	channels, err := venueCtx.ChannelRepo().FindAll(venueID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading channels: %w", err)
	}
	leads, err := venueCtx.LeadRepo().FindByPeriod(venueID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("loading leads for period: %w", err)
	}
	roster, err := venueCtx.ClientRepo().FindAll(venueID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading client roster: %w", err)
	}

	clientsByKey := make(map[string]*client.CanonicalClient, len(roster))
	for _, c := range roster {
		clientsByKey[c.ClientKey] = c
	}

	leadCount := make(map[string]int)
	keysByChannel := make(map[string]map[string]struct{})
	for _, l := range leads {
		leadCount[l.Channel]++
		keys, ok := keysByChannel[l.Channel]
		if !ok {
			keys = make(map[string]struct{})
			keysByChannel[l.Channel] = keys
		}
		keys[l.ClientKey] = struct{}{}
	}

	costByName := make(map[string]float64, len(channels))
	active := make([]string, 0, len(channels))
	for _, ch := range channels {
		if !ch.IsActive {
			continue
		}
		costByName[ch.Name] = ch.MonthlyCost
		active = append(active, ch.Name)
	}

	var warnings []string
	for name := range leadCount {
		if _, configured := costByName[name]; !configured {
			warnings = append(warnings, fmt.Sprintf("channel %q has no configured cost, reported with zero spend", name))
			costByName[name] = 0
			active = append(active, name)
		}
	}

	rows := make([]ChannelReport, 0, len(active))
	for _, name := range active {
		row := ChannelReport{
			Name:        name,
			MonthlyCost: costByName[name],
			Leads:       leadCount[name],
		}
		for key := range keysByChannel[name] {
			c, ok := clientsByKey[key]
			if !ok || c.TotalVisits == 0 {
				continue
			}
			row.Clients++
			for _, v := range c.VisitHistory {
				if !v.Date.Before(from) && !v.Date.After(to) {
					row.Revenue += v.Amount
				}
			}
		}
		row.CAC = metrics.CAC(row.MonthlyCost, row.Clients)
		if row.Clients > 0 {
			row.LTV = row.Revenue / float64(row.Clients)
		}
		row.ROI = metrics.ROI(row.Revenue, row.MonthlyCost)
		row.Conversion = metrics.Conversion(row.Clients, row.Leads)
		row.Rating = metrics.ChannelRating(row.ROI, row.Conversion, row.CAC)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, warnings, nil
}

// dailyAlerts flags channels breaching the operational floors.
func dailyAlerts(rows []ChannelReport) []string {
	var alerts []string
	for _, row := range rows {
		if row.ROI < config.ROIAlertThreshold {
			alerts = append(alerts, fmt.Sprintf("%s: critically low ROI (%+.0f%%)", row.Name, row.ROI*100))
		}
		if row.Leads > 0 && row.Conversion < lowConversionFloor {
			alerts = append(alerts, fmt.Sprintf("%s: low conversion (%.1f%%)", row.Name, row.Conversion*100))
		}
		if row.CAC > highCACCeiling {
			alerts = append(alerts, fmt.Sprintf("%s: high CAC (%.0f)", row.Name, row.CAC))
		}
	}
	return alerts
}

// finishReport caches the computed payload, records the build duration and
// returns the payload's ETag.
func (s *ReportService) finishReport(venueCtx *venue.Context, kind, cacheKey string, payload any, start time.Time) string {
	etag := etagFor(payload)
	venueCtx.CacheManager.SetReport(venueCtx.VenueID, cacheKey, payload, etag)
	obsmetrics.ReportBuildDuration.WithLabelValues(venueCtx.VenueID, kind).Observe(time.Since(start).Seconds())
	s.logger.Analytics().Debug("Report computed",
		"venueId", venueCtx.VenueID, "report", cacheKey, "duration", time.Since(start))
	return etag
}

// etagFor derives a strong validator from the payload content.
func etagFor(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%q", time.Now().UTC().Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(data)))
}
