package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	obsmetrics "github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// AlertService watches channel ROI and notifies subscribed operators when a
// channel drops under the alert threshold. Delivery fans out over the report
// sinks and honors each operator's persisted preference record; nothing is
// held in process memory.
type AlertService struct {
	reports *ReportService
	sinks   []ReportSink
	logger  *logging.ChanneledLogger
}

// NewAlertService creates a new alert service with its dependencies.
func NewAlertService(reports *ReportService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *AlertService {
	return &AlertService{
		reports: reports,
		sinks:   defaultReportSinks(broadcaster, logger),
		logger:  logger,
	}
}

// CheckROI evaluates every channel against the ROI floor and hands one
// rendered report to every sink when at least one channel is under it.
// Returns the breaching channels, empty when all clear.
func (s *AlertService) CheckROI(venueCtx *venue.Context) ([]templates.ChannelROILine, error) {
	venueID := venueCtx.VenueID
	start := time.Now()

	rows, _, err := s.reports.Channels(venueCtx, config.MetricsWindowDays)
	if err != nil {
		return nil, err
	}

	var breaching []templates.ChannelROILine
	for _, row := range rows {
		// Channels that never spent anything cannot breach a spend floor.
		if row.MonthlyCost <= 0 {
			continue
		}
		if row.ROI < config.ROIAlertThreshold {
			breaching = append(breaching, templates.ChannelROILine{
				Channel: row.Name,
				ROI:     row.ROI,
				Spend:   row.MonthlyCost,
				Revenue: row.Revenue,
			})
			obsmetrics.ROIAlerts.WithLabelValues(venueID, row.Name).Inc()
		}
	}

	if len(breaching) == 0 {
		s.logger.Alert().Debug("ROI sweep clear", "venueId", venueID, "channels", len(rows), "duration", time.Since(start))
		return nil, nil
	}

	report := &AlertReport{
		Kind:      events.TypeROIAlert,
		VenueID:   venueID,
		Threshold: config.ROIAlertThreshold,
		Channels:  breaching,
		At:        time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), alertDeliveryTimeout)
	defer cancel()
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, venueCtx, report); err != nil {
			s.logger.Alert().Error("Alert delivery failed",
				"venueId", venueID, "sink", sink.Name(), "error", err.Error())
		}
	}
	return breaching, nil
}

// SendMergeDigest mails the merge run summary to every operator subscribed
// to merge digests.
func (s *AlertService) SendMergeDigest(venueCtx *venue.Context, report *lead.MergeReport) {
	venueID := venueCtx.VenueID

	recipients, err := venueCtx.PreferenceRepo().FindByVenue(venueID)
	if err != nil {
		s.logger.Alert().Error("Digest recipients unavailable", "venueId", venueID, "error", err.Error())
		return
	}

	props := templates.MergeDigestProps{
		VenueID:    venueID,
		RunID:      report.RunID,
		Status:     report.Status,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Accepted:   report.Accepted,
		Duplicates: report.Duplicates,
		Failed:     report.Failed,
		Warnings:   report.Warnings,
	}
	for _, src := range report.Sources {
		props.Sources = append(props.Sources, templates.SourceLine{
			Source:     src.Source,
			Fetched:    src.Fetched,
			Accepted:   src.Accepted,
			Duplicates: src.Duplicates,
			Failed:     src.Failed,
			Error:      src.Error,
		})
	}

	s.deliver(venueCtx, recipients, func(pref *repositories.OperatorPreference, sender email.Service) error {
		if !pref.MergeDigest {
			return nil
		}
		return sender.SendMergeDigest(pref.Email, props)
	})
}

// SendReserveDigest mails the reconciliation summary to every operator
// subscribed to reserve digests.
func (s *AlertService) SendReserveDigest(venueCtx *venue.Context, report *reserve.SyncReport, revenue float64) {
	venueID := venueCtx.VenueID

	recipients, err := venueCtx.PreferenceRepo().FindByVenue(venueID)
	if err != nil {
		s.logger.Alert().Error("Digest recipients unavailable", "venueId", venueID, "error", err.Error())
		return
	}

	props := templates.ReserveDigestProps{
		VenueID:    venueID,
		WindowFrom: report.StartedAt.AddDate(0, 0, -config.ReserveLookbackDays),
		WindowTo:   report.FinishedAt,
		Fetched:    report.FreshCount,
		Stored:     report.MergedCount,
		Guests:     report.GuestCount,
		Revenue:    revenue,
	}

	s.deliver(venueCtx, recipients, func(pref *repositories.OperatorPreference, sender email.Service) error {
		if !pref.ReserveDigest {
			return nil
		}
		return sender.SendReserveDigest(pref.Email, props)
	})
}

// deliver runs one send callback per operator over a shared email client.
func (s *AlertService) deliver(venueCtx *venue.Context, recipients []*repositories.OperatorPreference, send func(*repositories.OperatorPreference, email.Service) error) {
	venueID := venueCtx.VenueID
	if len(recipients) == 0 {
		return
	}

	sender, err := email.NewService(venueCtx.Config.ResendAPIKey, venueCtx.Config.AlertEmailFrom)
	if err != nil {
		s.logger.Alert().Error("Email client unavailable, digests not delivered", "venueId", venueID, "error", err.Error())
		return
	}

	for _, pref := range recipients {
		if pref.Email == "" {
			continue
		}
		if err := send(pref, sender); err != nil {
			s.logger.Alert().Error("Digest not delivered",
				"venueId", venueID, "operatorId", pref.OperatorID, "error", err.Error())
		}
	}
}

func channelNames(lines []templates.ChannelROILine) []string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		names = append(names, line.Channel)
	}
	return names
}
