package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/events"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
)

const alertDeliveryTimeout = 30 * time.Second

// AlertReport is one rendered alert, transport neutral. Every enabled sink
// receives the same report.
type AlertReport struct {
	Kind      string
	VenueID   string
	Threshold float64
	Channels  []templates.ChannelROILine
	At        time.Time
}

// ReportSink delivers a rendered report through one transport. A sink error
// affects only that transport; the dispatcher logs it and moves on.
type ReportSink interface {
	Name() string
	Deliver(ctx context.Context, venueCtx *venue.Context, report *AlertReport) error
}

// defaultReportSinks returns the standard delivery set: operator email, the
// venue event stream, and the alert log channel.
func defaultReportSinks(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) []ReportSink {
	return []ReportSink{
		&emailReportSink{logger: logger},
		&streamReportSink{broadcaster: broadcaster},
		&logReportSink{logger: logger},
	}
}

// emailReportSink mails the report to every operator whose preference record
// opts into ROI alerts. A single bounced recipient is logged and skipped;
// only transport-wide failures surface to the dispatcher.
type emailReportSink struct {
	logger *logging.ChanneledLogger
}

func (s *emailReportSink) Name() string { return "email" }

func (s *emailReportSink) Deliver(ctx context.Context, venueCtx *venue.Context, report *AlertReport) error {
	venueID := venueCtx.VenueID

	recipients, err := venueCtx.PreferenceRepo().FindROIAlertRecipients(venueID)
	if err != nil {
		return fmt.Errorf("loading alert recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	sender, err := email.NewService(venueCtx.Config.ResendAPIKey, venueCtx.Config.AlertEmailFrom)
	if err != nil {
		return fmt.Errorf("email client unavailable: %w", err)
	}

	props := templates.ROIAlertProps{
		VenueID:   venueID,
		Period:    report.At.Format("2006-01-02"),
		Threshold: report.Threshold,
		Channels:  report.Channels,
	}
	delivered := 0
	for _, pref := range recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pref.Email == "" {
			continue
		}
		if err := sender.SendROIAlert(pref.Email, props); err != nil {
			s.logger.Alert().Error("ROI alert not delivered",
				"venueId", venueID, "operatorId", pref.OperatorID, "error", err.Error())
			continue
		}
		delivered++
	}
	s.logger.Alert().Info("ROI alerts delivered",
		"venueId", venueID, "recipients", len(recipients), "delivered", delivered)
	return nil
}

// streamReportSink pushes the report onto the venue's live event stream so
// connected dashboards update without polling.
type streamReportSink struct {
	broadcaster messaging.Broadcaster
}

func (s *streamReportSink) Name() string { return "stream" }

func (s *streamReportSink) Deliver(_ context.Context, venueCtx *venue.Context, report *AlertReport) error {
	s.broadcaster.BroadcastEvent(venueCtx.VenueID, events.Event{
		ID:      security.GenerateULID(),
		Type:    report.Kind,
		VenueID: venueCtx.VenueID,
		At:      report.At,
		Payload: map[string]any{
			"channels":  channelNames(report.Channels),
			"threshold": report.Threshold,
		},
	})
	return nil
}

// logReportSink writes the report to the alert channel, the transport of
// last resort that always works.
type logReportSink struct {
	logger *logging.ChanneledLogger
}

func (s *logReportSink) Name() string { return "log" }

func (s *logReportSink) Deliver(_ context.Context, venueCtx *venue.Context, report *AlertReport) error {
	s.logger.Alert().Warn("ROI floor breached",
		"venueId", venueCtx.VenueID,
		"breaching", len(report.Channels),
		"channels", channelNames(report.Channels),
		"threshold", report.Threshold)
	return nil
}
