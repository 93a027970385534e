// Package templates provides alert and digest email content
package templates

import (
	"fmt"
	"time"
)

// ChannelROILine is one underperforming channel in an ROI alert.
type ChannelROILine struct {
	Channel string
	ROI     float64
	Spend   float64
	Revenue float64
}

type ROIAlertProps struct {
	VenueID      string
	Period       string
	Threshold    float64
	Channels     []ChannelROILine
	DashboardURL string
}

// SourceLine is one upstream source in a merge digest.
type SourceLine struct {
	Source     string
	Fetched    int
	Accepted   int
	Duplicates int
	Failed     int
	Error      string
}

type MergeDigestProps struct {
	VenueID      string
	RunID        string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Accepted     int
	Duplicates   int
	Failed       int
	Sources      []SourceLine
	Warnings     []string
	DashboardURL string
}

type ReserveDigestProps struct {
	VenueID      string
	WindowFrom   time.Time
	WindowTo     time.Time
	Fetched      int
	Stored       int
	Guests       int
	Revenue      float64
	DashboardURL string
}

// GetROIAlertContent builds the body of a channel ROI alert email.
func GetROIAlertContent(props ROIAlertProps) string {
	content := GetHeading(fmt.Sprintf("Channel ROI alert for %s", props.VenueID)) +
		GetParagraph(fmt.Sprintf("The following channels returned ROI below %s for %s:",
			formatROI(props.Threshold), props.Period))

	rows := make([]StatRow, 0, len(props.Channels))
	for _, ch := range props.Channels {
		rows = append(rows, StatRow{
			Label: ch.Channel,
			Value: fmt.Sprintf("%s (spend %s, revenue %s)",
				formatROI(ch.ROI), formatMoney(ch.Spend), formatMoney(ch.Revenue)),
		})
	}
	content += GetStatTable(rows)

	content += GetParagraph("Consider pausing or rebalancing spend on these channels.")
	if props.DashboardURL != "" {
		content += GetButton(ButtonProps{
			Text: "Open Channel Report",
			URL:  props.DashboardURL,
		})
	}

	return content
}

// GetMergeDigestContent builds the body of a lead merge digest email.
func GetMergeDigestContent(props MergeDigestProps) string {
	content := GetHeading(fmt.Sprintf("Lead merge digest for %s", props.VenueID)) +
		GetParagraph(fmt.Sprintf("Run %s finished %s at %s in %s.",
			props.RunID, props.Status,
			props.FinishedAt.Format("15:04 MST"),
			props.FinishedAt.Sub(props.StartedAt).Round(time.Millisecond)))

	content += GetStatTable([]StatRow{
		{Label: "Accepted", Value: fmt.Sprintf("%d", props.Accepted)},
		{Label: "Duplicates suppressed", Value: fmt.Sprintf("%d", props.Duplicates)},
		{Label: "Failed", Value: fmt.Sprintf("%d", props.Failed)},
	})

	if len(props.Sources) > 0 {
		content += GetHeading("By source")
		rows := make([]StatRow, 0, len(props.Sources))
		for _, src := range props.Sources {
			value := fmt.Sprintf("%d fetched, %d accepted", src.Fetched, src.Accepted)
			if src.Error != "" {
				value = "error: " + src.Error
			}
			rows = append(rows, StatRow{Label: src.Source, Value: value})
		}
		content += GetStatTable(rows)
	}

	for _, warning := range props.Warnings {
		content += GetParagraph("Warning: " + warning)
	}

	if props.DashboardURL != "" {
		content += GetButton(ButtonProps{
			Text: "Open Merge History",
			URL:  props.DashboardURL,
		})
	}

	return content
}

// GetReserveDigestContent builds the body of a reservation sync digest email.
func GetReserveDigestContent(props ReserveDigestProps) string {
	content := GetHeading(fmt.Sprintf("Reservation sync digest for %s", props.VenueID)) +
		GetParagraph(fmt.Sprintf("Reservations from %s to %s were reconciled against the guest ledger.",
			props.WindowFrom.Format("Jan 2"), props.WindowTo.Format("Jan 2, 2006")))

	content += GetStatTable([]StatRow{
		{Label: "Reservations fetched", Value: fmt.Sprintf("%d", props.Fetched)},
		{Label: "Reservations stored", Value: fmt.Sprintf("%d", props.Stored)},
		{Label: "Guests updated", Value: fmt.Sprintf("%d", props.Guests)},
		{Label: "Booked revenue", Value: formatMoney(props.Revenue)},
	})

	if props.DashboardURL != "" {
		content += GetButton(ButtonProps{
			Text: "Open Guest Ledger",
			URL:  props.DashboardURL,
		})
	}

	return content
}

// formatROI renders a return ratio as a signed percentage, so 1.4 reads +140%.
func formatROI(ratio float64) string {
	return fmt.Sprintf("%+.0f%%", ratio*100)
}

func formatMoney(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
