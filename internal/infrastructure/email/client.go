// Package email provides the email client for sending alert and digest emails.
package email

import (
	"fmt"
	"os"

	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendROIAlert(toEmail string, props templates.ROIAlertProps) error
	SendMergeDigest(toEmail string, props templates.MergeDigestProps) error
	SendReserveDigest(toEmail string, props templates.ReserveDigestProps) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a venue-scoped email client. The API key and from
// address come from the venue config, falling back to process-level
// environment defaults when the venue does not carry its own.
func NewService(apiKey, fromEmail string) (Service, error) {
	if apiKey == "" {
		apiKey = os.Getenv("RESEND_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required for email delivery")
	}

	if fromEmail == "" {
		fromEmail = os.Getenv("ALERT_EMAIL_FROM")
	}
	if fromEmail == "" {
		fromEmail = "alerts@leadledger.app" // Default from address
	}

	fromName := os.Getenv("ALERT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "LeadLedger" // Default from name
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendROIAlert composes and sends a channel ROI alert email.
func (c *ResendClient) SendROIAlert(toEmail string, props templates.ROIAlertProps) error {
	subject := fmt.Sprintf("ROI alert: %d channel(s) below threshold at %s", len(props.Channels), props.VenueID)

	content := templates.GetROIAlertContent(props)
	return c.send(toEmail, subject, content)
}

// SendMergeDigest composes and sends a lead merge digest email.
func (c *ResendClient) SendMergeDigest(toEmail string, props templates.MergeDigestProps) error {
	subject := fmt.Sprintf("Merge digest: %d accepted, %d duplicates at %s", props.Accepted, props.Duplicates, props.VenueID)

	content := templates.GetMergeDigestContent(props)
	return c.send(toEmail, subject, content)
}

// SendReserveDigest composes and sends a reservation sync digest email.
func (c *ResendClient) SendReserveDigest(toEmail string, props templates.ReserveDigestProps) error {
	subject := fmt.Sprintf("Reservation digest: %d guests updated at %s", props.Guests, props.VenueID)

	content := templates.GetReserveDigestContent(props)
	return c.send(toEmail, subject, content)
}

func (c *ResendClient) send(toEmail, subject, content string) error {
	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send %q via Resend: %w", subject, err)
	}

	return nil
}
