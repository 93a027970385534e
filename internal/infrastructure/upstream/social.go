package upstream

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/google/uuid"
)

// socialRecord mirrors one captured lead from the social inbox API. Email and
// tracker ids are frequently empty there; identity resolution falls back to
// the phone key alone.
type socialRecord struct {
	Date        string `json:"date"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
	YMClientID  string `json:"ym_client_id"`
}

// SocialReader pulls captured leads from the social inbox API for one venue.
type SocialReader struct {
	http      HTTPClient
	baseURL   string
	apiKey    string
	accountID string
	venueID   string
	logger    *logging.ChanneledLogger
}

// NewSocialReader creates a venue-scoped reader for the social inbox API.
func NewSocialReader(httpc HTTPClient, baseURL, apiKey, accountID, venueID string, logger *logging.ChanneledLogger) *SocialReader {
	return &SocialReader{
		http:      httpc,
		baseURL:   baseURL,
		apiKey:    apiKey,
		accountID: accountID,
		venueID:   venueID,
		logger:    logger,
	}
}

func (r *SocialReader) Name() string { return lead.SourceSocial }

// FetchNewRecords returns every lead captured after since.
func (r *SocialReader) FetchNewRecords(ctx context.Context, since time.Time) ([]lead.RawLead, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/leads?%s", r.baseURL, url.PathEscape(r.accountID), params.Encode())
	headers := map[string]string{"Authorization": "Bearer " + r.apiKey}

	start := time.Now()
	var records []socialRecord
	status, err := getJSONWithRetry(ctx, r.http, endpoint, headers, defaultRetries, &records)
	r.logger.LogUpstreamCall(lead.SourceSocial, "/accounts/leads", status, time.Since(start), r.venueID)
	if err != nil {
		return nil, fmt.Errorf("social fetch: %w", err)
	}

	raws := make([]lead.RawLead, 0, len(records))
	for _, rec := range records {
		raws = append(raws, lead.RawLead{
			RecordID:        uuid.NewString(),
			Source:          lead.SourceSocial,
			CaptureTime:     parseCaptureTime(rec.Date),
			Name:            rec.Name,
			Phone:           rec.Phone,
			Email:           rec.Email,
			UTMSource:       rec.UTMSource,
			UTMMedium:       rec.UTMMedium,
			UTMCampaign:     rec.UTMCampaign,
			UTMContent:      rec.UTMContent,
			UTMTerm:         rec.UTMTerm,
			ExternalClientA: rec.YMClientID,
		})
	}
	return raws, nil
}
