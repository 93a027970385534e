package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// pageFetchPause spaces paginated reservation requests to stay inside the
// booking system's rate limits.
const pageFetchPause = 500 * time.Millisecond

// reservationRecord mirrors one booking record from the reservation API.
type reservationRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email"`
	TimeFrom  string  `json:"time_from"`
	Status    string  `json:"status"`
	OrderSum  float64 `json:"order_sum"`
	Count     int     `json:"count"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// reservesPage is the envelope the reservation API wraps each page in.
type reservesPage struct {
	Data       []reservationRecord `json:"data"`
	Pagination struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"pagination"`
}

// ReservationsClient pages through the booking system's reserves feed.
type ReservationsClient struct {
	http    HTTPClient
	baseURL string
	apiKey  string
	venueID string
	logger  *logging.ChanneledLogger
}

// NewReservationsClient creates a venue-scoped client for the reservation API.
func NewReservationsClient(httpc HTTPClient, baseURL, apiKey, venueID string, logger *logging.ChanneledLogger) *ReservationsClient {
	return &ReservationsClient{
		http:    httpc,
		baseURL: baseURL,
		apiKey:  apiKey,
		venueID: venueID,
		logger:  logger,
	}
}

// FetchReserves returns every reservation updated within the trailing
// daysBack window, walking pages until the feed reports no more. A page
// failing after its retries returns the records collected so far together
// with the error; the reconciler decides whether a partial snapshot is
// usable. Auth rejection aborts with no records.
func (c *ReservationsClient) FetchReserves(ctx context.Context, daysBack int) ([]reserve.Reservation, error) {
	updatedAfter := time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02 15:04:05")

	var all []reserve.Reservation
	page := 1
	for {
		records, totalPages, err := c.fetchPage(ctx, updatedAfter, page)
		if err != nil {
			if errors.Is(err, lead.ErrUpstreamAuth) {
				return nil, err
			}
			return all, fmt.Errorf("reserves page %d: %w", page, err)
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			all = append(all, reserve.Reservation{
				ID:        rec.ID,
				Name:      rec.Name,
				Phone:     rec.Phone,
				Email:     rec.Email,
				TimeFrom:  parseCaptureTime(rec.TimeFrom),
				Status:    rec.Status,
				OrderSum:  rec.OrderSum,
				PartySize: rec.Count,
				Source:    rec.Source,
				CreatedAt: parseCaptureTime(rec.CreatedAt),
				UpdatedAt: parseCaptureTime(rec.UpdatedAt),
			})
		}

		if totalPages > 0 && page >= totalPages {
			break
		}
		page++

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(pageFetchPause):
		}
	}

	c.logger.Reserve().Debug("Reservation fetch complete",
		"venueId", c.venueID, "reserves", len(all), "pages", page, "daysBack", daysBack)
	return all, nil
}

func (c *ReservationsClient) fetchPage(ctx context.Context, updatedAfter string, page int) ([]reservationRecord, int, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(config.ReservePageSize))
	params.Set("updatedAfterTime", updatedAfter)
	endpoint := fmt.Sprintf("%s/reserves?%s", c.baseURL, params.Encode())

	start := time.Now()
	var body reservesPage
	status, err := getJSONWithRetry(ctx, c.http, endpoint, nil, config.ReserveFetchRetries, &body)
	c.logger.LogUpstreamCall("reservations", "/reserves", status, time.Since(start), c.venueID)
	if err != nil {
		return nil, 0, err
	}
	return body.Data, body.Pagination.TotalPages, nil
}
