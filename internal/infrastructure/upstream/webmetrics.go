package upstream

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
)

// statMetrics is the fixed metric set requested per lookup, in the order the
// counter returns values.
const statMetrics = "ym:s:visits,ym:s:pageviews,ym:s:bounceRate,ym:s:avgVisitDuration"

// webMetricsResponse mirrors the counter's stat API: one row of metric
// values per matched dimension set.
type webMetricsResponse struct {
	Data []struct {
		Metrics []float64 `json:"metrics"`
	} `json:"data"`
}

// WebMetricsClient looks up site-behavior metrics for individual visitors on
// the venue's web-analytics counter.
type WebMetricsClient struct {
	http      HTTPClient
	baseURL   string
	token     string
	counterID string
	venueID   string
	logger    *logging.ChanneledLogger
}

// NewWebMetricsClient creates a venue-scoped client for the web-metrics counter.
func NewWebMetricsClient(httpc HTTPClient, baseURL, token, counterID, venueID string, logger *logging.ChanneledLogger) *WebMetricsClient {
	return &WebMetricsClient{
		http:      httpc,
		baseURL:   baseURL,
		token:     token,
		counterID: counterID,
		venueID:   venueID,
		logger:    logger,
	}
}

// FetchMetrics returns the visitor's behavior over [from, to]. A counter
// that knows nothing about the id yields lead.ErrNoData; a rejected token
// yields lead.ErrUpstreamAuth.
func (c *WebMetricsClient) FetchMetrics(ctx context.Context, externalClientID string, from, to time.Time) (lead.WebMetrics, error) {
	params := url.Values{}
	params.Set("id", c.counterID)
	params.Set("date1", from.Format("2006-01-02"))
	params.Set("date2", to.Format("2006-01-02"))
	params.Set("metrics", statMetrics)
	params.Set("filters", fmt.Sprintf("ym:s:clientID=='%s'", externalClientID))
	params.Set("accuracy", "full")
	endpoint := fmt.Sprintf("%s/stat/v1/data?%s", c.baseURL, params.Encode())
	headers := map[string]string{"Authorization": "OAuth " + c.token}

	start := time.Now()
	var body webMetricsResponse
	status, err := getJSONWithRetry(ctx, c.http, endpoint, headers, defaultRetries, &body)
	c.logger.LogUpstreamCall("webmetrics", "/stat/v1/data", status, time.Since(start), c.venueID)
	if err != nil {
		return lead.WebMetrics{}, err
	}

	if len(body.Data) == 0 || len(body.Data[0].Metrics) == 0 {
		return lead.WebMetrics{}, lead.ErrNoData
	}

	values := body.Data[0].Metrics
	metrics := lead.WebMetrics{}
	if len(values) > 0 {
		metrics.Visits = int(values[0])
	}
	if len(values) > 1 {
		metrics.PageViews = int(values[1])
	}
	if len(values) > 2 {
		metrics.BounceRate = values[2]
	}
	if len(values) > 3 {
		metrics.AvgDuration = values[3]
	}
	return metrics, nil
}
