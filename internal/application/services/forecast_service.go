package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/forecast"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	obsmetrics "github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// maxForecastMonths bounds how far ahead a projection may reach; beyond two
// years the seasonal-plus-trend model stops saying anything useful.
const maxForecastMonths = 24

// ForecastService projects monthly revenue from the reconciled reservation
// ledger: trailing twelve-month revenue averaged per month, shaped by the
// seasonal curve and the compound growth trend.
type ForecastService struct {
	logger *logging.ChanneledLogger
}

// NewForecastService creates a new forecast service.
func NewForecastService(logger *logging.ChanneledLogger) *ForecastService {
	return &ForecastService{
		logger: logger,
	}
}

// Project builds the revenue projection. A venue with no reservation history
// projects all zeros rather than failing.
func (s *ForecastService) Project(venueCtx *venue.Context, monthsAhead int) (*forecast.Projection, string, error) {
	venueID := venueCtx.VenueID
	if monthsAhead <= 0 {
		monthsAhead = config.ForecastDefaultMonths
	}
	if monthsAhead > maxForecastMonths {
		monthsAhead = maxForecastMonths
	}

	cacheKey := fmt.Sprintf("forecast:%d", monthsAhead)
	if entry, found := venueCtx.CacheManager.GetReport(venueID, cacheKey); found {
		if cached, ok := entry.Payload.(*forecast.Projection); ok {
			return cached, entry.ETag, nil
		}
	}

	start := time.Now()
	now := time.Now().UTC()
	trailing, err := venueCtx.ReservationRepo().MonthlyRevenue(venueID, now.AddDate(-1, 0, 0), now)
	if err != nil {
		return nil, "", fmt.Errorf("loading trailing revenue: %w", err)
	}

	projection := forecast.Project(trailing, now, monthsAhead, config.ForecastGrowthRate)

	etag := etagFor(&projection)
	venueCtx.CacheManager.SetReport(venueID, cacheKey, &projection, etag)
	obsmetrics.ReportBuildDuration.WithLabelValues(venueID, "forecast").Observe(time.Since(start).Seconds())
	s.logger.Analytics().Info("Revenue forecast computed",
		"venueId", venueID, "months", monthsAhead, "trailingRevenue", trailing,
		"total", projection.Total, "duration", time.Since(start))

	return &projection, etag, nil
}
