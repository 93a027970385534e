package services

import (
	"github.com/AtRiskMedia/leadledger-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadledger-go/internal/domain/reserve"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/upstream"
	"github.com/AtRiskMedia/leadledger-go/internal/infrastructure/venue"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// SourceFactory builds the upstream collaborators for a venue from its
// credentials. Endpoints are process-wide; keys are per venue. A source the
// venue never configured simply is not built, so runs degrade to whatever is
// wired instead of failing on missing credentials.
type SourceFactory struct {
	logger *logging.ChanneledLogger
}

// NewSourceFactory creates a new source factory.
func NewSourceFactory(logger *logging.ChanneledLogger) *SourceFactory {
	return &SourceFactory{
		logger: logger,
	}
}

// Readers returns the lead sources configured for the venue, in merge
// precedence order: site forms before social capture.
func (f *SourceFactory) Readers(venueCtx *venue.Context) []lead.SourceReader {
	cfg := venueCtx.Config
	httpc := upstream.NewHTTPClient(config.SourceFetchTimeout)

	var readers []lead.SourceReader
	if config.FormsAPIBase != "" && cfg.FormsAPIKey != "" {
		readers = append(readers, upstream.NewFormsReader(httpc, config.FormsAPIBase, cfg.FormsAPIKey, venueCtx.VenueID, f.logger))
	}
	if config.SocialAPIBase != "" && cfg.SocialAPIKey != "" && cfg.SocialAccountID != "" {
		readers = append(readers, upstream.NewSocialReader(httpc, config.SocialAPIBase, cfg.SocialAPIKey, cfg.SocialAccountID, venueCtx.VenueID, f.logger))
	}
	if len(readers) == 0 {
		f.logger.Upstream().Warn("No lead sources configured for venue", "venueId", venueCtx.VenueID)
	}
	return readers
}

// MetricsLookup returns the web metrics client, nil when the venue has no
// counter configured. Enrichment skips cleanly on nil.
func (f *SourceFactory) MetricsLookup(venueCtx *venue.Context) lead.MetricsLookup {
	cfg := venueCtx.Config
	if config.WebMetricsAPIBase == "" || cfg.WebMetricsToken == "" || cfg.WebMetricsCounterID == "" {
		return nil
	}
	httpc := upstream.NewHTTPClient(config.MetricsFetchTimeout)
	return upstream.NewWebMetricsClient(httpc, config.WebMetricsAPIBase, cfg.WebMetricsToken, cfg.WebMetricsCounterID, venueCtx.VenueID, f.logger)
}

// ReserveFetcher returns the booking system client, nil when the venue has
// no reservation API key.
func (f *SourceFactory) ReserveFetcher(venueCtx *venue.Context) reserve.Fetcher {
	cfg := venueCtx.Config
	if config.ReservationsAPIBase == "" || cfg.ReservationsAPIKey == "" {
		return nil
	}
	httpc := upstream.NewHTTPClient(config.ReserveFetchTimeout)
	return upstream.NewReservationsClient(httpc, config.ReservationsAPIBase, cfg.ReservationsAPIKey, venueCtx.VenueID, f.logger)
}
