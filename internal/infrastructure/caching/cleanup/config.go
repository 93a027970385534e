package cleanup

import (
	"time"

	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval  time.Duration
	VerboseReporting bool
	ReportTTL        time.Duration
	GuestProfileTTL  time.Duration
	DedupKeysTTL     time.Duration
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:  config.CacheCleanupInterval,
		VerboseReporting: config.CacheCleanupVerbose,
		ReportTTL:        config.ReportCacheTTL,
		GuestProfileTTL:  config.GuestProfileTTL,
		DedupKeysTTL:     config.ClientKeysTTL,
	}
}
