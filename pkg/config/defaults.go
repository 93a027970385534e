// Package config provides centralized default values for LeadLedger
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Venue Management
	MaxVenues   int
	MaxMemoryMB int

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// Segment Thresholds
	VIPVisitThreshold     int
	VIPAmountThreshold    float64
	RegularVisitThreshold int
	RegularAvgThreshold   float64

	// Merge Pipeline
	MergeLookbackDays  int
	MergeRunTimeout    time.Duration
	SourceFetchTimeout time.Duration
	SourceFetchRetries int

	// External Metrics Lookups
	MetricsChunkSize    int
	MetricsChunkPause   time.Duration
	MetricsWindowDays   int
	MetricsFetchTimeout time.Duration

	// Reserve Reconciliation
	ReserveFetchTimeout time.Duration
	ReservePageSize     int
	ReserveFetchRetries int
	ReserveLookbackDays int

	// Forecasting
	ForecastGrowthRate    float64
	ForecastDefaultMonths int

	// Alerts
	ROIAlertThreshold   float64
	AlertSweepInterval  time.Duration
	MergeSweepInterval  time.Duration
	ReserveSyncInterval time.Duration
	SchedulerEnabled    bool

	// Rate Limiting
	CommandRateLimit  int
	CommandRateWindow time.Duration

	// TTL Configuration
	ReportCacheTTL  time.Duration
	GuestProfileTTL time.Duration
	ClientKeysTTL   time.Duration

	// Cleanup Intervals
	CacheCleanupInterval  time.Duration
	CacheCleanupVerbose   bool
	DBPoolCleanupInterval time.Duration

	// Slow Query Threshold
	SlowQueryThreshold time.Duration

	// Upstream Endpoints
	FormsAPIBase        string
	SocialAPIBase       string
	ReservationsAPIBase string
	WebMetricsAPIBase   string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	// Zero write timeout keeps long-lived stream connections open
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 0)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Venue Management
	MaxVenues = getEnvInt("MAX_VENUES", 5)
	MaxMemoryMB = getEnvInt("MAX_MEMORY_MB", 768)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// Segment Thresholds
	VIPVisitThreshold = getEnvInt("VIP_VISIT_THRESHOLD", 5)
	VIPAmountThreshold = getEnvFloat("VIP_AMOUNT_THRESHOLD", 8000)
	RegularVisitThreshold = getEnvInt("REGULAR_VISIT_THRESHOLD", 3)
	RegularAvgThreshold = getEnvFloat("REGULAR_AVG_THRESHOLD", 3000)

	// Merge Pipeline
	MergeLookbackDays = getEnvInt("MERGE_LOOKBACK_DAYS", 30)
	MergeRunTimeout = getEnvDuration("MERGE_RUN_TIMEOUT", 5*time.Minute)
	SourceFetchTimeout = getEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second)
	SourceFetchRetries = getEnvInt("SOURCE_FETCH_RETRIES", 3)

	// External Metrics Lookups
	MetricsChunkSize = getEnvInt("METRICS_CHUNK_SIZE", 10)
	MetricsChunkPause = getEnvDuration("METRICS_CHUNK_PAUSE", time.Second)
	MetricsWindowDays = getEnvInt("METRICS_WINDOW_DAYS", 30)
	MetricsFetchTimeout = getEnvDuration("METRICS_FETCH_TIMEOUT", 10*time.Second)

	// Reserve Reconciliation
	ReserveFetchTimeout = getEnvDuration("RESERVE_FETCH_TIMEOUT", 30*time.Second)
	ReservePageSize = getEnvInt("RESERVE_PAGE_SIZE", 100)
	ReserveFetchRetries = getEnvInt("RESERVE_FETCH_RETRIES", 3)
	ReserveLookbackDays = getEnvInt("RESERVE_LOOKBACK_DAYS", 45)

	// Forecasting
	ForecastGrowthRate = getEnvFloat("FORECAST_GROWTH_RATE", 1.02)
	ForecastDefaultMonths = getEnvInt("FORECAST_DEFAULT_MONTHS", 3)

	// Alerts
	ROIAlertThreshold = getEnvFloat("ROI_ALERT_THRESHOLD", -0.5)
	AlertSweepInterval = getEnvDuration("ALERT_SWEEP_INTERVAL", time.Hour)
	MergeSweepInterval = getEnvDuration("MERGE_SWEEP_INTERVAL", 6*time.Hour)
	ReserveSyncInterval = getEnvDuration("RESERVE_SYNC_INTERVAL", 4*time.Hour)
	SchedulerEnabled = getEnvBool("SCHEDULER_ENABLED", true)

	// Rate Limiting
	CommandRateLimit = getEnvInt("COMMAND_RATE_LIMIT", 20)
	CommandRateWindow = getEnvDuration("COMMAND_RATE_WINDOW", time.Minute)

	// TTL Configuration
	ReportCacheTTL = time.Duration(getEnvInt("REPORT_CACHE_TTL_MINUTES", 10)) * time.Minute
	GuestProfileTTL = time.Duration(getEnvInt("GUEST_PROFILE_TTL_HOURS", 4)) * time.Hour
	ClientKeysTTL = time.Duration(getEnvInt("CLIENT_KEYS_TTL_HOURS", 24)) * time.Hour

	// Cleanup Intervals
	CacheCleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute
	CacheCleanupVerbose = getEnvBool("CACHE_CLEANUP_VERBOSE", false)
	DBPoolCleanupInterval = time.Duration(getEnvInt("DB_POOL_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute

	// Slow Query Threshold
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// Upstream Endpoints
	FormsAPIBase = getEnvString("FORMS_API_BASE", "")
	SocialAPIBase = getEnvString("SOCIAL_API_BASE", "")
	ReservationsAPIBase = getEnvString("RESERVATIONS_API_BASE", "")
	WebMetricsAPIBase = getEnvString("WEBMETRICS_API_BASE", "")
}
