package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port string
	Env  string
	// Tree construction defaults, overridable per request
	MaxSourcesPerLeaf int
	Accuracy          float64
	MaxDepth          int
	RootMode          string
	RootPadding       float64
	StrictBounds      bool
	ParallelDepth     int
	// Request limits
	MaxSources   int           // largest accepted source list
	MaxBodyBytes int64         // request body cap
	BuildTimeout time.Duration // per-build deadline
	// Tree cache
	CacheMaxMB      int64
	CacheMaxEntries int64
	CacheTTL        time.Duration
	MetricsInterval time.Duration
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	EnableRateLimit      bool     // enable rate limiting middleware
	CORSAllowedOrigins   []string // allowed CORS origins
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Port:              utils.GetEnv("PORT", "8000"),
		Env:               utils.GetEnv("ENV", "development"),
		MaxSourcesPerLeaf: utils.GetEnvAsInt("FMM_MAX_SOURCES_PER_LEAF", 8),
		Accuracy:          utils.GetEnvAsFloat("FMM_ACCURACY", 1e-6),
		MaxDepth:          utils.GetEnvAsInt("FMM_MAX_DEPTH", fmm.DefaultMaxDepth),
		RootMode:          strings.ToLower(utils.GetEnv("FMM_ROOT_MODE", "fit")),
		RootPadding:       utils.GetEnvAsFloat("FMM_ROOT_PADDING", fmm.DefaultPadding),
		StrictBounds:      utils.GetEnvAsBool("FMM_STRICT_BOUNDS", false),
		ParallelDepth:     utils.GetEnvAsInt("FMM_PARALLEL_DEPTH", 2),
		MaxSources:        utils.GetEnvAsInt("FMM_MAX_SOURCES", 200000),
		MaxBodyBytes:      int64(utils.GetEnvAsInt("MAX_BODY_MB", 32)) << 20,
		BuildTimeout:      utils.GetEnvAsDurationMs("BUILD_TIMEOUT_MS", 30*time.Second),
		CacheMaxMB:        int64(utils.GetEnvAsInt("TREE_CACHE_MAX_MB", 64)),
		CacheMaxEntries:   int64(utils.GetEnvAsInt("TREE_CACHE_MAX_ENTRIES", 1024)),
		CacheTTL:          time.Duration(utils.GetEnvAsInt("TREE_CACHE_TTL_SEC", 300)) * time.Second,
		MetricsInterval:   time.Duration(utils.GetEnvAsInt("METRICS_INTERVAL_SEC", 15)) * time.Second,
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 50.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 100),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 5.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 10),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		// Default to common development origins
		CORSAllowedOrigins: utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}, ","),
		// Observability settings
		LogLevel:          strings.ToLower(utils.GetEnv("LOG_LEVEL", "info")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = cached.Env
	}
	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// TreeOptions converts the configured defaults into build options.
func (c *Config) TreeOptions() (fmm.Options, error) {
	mode, err := fmm.ParseRootMode(c.RootMode)
	if err != nil {
		return fmm.Options{}, fmt.Errorf("FMM_ROOT_MODE: %w", err)
	}
	return fmm.Options{
		MaxSourcesPerLeaf: c.MaxSourcesPerLeaf,
		Accuracy:          c.Accuracy,
		MaxDepth:          c.MaxDepth,
		Root:              mode,
		Padding:           c.RootPadding,
		Strict:            c.StrictBounds,
		ParallelDepth:     c.ParallelDepth,
	}, nil
}
