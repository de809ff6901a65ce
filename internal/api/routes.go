package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/fmmtree/backend/internal/api/handlers"
	"github.com/onnwee/fmmtree/backend/internal/cache"
	"github.com/onnwee/fmmtree/backend/internal/config"
	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/metrics"
	"github.com/onnwee/fmmtree/backend/internal/middleware"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Config   *config.Config
	Builder  handlers.TreeBuilder
	Trees    cache.Cache // may be nil
	Defaults fmm.Options
}

// NewRouter registers the API routes and wraps them in the middleware
// chain. The returned func releases the rate limiter's background cleanup.
func NewRouter(d Deps) (http.Handler, func()) {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Load()
	}

	r := mux.NewRouter()
	r.Use(middleware.HTTPMetrics)

	var lookup handlers.TreeLookup
	var stats metrics.StatsSource
	if d.Trees != nil {
		lookup = d.Trees
		stats = d.Trees
	}
	trees := handlers.NewTreeHandler(d.Builder, lookup, d.Defaults)

	// Health & metrics
	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Trees
	r.HandleFunc("/api/trees", trees.Build).Methods(http.MethodPost)
	r.HandleFunc("/api/trees/export.csv", trees.ExportCSV).Methods(http.MethodPost)
	r.Handle("/api/trees/{fingerprint}", middleware.ETag(http.HandlerFunc(trees.Get))).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", handlers.CacheStatus(stats)).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.LimitRequestBody(cfg.MaxBodyBytes)(h)
	h = middleware.Compress(h)

	stop := func() {}
	if cfg.EnableRateLimit {
		rl := middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst, cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
		h = rl.Limit(h)
		stop = rl.Stop
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	}
	h = middleware.CORS(corsCfg)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h, stop
}
