package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/fmmtree/backend/internal/cache"
	"github.com/onnwee/fmmtree/backend/internal/errorreporting"
	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/logger"
	"github.com/onnwee/fmmtree/backend/internal/metrics"
	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/tracing"
)

// ErrTooManySources is returned when a request exceeds Config.MaxSources.
var ErrTooManySources = errors.New("service: too many sources")

// Config bounds the work a single build may do.
type Config struct {
	// MaxSources rejects larger requests; zero means unlimited.
	MaxSources int
	// Timeout is the per-build deadline; zero means none.
	Timeout time.Duration
	// CacheTTL is passed to the cache on store; zero uses the cache default.
	CacheTTL time.Duration
}

// Request is one tree build.
type Request struct {
	Sources []source.Source
	Options fmm.Options
}

// Result is a built, or cached, tree.
type Result struct {
	ID          string
	Tree        *fmm.Tree
	Stats       fmm.Stats
	Cached      bool
	Fingerprint uint64
	Duration    time.Duration
}

// Service builds trees and keeps recently built ones in a cache.
type Service struct {
	cache cache.Cache
	cfg   Config
}

// New creates a Service. A nil cache disables caching.
func New(c cache.Cache, cfg Config) *Service {
	return &Service{cache: c, cfg: cfg}
}

// Build returns the tree for req, from the cache when an identical request
// was built recently.
func (s *Service) Build(ctx context.Context, req Request) (res *Result, err error) {
	id := uuid.NewString()
	ctx = logger.WithBuildID(ctx, id)
	log := logger.FromContext(ctx).With("component", "service")

	dim := req.Options.Dimension
	if dim == 0 && len(req.Sources) > 0 {
		dim = req.Sources[0].Dim()
	}
	ctx, span := tracing.StartSpan(ctx, "fmm.build", trace.WithAttributes(
		tracing.BuildAttributes(len(req.Sources), dim, req.Options.MaxSourcesPerLeaf, req.Options.Root.String())...,
	))
	defer func() { tracing.EndSpan(span, err) }()

	if s.cfg.MaxSources > 0 && len(req.Sources) > s.cfg.MaxSources {
		metrics.TreeBuildsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySources, len(req.Sources), s.cfg.MaxSources)
	}

	key := cache.Fingerprint(req.Sources, req.Options)
	if s.cache != nil {
		if tree, ok := s.cache.Get(key); ok {
			metrics.TreeCacheHits.Inc()
			metrics.TreeBuildsTotal.WithLabelValues("cached").Inc()
			span.SetAttributes(attribute.Bool("fmm.cached", true))
			log.Debug("tree cache hit", "fingerprint", key)
			return &Result{ID: id, Tree: tree, Stats: tree.Stats(), Cached: true, Fingerprint: key}, nil
		}
		metrics.TreeCacheMisses.Inc()
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	tree, err := fmm.Build(ctx, req.Sources, req.Options)
	elapsed := time.Since(start)
	metrics.TreeBuildDuration.Observe(elapsed.Seconds())
	if err != nil {
		status := buildStatus(err)
		metrics.TreeBuildsTotal.WithLabelValues(status).Inc()
		if status == "failed" {
			log.Error("tree build failed", "error", err, "sources", len(req.Sources))
			errorreporting.CaptureErrorWithContext(err, map[string]string{"build_id": id}, map[string]any{"sources": len(req.Sources)})
		} else {
			log.Warn("tree build rejected", "status", status, "error", err)
		}
		return nil, err
	}

	stats := tree.Stats()
	metrics.TreeBuildsTotal.WithLabelValues("success").Inc()
	metrics.TreeSources.Observe(float64(tree.Len()))
	metrics.TreeDepth.Observe(float64(stats.MaxDepth))
	metrics.TreeLeaves.Observe(float64(stats.Leaves))
	for _, d := range tree.Diagnostics() {
		metrics.TreeDiagnosticsTotal.WithLabelValues(d.Kind.String()).Inc()
	}
	errorreporting.CaptureDiagnostics(id, tree.Diagnostics())

	span.SetAttributes(
		attribute.Int("fmm.nodes", stats.Nodes),
		attribute.Int("fmm.leaves", stats.Leaves),
		attribute.Int("fmm.max_depth", stats.MaxDepth),
		attribute.Bool("fmm.partial", tree.Partial()),
	)
	log.Info("tree built",
		"sources", tree.Len(),
		"nodes", stats.Nodes,
		"leaves", stats.Leaves,
		"max_depth", stats.MaxDepth,
		"diagnostics", len(tree.Diagnostics()),
		"duration_ms", elapsed.Milliseconds(),
	)

	if s.cache != nil {
		s.cache.Set(key, tree, s.cfg.CacheTTL)
	}
	return &Result{ID: id, Tree: tree, Stats: stats, Fingerprint: key, Duration: elapsed}, nil
}

func buildStatus(err error) string {
	switch {
	case errors.Is(err, fmm.ErrInvalidOptions):
		return "invalid"
	case errors.Is(err, fmm.ErrOutsideRoot):
		return "outside_root"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "failed"
	}
}

// MaxSources returns the configured request size limit.
func (s *Service) MaxSources() int { return s.cfg.MaxSources }
