package config

import (
	"errors"
	"testing"
	"time"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FMM_MAX_SOURCES_PER_LEAF", "FMM_ACCURACY", "FMM_MAX_DEPTH",
		"FMM_ROOT_MODE", "FMM_STRICT_BOUNDS", "BUILD_TIMEOUT_MS", "SENTRY_ENVIRONMENT", "ENV",
	} {
		t.Setenv(key, "")
	}
	ResetForTest()
	defer ResetForTest()

	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port 8000, got %q", cfg.Port)
	}
	if cfg.MaxSourcesPerLeaf != 8 || cfg.Accuracy != 1e-6 {
		t.Fatalf("unexpected tree defaults: leaf=%d accuracy=%v", cfg.MaxSourcesPerLeaf, cfg.Accuracy)
	}
	if cfg.MaxDepth != fmm.DefaultMaxDepth {
		t.Fatalf("expected default max depth %d, got %d", fmm.DefaultMaxDepth, cfg.MaxDepth)
	}
	if cfg.BuildTimeout != 30*time.Second {
		t.Fatalf("expected 30s build timeout, got %v", cfg.BuildTimeout)
	}
	if cfg.SentryEnvironment != "development" {
		t.Fatalf("expected sentry environment to follow ENV, got %q", cfg.SentryEnvironment)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}

	if Load() != cfg {
		t.Fatal("Load should return the cached config")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FMM_MAX_SOURCES_PER_LEAF", "2")
	t.Setenv("FMM_ROOT_MODE", "FIXED")
	t.Setenv("FMM_STRICT_BOUNDS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	ResetForTest()
	defer ResetForTest()

	cfg := Load()
	opts, err := cfg.TreeOptions()
	if err != nil {
		t.Fatalf("TreeOptions: %v", err)
	}
	if opts.MaxSourcesPerLeaf != 2 || opts.Root != fmm.RootFixed || !opts.Strict {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if got := cfg.CORSAllowedOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestTreeOptionsRejectsUnknownRootMode(t *testing.T) {
	cfg := &Config{RootMode: "grow"}
	if _, err := cfg.TreeOptions(); !errors.Is(err, fmm.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}
