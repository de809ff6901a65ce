package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(Settings{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("Init should not error when disabled: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown should not error: %v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	// The endpoint is never reached; only initialization is exercised.
	shutdown, err := Init(Settings{
		ServiceName: "test-service",
		Enabled:     true,
		Endpoint:    "localhost:14318",
		SampleRate:  1,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { tracer = nil }()

	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Logf("Shutdown error (expected in test): %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	t.Setenv("SERVICE_VERSION", "")
	if version := getVersion(); version != "dev" {
		t.Errorf("Expected default version 'dev', got %s", version)
	}

	t.Setenv("SERVICE_VERSION", "1.2.3")
	if version := getVersion(); version != "1.2.3" {
		t.Errorf("Expected version '1.2.3', got %s", version)
	}
}

func TestStartSpan_NoopTracer(t *testing.T) {
	tracer = nil

	spanCtx, span := StartSpan(context.Background(), "test-span")
	if spanCtx == nil {
		t.Fatal("StartSpan should return a context")
	}
	if span == nil {
		t.Fatal("StartSpan should return a span")
	}
	span.End()
}

func recordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer = tp.Tracer("test")
	t.Cleanup(func() {
		tracer = nil
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestEndSpanRecordsError(t *testing.T) {
	sr := recordingTracer(t)

	_, span := StartSpan(context.Background(), "fmm.build")
	EndSpan(span, errors.New("boom"))

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error || ended[0].Status().Description != "boom" {
		t.Errorf("unexpected status: %+v", ended[0].Status())
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestEndSpanOK(t *testing.T) {
	sr := recordingTracer(t)

	_, span := StartSpan(context.Background(), "fmm.build")
	span.SetAttributes(BuildAttributes(6, 2, 2, "fit")...)
	EndSpan(span, nil)

	got := sr.Ended()[0]
	if got.Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", got.Status().Code)
	}
	want := map[attribute.Key]attribute.Value{
		"fmm.sources":              attribute.IntValue(6),
		"fmm.dimension":            attribute.IntValue(2),
		"fmm.max_sources_per_leaf": attribute.IntValue(2),
		"fmm.root_mode":            attribute.StringValue("fit"),
	}
	for _, kv := range got.Attributes() {
		if v, ok := want[kv.Key]; ok && v != kv.Value {
			t.Errorf("attribute %s = %v, want %v", kv.Key, kv.Value.Emit(), v.Emit())
		}
		delete(want, kv.Key)
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
}
