package errorreporting

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

// PII patterns to scrub from error messages
var piiPatterns = []*regexp.Regexp{
	// Email addresses
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_-]{20,}`),
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[a-zA-Z0-9_-]{16,}`),
	// IP addresses
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

var enabled atomic.Bool

// Settings configures the Sentry client.
type Settings struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// Init initializes Sentry error reporting. An empty DSN leaves reporting
// disabled and is not an error.
func Init(s Settings) error {
	if s.DSN == "" {
		return nil
	}
	if err := ValidateDSN(s.DSN); err != nil {
		return err
	}

	release := s.Release
	if release == "" {
		release = getRelease()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.DSN,
		Environment:      s.Environment,
		Release:          release,
		SampleRate:       s.SampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	enabled.Store(true)
	return nil
}

// getRelease returns the release version from environment or default
func getRelease() string {
	if release := os.Getenv("SENTRY_RELEASE"); release != "" {
		return release
	}
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	return "dev"
}

// beforeSend scrubs PII and strips sensitive request data from every event.
func beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}

	if event.Message != "" {
		event.Message = scrubPII(event.Message)
	}

	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}

	if event.Request != nil {
		if event.Request.Headers != nil {
			delete(event.Request.Headers, "Authorization")
			delete(event.Request.Headers, "Cookie")
			delete(event.Request.Headers, "X-Api-Key")
		}
		// Remove query strings that might contain tokens
		event.Request.QueryString = ""
	}

	return event
}

// scrubPII removes personally identifiable information from strings
func scrubPII(text string) string {
	result := text
	for _, pattern := range piiPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// ScrubPII exposes the PII scrubbing function for external use
func ScrubPII(text string) string {
	return scrubPII(text)
}

// CaptureError captures an error and sends it to Sentry
func CaptureError(err error) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext captures an error with additional context
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]any) {
	if err == nil || !enabled.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		// Extras are scrubbed by beforeSend
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// CaptureDiagnostics reports the diagnostics of a finished build that point
// at a defect or a degenerate input rather than a caller mistake: sources
// left unassigned by their parent, and nodes stopped by the depth ceiling.
// One event is sent per kind.
func CaptureDiagnostics(buildID string, diags []fmm.Diagnostic) {
	if !enabled.Load() || len(diags) == 0 {
		return
	}

	counts := map[fmm.DiagnosticKind]int{}
	first := map[fmm.DiagnosticKind]string{}
	for _, d := range diags {
		if d.Kind == fmm.DiagOutsideRoot {
			continue
		}
		n := d.Count
		if n == 0 {
			n = 1
		}
		counts[d.Kind] += n
		if _, ok := first[d.Kind]; !ok {
			first[d.Kind] = d.Message
		}
	}

	for _, kind := range []fmm.DiagnosticKind{fmm.DiagUnassigned, fmm.DiagDepthLimit} {
		count, ok := counts[kind]
		if !ok {
			continue
		}
		level := sentry.LevelWarning
		if kind == fmm.DiagUnassigned {
			level = sentry.LevelError
		}
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(level)
			scope.SetTag("build_id", buildID)
			scope.SetTag("diagnostic", kind.String())
			scope.SetExtra("sources", count)
			sentry.CaptureMessage(fmt.Sprintf("fmm build %s: %s (%d sources)", kind, first[kind], count))
		})
	}
}

// Flush waits for all events to be sent to Sentry
func Flush(timeout time.Duration) bool {
	if !enabled.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// AddBreadcrumb adds a breadcrumb for debugging context
func AddBreadcrumb(category, message string, level sentry.Level) {
	if !enabled.Load() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     level,
		Timestamp: time.Now(),
	})
}

// IsSentryEnabled returns true if Sentry is configured
func IsSentryEnabled() bool {
	return enabled.Load()
}

// ValidateDSN checks if the provided DSN is valid
func ValidateDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "https://") && !strings.HasPrefix(dsn, "http://") {
		return fmt.Errorf("invalid Sentry DSN format")
	}
	return nil
}
