package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/onnwee/fmmtree/backend/internal/logger"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, ok := r.Context().Value(logger.RequestIDKey).(string)
		if !ok || reqID == "" {
			t.Error("Request ID not found in context")
		}
		if w.Header().Get(RequestIDHeader) != reqID {
			t.Error("Request ID in context doesn't match response header")
		}
		seen = reqID
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	RequestID(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated request ID %q is not a UUID: %v", seen, err)
	}
}

func TestRequestIDMiddleware_ExistingID(t *testing.T) {
	existingID := "existing-request-id"

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := r.Context().Value(logger.RequestIDKey).(string)
		if reqID != existingID {
			t.Errorf("Expected request ID %s, got %s", existingID, reqID)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, existingID)
	w := httptest.NewRecorder()
	RequestID(handler).ServeHTTP(w, req)

	if w.Header().Get(RequestIDHeader) != existingID {
		t.Errorf("Expected request ID %s in response, got %s", existingID, w.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDMiddleware_OversizedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", maxRequestIDLength+1))
	w := httptest.NewRecorder()
	RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); len(got) > maxRequestIDLength {
		t.Errorf("oversized request ID should be replaced, got %d bytes", len(got))
	}
}
