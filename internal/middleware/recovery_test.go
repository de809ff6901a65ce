package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverWithSentry_NoPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	w := httptest.NewRecorder()
	RecoverWithSentry(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
}

func TestRecoverWithSentry_WithPanic(t *testing.T) {
	tests := map[string]any{
		"string panic": "something went wrong",
		"error panic":  errors.New("test error"),
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(value)
			})

			w := httptest.NewRecorder()
			RecoverWithSentry(handler).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/trees", nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), "SYSTEM_INTERNAL") {
				t.Errorf("expected structured error body, got %q", w.Body.String())
			}
		})
	}
}

func TestRecoverWithSentry_AbortHandler(t *testing.T) {
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})
	RecoverWithSentry(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
