package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// etagCacheTTL defines how long clients should cache responses with ETags
	etagCacheTTL = 60 * time.Second
	// etagStaleWhileRevalidate defines how long clients can use stale content while revalidating
	etagStaleWhileRevalidate = 300 * time.Second
)

// etagResponseWriter captures the response body to generate an ETag.
type etagResponseWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *etagResponseWriter) WriteHeader(status int) {
	w.status = status
}

func (w *etagResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// matchesETag reports whether an If-None-Match header value matches etag,
// using the weak comparison RFC 9110 prescribes for GET.
func matchesETag(header, etag string) bool {
	if strings.TrimSpace(header) == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// ETag returns a middleware that tags successful responses with an xxhash of
// the body and answers 304 Not Modified when the client already holds it.
// Error responses pass through untagged.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etw := &etagResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(etw, r)

		if etw.status != http.StatusOK {
			w.WriteHeader(etw.status)
			w.Write(etw.buf.Bytes())
			return
		}

		etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(etw.buf.Bytes()))
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
			int(etagCacheTTL.Seconds()), int(etagStaleWhileRevalidate.Seconds())))

		if matchesETag(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(etw.status)
		w.Write(etw.buf.Bytes())
	})
}
