package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// brotliLevel trades a little ratio for speed on large tree responses.
const brotliLevel = 5

var (
	gzipPool = sync.Pool{
		New: func() any { return gzip.NewWriter(io.Discard) },
	}
	brotliPool = sync.Pool{
		New: func() any { return brotli.NewWriterLevel(io.Discard, brotliLevel) },
	}
)

type resetWriteCloser interface {
	io.WriteCloser
	Reset(io.Writer)
}

// compressWriter creates the encoder on the first body write, so bodiless
// responses such as 204 and 304 pass through untouched.
type compressWriter struct {
	http.ResponseWriter
	encoding    string
	enc         resetWriteCloser
	wroteHeader bool
}

func (w *compressWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified || h.Get("Content-Encoding") != "" {
		w.encoding = ""
	}
	if w.encoding != "" {
		h.Set("Content-Encoding", w.encoding)
		h.Del("Content-Length") // Length will change after compression
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.encoding == "" {
		return w.ResponseWriter.Write(b)
	}
	if w.enc == nil {
		switch w.encoding {
		case "br":
			w.enc = brotliPool.Get().(*brotli.Writer)
		default:
			w.enc = gzipPool.Get().(*gzip.Writer)
		}
		w.enc.Reset(w.ResponseWriter)
	}
	return w.enc.Write(b)
}

func (w *compressWriter) close() {
	if w.enc == nil {
		return
	}
	_ = w.enc.Close()
	switch enc := w.enc.(type) {
	case *brotli.Writer:
		brotliPool.Put(enc)
	case *gzip.Writer:
		gzipPool.Put(enc)
	}
	w.enc = nil
}

// negotiateEncoding picks br over gzip from an Accept-Encoding header,
// honouring q=0 exclusions. It returns "" when neither is acceptable.
func negotiateEncoding(header string) string {
	accepted := map[string]bool{}
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		accepted[name] = q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	switch {
	case accepted["br"]:
		return "br"
	case accepted["gzip"]:
		return "gzip"
	default:
		return ""
	}
}

// Compress returns a middleware that compresses responses with brotli or
// gzip, whichever the client prefers to accept (brotli first).
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{ResponseWriter: w, encoding: encoding}
		defer cw.close()
		next.ServeHTTP(cw, r)
	})
}
