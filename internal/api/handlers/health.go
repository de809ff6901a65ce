package handlers

import (
	"net/http"

	"github.com/segmentio/encoding/json"

	"github.com/onnwee/fmmtree/backend/internal/metrics"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// CacheStatus reports the tree cache counters. A nil source reports the
// cache as disabled.
func CacheStatus(src metrics.StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeJSON(w, r, http.StatusOK, map[string]any{"enabled": false})
			return
		}
		s := src.Stats()
		writeJSON(w, r, http.StatusOK, map[string]any{
			"enabled":    true,
			"items":      s.Items,
			"hits":       s.Hits,
			"misses":     s.Misses,
			"keys_added": s.KeysAdded,
			"evictions":  s.Evictions,
			"cost_bytes": s.Cost,
		})
	}
}
