package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/segmentio/encoding/json"

	"github.com/onnwee/fmmtree/backend/internal/apierr"
	"github.com/onnwee/fmmtree/backend/internal/export"
	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/logger"
	"github.com/onnwee/fmmtree/backend/internal/middleware"
	"github.com/onnwee/fmmtree/backend/internal/service"
	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

// TreeBuilder builds trees; *service.Service satisfies it.
type TreeBuilder interface {
	Build(ctx context.Context, req service.Request) (*service.Result, error)
	MaxSources() int
}

// TreeLookup finds a recently built tree by fingerprint.
type TreeLookup interface {
	Get(key uint64) (*fmm.Tree, bool)
}

// TreeHandler serves the /api/trees endpoints.
type TreeHandler struct {
	builder  TreeBuilder
	lookup   TreeLookup
	defaults fmm.Options
}

// NewTreeHandler creates a handler. Request fields that are left out fall
// back to defaults. A nil lookup makes GET /api/trees/{fingerprint} always
// answer 404.
func NewTreeHandler(b TreeBuilder, lookup TreeLookup, defaults fmm.Options) *TreeHandler {
	return &TreeHandler{builder: b, lookup: lookup, defaults: defaults}
}

type sourceJSON struct {
	Position []float64 `json:"position"`
	Strength float64   `json:"strength"`
}

// treeRequest is the body of POST /api/trees. Pointer fields distinguish
// "absent" from zero.
type treeRequest struct {
	Sources           []sourceJSON `json:"sources"`
	MaxSourcesPerLeaf *int         `json:"max_sources_per_leaf"`
	Accuracy          *float64     `json:"accuracy"`
	MaxDepth          *int         `json:"max_depth"`
	Root              *string      `json:"root"`
	Center            []float64    `json:"center"`
	Size              *float64     `json:"size"`
	Padding           *float64     `json:"padding"`
	Strict            *bool        `json:"strict"`
	Dimension         *int         `json:"dimension"`
	IncludeNodes      bool         `json:"include_nodes"`
	LeavesOnly        bool         `json:"leaves_only"`
}

func (req *treeRequest) toServiceRequest(defaults fmm.Options) (service.Request, *apierr.Error) {
	opts := defaults
	if req.MaxSourcesPerLeaf != nil {
		opts.MaxSourcesPerLeaf = *req.MaxSourcesPerLeaf
	}
	if req.Accuracy != nil {
		opts.Accuracy = *req.Accuracy
	}
	if req.MaxDepth != nil {
		opts.MaxDepth = *req.MaxDepth
	}
	if req.Root != nil {
		mode, err := fmm.ParseRootMode(*req.Root)
		if err != nil {
			return service.Request{}, apierr.ValidationInvalidValue("root", "root must be \"fit\" or \"fixed\"")
		}
		opts.Root = mode
	}
	if req.Center != nil {
		opts.Center = vector.New(req.Center...)
	}
	if req.Size != nil {
		opts.Size = *req.Size
	}
	if req.Padding != nil {
		opts.Padding = *req.Padding
	}
	if req.Strict != nil {
		opts.Strict = *req.Strict
	}
	if req.Dimension != nil {
		opts.Dimension = *req.Dimension
	}

	sources := make([]source.Source, len(req.Sources))
	for i, s := range req.Sources {
		if len(s.Position) == 0 {
			return service.Request{}, apierr.ValidationMissingField(fmt.Sprintf("sources[%d].position", i))
		}
		sources[i] = source.New(vector.New(s.Position...), s.Strength)
	}
	return service.Request{Sources: sources, Options: opts}, nil
}

type nodeJSON struct {
	Depth  int       `json:"depth"`
	State  string    `json:"state"`
	Center []float64 `json:"center"`
	Size   float64   `json:"size"`
	Count  int       `json:"count"`
	Leaf   bool      `json:"leaf"`
}

type diagnosticJSON struct {
	Kind    string `json:"kind"`
	Source  int    `json:"source"`
	Depth   int    `json:"depth"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message"`
}

// TreeResponse is the JSON view of a built tree.
type TreeResponse struct {
	ID          string           `json:"id,omitempty"`
	Summary     string           `json:"summary"`
	Cached      bool             `json:"cached"`
	Fingerprint string           `json:"fingerprint"`
	Dimension   int              `json:"dimension"`
	RootMode    string           `json:"root_mode"`
	Stats       fmm.Stats        `json:"stats"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
	Partial     bool             `json:"partial"`
	DurationMs  int64            `json:"duration_ms"`
	Nodes       []nodeJSON       `json:"nodes,omitempty"`
}

// FormatFingerprint renders a cache key the way the API exposes it.
func FormatFingerprint(key uint64) string {
	return fmt.Sprintf("%016x", key)
}

func newTreeResponse(tree *fmm.Tree, key uint64, includeNodes bool) TreeResponse {
	diags := tree.Diagnostics()
	resp := TreeResponse{
		Summary:     tree.String(),
		Fingerprint: FormatFingerprint(key),
		Dimension:   tree.Dimension(),
		RootMode:    tree.RootMode().String(),
		Stats:       tree.Stats(),
		Diagnostics: make([]diagnosticJSON, 0, len(diags)),
		Partial:     tree.Partial(),
	}
	for _, d := range diags {
		resp.Diagnostics = append(resp.Diagnostics, diagnosticJSON{
			Kind:    d.Kind.String(),
			Source:  d.Source,
			Depth:   d.Depth,
			Count:   d.Count,
			Message: d.Message,
		})
	}
	if includeNodes {
		resp.Nodes = make([]nodeJSON, 0, resp.Stats.Nodes)
		tree.Walk(func(n *fmm.Node) bool {
			resp.Nodes = append(resp.Nodes, nodeJSON{
				Depth:  n.Depth,
				State:  n.State.String(),
				Center: n.Center().Components(),
				Size:   n.Size,
				Count:  n.Len(),
				Leaf:   n.IsLeaf(),
			})
			return true
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnContext(r.Context(), "failed to encode response", "error", err)
	}
}

// decode reads a tree request body. It reports a 413 for oversize bodies
// and a 400 for anything that is not a well-formed request.
func decode(r *http.Request) (*treeRequest, *apierr.Error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierr.New(apierr.ErrTreeTooLarge, "Request body too large", http.StatusRequestEntityTooLarge).
				WithDetails(map[string]any{"max_bytes": maxErr.Limit})
		}
		return nil, apierr.ValidationInvalidFormat("Failed to read request body")
	}

	var req treeRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, apierr.ValidationInvalidJSON().WithDetails(map[string]any{"reason": err.Error()})
	}
	return &req, nil
}

func (h *TreeHandler) build(w http.ResponseWriter, r *http.Request) (*treeRequest, *service.Result, bool) {
	req, apiErr := decode(r)
	if apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return nil, nil, false
	}
	sreq, apiErr := req.toServiceRequest(h.defaults)
	if apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return nil, nil, false
	}

	res, err := h.builder.Build(r.Context(), sreq)
	if err != nil {
		if errors.Is(err, service.ErrTooManySources) {
			apierr.WriteErrorWithContext(w, r, apierr.TreeTooLarge(h.builder.MaxSources()))
			return nil, nil, false
		}
		apierr.WriteErrorWithContext(w, r, apierr.FromBuildError(err))
		return nil, nil, false
	}
	w.Header().Set(middleware.TreeCachedHeader, strconv.FormatBool(res.Cached))
	return req, res, true
}

// Build handles POST /api/trees.
func (h *TreeHandler) Build(w http.ResponseWriter, r *http.Request) {
	req, res, ok := h.build(w, r)
	if !ok {
		return
	}
	resp := newTreeResponse(res.Tree, res.Fingerprint, req.IncludeNodes)
	resp.ID = res.ID
	resp.Cached = res.Cached
	resp.DurationMs = res.Duration.Milliseconds()
	writeJSON(w, r, http.StatusOK, resp)
}

// ExportCSV handles POST /api/trees/export.csv. It builds like Build and
// streams the node table instead of JSON.
func (h *TreeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, res, ok := h.build(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tree-%s.csv"`, FormatFingerprint(res.Fingerprint)))
	if err := export.WriteNodesCSV(w, res.Tree, req.LeavesOnly); err != nil {
		logger.ErrorContext(r.Context(), "csv export failed", "error", err)
	}
}

// Get handles GET /api/trees/{fingerprint}, serving a tree that is still
// cached. ?nodes=true includes the node list.
func (h *TreeHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["fingerprint"]
	key, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidFormat("fingerprint must be 16 hex digits"))
		return
	}
	if h.lookup == nil {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("tree"))
		return
	}
	tree, ok := h.lookup.Get(key)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("tree"))
		return
	}

	includeNodes, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("nodes")))
	resp := newTreeResponse(tree, key, includeNodes)
	resp.Cached = true
	writeJSON(w, r, http.StatusOK, resp)
}
