package fmm

import (
	"context"
	"fmt"

	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

// Tree is a balanced region-subdivision tree over a fixed set of sources.
// It is built once by Build and is read-only afterwards, so it may be
// shared between goroutines.
type Tree struct {
	// sources is the arena: the single copy of every input source.
	sources []source.Source
	// coords holds source positions row-major, len(sources)*dim.
	coords []float64
	// order is a permutation of the admitted source indices; every node
	// owns the range order[lo:hi].
	order []int

	dim               int
	maxSourcesPerLeaf int
	accuracy          float64
	maxDepth          int
	rootMode          RootMode

	root        *Node
	diagnostics []Diagnostic
}

// Build partitions sources into a tree whose leaves hold at most
// opts.MaxSourcesPerLeaf sources, unless a leaf hit the depth ceiling.
//
// Invalid options fail with an error wrapping ErrInvalidOptions before any
// work is done. A strict build fails with ErrOutsideRoot when the root does
// not contain every source. All other problems are attached to the tree as
// diagnostics.
func Build(ctx context.Context, sources []source.Source, opts Options) (*Tree, error) {
	dim, err := opts.validate(sources)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		sources:           make([]source.Source, len(sources)),
		coords:            make([]float64, len(sources)*dim),
		dim:               dim,
		maxSourcesPerLeaf: opts.MaxSourcesPerLeaf,
		accuracy:          opts.Accuracy,
		maxDepth:          opts.depthLimit(),
		rootMode:          opts.Root,
	}
	for i, s := range sources {
		p := t.point(i)
		for k := range p {
			p[k] = s.At(k)
		}
		t.sources[i] = source.New(vector.New(p...), s.Strength)
	}

	center, size, err := t.rootRegion(opts)
	if err != nil {
		return nil, err
	}
	root := &Node{center: center, Size: size, Orthant: -1}

	b := &builder{tree: t, parallelDepth: opts.ParallelDepth, fitted: opts.Root == RootFit}

	t.order = make([]int, 0, len(sources))
	var outside []int
	for i := range t.sources {
		if root.containsPoint(t.point(i)) {
			t.order = append(t.order, i)
		} else {
			outside = append(outside, i)
		}
	}
	if len(outside) > 0 && opts.Strict {
		return nil, fmt.Errorf("%w: %d of %d sources, first %v (root center %v, size %g)",
			ErrOutsideRoot, len(outside), len(sources), t.sources[outside[0]], root.Center(), root.Size)
	}
	for _, i := range outside {
		b.report(Diagnostic{
			Kind:    DiagOutsideRoot,
			Source:  i,
			Message: fmt.Sprintf("source %d at %v lies outside root (center %v, size %g)", i, t.sources[i].Position, root.Center(), root.Size),
		})
	}
	root.lo, root.hi = 0, len(t.order)

	if err := b.build(ctx, root); err != nil {
		return nil, err
	}

	t.root = root
	t.diagnostics = b.diagnostics
	sortDiagnostics(t.diagnostics)
	return t, nil
}

func (t *Tree) point(i int) []float64 {
	return t.coords[i*t.dim : (i+1)*t.dim]
}

// Root returns the root region.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of input sources, including any left out of the
// tree.
func (t *Tree) Len() int { return len(t.sources) }

// Dimension returns d.
func (t *Tree) Dimension() int { return t.dim }

// MaxSourcesPerLeaf returns the leaf-capacity threshold.
func (t *Tree) MaxSourcesPerLeaf() int { return t.maxSourcesPerLeaf }

// Accuracy returns the accuracy parameter the tree was built with.
func (t *Tree) Accuracy() float64 { return t.accuracy }

// MaxDepth returns the depth ceiling the tree was built with.
func (t *Tree) MaxDepth() int { return t.maxDepth }

// RootMode returns how the root region was placed.
func (t *Tree) RootMode() RootMode { return t.rootMode }

// Source returns input source i.
func (t *Tree) Source(i int) source.Source { return t.sources[i] }

// Sources returns a copy of the input sources in input order.
func (t *Tree) Sources() []source.Source {
	out := make([]source.Source, len(t.sources))
	copy(out, t.sources)
	return out
}

// Indices returns the input indices of the sources retained at n.
func (t *Tree) Indices(n *Node) []int {
	out := make([]int, n.Len())
	copy(out, t.order[n.lo:n.hi])
	return out
}

// SourcesIn returns the sources retained at n.
func (t *Tree) SourcesIn(n *Node) []source.Source {
	out := make([]source.Source, 0, n.Len())
	for _, i := range t.order[n.lo:n.hi] {
		out = append(out, t.sources[i])
	}
	return out
}

// Diagnostics returns the problems found during the build, ordered by
// kind and then source index.
func (t *Tree) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(t.diagnostics))
	copy(out, t.diagnostics)
	return out
}

// Partial reports whether any leaf stopped at the depth ceiling, so the
// leaf-capacity invariant does not hold everywhere.
func (t *Tree) Partial() bool {
	for _, d := range t.diagnostics {
		if d.Kind == DiagDepthLimit {
			return true
		}
	}
	return false
}

// String is the one-line diagnostic summary.
func (t *Tree) String() string {
	return fmt.Sprintf("Balanced FMM Tree: %d sources, max %d per leaf, accuracy %g",
		len(t.sources), t.maxSourcesPerLeaf, t.accuracy)
}
