package fmm

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// fitMargin is the least relative clearance a fitted root keeps around
// the extreme sources, measured against the larger of the half-width and
// the center magnitude. It dominates the rounding of child centers.
const fitMargin = 1e-10

// rootRegion returns the root center and half-width.
func (t *Tree) rootRegion(opts Options) ([]float64, float64, error) {
	center := make([]float64, t.dim)

	if opts.Root == RootFixed {
		if opts.Center.Dim() != 0 {
			for i := range center {
				center[i] = opts.Center.At(i)
			}
		}
		size := opts.Size
		if size == 0 {
			size = 1.0
		}
		return center, size, nil
	}

	if len(t.sources) == 0 {
		return center, 1.0, nil
	}

	// Find bounding box
	minP := make([]float64, t.dim)
	maxP := make([]float64, t.dim)
	copy(minP, t.point(0))
	copy(maxP, t.point(0))
	for i := 1; i < len(t.sources); i++ {
		for k, x := range t.point(i) {
			if x < minP[k] {
				minP[k] = x
			}
			if x > maxP[k] {
				maxP[k] = x
			}
		}
	}

	// Halving before adding keeps the midpoint finite for any finite input.
	// The half-width is measured with the same subtraction the containment
	// test uses.
	var half, scale float64
	for k := range center {
		center[k] = minP[k]/2 + maxP[k]/2
		half = math.Max(half, math.Max(maxP[k]-center[k], center[k]-minP[k]))
		scale = math.Max(scale, math.Abs(center[k]))
	}
	if half == 0 {
		return center, 1.0, nil
	}

	size := half * (1 + opts.Padding)
	if floor := half + fitMargin*math.Max(half, scale); size < floor {
		size = floor
	}
	if math.IsInf(size, 0) || math.IsNaN(size) {
		return nil, 0, invalid("fitted root size overflows (half-width %g, padding %g)", half, opts.Padding)
	}
	return center, size, nil
}

type builder struct {
	tree          *Tree
	parallelDepth int
	// fitted roots contain every source by construction, so a rounding
	// miss in locate is resolved by side instead of being reported.
	fitted bool

	mu          sync.Mutex
	diagnostics []Diagnostic
}

func (b *builder) report(d Diagnostic) {
	b.mu.Lock()
	b.diagnostics = append(b.diagnostics, d)
	b.mu.Unlock()
}

// build runs the per-node state machine: a node is a Leaf when it fits the
// capacity, DepthLimitReached when it cannot be split further, and
// Subdividing otherwise.
func (b *builder) build(ctx context.Context, n *Node) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fmm: build cancelled at depth %d: %w", n.Depth, err)
	}

	t := b.tree
	if n.Len() <= t.maxSourcesPerLeaf {
		n.State = Leaf
		return nil
	}

	if n.Depth >= t.maxDepth || !divisible(n) {
		n.State = DepthLimitReached
		reason := "max depth reached"
		if n.Depth < t.maxDepth {
			reason = "region too small to subdivide"
		}
		b.report(Diagnostic{
			Kind:    DiagDepthLimit,
			Source:  -1,
			Depth:   n.Depth,
			Count:   n.Len(),
			Message: fmt.Sprintf("%s: node at %v (size %g) holds %d sources, capacity %d", reason, n.Center(), n.Size, n.Len(), t.maxSourcesPerLeaf),
		})
		return nil
	}

	n.State = Subdividing
	subdivide(n)
	b.distribute(n)

	if n.Depth < b.parallelDepth {
		g, gctx := errgroup.WithContext(ctx)
		for _, child := range n.Children {
			g.Go(func() error {
				return b.build(gctx, child)
			})
		}
		return g.Wait()
	}

	for _, child := range n.Children {
		if err := b.build(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// divisible reports whether halving n still yields distinct child centers
// on every axis.
func divisible(n *Node) bool {
	half := n.Size / 2
	if half == 0 {
		return false
	}
	for _, c := range n.center {
		if c+half == c || c-half == c {
			return false
		}
	}
	return true
}

// subdivide creates the 2^d orthant children of n. Child k is offset by
// +Size/2 on axis i when bit i of k is clear and by -Size/2 when it is set.
func subdivide(n *Node) {
	d := len(n.center)
	half := n.Size / 2
	n.Children = make([]*Node, 1<<d)
	for k := range n.Children {
		center := make([]float64, d)
		for i, c := range n.center {
			if k&(1<<i) == 0 {
				center[i] = c + half
			} else {
				center[i] = c - half
			}
		}
		n.Children[k] = &Node{
			center:  center,
			Size:    half,
			Depth:   n.Depth + 1,
			Orthant: k,
		}
	}
}

// locate returns the first child of n (in ascending orthant order) that
// contains p, or -1. Containment is separable per axis, so the lowest
// matching index takes the positive side of every axis where both sides
// match. With bySide set, an axis where rounding leaves p in neither
// child falls to the side of the center p lies on.
func locate(n *Node, p []float64, bySide bool) int {
	half := n.Size / 2
	k := 0
	for i, c := range n.center {
		switch {
		case math.Abs(p[i]-(c+half)) <= half:
		case math.Abs(p[i]-(c-half)) <= half:
			k |= 1 << i
		case bySide:
			if p[i] < c {
				k |= 1 << i
			}
		default:
			return -1
		}
	}
	return k
}

// distribute reorders n's range so each child owns a contiguous subrange,
// in orthant order, followed by the sources that matched no child. The
// reorder is stable, which keeps builds deterministic.
func (b *builder) distribute(n *Node) {
	t := b.tree
	idx := t.order[n.lo:n.hi]
	nc := len(n.Children)

	slot := make([]int, len(idx))
	counts := make([]int, nc+1)
	for j, si := range idx {
		k := locate(n, t.point(si), b.fitted)
		if k < 0 {
			k = nc
			b.report(Diagnostic{
				Kind:    DiagUnassigned,
				Source:  si,
				Depth:   n.Depth,
				Message: fmt.Sprintf("source %d at %v matched no child of node at %v (size %g)", si, t.sources[si].Position, n.Center(), n.Size),
			})
		}
		slot[j] = k
		counts[k]++
	}

	start := make([]int, nc+2)
	for k := 0; k <= nc; k++ {
		start[k+1] = start[k] + counts[k]
	}

	sorted := make([]int, len(idx))
	next := make([]int, nc+1)
	copy(next, start[:nc+1])
	for j, si := range idx {
		sorted[next[slot[j]]] = si
		next[slot[j]]++
	}
	copy(idx, sorted)

	for k, child := range n.Children {
		child.lo = n.lo + start[k]
		child.hi = n.lo + start[k+1]
	}
	n.assigned = start[nc]
}
