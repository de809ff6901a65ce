package fmm

import (
	"errors"
	"fmt"
	"math"
)

// Walk visits nodes depth-first, parents before children, in orthant
// order. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	if t.root == nil {
		return
	}
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t.root)
}

// Leaves returns every leaf in Walk order, including empty ones.
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	t.Walk(func(n *Node) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes            int `json:"nodes"`
	Leaves           int `json:"leaves"`
	EmptyLeaves      int `json:"empty_leaves"`
	DepthLimited     int `json:"depth_limited"`
	MaxDepth         int `json:"max_depth"`
	MaxLeafOccupancy int `json:"max_leaf_occupancy"`
	OutsideRoot      int `json:"outside_root"`
	Unassigned       int `json:"unassigned"`
}

// Dropped returns the number of sources that are in no leaf.
func (s Stats) Dropped() int { return s.OutsideRoot + s.Unassigned }

// Stats walks the tree and counts nodes, leaves and lost sources.
func (t *Tree) Stats() Stats {
	var s Stats
	t.Walk(func(n *Node) bool {
		s.Nodes++
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		s.Unassigned += n.Unassigned()
		if !n.IsLeaf() {
			return true
		}
		s.Leaves++
		if n.Len() == 0 {
			s.EmptyLeaves++
		}
		if n.State == DepthLimitReached {
			s.DepthLimited++
		}
		if n.Len() > s.MaxLeafOccupancy {
			s.MaxLeafOccupancy = n.Len()
		}
		return true
	})
	for _, d := range t.diagnostics {
		if d.Kind == DiagOutsideRoot {
			s.OutsideRoot++
		}
	}
	return s
}

// Validate checks the structural invariants of the tree: 2^d fan-out with
// halved sizes and ±Size/2 center offsets, leaf capacity, containment of
// every leaf source and that each admitted source ends in exactly one leaf
// unless it was reported as unassigned. It returns every violation joined.
func (t *Tree) Validate() error {
	if t.root == nil {
		return errors.New("fmm: tree has no root")
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !(t.root.Size > 0) || math.IsInf(t.root.Size, 0) {
		fail("root size %g is not a positive finite number", t.root.Size)
	}
	for i, x := range t.root.center {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			fail("root center[%d]=%g is not finite", i, x)
		}
	}

	seen := make([]int, len(t.sources))
	t.Walk(func(n *Node) bool {
		switch n.State {
		case Subdividing:
			if n.IsLeaf() {
				fail("subdividing node at depth %d has no children", n.Depth)
			}
		case Leaf:
			if n.Len() > t.maxSourcesPerLeaf {
				fail("leaf at depth %d holds %d sources, capacity %d", n.Depth, n.Len(), t.maxSourcesPerLeaf)
			}
		case DepthLimitReached:
			if !n.IsLeaf() {
				fail("depth-limited node at depth %d has children", n.Depth)
			}
		}

		if n.IsLeaf() {
			for _, si := range t.order[n.lo:n.hi] {
				seen[si]++
				if !n.containsWithin(t.point(si), containSlack*n.scale()) {
					fail("source %d is not contained in its leaf at depth %d", si, n.Depth)
				}
			}
			return true
		}

		if want := 1 << t.dim; len(n.Children) != want {
			fail("node at depth %d has %d children, want %d", n.Depth, len(n.Children), want)
		}
		half := n.Size / 2
		lo := n.lo
		for k, c := range n.Children {
			if c.Size != half {
				fail("child %d at depth %d has size %g, want %g", k, c.Depth, c.Size, half)
			}
			for i, x := range n.center {
				want := x + half
				if k&(1<<i) != 0 {
					want = x - half
				}
				if c.center[i] != want {
					fail("child %d at depth %d has center[%d]=%g, want %g", k, c.Depth, i, c.center[i], want)
				}
			}
			if c.lo != lo || c.hi < c.lo {
				fail("child %d at depth %d has range [%d,%d), want start %d", k, c.Depth, c.lo, c.hi, lo)
			}
			lo = c.hi
		}
		if lo != n.lo+n.assigned {
			fail("children of node at depth %d cover %d sources, want %d", n.Depth, lo-n.lo, n.assigned)
		}
		for _, si := range t.order[n.lo+n.assigned : n.hi] {
			seen[si]++
		}
		return true
	})

	for _, si := range t.order {
		if seen[si] != 1 {
			fail("source %d appears in %d leaves", si, seen[si])
		}
	}
	return errors.Join(errs...)
}
