package fmm

import (
	"fmt"
	"math"

	"github.com/onnwee/fmmtree/backend/internal/vector"
)

// NodeState records why a node stopped (or did not stop) subdividing.
type NodeState uint8

const (
	// Subdividing marks an internal node whose sources were distributed
	// to 2^d children.
	Subdividing NodeState = iota
	// Leaf marks a node holding at most MaxSourcesPerLeaf sources.
	Leaf
	// DepthLimitReached marks an over-full leaf that could not be split
	// further, either because of the depth ceiling or because the region
	// became too small to represent.
	DepthLimitReached
)

func (s NodeState) String() string {
	switch s {
	case Subdividing:
		return "subdividing"
	case Leaf:
		return "leaf"
	case DepthLimitReached:
		return "depth_limit"
	default:
		return fmt.Sprintf("NodeState(%d)", uint8(s))
	}
}

// Node is an axis-aligned hypercube region of the tree.
//
// A node does not own source data. It refers to a contiguous range of the
// tree's source ordering; Tree.SourcesIn and Tree.Indices resolve it.
type Node struct {
	center []float64

	// Size is the half-width of the region along every axis.
	Size float64
	// Depth is zero at the root.
	Depth int
	// Orthant is the node's index within its parent's children, -1 at the
	// root. Bit i set means the node lies on the negative side of axis i.
	Orthant int
	State   NodeState
	// Children is empty for leaves and holds exactly 2^d nodes otherwise.
	Children []*Node

	lo, hi   int
	assigned int
}

// Center returns a copy of the region center.
func (n *Node) Center() vector.Vector {
	return vector.New(n.center...)
}

// Len returns the number of sources retained at the node. On an internal
// node this is the record of what was distributed, including any source
// that matched no child.
func (n *Node) Len() int { return n.hi - n.lo }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Unassigned returns how many of the node's sources matched no child.
func (n *Node) Unassigned() int {
	if n.IsLeaf() {
		return 0
	}
	return n.Len() - n.assigned
}

// Contains reports whether p lies in the region: |p_i - c_i| <= Size on
// every axis.
func (n *Node) Contains(p vector.Vector) bool {
	if p.Dim() != len(n.center) {
		return false
	}
	for i, c := range n.center {
		if math.Abs(p.At(i)-c) > n.Size {
			return false
		}
	}
	return true
}

func (n *Node) containsPoint(p []float64) bool {
	for i, c := range n.center {
		if math.Abs(p[i]-c) > n.Size {
			return false
		}
	}
	return true
}

// containSlack bounds the rounding a child center picks up relative to the
// magnitude of its coordinates.
const containSlack = 1e-12

// containsWithin reports whether p lies in n widened by slack on every axis.
func (n *Node) containsWithin(p []float64, slack float64) bool {
	for i, c := range n.center {
		if math.Abs(p[i]-c) > n.Size+slack {
			return false
		}
	}
	return true
}

// scale is the larger of the half-width and the largest center magnitude.
func (n *Node) scale() float64 {
	s := n.Size
	for _, c := range n.center {
		s = math.Max(s, math.Abs(c))
	}
	return s
}
