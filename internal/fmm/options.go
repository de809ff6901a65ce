package fmm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

const (
	// DefaultMaxDepth bounds recursion when Options.MaxDepth is zero.
	DefaultMaxDepth = 32
	// DefaultPadding is the relative margin added around a fitted root.
	DefaultPadding = 0.1
	// MaxDimension caps d so that the 2^d fan-out stays allocatable.
	MaxDimension = 16
)

var (
	// ErrInvalidOptions wraps every configuration error reported by Build.
	ErrInvalidOptions = errors.New("fmm: invalid options")
	// ErrOutsideRoot is returned by a strict build when a source does not
	// lie inside the root region.
	ErrOutsideRoot = errors.New("fmm: source outside root region")
)

// RootMode selects how the root region is placed.
type RootMode int

const (
	// RootFit derives the root from the bounding box of the sources.
	RootFit RootMode = iota
	// RootFixed uses Options.Center and Options.Size as given.
	RootFixed
)

func (m RootMode) String() string {
	switch m {
	case RootFit:
		return "fit"
	case RootFixed:
		return "fixed"
	default:
		return fmt.Sprintf("RootMode(%d)", int(m))
	}
}

// ParseRootMode parses "fit" or "fixed". An empty string means RootFit.
func ParseRootMode(s string) (RootMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return RootFit, nil
	case "fixed":
		return RootFixed, nil
	default:
		return RootFit, fmt.Errorf("%w: unknown root mode %q", ErrInvalidOptions, s)
	}
}

// Options configures Build.
type Options struct {
	// MaxSourcesPerLeaf is the leaf-capacity threshold. Must be >= 1.
	MaxSourcesPerLeaf int
	// Accuracy is stored on the tree for later expansion-order selection.
	// Must be > 0. Construction does not use it.
	Accuracy float64
	// MaxDepth is the depth ceiling. Zero means DefaultMaxDepth.
	MaxDepth int

	Root RootMode
	// Center and Size describe the root for RootFixed. An unset center is
	// the origin; a zero size is 1.0.
	Center vector.Vector
	Size   float64
	// Padding is the relative margin added to a fitted root half-width.
	Padding float64

	// Strict fails the build with ErrOutsideRoot instead of reporting
	// sources that fall outside the root.
	Strict bool

	// Dimension is required when there are no sources; otherwise it must
	// be zero or match the sources.
	Dimension int

	// ParallelDepth builds the subtrees of nodes shallower than this
	// concurrently. Zero builds sequentially.
	ParallelDepth int
}

// DefaultOptions returns options with the package defaults filled in.
func DefaultOptions() Options {
	return Options{
		MaxSourcesPerLeaf: 8,
		Accuracy:          1e-6,
		MaxDepth:          DefaultMaxDepth,
		Root:              RootFit,
		Padding:           DefaultPadding,
	}
}

func (o Options) depthLimit() int {
	if o.MaxDepth == 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}

// validate checks the options against the input and returns the tree
// dimension.
func (o Options) validate(sources []source.Source) (int, error) {
	if o.MaxSourcesPerLeaf < 1 {
		return 0, invalid("max sources per leaf must be >= 1, got %d", o.MaxSourcesPerLeaf)
	}
	if !(o.Accuracy > 0) || math.IsInf(o.Accuracy, 0) {
		return 0, invalid("accuracy must be a positive finite number, got %v", o.Accuracy)
	}
	if o.MaxDepth < 0 {
		return 0, invalid("max depth must be >= 0, got %d", o.MaxDepth)
	}
	if o.ParallelDepth < 0 {
		return 0, invalid("parallel depth must be >= 0, got %d", o.ParallelDepth)
	}
	if o.Padding < 0 || math.IsNaN(o.Padding) || math.IsInf(o.Padding, 0) {
		return 0, invalid("padding must be a non-negative finite number, got %v", o.Padding)
	}
	if o.Root != RootFit && o.Root != RootFixed {
		return 0, invalid("unknown root mode %d", int(o.Root))
	}

	dim := o.Dimension
	if len(sources) > 0 {
		if dim == 0 {
			dim = sources[0].Dim()
		}
		for i, s := range sources {
			if s.Dim() != dim {
				return 0, invalid("source %d has dimension %d, want %d", i, s.Dim(), dim)
			}
			if !s.Finite() {
				return 0, invalid("source %d is not finite: %v", i, s)
			}
		}
	}
	if dim < 1 {
		return 0, invalid("dimension unknown or < 1 (set Dimension for an empty build)")
	}
	if dim > MaxDimension {
		return 0, invalid("dimension %d exceeds maximum %d", dim, MaxDimension)
	}

	if o.Root == RootFixed {
		if o.Center.Dim() != 0 && o.Center.Dim() != dim {
			return 0, invalid("root center has dimension %d, want %d", o.Center.Dim(), dim)
		}
		if o.Center.Dim() != 0 && !o.Center.Finite() {
			return 0, invalid("root center is not finite: %v", o.Center)
		}
		if o.Size < 0 || math.IsNaN(o.Size) || math.IsInf(o.Size, 0) {
			return 0, invalid("root size must be a positive finite number, got %v", o.Size)
		}
	}
	return dim, nil
}
