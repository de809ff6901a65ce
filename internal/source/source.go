package source

import (
	"fmt"
	"math"

	"github.com/onnwee/fmmtree/backend/internal/vector"
)

// Source is a point entity with a position and a scalar strength
// (charge, mass or intensity).
type Source struct {
	Position vector.Vector
	Strength float64
}

// New returns a source at position with the given strength.
func New(position vector.Vector, strength float64) Source {
	return Source{Position: position, Strength: strength}
}

// At returns position component i.
func (s Source) At(i int) float64 { return s.Position.At(i) }

// Dim returns the dimension of the position.
func (s Source) Dim() int { return s.Position.Dim() }

// Equal reports exact equality of position and strength.
func (s Source) Equal(o Source) bool {
	return s.Strength == o.Strength && s.Position.Equal(o.Position)
}

// Finite reports whether position and strength are all finite numbers.
func (s Source) Finite() bool {
	return s.Position.Finite() && !math.IsNaN(s.Strength) && !math.IsInf(s.Strength, 0)
}

func (s Source) String() string {
	return fmt.Sprintf("PointSource(position: %v, strength: %v)", s.Position, s.Strength)
}
