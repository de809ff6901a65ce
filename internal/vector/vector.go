package vector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrDivideByZero is returned when a vector is divided by exactly zero.
var ErrDivideByZero = errors.New("vector: division by zero")

// Vector is a fixed-dimension real vector. The dimension is set when the
// vector is built and never changes. All arithmetic except the *InPlace
// methods returns a fresh vector.
type Vector struct {
	c []float64
}

// New builds a vector from its components.
func New(components ...float64) Vector {
	c := make([]float64, len(components))
	copy(c, components)
	return Vector{c: c}
}

// Zero returns the d-dimensional zero vector.
func Zero(d int) Vector {
	return Vector{c: make([]float64, d)}
}

// Fill returns a d-dimensional vector with every component set to v.
func Fill(d int, v float64) Vector {
	c := make([]float64, d)
	for i := range c {
		c[i] = v
	}
	return Vector{c: c}
}

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v.c) }

// At returns component i. An out-of-range index panics.
func (v Vector) At(i int) float64 {
	if i < 0 || i >= len(v.c) {
		panic(fmt.Sprintf("vector: index %d out of range [0,%d)", i, len(v.c)))
	}
	return v.c[i]
}

// Components returns a copy of the components.
func (v Vector) Components() []float64 {
	out := make([]float64, len(v.c))
	copy(out, v.c)
	return out
}

func (v Vector) mustMatch(o Vector) {
	if len(v.c) != len(o.c) {
		panic(fmt.Sprintf("vector: dimension mismatch %d != %d", len(v.c), len(o.c)))
	}
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	v.mustMatch(o)
	out := make([]float64, len(v.c))
	floats.AddTo(out, v.c, o.c)
	return Vector{c: out}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	v.mustMatch(o)
	out := make([]float64, len(v.c))
	floats.SubTo(out, v.c, o.c)
	return Vector{c: out}
}

// Neg returns -v.
func (v Vector) Neg() Vector {
	return v.Scale(-1)
}

// Scale returns v * s.
func (v Vector) Scale(s float64) Vector {
	out := make([]float64, len(v.c))
	floats.ScaleTo(out, s, v.c)
	return Vector{c: out}
}

// Div returns v / s, or ErrDivideByZero when s is exactly zero.
func (v Vector) Div(s float64) (Vector, error) {
	if s == 0 {
		return Vector{}, ErrDivideByZero
	}
	return v.Scale(1 / s), nil
}

// AddInPlace adds o to v.
func (v Vector) AddInPlace(o Vector) {
	v.mustMatch(o)
	floats.Add(v.c, o.c)
}

// SubInPlace subtracts o from v.
func (v Vector) SubInPlace(o Vector) {
	v.mustMatch(o)
	floats.Sub(v.c, o.c)
}

// ScaleInPlace multiplies every component of v by s.
func (v Vector) ScaleInPlace(s float64) {
	floats.Scale(s, v.c)
}

// DivInPlace divides every component of v by s. v is left unchanged and
// ErrDivideByZero returned when s is exactly zero.
func (v Vector) DivInPlace(s float64) error {
	if s == 0 {
		return ErrDivideByZero
	}
	floats.Scale(1/s, v.c)
	return nil
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float64 {
	v.mustMatch(o)
	return floats.Dot(v.c, o.c)
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	if len(v.c) == 0 {
		return 0
	}
	return floats.Norm(v.c, 2)
}

// NormSquared returns v·v.
func (v Vector) NormSquared() float64 {
	return floats.Dot(v.c, v.c)
}

// Equal reports exact component-wise equality. Two positions computed along
// different paths may compare unequal.
func (v Vector) Equal(o Vector) bool {
	if len(v.c) != len(o.c) {
		return false
	}
	return floats.Equal(v.c, o.c)
}

// Finite reports whether every component is neither NaN nor infinite.
func (v Vector) Finite() bool {
	for _, x := range v.c {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, x := range v.c {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}
