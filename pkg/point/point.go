// Package point defines the weighted 3D samples that sculptures are hulled
// from, and the mirroring applied to them across a plane of symmetry.
package point

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is a weighted sample in 3D space. Points are values; once built
// with New they are not modified.
type Point struct {
	Position v3.Vec  `json:"position"`
	Weight   float64 `json:"weight"` // always in [0, 1]
}

// New returns a point at position with its weight clamped to [0, 1].
// A NaN weight becomes 0.
func New(position v3.Vec, weight float64) Point {
	return Point{Position: position, Weight: clamp01(weight)}
}

// XYZW is shorthand for New(v3.Vec{X: x, Y: y, Z: z}, w).
func XYZW(x, y, z, w float64) Point {
	return New(v3.Vec{X: x, Y: y, Z: z}, w)
}

// IsFinite reports whether every coordinate is a finite number.
func (p Point) IsFinite() bool {
	for _, c := range [3]float64{p.Position.X, p.Position.Y, p.Position.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (p Point) String() string {
	return fmt.Sprintf("(%g %g %g w=%g)", p.Position.X, p.Position.Y, p.Position.Z, p.Weight)
}

func clamp01(w float64) float64 {
	switch {
	case math.IsNaN(w), w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}
