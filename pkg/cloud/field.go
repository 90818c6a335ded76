package cloud

import (
	"math"
	"math/rand"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VectorField maps positions to displacement vectors.
type VectorField interface {
	VectorAt(pos v3.Vec) v3.Vec
}

// ConstantField returns the same vector everywhere.
type ConstantField struct {
	Direction v3.Vec
}

func (f ConstantField) VectorAt(v3.Vec) v3.Vec {
	return f.Direction
}

// CompositeField averages its member fields. An empty composite is zero
// everywhere.
type CompositeField struct {
	Fields []VectorField
}

// Add appends a member field.
func (f *CompositeField) Add(field VectorField) {
	f.Fields = append(f.Fields, field)
}

func (f *CompositeField) VectorAt(pos v3.Vec) v3.Vec {
	if len(f.Fields) == 0 {
		return v3.Vec{}
	}
	var sum v3.Vec
	for _, field := range f.Fields {
		sum = sum.Add(field.VectorAt(pos))
	}
	return sum.DivScalar(float64(len(f.Fields)))
}

// DefaultLatticeSize is the edge length of the gradient lattice of a
// RepeatedCubeField.
const DefaultLatticeSize = 8

// RepeatedCubeField interpolates a lattice of random unit vectors that
// repeats every Size units along each axis. The field is symmetric in each
// coordinate: negative coordinates sample the lattice at their absolute
// value.
type RepeatedCubeField struct {
	Intensity float64
	size      int
	gradient  []v3.Vec // size^3, x major
}

// NewRepeatedCubeField builds a lattice of the given size with gradients
// drawn from rng. A size below 1 means DefaultLatticeSize.
func NewRepeatedCubeField(rng *rand.Rand, intensity float64, size int) *RepeatedCubeField {
	if size < 1 {
		size = DefaultLatticeSize
	}
	f := &RepeatedCubeField{
		Intensity: intensity,
		size:      size,
		gradient:  make([]v3.Vec, size*size*size),
	}
	for i := range f.gradient {
		f.gradient[i] = RandomDirection(rng)
	}
	return f
}

// Size returns the lattice edge length.
func (f *RepeatedCubeField) Size() int {
	return f.size
}

func (f *RepeatedCubeField) at(i, j, k int) v3.Vec {
	return f.gradient[(i*f.size+j)*f.size+k]
}

// VectorAt trilinearly interpolates the eight lattice gradients around the
// absolute value of pos and scales the normalised result by Intensity.
func (f *RepeatedCubeField) VectorAt(pos v3.Vec) v3.Vec {
	cell := func(c float64) (lo, hi int, t float64) {
		c = math.Abs(c)
		fl := math.Floor(c)
		t = c - fl
		lo = int(math.Mod(fl, float64(f.size)))
		hi = int(math.Mod(math.Ceil(c), float64(f.size)))
		return lo, hi, t
	}
	x0, x1, tx := cell(pos.X)
	y0, y1, ty := cell(pos.Y)
	z0, z1, tz := cell(pos.Z)

	var sum v3.Vec
	for _, c := range [8]struct {
		i, j, k int
		w       float64
	}{
		{x1, y1, z1, tx * ty * tz},
		{x1, y1, z0, tx * ty * (1 - tz)},
		{x1, y0, z1, tx * (1 - ty) * tz},
		{x1, y0, z0, tx * (1 - ty) * (1 - tz)},
		{x0, y1, z1, (1 - tx) * ty * tz},
		{x0, y1, z0, (1 - tx) * ty * (1 - tz)},
		{x0, y0, z1, (1 - tx) * (1 - ty) * tz},
		{x0, y0, z0, (1 - tx) * (1 - ty) * (1 - tz)},
	} {
		sum = sum.Add(f.at(c.i, c.j, c.k).MulScalar(c.w))
	}
	return normalize(sum).MulScalar(f.Intensity)
}

// normalize returns v scaled to unit length, or zero for a zero vector.
func normalize(v v3.Vec) v3.Vec {
	l := v.Length()
	if l < 1e-12 || math.IsNaN(l) {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}
