// Package cloud produces the weighted point clouds that sculptures are
// hulled from: random walks confined to one side of a symmetry plane,
// sphere samples, and tiered distortion through vector fields.
//
// Every generator draws from an explicit *rand.Rand so that a seed fully
// determines the output.
package cloud

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/nasum/pkg/point"
)

// SeedWhenEmpty is the seed used for an empty seed string.
const SeedWhenEmpty = 7

// SeedFromString folds s into a seed by multiplying an accumulator,
// starting at SeedWhenEmpty, by one plus each character code. The
// accumulator wraps like a 32-bit signed integer.
func SeedFromString(s string) int64 {
	acc := int32(SeedWhenEmpty)
	for _, c := range s {
		acc *= 1 + int32(c)
	}
	return int64(acc)
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Generator produces batches of points by random walk. The coordinate
// normal to the symmetry plane stays in [0, Extent] and the other two in
// [-Extent, Extent], so that mirroring the batch fills the other half.
type Generator struct {
	Rand           *rand.Rand
	Axis           point.Axis
	PointsPerBatch int
	Extent         float64
	MaxStep        float64 // largest distance between consecutive points
	Weight         float64
}

// Validate checks the generator parameters.
func (g *Generator) Validate() error {
	var errs []error
	if g.Rand == nil {
		errs = append(errs, errors.New("generator has no random source"))
	}
	if g.PointsPerBatch < 1 {
		errs = append(errs, fmt.Errorf("points per batch must be at least 1, got %d", g.PointsPerBatch))
	}
	if !(g.Extent > 0) {
		errs = append(errs, fmt.Errorf("extent must be positive, got %g", g.Extent))
	}
	if g.MaxStep < 0 {
		errs = append(errs, fmt.Errorf("max step must not be negative, got %g", g.MaxStep))
	}
	return errors.Join(errs...)
}

// Batch returns one random walk of PointsPerBatch points.
func (g *Generator) Batch() ([]point.Point, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("cloud: %w", err)
	}
	pos := v3.Vec{
		X: g.Rand.Float64(),
		Y: g.Rand.Float64(),
		Z: g.Rand.Float64(),
	}
	pos = g.clamp(g.spread(pos))
	pts := make([]point.Point, 0, g.PointsPerBatch)
	pts = append(pts, point.New(pos, g.Weight))
	for len(pts) < g.PointsPerBatch {
		step := RandomDirection(g.Rand).MulScalar(g.Rand.Float64() * g.MaxStep)
		pos = g.clamp(pos.Add(step))
		pts = append(pts, point.New(pos, g.Weight))
	}
	return pts, nil
}

// Batches returns n random walks.
func (g *Generator) Batches(n int) ([][]point.Point, error) {
	out := make([][]point.Point, 0, n)
	for i := 0; i < n; i++ {
		b, err := g.Batch()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// spread maps unit coordinates in [0, 1) to the generator's box.
func (g *Generator) spread(u v3.Vec) v3.Vec {
	f := func(c float64, half bool) float64 {
		if half {
			return c * g.Extent
		}
		return (2*c - 1) * g.Extent
	}
	return v3.Vec{
		X: f(u.X, g.Axis == point.AxisYZ),
		Y: f(u.Y, g.Axis == point.AxisXZ),
		Z: f(u.Z, g.Axis == point.AxisXY),
	}
}

func (g *Generator) clamp(v v3.Vec) v3.Vec {
	f := func(c float64, half bool) float64 {
		lo := -g.Extent
		if half {
			lo = 0
		}
		return math.Max(lo, math.Min(g.Extent, c))
	}
	return v3.Vec{
		X: f(v.X, g.Axis == point.AxisYZ),
		Y: f(v.Y, g.Axis == point.AxisXZ),
		Z: f(v.Z, g.Axis == point.AxisXY),
	}
}

// RandomDirection returns a unit vector uniformly distributed on the
// sphere.
func RandomDirection(rng *rand.Rand) v3.Vec {
	for {
		v := v3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if l := v.Length(); l > 1e-9 {
			return v.DivScalar(l)
		}
	}
}

// Sphere returns n points sampled uniformly on the sphere around center.
func Sphere(rng *rand.Rand, n int, center v3.Vec, radius, weight float64) []point.Point {
	pts := make([]point.Point, n)
	for i := range pts {
		pts[i] = point.New(center.Add(RandomDirection(rng).MulScalar(radius)), weight)
	}
	return pts
}
