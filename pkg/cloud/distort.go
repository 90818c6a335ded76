package cloud

import (
	"errors"
	"math/rand"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/nasum/pkg/point"
)

// Distorter grows a group of points into tiers. Each tier is a shuffled
// subset of the previous one, displaced by the vector field. The field is
// sampled on the positive side of the symmetry plane and mirrored back, so
// that mirrored clouds distort symmetrically.
type Distorter struct {
	Field     VectorField
	Rand      *rand.Rand
	Axis      point.Axis
	Intensity float64 // length of each displacement
	Scale     float64 // multiplies positions before sampling the field

	// GroupSize is the number of points per group in DistortAll. Tier k
	// has GroupSize + k*TierIncrement points.
	GroupSize     int
	TierIncrement int
	MaxTiers      int // including the group itself
}

// FieldAt returns the displacement applied to a point at pos.
func (d *Distorter) FieldAt(pos v3.Vec) v3.Vec {
	sign := 1.0
	if d.Axis.Normal(pos) < 0 {
		sign = -1
		pos = d.Axis.Reflect(pos)
	}
	v := normalize(d.Field.VectorAt(pos.MulScalar(d.Scale))).MulScalar(d.Intensity)
	if sign < 0 {
		v = d.Axis.Reflect(v)
	}
	return v
}

// Distort returns group followed by its distorted tiers. The first tier
// has len(group)+TierIncrement points; tiers stop at MaxTiers or when the
// size would drop to zero. The input slice is not modified.
func (d *Distorter) Distort(group []point.Point) ([]point.Point, error) {
	if d.Field == nil || d.Rand == nil {
		return nil, errors.New("cloud: distorter needs a field and a random source")
	}
	out := append([]point.Point(nil), group...)
	prev := group
	size := len(group) + d.TierIncrement
	for tier := 1; tier < d.MaxTiers && size > 0; tier++ {
		shuffled := append([]point.Point(nil), prev...)
		d.Rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		next := shuffled[:min(size, len(shuffled))]
		for i, p := range next {
			next[i] = point.New(p.Position.Add(d.FieldAt(p.Position)), p.Weight)
		}
		out = append(out, next...)
		prev = next
		size += d.TierIncrement
	}
	return out, nil
}

// DistortAll splits points into consecutive groups of GroupSize and
// distorts each into its own batch. A trailing partial group joins the
// group before it, so no batch is smaller than GroupSize unless points
// holds fewer than that.
func (d *Distorter) DistortAll(points []point.Point) ([][]point.Point, error) {
	size := d.GroupSize
	if size < 1 || size > len(points) {
		size = len(points)
	}
	var out [][]point.Point
	for start := 0; start < len(points); start += size {
		end := start + size
		if len(points)-end < size {
			end = len(points)
		}
		batch, err := d.Distort(points[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch)
		if end == len(points) {
			break
		}
	}
	return out, nil
}
