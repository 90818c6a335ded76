package hull

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/nasum/pkg/point"
)

// Hull is a closed convex triangle surface over a set of input points.
type Hull struct {
	// Points is a copy of the input.
	Points []point.Point
	// Faces index into Points. Each face is wound counterclockwise when
	// seen from outside, so its normal points away from the hull.
	Faces [][3]int
	// Interior lists the input indices that are not hull vertices, in
	// ascending order.
	Interior []int
}

// Vertices returns the input indices used by at least one face, ascending.
func (h *Hull) Vertices() []int {
	used := make(map[int]bool)
	for _, f := range h.Faces {
		for _, p := range f {
			used[p] = true
		}
	}
	out := make([]int, 0, len(used))
	for p := range used {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// FaceNormal returns the outward unit normal of face i.
func (h *Hull) FaceNormal(i int) v3.Vec {
	a, b, c := h.corners(i)
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

func (h *Hull) corners(i int) (v3.Vec, v3.Vec, v3.Vec) {
	f := h.Faces[i]
	return h.Points[f[0]].Position, h.Points[f[1]].Position, h.Points[f[2]].Position
}

// Contains reports whether p lies inside or on the hull, within a small
// tolerance scaled to the size of the input.
func (h *Hull) Contains(p v3.Vec) bool {
	tol := 1e-9 * (1 + h.extent())
	for i := range h.Faces {
		a, _, _ := h.corners(i)
		if p.Sub(a).Dot(h.FaceNormal(i)) > tol {
			return false
		}
	}
	return true
}

func (h *Hull) extent() float64 {
	e := 0.0
	for _, p := range h.Points {
		e = math.Max(e, p.Position.Abs().MaxComponent())
	}
	return e
}
