package hull

import (
	"fmt"
	"log"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// triID is a handle into the triangle arena.
type triID int

// noTriangle is the null triangle handle.
const noTriangle triID = -1

// degenerateTolerance is the relative cross product length below which a
// vertex triple is treated as collinear.
const degenerateTolerance = 1e-12

type triangle struct {
	id     triID
	points [3]int    // point handles, counterclockwise seen from outside
	pos    [3]v3.Vec // positions of points, same order
	normal v3.Vec    // unit length
	eps    float64   // plane distances up to eps count as on the plane
	alive  bool
}

// isFacingPoint reports whether p lies strictly on the outer side of the
// triangle's plane.
func (t *triangle) isFacingPoint(p v3.Vec) bool {
	return t.distanceTo(p) > t.eps
}

// distanceTo returns the signed distance from p to the triangle's plane,
// positive on the side the normal points to.
func (t *triangle) distanceTo(p v3.Vec) float64 {
	return p.Sub(t.pos[0]).Dot(t.normal)
}

// reverse flips the winding and the normal.
func (t *triangle) reverse() {
	t.points[1], t.points[2] = t.points[2], t.points[1]
	t.pos[1], t.pos[2] = t.pos[2], t.pos[1]
	t.normal = t.normal.Neg()
}

// detachPoints unregisters the triangle from its three points and retires
// it. A triangle is detached exactly once.
func (t *triangle) detachPoints(points []hullPoint, logger *log.Logger) {
	if !t.alive {
		fatalf(ErrInconsistentTopology, "triangle %d detached twice", t.id)
	}
	for _, p := range t.points {
		points[p].removeFromTriangle(t.id, logger)
	}
	t.points = [3]int{noPoint, noPoint, noPoint}
	t.alive = false
}

// arena owns every point and triangle of one hull computation. Triangles
// are never freed; retired ones stay in place with alive unset so that
// handles remain stable.
type arena struct {
	points    []hullPoint
	tris      []triangle
	logger    *log.Logger
	tolerance float64 // absolute, scaled to the input extent
}

func (a *arena) tri(id triID) *triangle {
	return &a.tris[id]
}

// newTriangle validates and builds triangle (p0, p1, p2), then registers it
// with its three points.
func (a *arena) newTriangle(p0, p1, p2 int) (triID, error) {
	handles := [3]int{p0, p1, p2}
	for _, h := range handles {
		if h < 0 || h >= len(a.points) {
			return noTriangle, fmt.Errorf("point handle %d: %w", h, ErrDegenerateTriangle)
		}
	}
	if p0 == p1 || p1 == p2 || p0 == p2 {
		return noTriangle, fmt.Errorf("repeated vertex in (%d, %d, %d): %w", p0, p1, p2, ErrDegenerateTriangle)
	}

	pos := [3]v3.Vec{a.points[p0].pos, a.points[p1].pos, a.points[p2].pos}
	e1, e2 := pos[1].Sub(pos[0]), pos[2].Sub(pos[0])
	cross := e1.Cross(e2)
	length := cross.Length()
	if length == 0 || math.IsNaN(length) || length <= degenerateTolerance*e1.Length()*e2.Length() {
		return noTriangle, fmt.Errorf("zero area triangle (%d, %d, %d): %w", p0, p1, p2, ErrDegenerateTriangle)
	}

	id := triID(len(a.tris))
	a.tris = append(a.tris, triangle{
		id:     id,
		points: handles,
		pos:    pos,
		normal: cross.DivScalar(length),
		eps:    a.tolerance,
		alive:  true,
	})
	for _, h := range handles {
		if err := a.points[h].addToTriangle(id); err != nil {
			return noTriangle, err
		}
	}
	return id, nil
}
