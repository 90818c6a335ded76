// Package hull computes the convex hull of a weighted point cloud and turns
// it into a render-ready mesh.
//
// The hull is grown incrementally: a seed tetrahedron is built from extreme
// points, then each triangle that still sees outside points is replaced by
// a fan of triangles around the furthest of them. Points that end up inside
// the hull are discarded along the way.
//
// Ties between equally distant points are broken by input order: the first
// point in the input slice wins. Results are therefore reproducible for a
// given input order but may differ for a permutation of the same points
// when several points are exactly equidistant.
package hull

import (
	"context"
	"fmt"
	"log"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
)

// Builder computes hulls and assembles them into meshes.
// The zero value builds smooth meshes and logs to log.Default().
type Builder struct {
	Shading mesh.Shading
	Logger  *log.Logger
}

// Compute runs the hull algorithm on points with a default Builder.
func Compute(ctx context.Context, points []point.Point) (*Hull, error) {
	return (&Builder{}).Compute(ctx, points)
}

// Build computes the hull of points and assembles it in the builder's
// shading mode.
func (b *Builder) Build(ctx context.Context, points []point.Point) (*mesh.Mesh, error) {
	h, err := b.Compute(ctx, points)
	if err != nil {
		return nil, err
	}
	return h.Mesh(b.Shading), nil
}

// Compute returns the convex hull of points. It fails with
// ErrInsufficientPoints for fewer than 4 points and with
// ErrDegenerateTriangle when the points do not span a volume.
func (b *Builder) Compute(ctx context.Context, points []point.Point) (h *Hull, err error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientPoints, len(points))
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, fmt.Errorf("hull: point %d %v is not finite: %w", i, p, ErrInvalidState)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			h, err = nil, recoverTopology(r)
		}
	}()

	logger := b.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := newState(points, logger)
	if err := s.seed(); err != nil {
		return nil, err
	}
	if err := s.grow(ctx); err != nil {
		return nil, err
	}
	return s.result(points), nil
}

// state is the transient data of one Compute call.
type state struct {
	arena
	remaining []bool // input index -> still outside the hull
	left      int    // number of true entries in remaining
	queue     []triID
	head      int
	centroid  v3.Vec // strictly inside every intermediate hull
}

func newState(points []point.Point, logger *log.Logger) *state {
	s := &state{
		arena: arena{
			points: make([]hullPoint, len(points)),
			logger: logger,
		},
		remaining: make([]bool, len(points)),
	}
	extent := 0.0
	for i, p := range points {
		s.points[i] = hullPoint{pos: p.Position}
		extent = math.Max(extent, p.Position.Abs().MaxComponent())
	}
	s.tolerance = degenerateTolerance * extent
	return s
}

// extremes returns the indices of the points with minimum Y, maximum Y,
// minimum Z and maximum Z. Ties keep the lowest index.
func (s *state) extremes() [4]int {
	var ext [4]int
	for i, p := range s.points {
		if p.pos.Y < s.points[ext[0]].pos.Y {
			ext[0] = i
		}
		if p.pos.Y > s.points[ext[1]].pos.Y {
			ext[1] = i
		}
		if p.pos.Z < s.points[ext[2]].pos.Z {
			ext[2] = i
		}
		if p.pos.Z > s.points[ext[3]].pos.Z {
			ext[3] = i
		}
	}
	return ext
}

// offset returns how far p lies from the affine hull of the seeds: the
// distance to the seed point, line or plane. Without seeds every point is
// infinitely far.
func (s *state) offset(seeds []int, p v3.Vec) float64 {
	switch len(seeds) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Sub(s.points[seeds[0]].pos).Length()
	case 2:
		a := s.points[seeds[0]].pos
		dir := s.points[seeds[1]].pos.Sub(a).Normalize()
		return p.Sub(a).Cross(dir).Length()
	default:
		a := s.points[seeds[0]].pos
		n := s.points[seeds[1]].pos.Sub(a).Cross(s.points[seeds[2]].pos.Sub(a)).Normalize()
		return math.Abs(p.Sub(a).Dot(n))
	}
}

// seed picks four affinely independent points, builds the outward facing
// seed tetrahedron and marks every other point that lies outside it as
// remaining.
//
// The min-Y, max-Y, min-Z and max-Z points are taken in that order. An
// extreme that does not extend the affine hull of the seeds chosen so far
// (a duplicate, or a point on their line or plane) is replaced by the
// point furthest from that hull, lowest index first on ties.
func (s *state) seed() error {
	seeds := make([]int, 0, 4)
	chosen := make([]bool, len(s.points))
	for _, cand := range s.extremes() {
		if chosen[cand] || s.offset(seeds, s.points[cand].pos) <= s.tolerance {
			cand = noPoint
			best := s.tolerance
			for i, p := range s.points {
				if chosen[i] {
					continue
				}
				if d := s.offset(seeds, p.pos); d > best {
					cand, best = i, d
				}
			}
			if cand == noPoint {
				return fmt.Errorf("hull: points span fewer than 3 dimensions: %w", ErrDegenerateTriangle)
			}
		}
		seeds = append(seeds, cand)
		chosen[cand] = true
	}

	var faces [4]triID
	for omit := 0; omit < 4; omit++ {
		var tri [3]int
		n := 0
		for i, p := range seeds {
			if i != omit {
				tri[n] = p
				n++
			}
		}
		id, err := s.newTriangle(tri[0], tri[1], tri[2])
		if err != nil {
			return fmt.Errorf("hull: seed tetrahedron: %w", err)
		}
		if t := s.tri(id); t.isFacingPoint(s.points[seeds[omit]].pos) {
			t.reverse()
		}
		faces[omit] = id
		s.queue = append(s.queue, id)
		s.centroid = s.centroid.Add(s.points[seeds[omit]].pos)
	}
	s.centroid = s.centroid.DivScalar(4)

	for i, p := range s.points {
		if chosen[i] {
			continue
		}
		for _, id := range faces {
			if s.tri(id).isFacingPoint(p.pos) {
				s.remaining[i] = true
				s.left++
				break
			}
		}
	}
	return nil
}

// grow runs the growth loop until every remaining point is absorbed or
// proven interior.
func (s *state) grow(ctx context.Context) error {
	for s.head < len(s.queue) && s.left > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hull: %w", err)
		}
		id := s.queue[s.head]
		s.head++
		t := s.tri(id)
		if !t.alive {
			continue
		}

		furthest, best := noPoint, 0.0
		for i, p := range s.points {
			if !s.remaining[i] {
				continue
			}
			if d := t.distanceTo(p.pos); d > t.eps && (furthest == noPoint || d > best) {
				furthest, best = i, d
			}
		}
		if furthest == noPoint {
			continue
		}
		s.remaining[furthest] = false
		s.left--

		if err := s.absorb(furthest); err != nil {
			return err
		}
	}
	if s.left > 0 {
		return fmt.Errorf("hull: %d points left outside the hull: %w", s.left, ErrInconsistentTopology)
	}
	return nil
}

// absorb replaces every triangle that sees point p with a fan from the rim
// of the removed region to p.
func (s *state) absorb(p int) error {
	pos := s.points[p].pos

	var seers []triID
	for i := range s.tris {
		if t := &s.tris[i]; t.alive && t.isFacingPoint(pos) {
			seers = append(seers, t.id)
		}
	}
	if len(seers) == 0 {
		fatalf(ErrInconsistentTopology, "point %d sees no triangle", p)
	}

	// Points that see a seer may lose their last visible triangle.
	var retest []int
	for i, q := range s.points {
		if !s.remaining[i] {
			continue
		}
		for _, id := range seers {
			if s.tri(id).isFacingPoint(q.pos) {
				retest = append(retest, i)
				break
			}
		}
	}

	var touched []int
	seen := make(map[int]bool)
	for _, id := range seers {
		t := s.tri(id)
		for _, q := range t.points {
			if !seen[q] {
				seen[q] = true
				touched = append(touched, q)
			}
		}
		t.detachPoints(s.points, s.logger)
	}

	// Touched points left without triangles are now strictly interior.
	var rim []int
	for _, q := range touched {
		if len(s.points[q].triangles) > 0 {
			rim = append(rim, q)
		}
	}

	cycle := s.walkRim(rim)
	fan := make([]triID, 0, len(cycle))
	for i := range cycle {
		id, err := s.newTriangle(cycle[i], cycle[(i+1)%len(cycle)], p)
		if err != nil {
			return fmt.Errorf("hull: absorbing point %d: %w", p, err)
		}
		fan = append(fan, id)
	}
	s.orient(fan)
	s.queue = append(s.queue, fan...)

	for _, q := range retest {
		if !s.facesHull(s.points[q].pos) {
			s.remaining[q] = false
			s.left--
		}
	}
	return nil
}

// walkRim orders the rim points into a cycle by following singly linked
// neighbours. Every rim point must have exactly two of them and the walk
// must visit every rim point once.
func (s *state) walkRim(rim []int) []int {
	if len(rim) < 3 {
		fatalf(ErrInconsistentTopology, "rim of %d points", len(rim))
	}
	onRim := make(map[int]bool, len(rim))
	for _, q := range rim {
		onRim[q] = true
	}
	next := func(cur, prev int) int {
		nb := s.points[cur].singlyLinkedNeighbours(cur, s.tris)
		if len(nb) != 2 {
			fatalf(ErrInconsistentTopology, "rim point %d has %d boundary neighbours", cur, len(nb))
		}
		if !onRim[nb[0]] || !onRim[nb[1]] {
			fatalf(ErrInconsistentTopology, "rim point %d links off the rim", cur)
		}
		if nb[0] == prev {
			return nb[1]
		}
		return nb[0]
	}

	start := rim[0]
	cycle := []int{start}
	prev, cur := start, next(start, noPoint)
	for cur != start {
		if len(cycle) >= len(rim) {
			fatalf(ErrInconsistentTopology, "rim walk does not close after %d points", len(cycle))
		}
		cycle = append(cycle, cur)
		prev, cur = cur, next(cur, prev)
	}
	if len(cycle) != len(rim) {
		fatalf(ErrInconsistentTopology, "rim walk visited %d of %d points", len(cycle), len(rim))
	}
	return cycle
}

// orient makes the fan face away from the seed centroid. The fan triangle
// whose plane is furthest from the centroid decides for the whole fan.
func (s *state) orient(fan []triID) {
	var decider *triangle
	best := -1.0
	for _, id := range fan {
		t := s.tri(id)
		if d := math.Abs(t.distanceTo(s.centroid)); d > best {
			decider, best = t, d
		}
	}
	if decider == nil || !decider.isFacingPoint(s.centroid) {
		return
	}
	for _, id := range fan {
		s.tri(id).reverse()
	}
}

// facesHull reports whether any live triangle sees p.
func (s *state) facesHull(p v3.Vec) bool {
	for i := range s.tris {
		if t := &s.tris[i]; t.alive && t.isFacingPoint(p) {
			return true
		}
	}
	return false
}

func (s *state) result(points []point.Point) *Hull {
	h := &Hull{Points: append([]point.Point(nil), points...)}
	used := make([]bool, len(points))
	for i := range s.tris {
		t := &s.tris[i]
		if !t.alive {
			continue
		}
		h.Faces = append(h.Faces, t.points)
		for _, p := range t.points {
			used[p] = true
		}
	}
	for i, u := range used {
		if !u {
			h.Interior = append(h.Interior, i)
		}
	}
	return h
}
