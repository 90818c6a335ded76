package hull

import (
	"log"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// noPoint is the null point handle.
const noPoint = -1

// hullPoint decorates an input point with the live triangles that use it.
// Its index in the arena equals the input index of the point.
type hullPoint struct {
	pos       v3.Vec
	triangles []triID // registration order
}

// addToTriangle registers t as a triangle using this point.
func (p *hullPoint) addToTriangle(t triID) error {
	if t == noTriangle {
		return ErrInvalidState
	}
	p.triangles = append(p.triangles, t)
	return nil
}

// removeFromTriangle unregisters t. Removing a triangle that was never
// registered is tolerated and only logged.
func (p *hullPoint) removeFromTriangle(t triID, logger *log.Logger) {
	for i, id := range p.triangles {
		if id == t {
			p.triangles = append(p.triangles[:i], p.triangles[i+1:]...)
			return
		}
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("hull: triangle %d not registered with point %v", t, p.pos)
}

// singlyLinkedNeighbours returns the other points that share exactly one
// live triangle with p, in order of first appearance. On an open fan these
// are the two rim neighbours of p; points sharing two triangles sit across
// a closed edge.
func (p *hullPoint) singlyLinkedNeighbours(self int, tris []triangle) []int {
	var order []int
	counts := make(map[int]int)
	for _, id := range p.triangles {
		for _, q := range tris[id].points {
			if q == self || q == noPoint {
				continue
			}
			if counts[q] == 0 {
				order = append(order, q)
			}
			counts[q]++
		}
	}
	var neighbours []int
	for _, q := range order {
		if counts[q] == 1 {
			neighbours = append(neighbours, q)
		}
	}
	return neighbours
}
