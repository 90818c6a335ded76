// Package recipe defines the sculpture recipe produced by script
// evaluation: an ordered list of named parts, each a point cloud to be
// hulled.
package recipe

import (
	"fmt"

	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
)

// Part is a named piece of a sculpture. Each shard is hulled on its own,
// so a part made of a distorted cloud and its reflection becomes one hull
// per distortion group and side.
type Part struct {
	Name    string          `json:"name"`
	Shards  [][]point.Point `json:"shards"`
	Shading mesh.Shading    `json:"shading"`
}

// NewPart creates a part with a single shard.
func NewPart(name string, pts []point.Point, shading mesh.Shading) *Part {
	return &Part{Name: name, Shards: [][]point.Point{pts}, Shading: shading}
}

// PointCount returns the number of points over all shards.
func (p *Part) PointCount() int {
	n := 0
	for _, sh := range p.Shards {
		n += len(sh)
	}
	return n
}

// Points returns every point of the part, shard after shard.
func (p *Part) Points() []point.Point {
	out := make([]point.Point, 0, p.PointCount())
	for _, sh := range p.Shards {
		out = append(out, sh...)
	}
	return out
}

// Recipe is the immutable result of evaluating a sculpture script. It is
// never mutated in place once evaluation finishes; each evaluation
// produces a new recipe.
type Recipe struct {
	Name      string         `json:"name"`
	Parts     []*Part        `json:"parts"`
	NameIndex map[string]int `json:"name_index"` // part name -> index in Parts
	Seed      int64          `json:"seed"`
	Version   uint64         `json:"version"`
}

// New creates an empty recipe.
func New() *Recipe {
	return &Recipe{
		NameIndex: make(map[string]int),
	}
}

// AddPart appends a part. It does not check for duplicate names; the
// first part with a name stays reachable through Lookup.
func (r *Recipe) AddPart(p *Part) {
	if _, dup := r.NameIndex[p.Name]; !dup && p.Name != "" {
		r.NameIndex[p.Name] = len(r.Parts)
	}
	r.Parts = append(r.Parts, p)
}

// Lookup returns the part with the given name, or nil.
func (r *Recipe) Lookup(name string) *Part {
	i, ok := r.NameIndex[name]
	if !ok {
		return nil
	}
	return r.Parts[i]
}

// MustLookup returns the part with the given name, or panics.
func (r *Recipe) MustLookup(name string) *Part {
	p := r.Lookup(name)
	if p == nil {
		panic(fmt.Sprintf("recipe: no part named %q", name))
	}
	return p
}

// PointCount returns the total number of points over all parts.
func (r *Recipe) PointCount() int {
	n := 0
	for _, p := range r.Parts {
		n += p.PointCount()
	}
	return n
}

// ShardCount returns the number of hulls the recipe grows into.
func (r *Recipe) ShardCount() int {
	n := 0
	for _, p := range r.Parts {
		n += len(p.Shards)
	}
	return n
}

// PartCount returns the number of parts.
func (r *Recipe) PartCount() int {
	return len(r.Parts)
}
