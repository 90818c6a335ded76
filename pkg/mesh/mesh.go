// Package mesh holds render-ready triangle meshes and the packing of many
// small meshes into index-addressable chunks.
package mesh

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Shading selects how hull faces are turned into vertices.
type Shading int

const (
	// Smooth emits each hull point once; faces share vertices and normals
	// are averaged across them.
	Smooth Shading = iota
	// Flat emits three fresh vertices per face carrying the face normal,
	// giving hard edges.
	Flat
)

func (s Shading) String() string {
	switch s {
	case Smooth:
		return "smooth"
	case Flat:
		return "flat"
	default:
		return fmt.Sprintf("Shading(%d)", int(s))
	}
}

// ParseShading converts "smooth" or "flat" to a Shading.
func ParseShading(s string) (Shading, error) {
	switch s {
	case "smooth", "":
		return Smooth, nil
	case "flat":
		return Flat, nil
	}
	return 0, fmt.Errorf("invalid shading %q, expected smooth or flat", s)
}

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices, normals and colors have 3 floats per
// vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Colors   []float32 `json:"colors"`   // [r0,g0,b0, ...] in [0,1]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which sculpture part this came from
	Shard    int       `json:"shard"`    // index of the hull within its part
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i int) ms3.Vec {
	return ms3.Vec{X: m.Vertices[3*i], Y: m.Vertices[3*i+1], Z: m.Vertices[3*i+2]}
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) ms3.Triangle {
	return ms3.Triangle{
		m.Vertex(int(m.Indices[3*i])),
		m.Vertex(int(m.Indices[3*i+1])),
		m.Vertex(int(m.Indices[3*i+2])),
	}
}

// Bounds returns the axis-aligned bounding box of the vertices. An empty
// mesh has a zero box.
func (m *Mesh) Bounds() ms3.Box {
	if m.IsEmpty() {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: m.Vertex(0), Max: m.Vertex(0)}
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		bb.Min = ms3.MinElem(bb.Min, v)
		bb.Max = ms3.MaxElem(bb.Max, v)
	}
	return bb
}

// Validate checks that the flat arrays agree with each other: attribute
// arrays match the vertex count and every index is in range.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("mesh: vertex array length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh: index array length %d is not a multiple of 3", len(m.Indices))
	}
	if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("mesh: %d normal floats for %d vertex floats", len(m.Normals), len(m.Vertices))
	}
	if m.Colors != nil && len(m.Colors) != len(m.Vertices) {
		return fmt.Errorf("mesh: %d color floats for %d vertex floats", len(m.Colors), len(m.Vertices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh: index %d at position %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}
