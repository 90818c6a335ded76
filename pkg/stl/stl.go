// Package stl exports sculpture meshes as binary STL files.
package stl

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/nasum/pkg/mesh"
)

// ErrNoTriangles is returned when there is nothing to write.
var ErrNoTriangles = errors.New("stl: no triangles")

// Triangles flattens meshes into sdfx triangles, in mesh order.
func Triangles(meshes ...*mesh.Mesh) []*sdf.Triangle3 {
	n := 0
	for _, m := range meshes {
		if m != nil {
			n += m.TriangleCount()
		}
	}
	out := make([]*sdf.Triangle3, 0, n)
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.TriangleCount(); i++ {
			var t sdf.Triangle3
			for j := 0; j < 3; j++ {
				t[j] = vertex(m, int(m.Indices[3*i+j]))
			}
			out = append(out, &t)
		}
	}
	return out
}

func vertex(m *mesh.Mesh, i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Bounds returns the box enclosing every vertex of meshes. The second
// result is false when the meshes have no vertices.
func Bounds(meshes ...*mesh.Mesh) (sdf.Box3, bool) {
	var box sdf.Box3
	found := false
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.VertexCount(); i++ {
			v := vertex(m, i)
			if !found {
				box = sdf.Box3{Min: v, Max: v}
				found = true
				continue
			}
			box.Min = box.Min.Min(v)
			box.Max = box.Max.Max(v)
		}
	}
	return box, found
}

// Save writes meshes to path as a single binary STL solid.
func Save(path string, meshes ...*mesh.Mesh) error {
	tris := Triangles(meshes...)
	if len(tris) == 0 {
		return fmt.Errorf("%w to write to %s", ErrNoTriangles, path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	return nil
}
