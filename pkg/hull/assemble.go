package hull

import (
	"github.com/chazu/nasum/pkg/mesh"
)

// Mesh converts the hull into flat vertex arrays. Colors are grey levels
// taken from the point weights.
func (h *Hull) Mesh(shading mesh.Shading) *mesh.Mesh {
	if shading == mesh.Flat {
		return h.flatMesh()
	}
	return h.smoothMesh()
}

// smoothMesh emits every hull vertex once, in ascending input order, and
// shares it between the faces around it.
func (h *Hull) smoothMesh() *mesh.Mesh {
	verts := h.Vertices()
	remap := make(map[int]uint32, len(verts))
	m := &mesh.Mesh{
		Vertices: make([]float32, 0, 3*len(verts)),
		Colors:   make([]float32, 0, 3*len(verts)),
		Indices:  make([]uint32, 0, 3*len(h.Faces)),
	}
	for i, p := range verts {
		remap[p] = uint32(i)
		pt := h.Points[p]
		m.Vertices = append(m.Vertices, float32(pt.Position.X), float32(pt.Position.Y), float32(pt.Position.Z))
		w := float32(pt.Weight)
		m.Colors = append(m.Colors, w, w, w)
	}
	for _, f := range h.Faces {
		m.Indices = append(m.Indices, remap[f[0]], remap[f[1]], remap[f[2]])
	}
	m.Normals = mesh.SmoothNormals(m.Vertices, m.Indices)
	return m
}

// flatMesh emits three vertices per face, each carrying the face normal.
func (h *Hull) flatMesh() *mesh.Mesh {
	n := 3 * len(h.Faces)
	m := &mesh.Mesh{
		Vertices: make([]float32, 0, 3*n),
		Normals:  make([]float32, 0, 3*n),
		Colors:   make([]float32, 0, 3*n),
		Indices:  make([]uint32, 0, n),
	}
	for i, f := range h.Faces {
		normal := h.FaceNormal(i)
		for _, p := range f {
			pt := h.Points[p]
			m.Indices = append(m.Indices, uint32(m.VertexCount()))
			m.Vertices = append(m.Vertices, float32(pt.Position.X), float32(pt.Position.Y), float32(pt.Position.Z))
			m.Normals = append(m.Normals, float32(normal.X), float32(normal.Y), float32(normal.Z))
			w := float32(pt.Weight)
			m.Colors = append(m.Colors, w, w, w)
		}
	}
	return m
}
