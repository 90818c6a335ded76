package mesh

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// SmoothNormals generates per-vertex normals by summing the unnormalized
// face normals of every triangle incident on each vertex, so larger faces
// weigh more. Vertices not referenced by any triangle get a zero normal.
func SmoothNormals(vertices []float32, indices []uint32) []float32 {
	numVerts := len(vertices) / 3
	acc := make([]ms3.Vec, numVerts)
	at := func(i uint32) ms3.Vec {
		return ms3.Vec{X: vertices[i*3], Y: vertices[i*3+1], Z: vertices[i*3+2]}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		a, b, c := at(i0), at(i1), at(i2)
		n := ms3.Cross(ms3.Sub(b, a), ms3.Sub(c, a))
		for _, idx := range [3]uint32{i0, i1, i2} {
			acc[idx] = ms3.Add(acc[idx], n)
		}
	}

	normals := make([]float32, numVerts*3)
	for i, n := range acc {
		length := math32.Sqrt(ms3.Dot(n, n))
		if length > 1e-12 {
			n = ms3.Scale(1/length, n)
		}
		normals[i*3+0] = n.X
		normals[i*3+1] = n.Y
		normals[i*3+2] = n.Z
	}
	return normals
}

// FaceNormal returns the unit normal of triangle (a, b, c) wound
// counterclockwise, or the zero vector for a degenerate triangle.
func FaceNormal(a, b, c ms3.Vec) ms3.Vec {
	n := ms3.Cross(ms3.Sub(b, a), ms3.Sub(c, a))
	length := ms3.Norm(n)
	if length <= 1e-12 {
		return ms3.Vec{}
	}
	return ms3.Scale(1/length, n)
}
