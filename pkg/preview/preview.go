// Package preview draws a quick isometric picture of sculpture meshes.
// Triangles are flat shaded and painted back to front, which is exact for
// a single convex hull and close enough for a handful of them.
package preview

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/soypat/geometry/ms3"

	"github.com/chazu/nasum/pkg/mesh"
)

// MinSize is the smallest image edge Render accepts.
const MinSize = 16

const (
	padding = 0.05 // fraction of the image left empty on each side
	ambient = 0.25
)

var (
	// Camera basis; toward points from the scene at the viewer.
	right  = ms3.Vec{X: 1 / math.Sqrt2, Y: 0, Z: -1 / math.Sqrt2}
	up     = ms3.Vec{X: -1 / sqrt6, Y: 2 / sqrt6, Z: -1 / sqrt6}
	toward = ms3.Vec{X: 1 / sqrt3, Y: 1 / sqrt3, Z: 1 / sqrt3}

	light = ms3.Vec{X: 0.267, Y: 0.802, Z: 0.535}

	background = [3]float64{0.08, 0.08, 0.1}
	plain      = [3]float64{0.8, 0.8, 0.8}
)

const (
	sqrt3 = 1.7320508075688772
	sqrt6 = 2.449489742783178
)

// face is a projected triangle ready to paint.
type face struct {
	corners [3][2]float64
	depth   float64
	color   [3]float64
}

// Render draws meshes into a size×size PNG written to w.
func Render(w io.Writer, meshes []*mesh.Mesh, size int) error {
	c, err := draw(meshes, size)
	if err != nil {
		return err
	}
	if err := c.EncodePNG(w); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// SavePNG draws meshes into a size×size PNG file at path.
func SavePNG(path string, meshes []*mesh.Mesh, size int) error {
	c, err := draw(meshes, size)
	if err != nil {
		return err
	}
	if err := c.SavePNG(path); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

func draw(meshes []*mesh.Mesh, size int) (*gg.Context, error) {
	if size < MinSize {
		return nil, fmt.Errorf("preview: size %d is smaller than %d", size, MinSize)
	}
	c := gg.NewContext(size, size)
	c.SetRGB(background[0], background[1], background[2])
	c.Clear()

	faces := project(meshes)
	if len(faces) == 0 {
		return c, nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, f := range faces {
		for _, p := range f.corners {
			minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
			minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
		}
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		span = 1
	}
	s := float64(size)
	scale := s * (1 - 2*padding) / span
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	// Image y grows downward.
	at := func(p [2]float64) (float64, float64) {
		return s/2 + (p[0]-cx)*scale, s/2 - (p[1]-cy)*scale
	}

	sort.SliceStable(faces, func(i, j int) bool { return faces[i].depth < faces[j].depth })
	for _, f := range faces {
		c.NewSubPath()
		for _, p := range f.corners {
			c.LineTo(at(p))
		}
		c.ClosePath()
		c.SetRGB(f.color[0], f.color[1], f.color[2])
		c.FillPreserve()
		c.SetLineWidth(0.5)
		c.Stroke()
	}
	return c, nil
}

// project turns every front-facing triangle into a face in view space.
func project(meshes []*mesh.Mesh) []face {
	var faces []face
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			n := mesh.FaceNormal(t[0], t[1], t[2])
			if ms3.Dot(n, toward) <= 0 {
				continue
			}
			shade := ambient + (1-ambient)*math.Max(0, float64(ms3.Dot(n, light)))

			var f face
			for j, v := range t {
				f.corners[j] = [2]float64{float64(ms3.Dot(v, right)), float64(ms3.Dot(v, up))}
				f.depth += float64(ms3.Dot(v, toward)) / 3
			}
			base := faceColor(m, i)
			for k := range base {
				f.color[k] = math.Min(1, base[k]*shade)
			}
			faces = append(faces, f)
		}
	}
	return faces
}

// faceColor averages the vertex colors of triangle i.
func faceColor(m *mesh.Mesh, i int) [3]float64 {
	if len(m.Colors) != len(m.Vertices) {
		return plain
	}
	var col [3]float64
	for j := 0; j < 3; j++ {
		v := int(m.Indices[3*i+j])
		for k := 0; k < 3; k++ {
			col[k] += float64(m.Colors[3*v+k]) / 3
		}
	}
	return col
}
