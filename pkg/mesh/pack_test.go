package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quad returns a two-triangle mesh with normals and colors whose vertices
// are offset by dx along X.
func quad(name string, dx float32) *Mesh {
	return &Mesh{
		Vertices: []float32{dx, 0, 0, dx + 1, 0, 0, dx + 1, 1, 0, dx, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Colors:   []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
		PartName: name,
	}
}

// strip returns a mesh of n disjoint triangles.
func strip(n int) *Mesh {
	m := &Mesh{PartName: "strip"}
	for i := 0; i < n; i++ {
		x := float32(i)
		m.Vertices = append(m.Vertices, x, 0, 0, x+1, 0, 0, x, 1, 0)
		base := uint32(3 * i)
		m.Indices = append(m.Indices, base, base+1, base+2)
	}
	return m
}

func TestPackerConcatenatesWithOffsets(t *testing.T) {
	p := NewPacker(0)
	require.NoError(t, p.Pack(quad("a", 0)))
	require.NoError(t, p.Pack(quad("b", 10)))

	chunks := p.Build()
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, 8, c.VertexCount())
	assert.Equal(t, 4, c.TriangleCount())
	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}, c.Indices)
	assert.Len(t, c.Normals, len(c.Vertices))
	assert.Len(t, c.Colors, len(c.Vertices))
	assert.Equal(t, "", c.PartName, "mixed parts lose the part name")
	assert.NoError(t, c.Validate())
}

func TestPackerKeepsShardOfOnePart(t *testing.T) {
	p := NewPacker(0)
	a, b := quad("body", 0), quad("body", 10)
	a.Shard, b.Shard = 1, 1
	require.NoError(t, p.Pack(a))
	require.NoError(t, p.Pack(b))
	c := p.Build()[0]
	assert.Equal(t, "body", c.PartName)
	assert.Equal(t, 1, c.Shard)

	b.Shard = 2
	require.NoError(t, p.Pack(a))
	require.NoError(t, p.Pack(b))
	c = p.Build()[0]
	assert.Equal(t, "", c.PartName, "different shards lose the label")
	assert.Equal(t, 0, c.Shard)
}

func TestPackerStartsNewChunkAtLimit(t *testing.T) {
	p := NewPacker(6)
	require.NoError(t, p.Pack(quad("a", 0)))
	require.NoError(t, p.Pack(quad("b", 10)))
	require.NoError(t, p.Pack(quad("c", 20)))

	chunks := p.Build()
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.VertexCount(), 6)
		assert.NoError(t, c.Validate())
	}
	assert.Empty(t, p.Build(), "Build resets the packer")
}

func TestPackerRejectsOversizeMesh(t *testing.T) {
	p := NewPacker(3)
	err := p.Pack(quad("big", 0))
	assert.ErrorIs(t, err, ErrChunkOverflow)
}

func TestPackerDropsMissingAttributes(t *testing.T) {
	p := NewPacker(0)
	bare := quad("bare", 5)
	bare.Colors = nil
	require.NoError(t, p.Pack(quad("a", 0)))
	require.NoError(t, p.Pack(bare))

	chunks := p.Build()
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Colors)
	assert.Len(t, chunks[0].Normals, len(chunks[0].Vertices))
}

func TestPackerSkipsEmpty(t *testing.T) {
	p := NewPacker(0)
	require.NoError(t, p.Pack(nil))
	require.NoError(t, p.Pack(&Mesh{}))
	assert.Empty(t, p.Build())
}

func TestSplit(t *testing.T) {
	m := strip(10) // 30 vertices
	m.Shard = 2
	chunks, err := Split(m, 9)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, c.VertexCount(), 9)
		assert.NoError(t, c.Validate())
		assert.Equal(t, "strip", c.PartName)
		assert.Equal(t, 2, c.Shard)
		total += c.TriangleCount()
	}
	assert.Equal(t, 10, total)
}

func TestSplitSharedVertices(t *testing.T) {
	// A fan of triangles around vertex 0 shares vertices, so chunks reuse
	// already-remapped vertices instead of copying them again.
	m := &Mesh{Vertices: []float32{0, 0, 0}}
	for i := 0; i < 6; i++ {
		m.Vertices = append(m.Vertices, float32(i), 1, 0)
	}
	for i := uint32(1); i < 6; i++ {
		m.Indices = append(m.Indices, 0, i, i+1)
	}

	chunks, err := Split(m, 4)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.VertexCount(), 4)
		assert.NoError(t, c.Validate())
	}
	assert.Len(t, chunks, 3)
}

func TestSplitSmallMeshUnchanged(t *testing.T) {
	m := quad("q", 0)
	chunks, err := Split(m, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Same(t, m, chunks[0])
}

func TestSplitRejectsTinyLimit(t *testing.T) {
	_, err := Split(quad("q", 0), 2)
	assert.Error(t, err)
}

func TestPackAllSplitsOversize(t *testing.T) {
	p := NewPacker(9)
	require.NoError(t, p.PackAll(strip(10), quad("q", 50)))
	chunks := p.Build()
	tris := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, c.VertexCount(), 9)
		tris += c.TriangleCount()
	}
	assert.Equal(t, 12, tris)
}
