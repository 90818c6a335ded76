package mesh

import (
	"errors"
	"fmt"
)

// MaxChunkVertices is the largest vertex count a single chunk may hold so
// that every index fits a 16-bit index buffer with one value to spare.
const MaxChunkVertices = 65534

// ErrChunkOverflow is returned when a single mesh is larger than the chunk
// limit and therefore cannot be packed without splitting it first.
var ErrChunkOverflow = errors.New("mesh exceeds chunk vertex limit")

// Packer concatenates meshes into chunks of at most Limit vertices. Indices
// of each packed mesh are offset to address the chunk's vertex arrays.
//
// The zero value is not usable; call NewPacker.
type Packer struct {
	limit   int
	current *Mesh
	chunks  []*Mesh
}

// NewPacker returns a packer with the given vertex limit. A limit <= 0 or
// above MaxChunkVertices means MaxChunkVertices.
func NewPacker(limit int) *Packer {
	if limit <= 0 || limit > MaxChunkVertices {
		limit = MaxChunkVertices
	}
	return &Packer{limit: limit}
}

// Limit returns the vertex limit per chunk.
func (p *Packer) Limit() int {
	return p.limit
}

// Pack appends m to the current chunk, starting a new chunk first when m
// would not fit. Meshes larger than the limit are rejected with
// ErrChunkOverflow; split them with Split.
func (p *Packer) Pack(m *Mesh) error {
	if m == nil || m.IsEmpty() {
		return nil
	}
	if m.VertexCount() > p.limit {
		return fmt.Errorf("pack %q: %d vertices, limit %d: %w", m.PartName, m.VertexCount(), p.limit, ErrChunkOverflow)
	}
	if p.current != nil && p.current.VertexCount()+m.VertexCount() > p.limit {
		p.flush()
	}
	if p.current == nil {
		p.current = &Mesh{PartName: m.PartName, Shard: m.Shard}
	}
	appendMesh(p.current, m)
	return nil
}

// PackAll packs every mesh, splitting any that exceed the limit.
func (p *Packer) PackAll(meshes ...*Mesh) error {
	for _, m := range meshes {
		parts := []*Mesh{m}
		if m != nil && m.VertexCount() > p.limit {
			var err error
			parts, err = Split(m, p.limit)
			if err != nil {
				return err
			}
		}
		for _, part := range parts {
			if err := p.Pack(part); err != nil {
				return err
			}
		}
	}
	return nil
}

// Build flushes any pending geometry and returns all chunks packed so far.
// The packer is reset.
func (p *Packer) Build() []*Mesh {
	p.flush()
	chunks := p.chunks
	p.chunks = nil
	return chunks
}

func (p *Packer) flush() {
	if p.current != nil && !p.current.IsEmpty() {
		p.chunks = append(p.chunks, p.current)
	}
	p.current = nil
}

// appendMesh copies src onto the end of dst. Attribute arrays missing from
// either side are dropped from the result so the arrays stay aligned.
func appendMesh(dst, src *Mesh) {
	base := uint32(dst.VertexCount())
	hadGeometry := !dst.IsEmpty()

	dst.Normals = appendAttr(dst.Normals, src.Normals, hadGeometry)
	dst.Colors = appendAttr(dst.Colors, src.Colors, hadGeometry)
	dst.Vertices = append(dst.Vertices, src.Vertices...)
	for _, idx := range src.Indices {
		dst.Indices = append(dst.Indices, base+idx)
	}
	if dst.PartName != src.PartName || dst.Shard != src.Shard {
		dst.PartName, dst.Shard = "", 0
	}
}

func appendAttr(dst, src []float32, hadGeometry bool) []float32 {
	if src == nil || (hadGeometry && dst == nil) {
		return nil
	}
	return append(dst, src...)
}

// Split breaks m into meshes of at most limit vertices each. Triangles are
// kept whole and assigned to chunks in order; each chunk gets its own
// compacted copy of the vertices it references.
func Split(m *Mesh, limit int) ([]*Mesh, error) {
	if limit < 3 {
		return nil, fmt.Errorf("split: limit %d cannot hold a triangle", limit)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if m.VertexCount() <= limit {
		return []*Mesh{m}, nil
	}

	var chunks []*Mesh
	var cur *Mesh
	remap := make(map[uint32]uint32)

	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Indices[3*t : 3*t+3]
		fresh := 0
		for _, idx := range tri {
			if _, ok := remap[idx]; !ok {
				fresh++
			}
		}
		if cur == nil || cur.VertexCount()+fresh > limit {
			cur = &Mesh{PartName: m.PartName, Shard: m.Shard}
			chunks = append(chunks, cur)
			clear(remap)
		}
		for _, idx := range tri {
			local, ok := remap[idx]
			if !ok {
				local = uint32(cur.VertexCount())
				remap[idx] = local
				cur.Vertices = append(cur.Vertices, m.Vertices[3*idx:3*idx+3]...)
				if m.Normals != nil {
					cur.Normals = append(cur.Normals, m.Normals[3*idx:3*idx+3]...)
				}
				if m.Colors != nil {
					cur.Colors = append(cur.Colors, m.Colors[3*idx:3*idx+3]...)
				}
			}
			cur.Indices = append(cur.Indices, local)
		}
	}
	return chunks, nil
}
