// Package model turns OBJ geometry into an indexed vertex list.
package model

import "github.com/go-gl/mathgl/mgl32"

type Vertex struct {
	Pos      mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh is the indexed geometry uploaded to the vertex and index buffers.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Builder deduplicates vertices by full equality. Vertex is comparable, so it is
// used directly as the map key.
type Builder struct {
	mesh   Mesh
	unique map[Vertex]uint32
}

func NewBuilder() *Builder {
	return &Builder{
		unique: make(map[Vertex]uint32),
	}
}

// Add records one vertex reference and returns its index. The first time a vertex is
// seen it gets the next free index.
func (b *Builder) Add(vertex Vertex) uint32 {
	index, exists := b.unique[vertex]
	if !exists {
		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, vertex)
		b.unique[vertex] = index
	}

	b.mesh.Indices = append(b.mesh.Indices, index)
	return index
}

func (b *Builder) Mesh() *Mesh {
	return &b.mesh
}
