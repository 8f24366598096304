package assets

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// VertexStride is the interleaved size of one vertex: position, color, texture coordinate.
	VertexStride = 32

	PositionOffset = 0
	ColorOffset    = 12
	TexCoordOffset = 24
)

// Mesh holds parallel vertex attribute arrays and a 32-bit index list. Vertices are unique.
type Mesh struct {
	Positions []mgl32.Vec3
	Colors    []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Indices   []uint32
}

func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// VertexBytes interleaves the attributes as little-endian float32s.
func (m *Mesh) VertexBytes() []byte {
	out := make([]byte, 0, m.VertexCount()*VertexStride)
	for i := range m.Positions {
		out = appendFloats(out, m.Positions[i][:]...)
		out = appendFloats(out, m.Colors[i][:]...)
		out = appendFloats(out, m.TexCoords[i][:]...)
	}
	return out
}

func (m *Mesh) IndexBytes() []byte {
	out := make([]byte, 0, len(m.Indices)*4)
	for _, idx := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, idx)
	}
	return out
}

func appendFloats(b []byte, values ...float32) []byte {
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

type vertexKey struct {
	position mgl32.Vec3
	color    mgl32.Vec3
	texCoord mgl32.Vec2
}

// MeshBuilder appends vertices and reuses the index of any vertex it has seen before.
type MeshBuilder struct {
	mesh   *Mesh
	unique map[vertexKey]uint32
}

func NewMeshBuilder() *MeshBuilder {
	return &MeshBuilder{
		mesh:   &Mesh{},
		unique: make(map[vertexKey]uint32),
	}
}

func (b *MeshBuilder) Add(position, color mgl32.Vec3, texCoord mgl32.Vec2) uint32 {
	key := vertexKey{position, color, texCoord}
	idx, ok := b.unique[key]
	if !ok {
		idx = uint32(len(b.mesh.Positions))
		b.unique[key] = idx
		b.mesh.Positions = append(b.mesh.Positions, position)
		b.mesh.Colors = append(b.mesh.Colors, color)
		b.mesh.TexCoords = append(b.mesh.TexCoords, texCoord)
	}
	b.mesh.Indices = append(b.mesh.Indices, idx)
	return idx
}

func (b *MeshBuilder) Mesh() *Mesh {
	return b.mesh
}

// QuadMesh is a unit quad facing +X, used when no model file is configured.
func QuadMesh() *Mesh {
	b := NewMeshBuilder()
	corners := []struct {
		pos   mgl32.Vec3
		color mgl32.Vec3
		tex   mgl32.Vec2
	}{
		{mgl32.Vec3{0, -0.5, -0.5}, mgl32.Vec3{1, 0, 0}, mgl32.Vec2{1, 0}},
		{mgl32.Vec3{0, 0.5, -0.5}, mgl32.Vec3{0, 1, 0}, mgl32.Vec2{0, 0}},
		{mgl32.Vec3{0, 0.5, 0.5}, mgl32.Vec3{0, 0, 1}, mgl32.Vec2{0, 1}},
		{mgl32.Vec3{0, -0.5, 0.5}, mgl32.Vec3{1, 1, 1}, mgl32.Vec2{1, 1}},
	}
	for _, i := range []int{0, 1, 2, 2, 3, 0} {
		c := corners[i]
		b.Add(c.pos, c.color, c.tex)
	}
	return b.Mesh()
}
