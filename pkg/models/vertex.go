package models

import (
	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
)

// Vertex holds all per-vertex attributes of a mesh.
type Vertex struct {
	Position  math3d.Vec3
	Normal    math3d.Vec3
	TexCoords math3d.Vec2
	Tangent   math3d.Vec3
	Bitangent math3d.Vec3
}

// vertexStride is the number of float32 components per uploaded vertex.
const vertexStride = 14

// VertexLayout is the interleaved layout meshes are uploaded with:
// position, normal, texture coordinates, tangent and bitangent at
// locations 0 to 4.
var VertexLayout = gfx.VertexLayout{
	Stride: vertexStride,
	Attributes: []gfx.Attribute{
		{Location: 0, Size: 3, Offset: 0},
		{Location: 1, Size: 3, Offset: 3},
		{Location: 2, Size: 2, Offset: 6},
		{Location: 3, Size: 3, Offset: 8},
		{Location: 4, Size: 3, Offset: 11},
	},
}

// flatten interleaves vertices into float32 components per VertexLayout.
func flatten(vertices []Vertex) []float32 {
	data := make([]float32, 0, len(vertices)*vertexStride)
	for _, v := range vertices {
		data = append(data,
			float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z),
			float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z),
			float32(v.TexCoords.X), float32(v.TexCoords.Y),
			float32(v.Tangent.X), float32(v.Tangent.Y), float32(v.Tangent.Z),
			float32(v.Bitangent.X), float32(v.Bitangent.Y), float32(v.Bitangent.Z),
		)
	}
	return data
}
