package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/nanoview/pkg/math3d"
)

func TestTriangulate(t *testing.T) {
	m := &Mesh{Faces: [][]int{{0, 1}, {0, 1, 2}, {0, 1, 2, 3, 4}}}
	triangulate(m)
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 1, 2}, {0, 2, 3}, {0, 3, 4}}, m.Faces)
}

func TestFlipUVs(t *testing.T) {
	m := &Mesh{TexCoords: []math3d.Vec2{math3d.V2(0.25, 0), math3d.V2(1, 0.75)}}
	flipUVs(m)
	assert.Equal(t, []math3d.Vec2{math3d.V2(0.25, 1), math3d.V2(1, 0.25)}, m.TexCoords)
}

func tangentQuad() *Mesh {
	n := math3d.V3(0, 0, 1)
	return &Mesh{
		Positions: []math3d.Vec3{
			math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(1, 1, 0), math3d.V3(0, 1, 0),
		},
		Normals: []math3d.Vec3{n, n, n, n},
		TexCoords: []math3d.Vec2{
			math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 1), math3d.V2(0, 1),
		},
		Faces: [][]int{{0, 1, 2}, {0, 2, 3}},
	}
}

func TestCalcTangentSpace(t *testing.T) {
	m := tangentQuad()
	assert.True(t, calcTangentSpace(m))

	for i := range m.Positions {
		assert.True(t, m.Tangents[i].ApproxEqual(math3d.V3(1, 0, 0), 1e-9), "tangent %d = %v", i, m.Tangents[i])
		assert.True(t, m.Bitangents[i].ApproxEqual(math3d.V3(0, 1, 0), 1e-9), "bitangent %d = %v", i, m.Bitangents[i])
	}
}

func TestCalcTangentSpaceOrthogonal(t *testing.T) {
	m := tangentQuad()
	// tilt the normals so the raw tangent is not perpendicular
	tilted := math3d.V3(0.3, 0, 1).Normalize()
	for i := range m.Normals {
		m.Normals[i] = tilted
	}
	assert.True(t, calcTangentSpace(m))

	for i, tan := range m.Tangents {
		assert.InDelta(t, 0, tan.Dot(m.Normals[i]), 1e-9)
		assert.InDelta(t, 1, tan.Len(), 1e-9)
		assert.InDelta(t, 1, m.Bitangents[i].Len(), 1e-9)
	}
}

func TestCalcTangentSpaceDegenerateUVs(t *testing.T) {
	m := tangentQuad()
	for i := range m.TexCoords {
		m.TexCoords[i] = math3d.V2(0.5, 0.5)
	}
	assert.True(t, calcTangentSpace(m))
	for _, tan := range m.Tangents {
		assert.False(t, math.IsNaN(tan.X))
		assert.Equal(t, math3d.Vec3{}, tan)
	}
}

func TestCalcTangentSpaceTangentAlongNormal(t *testing.T) {
	m := tangentQuad()
	// the uv tangent is +x, so nothing survives projection off this normal
	for i := range m.Normals {
		m.Normals[i] = math3d.V3(1, 0, 0)
	}
	assert.True(t, calcTangentSpace(m))
	for i := range m.Positions {
		assert.Equal(t, math3d.Vec3{}, m.Tangents[i], "tangent %d", i)
		assert.Equal(t, math3d.Vec3{}, m.Bitangents[i], "bitangent %d", i)
	}
}

func TestCalcTangentSpaceNeedsUVs(t *testing.T) {
	m := tangentQuad()
	m.TexCoords = nil
	assert.False(t, calcTangentSpace(m))
	assert.Nil(t, m.Tangents)
}
