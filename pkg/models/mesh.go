// Package models loads renderable models and draws them through a
// graphics device.
package models

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
)

// ErrIndexOutOfRange is returned by NewMesh for an index that does not
// address a vertex.
var ErrIndexOutOfRange = errors.New("index out of range")

// Program is the uniform interface meshes draw with. *shader.Program
// implements it.
type Program interface {
	SetBool(name string, v bool)
	SetInt(name string, v int)
	SetFloat(name string, v float64)
	SetVec3(name string, v math3d.Vec3)
}

// Mesh is an uploaded triangle list with its material.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Textures []*Texture

	Ambient   math3d.Vec3
	Diffuse   math3d.Vec3
	Specular  math3d.Vec3
	Shininess float64

	// Bounding box (calculated on creation)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3

	dev      gfx.Device
	va       gfx.VertexArray
	released bool
}

// NewMesh validates the indices and uploads the mesh once. colors holds
// the ambient, diffuse and specular material colors.
func NewMesh(dev gfx.Device, vertices []Vertex, indices []uint32, textures []*Texture, colors [3]math3d.Vec3, shininess float64) (*Mesh, error) {
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w: index %d at %d, %d vertices", ErrIndexOutOfRange, idx, i, len(vertices))
		}
	}

	va, err := dev.CreateVertexArray(flatten(vertices), indices, VertexLayout)
	if err != nil {
		return nil, fmt.Errorf("upload mesh: %w", err)
	}

	m := &Mesh{
		Vertices:  vertices,
		Indices:   indices,
		Textures:  textures,
		Ambient:   colors[0],
		Diffuse:   colors[1],
		Specular:  colors[2],
		Shininess: shininess,
		dev:       dev,
		va:        va,
	}
	m.CalculateBounds()
	return m, nil
}

// Textured reports whether the mesh has at least one texture.
func (m *Mesh) Textured() bool { return len(m.Textures) > 0 }

// VertexArray returns the device handle, zero after Release.
func (m *Mesh) VertexArray() gfx.VertexArray { return m.va }

// Draw sets the material uniforms on p, binds texture i to unit i and
// issues one indexed draw. p must be in use.
func (m *Mesh) Draw(p Program) {
	m.draw(p, gfx.Triangles)
}

func (m *Mesh) draw(p Program, mode gfx.Mode) {
	if m.released {
		return
	}
	p.SetVec3("material.ambient", m.Ambient)
	p.SetVec3("material.diffuse", m.Diffuse)
	p.SetVec3("material.specular", m.Specular)
	p.SetFloat("material.shininess", m.Shininess)

	if m.Textured() {
		counters := make(map[Semantic]int, 4)
		for i, t := range m.Textures {
			m.dev.ActiveTexture(i)
			counters[t.Type]++
			p.SetInt(string(t.Type)+strconv.Itoa(counters[t.Type]), i)
			m.dev.BindTexture(t.ID)
		}
	}
	p.SetBool("material.textured", m.Textured())

	m.dev.BindVertexArray(m.va)
	m.dev.DrawElements(mode, len(m.Indices))
	m.dev.BindVertexArray(0)

	for i := range m.Textures {
		m.dev.ActiveTexture(i)
		m.dev.BindTexture(0)
	}
}

// Release deletes the device buffers. Textures belong to the model's
// cache and are not deleted. Calling Release again does nothing.
func (m *Mesh) Release() {
	if m.released {
		return
	}
	m.released = true
	m.dev.DeleteVertexArray(m.va)
	m.va = 0
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}
