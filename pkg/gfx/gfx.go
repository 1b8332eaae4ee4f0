// Package gfx defines the graphics device the viewer renders through.
//
// A Device owns shader, program, vertex array and texture objects and
// exposes the small slice of a GL-style immediate API the renderer needs:
// uniform upload by location, texture units and indexed draws. Handles are
// opaque, and zero is never a valid handle.
package gfx

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Handles for device objects.
type (
	Shader      uint32
	Program     uint32
	VertexArray uint32
	Texture     uint32
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	VertexStage Stage = iota
	FragmentStage
	GeometryStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	case GeometryStage:
		return "geometry"
	default:
		return "unknown"
	}
}

// Mode selects how DrawElements rasterizes the bound index list. The list
// always holds triangles, three indices each.
type Mode int

const (
	// Triangles fills each triangle.
	Triangles Mode = iota
	// Wireframe draws the three edges of each triangle.
	Wireframe
)

// Attribute describes one float32 vertex attribute inside an interleaved
// vertex. Size and Offset are counted in float32 components.
type Attribute struct {
	Location uint32
	Size     int
	Offset   int
}

// VertexLayout describes an interleaved float32 vertex buffer.
type VertexLayout struct {
	Stride     int // components per vertex
	Attributes []Attribute
}

// Wrap is a texture coordinate wrap mode.
type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClamp
)

// TextureOptions configures texture creation.
type TextureOptions struct {
	Wrap    Wrap
	Mipmaps bool // linear mipmap minification; linear magnification otherwise
}

// ErrCompile and ErrLink classify shader diagnostics returned by a Device.
var (
	ErrCompile = errors.New("shader compile failed")
	ErrLink    = errors.New("program link failed")

	// ErrEmptyVertexArray is returned for vertex arrays without vertices
	// or indices.
	ErrEmptyVertexArray = errors.New("empty vertex array")
)

// Device is a graphics backend. Every method must be called from the
// goroutine that owns the device's context.
type Device interface {
	// CreateShader compiles src for stage. On failure the returned error
	// wraps ErrCompile and carries the driver's info log.
	CreateShader(stage Stage, src string) (Shader, error)
	DeleteShader(s Shader)

	// CreateProgram links the given stages. On failure the returned error
	// wraps ErrLink and carries the driver's info log.
	CreateProgram(shaders ...Shader) (Program, error)
	UseProgram(p Program)
	DeleteProgram(p Program)

	// UniformLocation returns -1 for names the program does not use.
	// Uniform setters ignore location -1.
	UniformLocation(p Program, name string) int32
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, v mgl32.Vec2)
	Uniform3f(loc int32, v mgl32.Vec3)
	Uniform4f(loc int32, v mgl32.Vec4)
	UniformMatrix2(loc int32, m mgl32.Mat2)
	UniformMatrix3(loc int32, m mgl32.Mat3)
	UniformMatrix4(loc int32, m mgl32.Mat4)

	// CreateVertexArray uploads interleaved vertex data and an index list
	// once, for static drawing.
	CreateVertexArray(data []float32, indices []uint32, layout VertexLayout) (VertexArray, error)
	BindVertexArray(va VertexArray)
	DeleteVertexArray(va VertexArray)

	CreateTexture(img *image.RGBA, opts TextureOptions) (Texture, error)
	// ActiveTexture selects the texture unit BindTexture affects.
	ActiveTexture(unit int)
	// BindTexture binds t to the active unit; zero unbinds.
	BindTexture(t Texture)
	DeleteTexture(t Texture)

	Clear(r, g, b, a float32)
	Viewport(x, y, width, height int)
	// DrawElements draws count indices of the bound vertex array.
	DrawElements(mode Mode, count int)
}
