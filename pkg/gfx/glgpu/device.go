// Package glgpu implements gfx.Device on OpenGL 3.3 core.
//
// A Device does not own the GL context. The caller makes a context current
// on the calling goroutine, locks that goroutine to its OS thread, and then
// calls New.
package glgpu

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/nanoview/pkg/gfx"
)

type vertexArray struct {
	vao, vbo, ebo uint32
}

// Device is an OpenGL gfx.Device.
type Device struct {
	vertexArrays map[gfx.VertexArray]vertexArray
}

var _ gfx.Device = (*Device)(nil)

// New loads the GL function pointers for the current context and enables
// depth testing.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}
	gl.Enable(gl.DEPTH_TEST)
	return &Device{vertexArrays: make(map[gfx.VertexArray]vertexArray)}, nil
}

// Version reports the driver's GL version string.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

var stages = map[gfx.Stage]uint32{
	gfx.VertexStage:   gl.VERTEX_SHADER,
	gfx.FragmentStage: gl.FRAGMENT_SHADER,
	gfx.GeometryStage: gl.GEOMETRY_SHADER,
}

func (d *Device) CreateShader(stage gfx.Stage, src string) (gfx.Shader, error) {
	typ, ok := stages[stage]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported stage %s", gfx.ErrCompile, stage)
	}
	handle := gl.CreateShader(typ)

	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)

		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteShader(handle)

		return 0, fmt.Errorf("%w: %s: %s", gfx.ErrCompile, stage, strings.TrimRight(msg, "\x00\n"))
	}
	return gfx.Shader(handle), nil
}

func (d *Device) DeleteShader(s gfx.Shader) {
	gl.DeleteShader(uint32(s))
}

func (d *Device) CreateProgram(shaders ...gfx.Shader) (gfx.Program, error) {
	handle := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(handle, uint32(s))
	}
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)

		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(handle)

		return 0, fmt.Errorf("%w: %s", gfx.ErrLink, strings.TrimRight(msg, "\x00\n"))
	}

	for _, s := range shaders {
		gl.DetachShader(handle, uint32(s))
	}
	return gfx.Program(handle), nil
}

func (d *Device) UseProgram(p gfx.Program) {
	gl.UseProgram(uint32(p))
}

func (d *Device) DeleteProgram(p gfx.Program) {
	gl.DeleteProgram(uint32(p))
}

func (d *Device) UniformLocation(p gfx.Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(loc int32, v int32) { gl.Uniform1i(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32) { gl.Uniform1f(loc, v) }
func (d *Device) Uniform2f(loc int32, v mgl32.Vec2) { gl.Uniform2f(loc, v[0], v[1]) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3) { gl.Uniform3f(loc, v[0], v[1], v[2]) }
func (d *Device) Uniform4f(loc int32, v mgl32.Vec4) { gl.Uniform4f(loc, v[0], v[1], v[2], v[3]) }

func (d *Device) UniformMatrix2(loc int32, m mgl32.Mat2) {
	gl.UniformMatrix2fv(loc, 1, false, &m[0])
}

func (d *Device) UniformMatrix3(loc int32, m mgl32.Mat3) {
	gl.UniformMatrix3fv(loc, 1, false, &m[0])
}

func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *Device) CreateVertexArray(data []float32, indices []uint32, layout gfx.VertexLayout) (gfx.VertexArray, error) {
	if len(data) == 0 || len(indices) == 0 {
		return 0, gfx.ErrEmptyVertexArray
	}
	var va vertexArray
	gl.GenVertexArrays(1, &va.vao)
	gl.GenBuffers(1, &va.vbo)
	gl.GenBuffers(1, &va.ebo)

	gl.BindVertexArray(va.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	stride := int32(layout.Stride * 4)
	for _, a := range layout.Attributes {
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointerWithOffset(a.Location, int32(a.Size), gl.FLOAT, false, stride, uintptr(a.Offset*4))
	}

	gl.BindVertexArray(0)

	h := gfx.VertexArray(va.vao)
	d.vertexArrays[h] = va
	return h, nil
}

func (d *Device) BindVertexArray(va gfx.VertexArray) {
	gl.BindVertexArray(uint32(va))
}

func (d *Device) DeleteVertexArray(h gfx.VertexArray) {
	va, ok := d.vertexArrays[h]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &va.vao)
	gl.DeleteBuffers(1, &va.vbo)
	gl.DeleteBuffers(1, &va.ebo)
	delete(d.vertexArrays, h)
}

func (d *Device) CreateTexture(img *image.RGBA, opts gfx.TextureOptions) (gfx.Texture, error) {
	if img == nil {
		return 0, errors.New("nil image")
	}
	size := img.Rect.Size()
	if img.Stride != size.X*4 {
		return 0, fmt.Errorf("unsupported stride %d for width %d", img.Stride, size.X)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	wrap := int32(gl.REPEAT)
	if opts.Wrap == gfx.WrapClamp {
		wrap = gl.CLAMP_TO_EDGE
	}
	minFilter := int32(gl.LINEAR)
	if opts.Mipmaps {
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(size.X), int32(size.Y), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	if opts.Mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gfx.Texture(tex), nil
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture(t gfx.Texture) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

func (d *Device) DeleteTexture(t gfx.Texture) {
	tex := uint32(t)
	gl.DeleteTextures(1, &tex)
}

func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// polygonModes maps a draw mode to the polygon mode the triangle list is
// rasterized with.
var polygonModes = map[gfx.Mode]uint32{
	gfx.Triangles: gl.FILL,
	gfx.Wireframe: gl.LINE,
}

func (d *Device) DrawElements(mode gfx.Mode, count int) {
	polygon, ok := polygonModes[mode]
	if !ok {
		polygon = gl.FILL
	}
	if polygon != gl.FILL {
		gl.PolygonMode(gl.FRONT_AND_BACK, polygon)
		defer gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, 0)
}
