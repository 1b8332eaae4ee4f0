// Package softgpu implements gfx.Device on the CPU with the rasterizer in
// pkg/render.
//
// Shader sources are not executed. Instead the device interprets the
// uniforms the viewer's programs declare: model, view and projection place
// geometry; light.* and material.* drive per-vertex lighting; lamp.color
// draws unlit geometry; texture_diffuse1 names the unit sampled for color.
package softgpu

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/render"
)

type shader struct {
	stage gfx.Stage
	src   string
}

type program struct {
	locs   map[string]int32
	names  []string
	values map[string]any
}

// Stats counts the work done since the last Clear.
type Stats struct {
	DrawCalls int
	Triangles int
	Culled    int
}

// Device is a software gfx.Device rendering into a render.Framebuffer.
type Device struct {
	fb   *render.Framebuffer
	rast *render.Rasterizer

	next         uint32
	shaders      map[gfx.Shader]shader
	programs     map[gfx.Program]*program
	vertexArrays map[gfx.VertexArray]*vertexArray
	textures     map[gfx.Texture]*render.Texture

	current    gfx.Program
	boundVA    gfx.VertexArray
	activeUnit int
	units      map[int]gfx.Texture

	stats Stats
}

var _ gfx.Device = (*Device)(nil)

// New returns a device with a width x height framebuffer.
func New(width, height int) *Device {
	fb := render.NewFramebuffer(width, height)
	return &Device{
		fb:           fb,
		rast:         render.NewRasterizer(fb),
		shaders:      make(map[gfx.Shader]shader),
		programs:     make(map[gfx.Program]*program),
		vertexArrays: make(map[gfx.VertexArray]*vertexArray),
		textures:     make(map[gfx.Texture]*render.Texture),
		units:        make(map[int]gfx.Texture),
	}
}

// Framebuffer returns the current render target.
func (d *Device) Framebuffer() *render.Framebuffer {
	return d.fb
}

// Stats returns the counters accumulated since the last Clear.
func (d *Device) Stats() Stats {
	return d.stats
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) CreateShader(stage gfx.Stage, src string) (gfx.Shader, error) {
	if strings.TrimSpace(src) == "" {
		return 0, fmt.Errorf("%w: %s: empty source", gfx.ErrCompile, stage)
	}
	s := gfx.Shader(d.handle())
	d.shaders[s] = shader{stage: stage, src: src}
	return s, nil
}

func (d *Device) DeleteShader(s gfx.Shader) {
	delete(d.shaders, s)
}

func (d *Device) CreateProgram(shaders ...gfx.Shader) (gfx.Program, error) {
	var hasVertex, hasFragment bool
	for _, s := range shaders {
		sh, ok := d.shaders[s]
		if !ok {
			return 0, fmt.Errorf("%w: unknown shader %d", gfx.ErrLink, s)
		}
		switch sh.stage {
		case gfx.VertexStage:
			hasVertex = true
		case gfx.FragmentStage:
			hasFragment = true
		}
	}
	if !hasVertex || !hasFragment {
		return 0, fmt.Errorf("%w: vertex and fragment stages are required", gfx.ErrLink)
	}

	p := gfx.Program(d.handle())
	d.programs[p] = &program{
		locs:   make(map[string]int32),
		values: make(map[string]any),
	}
	return p, nil
}

func (d *Device) UseProgram(p gfx.Program) {
	d.current = p
}

func (d *Device) DeleteProgram(p gfx.Program) {
	delete(d.programs, p)
	if d.current == p {
		d.current = 0
	}
}

func (d *Device) UniformLocation(p gfx.Program, name string) int32 {
	prog, ok := d.programs[p]
	if !ok {
		return -1
	}
	loc, ok := prog.locs[name]
	if !ok {
		loc = int32(len(prog.names))
		prog.locs[name] = loc
		prog.names = append(prog.names, name)
	}
	return loc
}

func (d *Device) set(loc int32, v any) {
	prog, ok := d.programs[d.current]
	if !ok || loc < 0 || int(loc) >= len(prog.names) {
		return
	}
	prog.values[prog.names[loc]] = v
}

func (d *Device) Uniform1i(loc int32, v int32) { d.set(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32) { d.set(loc, v) }
func (d *Device) Uniform2f(loc int32, v mgl32.Vec2) { d.set(loc, v) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3) { d.set(loc, v) }
func (d *Device) Uniform4f(loc int32, v mgl32.Vec4) { d.set(loc, v) }
func (d *Device) UniformMatrix2(loc int32, m mgl32.Mat2) { d.set(loc, m) }
func (d *Device) UniformMatrix3(loc int32, m mgl32.Mat3) { d.set(loc, m) }
func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) { d.set(loc, m) }

func (d *Device) CreateVertexArray(data []float32, indices []uint32, layout gfx.VertexLayout) (gfx.VertexArray, error) {
	va, err := newVertexArray(data, indices, layout)
	if err != nil {
		return 0, err
	}
	h := gfx.VertexArray(d.handle())
	d.vertexArrays[h] = va
	return h, nil
}

func (d *Device) BindVertexArray(va gfx.VertexArray) {
	d.boundVA = va
}

func (d *Device) DeleteVertexArray(va gfx.VertexArray) {
	delete(d.vertexArrays, va)
}

func (d *Device) CreateTexture(img *image.RGBA, opts gfx.TextureOptions) (gfx.Texture, error) {
	if img == nil {
		return 0, errors.New("nil image")
	}
	tex := render.NewTexture(img, opts.Mipmaps)
	if opts.Wrap == gfx.WrapClamp {
		tex.Wrap = render.WrapClamp
	}
	t := gfx.Texture(d.handle())
	d.textures[t] = tex
	return t, nil
}

func (d *Device) ActiveTexture(unit int) {
	d.activeUnit = unit
}

func (d *Device) BindTexture(t gfx.Texture) {
	if t == 0 {
		delete(d.units, d.activeUnit)
		return
	}
	d.units[d.activeUnit] = t
}

func (d *Device) DeleteTexture(t gfx.Texture) {
	delete(d.textures, t)
}

// Clear fills the color buffer and resets depth and stats.
func (d *Device) Clear(r, g, b, a float32) {
	d.fb.Clear(render.RGBA(unit8(r), unit8(g), unit8(b), unit8(a)))
	d.fb.ClearDepth()
	d.rast.ResetStats()
	d.stats = Stats{}
}

// Viewport resizes the framebuffer when the size changes. The origin is
// ignored.
func (d *Device) Viewport(_, _, width, height int) {
	if width <= 0 || height <= 0 || (width == d.fb.Width && height == d.fb.Height) {
		return
	}
	d.fb = render.NewFramebuffer(width, height)
	d.rast.SetFramebuffer(d.fb)
}

func (d *Device) DrawElements(mode gfx.Mode, count int) {
	prog, ok := d.programs[d.current]
	if !ok {
		return
	}
	va, ok := d.vertexArrays[d.boundVA]
	if !ok {
		return
	}

	mesh := va.view(count)
	u := uniforms(prog.values)
	model := u.mat4("model")
	d.rast.SetViewProjection(u.mat4("projection").Mul(u.mat4("view")))

	culled := d.rast.Stats.Culled
	switch mode {
	case gfx.Wireframe:
		d.rast.DrawWireframe(mesh, model, render.RGB(255, 255, 255))
	default:
		shade, color := u.shading()
		d.rast.DrawMesh(mesh, model, color, d.diffuseTexture(u), shade)
	}

	d.stats.DrawCalls++
	if d.rast.Stats.Culled > culled {
		d.stats.Culled++
		return
	}
	d.stats.Triangles += mesh.TriangleCount()
}

// diffuseTexture returns the texture bound to the unit texture_diffuse1
// names, or nil when the program draws untextured.
func (d *Device) diffuseTexture(u uniforms) *render.Texture {
	if textured, ok := u["material.textured"]; ok && !truthy(textured) {
		return nil
	}
	unit, ok := u["texture_diffuse1"].(int32)
	if !ok {
		return nil
	}
	return d.textures[d.units[int(unit)]]
}

func unit8(f float32) uint8 {
	return uint8(math3d.Clamp(float64(f), 0, 1) * 255)
}
