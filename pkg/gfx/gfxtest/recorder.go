// Package gfxtest provides a recording gfx.Device for tests.
package gfxtest

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/nanoview/pkg/gfx"
)

// Call is one recorded device call.
type Call struct {
	Op   string
	Args []any
}

// UniformWrite is a uniform upload resolved to its name.
type UniformWrite struct {
	Program gfx.Program
	Name    string
	Value   any
}

// Draw is a recorded DrawElements call with the state it ran under.
type Draw struct {
	Program     gfx.Program
	VertexArray gfx.VertexArray
	Mode        gfx.Mode
	Count       int
	Units       map[int]gfx.Texture // bound texture per unit
}

// VertexArrayInfo is the data a vertex array was created with.
type VertexArrayInfo struct {
	Data    []float32
	Indices []uint32
	Layout  gfx.VertexLayout
}

type program struct {
	shaders []gfx.Shader
	locs    map[string]int32
	names   map[int32]string
}

// Recorder implements gfx.Device by recording calls. Compile fails for an
// empty source unless CompileErr overrides it.
type Recorder struct {
	Calls         []Call
	UniformWrites []UniformWrite
	Draws         []Draw

	// CompileErr, when set, decides compile failures. A non-nil result is
	// wrapped with gfx.ErrCompile.
	CompileErr func(stage gfx.Stage, src string) error
	// LinkErr, when set, decides link failures. A non-nil result is
	// wrapped with gfx.ErrLink.
	LinkErr func(shaders []gfx.Shader) error
	// Inactive lists uniform names reported as location -1.
	Inactive map[string]bool

	next         uint32
	shaders      map[gfx.Shader]string
	programs     map[gfx.Program]*program
	vertexArrays map[gfx.VertexArray]VertexArrayInfo
	textures     map[gfx.Texture]*image.RGBA
	current      gfx.Program
	boundVA      gfx.VertexArray
	activeUnit   int
	units        map[int]gfx.Texture
}

var _ gfx.Device = (*Recorder)(nil)

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		shaders:      make(map[gfx.Shader]string),
		programs:     make(map[gfx.Program]*program),
		vertexArrays: make(map[gfx.VertexArray]VertexArrayInfo),
		textures:     make(map[gfx.Texture]*image.RGBA),
		units:        make(map[int]gfx.Texture),
	}
}

func (r *Recorder) record(op string, args ...any) {
	r.Calls = append(r.Calls, Call{Op: op, Args: args})
}

func (r *Recorder) handle() uint32 {
	r.next++
	return r.next
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Uniform returns the last value written to name in program p.
func (r *Recorder) Uniform(p gfx.Program, name string) (any, bool) {
	for i := len(r.UniformWrites) - 1; i >= 0; i-- {
		w := r.UniformWrites[i]
		if w.Program == p && w.Name == name {
			return w.Value, true
		}
	}
	return nil, false
}

// UniformNames returns the uniform names written, in order, since the
// write at index from.
func (r *Recorder) UniformNames(from int) []string {
	var names []string
	for _, w := range r.UniformWrites[from:] {
		names = append(names, w.Name)
	}
	return names
}

// LiveTextures returns the number of textures not yet deleted.
func (r *Recorder) LiveTextures() int { return len(r.textures) }

// LiveVertexArrays returns the number of vertex arrays not yet deleted.
func (r *Recorder) LiveVertexArrays() int { return len(r.vertexArrays) }

// LivePrograms returns the number of programs not yet deleted.
func (r *Recorder) LivePrograms() int { return len(r.programs) }

// LiveShaders returns the number of shader objects not yet deleted.
func (r *Recorder) LiveShaders() int { return len(r.shaders) }

// VertexArray returns the creation data of va.
func (r *Recorder) VertexArray(va gfx.VertexArray) (VertexArrayInfo, bool) {
	info, ok := r.vertexArrays[va]
	return info, ok
}

// Texture returns the image a live texture was created from.
func (r *Recorder) Texture(t gfx.Texture) (*image.RGBA, bool) {
	img, ok := r.textures[t]
	return img, ok
}

// Current returns the program in use.
func (r *Recorder) Current() gfx.Program { return r.current }

func (r *Recorder) CreateShader(stage gfx.Stage, src string) (gfx.Shader, error) {
	r.record("CreateShader", stage, src)
	var err error
	switch {
	case r.CompileErr != nil:
		err = r.CompileErr(stage, src)
	case strings.TrimSpace(src) == "":
		err = errors.New("empty source")
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", gfx.ErrCompile, stage, err)
	}
	s := gfx.Shader(r.handle())
	r.shaders[s] = src
	return s, nil
}

func (r *Recorder) DeleteShader(s gfx.Shader) {
	r.record("DeleteShader", s)
	delete(r.shaders, s)
}

func (r *Recorder) CreateProgram(shaders ...gfx.Shader) (gfx.Program, error) {
	r.record("CreateProgram", shaders)
	if r.LinkErr != nil {
		if err := r.LinkErr(shaders); err != nil {
			return 0, fmt.Errorf("%w: %w", gfx.ErrLink, err)
		}
	}
	for _, s := range shaders {
		if _, ok := r.shaders[s]; !ok {
			return 0, fmt.Errorf("%w: shader %d not compiled", gfx.ErrLink, s)
		}
	}
	p := gfx.Program(r.handle())
	r.programs[p] = &program{
		shaders: shaders,
		locs:    make(map[string]int32),
		names:   make(map[int32]string),
	}
	return p, nil
}

func (r *Recorder) UseProgram(p gfx.Program) {
	r.record("UseProgram", p)
	r.current = p
}

func (r *Recorder) DeleteProgram(p gfx.Program) {
	r.record("DeleteProgram", p)
	delete(r.programs, p)
	if r.current == p {
		r.current = 0
	}
}

func (r *Recorder) UniformLocation(p gfx.Program, name string) int32 {
	r.record("UniformLocation", p, name)
	prog, ok := r.programs[p]
	if !ok || r.Inactive[name] {
		return -1
	}
	loc, ok := prog.locs[name]
	if !ok {
		loc = int32(len(prog.locs))
		prog.locs[name] = loc
		prog.names[loc] = name
	}
	return loc
}

func (r *Recorder) setUniform(op string, loc int32, v any) {
	r.record(op, loc, v)
	if loc < 0 {
		return
	}
	prog, ok := r.programs[r.current]
	if !ok {
		return
	}
	name, ok := prog.names[loc]
	if !ok {
		return
	}
	r.UniformWrites = append(r.UniformWrites, UniformWrite{Program: r.current, Name: name, Value: v})
}

func (r *Recorder) Uniform1i(loc int32, v int32) { r.setUniform("Uniform1i", loc, v) }
func (r *Recorder) Uniform1f(loc int32, v float32) { r.setUniform("Uniform1f", loc, v) }
func (r *Recorder) Uniform2f(loc int32, v mgl32.Vec2) { r.setUniform("Uniform2f", loc, v) }
func (r *Recorder) Uniform3f(loc int32, v mgl32.Vec3) { r.setUniform("Uniform3f", loc, v) }
func (r *Recorder) Uniform4f(loc int32, v mgl32.Vec4) { r.setUniform("Uniform4f", loc, v) }
func (r *Recorder) UniformMatrix2(loc int32, m mgl32.Mat2) { r.setUniform("UniformMatrix2", loc, m) }
func (r *Recorder) UniformMatrix3(loc int32, m mgl32.Mat3) { r.setUniform("UniformMatrix3", loc, m) }
func (r *Recorder) UniformMatrix4(loc int32, m mgl32.Mat4) { r.setUniform("UniformMatrix4", loc, m) }

func (r *Recorder) CreateVertexArray(data []float32, indices []uint32, layout gfx.VertexLayout) (gfx.VertexArray, error) {
	r.record("CreateVertexArray", len(data), len(indices))
	if len(data) == 0 || len(indices) == 0 {
		return 0, gfx.ErrEmptyVertexArray
	}
	va := gfx.VertexArray(r.handle())
	r.vertexArrays[va] = VertexArrayInfo{Data: data, Indices: indices, Layout: layout}
	return va, nil
}

func (r *Recorder) BindVertexArray(va gfx.VertexArray) {
	r.record("BindVertexArray", va)
	r.boundVA = va
}

func (r *Recorder) DeleteVertexArray(va gfx.VertexArray) {
	r.record("DeleteVertexArray", va)
	delete(r.vertexArrays, va)
}

func (r *Recorder) CreateTexture(img *image.RGBA, opts gfx.TextureOptions) (gfx.Texture, error) {
	r.record("CreateTexture", img.Bounds().Dx(), img.Bounds().Dy(), opts)
	t := gfx.Texture(r.handle())
	r.textures[t] = img
	return t, nil
}

func (r *Recorder) ActiveTexture(unit int) {
	r.record("ActiveTexture", unit)
	r.activeUnit = unit
}

func (r *Recorder) BindTexture(t gfx.Texture) {
	r.record("BindTexture", r.activeUnit, t)
	if t == 0 {
		delete(r.units, r.activeUnit)
		return
	}
	r.units[r.activeUnit] = t
}

func (r *Recorder) DeleteTexture(t gfx.Texture) {
	r.record("DeleteTexture", t)
	delete(r.textures, t)
}

func (r *Recorder) Clear(cr, cg, cb, ca float32) { r.record("Clear", cr, cg, cb, ca) }

func (r *Recorder) Viewport(x, y, width, height int) { r.record("Viewport", x, y, width, height) }

func (r *Recorder) DrawElements(mode gfx.Mode, count int) {
	r.record("DrawElements", mode, count)
	units := make(map[int]gfx.Texture, len(r.units))
	for u, t := range r.units {
		units[u] = t
	}
	r.Draws = append(r.Draws, Draw{
		Program:     r.current,
		VertexArray: r.boundVA,
		Mode:        mode,
		Count:       count,
		Units:       units,
	})
}
