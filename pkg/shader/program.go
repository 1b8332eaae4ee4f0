// Package shader builds GPU programs from shader source files and uploads
// uniforms to them by name.
package shader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
)

// Sources names the files a program is built from. Geometry is optional.
type Sources struct {
	Vertex   string
	Fragment string
	Geometry string
}

// Paths returns the non-empty source paths.
func (s Sources) Paths() []string {
	paths := []string{s.Vertex, s.Fragment}
	if s.Geometry != "" {
		paths = append(paths, s.Geometry)
	}
	return paths
}

// Program is a linked GPU program and the files it came from.
//
// A Program whose build failed keeps a zero handle: Use binds nothing and
// the setters write nothing. Err reports why.
type Program struct {
	dev     gfx.Device
	id      gfx.Program
	src     Sources
	err     error
	deleted bool
}

// Load reads, compiles and links the program described by src. Read,
// compile and link failures are logged and recorded in Err; the returned
// Program is never nil.
func Load(dev gfx.Device, src Sources) *Program {
	p := &Program{dev: dev, src: src}
	p.id, p.err = build(dev, src)
	return p
}

// ID returns the device handle, zero when the build failed.
func (p *Program) ID() gfx.Program { return p.id }

// Err returns the diagnostics of the last build.
func (p *Program) Err() error { return p.err }

// Valid reports whether the program linked.
func (p *Program) Valid() bool { return p.id != 0 }

// Sources returns the files the program is built from.
func (p *Program) Sources() Sources { return p.src }

// Use binds the program for drawing and uniform upload.
func (p *Program) Use() {
	p.dev.UseProgram(p.id)
}

// Delete releases the program. Further calls do nothing.
func (p *Program) Delete() {
	if p.deleted {
		return
	}
	p.deleted = true
	if p.id != 0 {
		p.dev.DeleteProgram(p.id)
		p.id = 0
	}
}

// Reload rebuilds the program from its sources. The handle is replaced only
// when the new build links; otherwise the old program stays in place and the
// build error is returned.
func (p *Program) Reload() error {
	id, err := build(p.dev, p.src)
	if err != nil {
		return err
	}
	if p.id != 0 {
		p.dev.DeleteProgram(p.id)
	}
	p.id, p.err, p.deleted = id, nil, false
	return nil
}

func build(dev gfx.Device, src Sources) (gfx.Program, error) {
	type stage struct {
		kind gfx.Stage
		path string
	}
	stages := []stage{{gfx.VertexStage, src.Vertex}, {gfx.FragmentStage, src.Fragment}}
	if src.Geometry != "" {
		stages = append(stages, stage{gfx.GeometryStage, src.Geometry})
	}

	var (
		shaders []gfx.Shader
		errs    []error
	)
	defer func() {
		for _, s := range shaders {
			dev.DeleteShader(s)
		}
	}()

	for _, st := range stages {
		code, err := os.ReadFile(st.path)
		if err != nil {
			slog.Error("read shader source", "stage", st.kind, "path", st.path, "err", err)
			errs = append(errs, fmt.Errorf("read %s shader: %w", st.kind, err))
		}

		s, err := dev.CreateShader(st.kind, string(code))
		if err != nil {
			slog.Error("compile shader", "stage", st.kind, "path", st.path, "err", err)
			errs = append(errs, err)
			continue
		}
		shaders = append(shaders, s)
	}

	if len(shaders) != len(stages) {
		return 0, errors.Join(errs...)
	}

	id, err := dev.CreateProgram(shaders...)
	if err != nil {
		slog.Error("link program", "vertex", src.Vertex, "fragment", src.Fragment, "err", err)
		errs = append(errs, err)
		return 0, errors.Join(errs...)
	}
	return id, errors.Join(errs...)
}

func (p *Program) loc(name string) int32 {
	return p.dev.UniformLocation(p.id, name)
}

// SetBool sets a bool uniform as 0 or 1.
func (p *Program) SetBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	p.dev.Uniform1i(p.loc(name), i)
}

// SetInt sets an int or sampler uniform.
func (p *Program) SetInt(name string, v int) {
	p.dev.Uniform1i(p.loc(name), int32(v))
}

// SetFloat sets a float uniform.
func (p *Program) SetFloat(name string, v float64) {
	p.dev.Uniform1f(p.loc(name), float32(v))
}

// SetVec2 sets a vec2 uniform.
func (p *Program) SetVec2(name string, v math3d.Vec2) {
	p.dev.Uniform2f(p.loc(name), v.GL())
}

// SetVec2f sets a vec2 uniform from components.
func (p *Program) SetVec2f(name string, x, y float64) {
	p.SetVec2(name, math3d.V2(x, y))
}

// SetVec3 sets a vec3 uniform.
func (p *Program) SetVec3(name string, v math3d.Vec3) {
	p.dev.Uniform3f(p.loc(name), v.GL())
}

// SetVec3f sets a vec3 uniform from components.
func (p *Program) SetVec3f(name string, x, y, z float64) {
	p.SetVec3(name, math3d.V3(x, y, z))
}

// SetVec4 sets a vec4 uniform.
func (p *Program) SetVec4(name string, v math3d.Vec4) {
	p.dev.Uniform4f(p.loc(name), v.GL())
}

// SetVec4f sets a vec4 uniform from components.
func (p *Program) SetVec4f(name string, x, y, z, w float64) {
	p.SetVec4(name, math3d.V4(x, y, z, w))
}

// SetMat2 sets a column-major mat2 uniform.
func (p *Program) SetMat2(name string, m math3d.Mat2) {
	p.dev.UniformMatrix2(p.loc(name), m.GL())
}

// SetMat3 sets a column-major mat3 uniform.
func (p *Program) SetMat3(name string, m math3d.Mat3) {
	p.dev.UniformMatrix3(p.loc(name), m.GL())
}

// SetMat4 sets a column-major mat4 uniform.
func (p *Program) SetMat4(name string, m math3d.Mat4) {
	p.dev.UniformMatrix4(p.loc(name), m.GL())
}
