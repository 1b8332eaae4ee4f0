package softgpu

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/render"
)

// uniforms is a program's uniform state keyed by name.
type uniforms map[string]any

// mat4 returns the named matrix, or identity when unset.
func (u uniforms) mat4(name string) math3d.Mat4 {
	m, ok := u[name].(mgl32.Mat4)
	if !ok {
		return math3d.Identity()
	}
	return math3d.Mat4FromGL(m)
}

// vec3 returns the named vector and whether it was set.
func (u uniforms) vec3(name string) (math3d.Vec3, bool) {
	v, ok := u[name].(mgl32.Vec3)
	if !ok {
		return math3d.Vec3{}, false
	}
	return math3d.V3FromGL(v), true
}

func (u uniforms) vec3Or(name string, def math3d.Vec3) math3d.Vec3 {
	if v, ok := u.vec3(name); ok {
		return v
	}
	return def
}

// shading derives the light and base color for a draw.
//
// A program with lamp.color draws that color unlit. Otherwise ambient is
// light.ambient * material.ambient and diffuse is light.diffuse *
// material.diffuse, with the light at light.position. Unset light terms
// default to white; unset material terms default to white, except that
// material.color tints the base color. Without any light.* uniform the
// geometry is drawn unlit.
func (u uniforms) shading() (render.Shading, render.Color) {
	white := math3d.Splat3(1)

	if lamp, ok := u.vec3("lamp.color"); ok {
		return render.Shading{Ambient: white}, toColor(lamp)
	}

	base := toColor(u.vec3Or("material.color", white))

	lightPos, lit := u.vec3("light.position")
	if !lit {
		return render.Shading{Ambient: white}, base
	}

	return render.Shading{
		Light:   lightPos,
		Ambient: u.vec3Or("light.ambient", white).Mul(u.vec3Or("material.ambient", white)),
		Diffuse: u.vec3Or("light.diffuse", white).Mul(u.vec3Or("material.diffuse", white)),
	}, base
}

func toColor(v math3d.Vec3) render.Color {
	return render.RGB(
		uint8(math3d.Clamp(v.X, 0, 1)*255),
		uint8(math3d.Clamp(v.Y, 0, 1)*255),
		uint8(math3d.Clamp(v.Z, 0, 1)*255),
	)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case int32:
		return x != 0
	case float32:
		return x != 0
	default:
		return true
	}
}
