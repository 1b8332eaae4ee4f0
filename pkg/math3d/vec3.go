// Package math3d provides the vector and matrix types nanoview does its
// camera and scene math in. Matrices are column-major like OpenGL, so they
// can be uploaded without reordering.
package math3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a point or direction in 3D.
type Vec3 struct {
	X, Y, Z float64
}

func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

// Zero3 returns the origin.
func Zero3() Vec3 { return Vec3{} }

// Up returns world up, +Y.
func Up() Vec3 { return Vec3{Y: 1} }

// Splat3 returns (s, s, s).
func Splat3(s float64) Vec3 { return Vec3{s, s, s} }

func (a Vec3) mgl() mgl64.Vec3 { return mgl64.Vec3{a.X, a.Y, a.Z} }

func fromMGL(v mgl64.Vec3) Vec3 { return Vec3{v[0], v[1], v[2]} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Mul multiplies component-wise.
func (a Vec3) Mul(b Vec3) Vec3 { return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.mgl().Dot(b.mgl()) }

func (a Vec3) Cross(b Vec3) Vec3 { return fromMGL(a.mgl().Cross(b.mgl())) }

func (a Vec3) Len() float64 { return a.mgl().Len() }

// Normalize returns a unit vector along a. The zero vector stays zero
// instead of turning into NaNs.
func (a Vec3) Normalize() Vec3 {
	if a == (Vec3{}) {
		return a
	}
	return fromMGL(a.mgl().Normalize())
}

// Min and Max work per component; bounding boxes grow with them.
func (a Vec3) Min(b Vec3) Vec3 { return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)} }
func (a Vec3) Max(b Vec3) Vec3 { return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)} }

// ApproxEqual reports whether a and b agree to within eps on every axis.
func (a Vec3) ApproxEqual(b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

// GL narrows the vector for uniform uploads.
func (a Vec3) GL() mgl32.Vec3 {
	return mgl32.Vec3{float32(a.X), float32(a.Y), float32(a.Z)}
}

// V3FromGL widens a float32 vector.
func V3FromGL(v mgl32.Vec3) Vec3 {
	return Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
