package math3d

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Mat4 is a 4x4 column-major matrix. It shares its layout with mgl64.Mat4,
// so the heavy lifting converts and delegates.
//
//	| 0  4  8  12 |
//	| 1  5  9  13 |
//	| 2  6  10 14 |
//	| 3  7  11 15 |
type Mat4 [16]float64

func (m Mat4) mgl() mgl64.Mat4 { return mgl64.Mat4(m) }

// Identity returns the identity matrix.
func Identity() Mat4 { return Mat4(mgl64.Ident4()) }

// Translate returns a matrix moving points by v.
func Translate(v Vec3) Mat4 { return Mat4(mgl64.Translate3D(v.X, v.Y, v.Z)) }

// Scale returns a matrix scaling each axis by the matching component of v.
func Scale(v Vec3) Mat4 { return Mat4(mgl64.Scale3D(v.X, v.Y, v.Z)) }

// ScaleUniform scales all three axes by s.
func ScaleUniform(s float64) Mat4 { return Scale(Splat3(s)) }

// RotateY rotates by angle radians around +Y.
func RotateY(angle float64) Mat4 { return Mat4(mgl64.HomogRotate3DY(angle)) }

// LookAt returns a right-handed view matrix from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	return Mat4(mgl64.LookAtV(eye.mgl(), center.mgl(), up.mgl()))
}

// Perspective returns an OpenGL projection matrix. fovy is in radians and
// depth maps to [-1, 1] between near and far.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	return Mat4(mgl64.Perspective(fovy, aspect, near, far))
}

// Mul returns a * b.
//
//nolint:st1016 // a*b reads better than m*o here
func (a Mat4) Mul(b Mat4) Mat4 { return Mat4(a.mgl().Mul4(b.mgl())) }

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	r := m.mgl().Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, v.W})
	return Vec4{r[0], r[1], r[2], r[3]}
}

// MulVec3 transforms v as a point and divides by the resulting w when it is
// nonzero.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 1)).PerspectiveDivide()
}

// MulVec3Dir transforms v as a direction, ignoring translation.
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return fromMGL(m.mgl().Mat3().Mul3x1(v.mgl()))
}

// Inverse returns m⁻¹, or the identity when m is singular.
func (m Mat4) Inverse() Mat4 {
	g := m.mgl()
	if g.Det() == 0 {
		return Identity()
	}
	return Mat4(g.Inv())
}

// Mat3 returns the upper-left 3x3 block.
func (m Mat4) Mat3() Mat3 { return Mat3(m.mgl().Mat3()) }

// NormalMatrix returns the inverse transpose of the upper 3x3 block, which
// keeps normals perpendicular to surfaces under non-uniform scale. A
// singular block yields the identity.
func (m Mat4) NormalMatrix() Mat3 {
	b := m.mgl().Mat3()
	if b.Det() == 0 {
		return Identity3()
	}
	return Mat3(b.Inv().Transpose())
}

// GL narrows the matrix to float32 without reordering.
func (m Mat4) GL() mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Mat4FromGL widens a float32 matrix.
func Mat4FromGL(m mgl32.Mat4) Mat4 {
	var out Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}
