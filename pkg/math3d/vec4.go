package math3d

import "github.com/go-gl/mathgl/mgl32"

// Vec4 is a homogeneous point or a clip-space position.
type Vec4 struct {
	X, Y, Z, W float64
}

func V4(x, y, z, w float64) Vec4 { return Vec4{x, y, z, w} }

// V4FromV3 extends v with the given w: 1 for points, 0 for directions.
func V4FromV3(v Vec3, w float64) Vec4 { return Vec4{v.X, v.Y, v.Z, w} }

// PerspectiveDivide projects back to 3D. A zero w leaves x, y and z as
// they are.
func (v Vec4) PerspectiveDivide() Vec3 {
	p := Vec3{v.X, v.Y, v.Z}
	if v.W == 0 {
		return p
	}
	return p.Scale(1 / v.W)
}

func (v Vec4) GL() mgl32.Vec4 {
	return mgl32.Vec4{float32(v.X), float32(v.Y), float32(v.Z), float32(v.W)}
}
