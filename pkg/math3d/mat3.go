package math3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mat2 is a 2x2 matrix stored in column-major order.
type Mat2 [4]float64

// GL converts the matrix to float32 form.
func (m Mat2) GL() mgl32.Mat2 {
	return mgl32.Mat2{float32(m[0]), float32(m[1]), float32(m[2]), float32(m[3])}
}

// Mat3 is a 3x3 matrix stored in column-major order.
//
// | 0 3 6 |
// | 1 4 7 |
// | 2 5 8 |
type Mat3 [9]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// ApproxEqual reports whether every element of m and o differs by at most eps.
func (m Mat3) ApproxEqual(o Mat3, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-o[i]) > eps {
			return false
		}
	}
	return true
}

// GL converts the matrix to float32 form without reordering.
func (m Mat3) GL() mgl32.Mat3 {
	var out mgl32.Mat3
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
