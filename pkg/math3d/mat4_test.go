package math3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(V3(1, -2, 3)).Mul(RotateY(0.7)).Mul(Scale(V3(2, 0.5, 4)))
	got := m.Mul(m.Inverse())
	for i, v := range Identity() {
		assert.InDelta(t, v, got[i], 1e-9, "element %d", i)
	}
}

func TestInverseSingularReturnsIdentity(t *testing.T) {
	assert.Equal(t, Identity(), Scale(V3(0, 1, 1)).Inverse())
}

func TestNormalMatrixUniformScale(t *testing.T) {
	// For translate+uniform scale the normal matrix is the inverse scale.
	m := Translate(V3(0, 0.25, 0)).Mul(ScaleUniform(0.2))
	want := Mat3{5, 0, 0, 0, 5, 0, 0, 0, 5}
	assert.True(t, m.NormalMatrix().ApproxEqual(want, eps), "got %v", m.NormalMatrix())
}

func TestNormalMatrixKeepsNormalsPerpendicular(t *testing.T) {
	m := Scale(V3(1, 3, 1))
	tangent := m.MulVec3Dir(V3(1, 1, 0))
	normal := m.NormalMatrix().MulVec3(V3(1, -1, 0))
	assert.InDelta(t, 0, tangent.Dot(normal), eps)
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := V3(0, 0, 3)
	view := LookAt(eye, eye.Add(V3(0, 0, -1)), Up())
	assert.True(t, view.MulVec3(eye).ApproxEqual(Zero3(), eps))
	// A point straight ahead ends up on the -Z axis in view space.
	ahead := view.MulVec3(V3(0, 0, 0))
	assert.True(t, ahead.ApproxEqual(V3(0, 0, -3), eps), "got %v", ahead)
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(Radians(45), 4.0/3.0, 0.1, 100)
	near := p.MulVec4(V4(0, 0, -0.1, 1)).PerspectiveDivide()
	far := p.MulVec4(V4(0, 0, -100, 1)).PerspectiveDivide()
	assert.InDelta(t, -1, near.Z, 1e-6)
	assert.InDelta(t, 1, far.Z, 1e-6)
}

func TestGLPreservesLayout(t *testing.T) {
	m := Translate(V3(7, 8, 9))
	gl := m.GL()
	assert.Equal(t, float32(7), gl[12])
	assert.Equal(t, float32(8), gl[13])
	assert.Equal(t, float32(9), gl[14])

	m3 := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}.GL()
	assert.Equal(t, float32(4), m3[3])

	assert.Equal(t, m, Mat4FromGL(gl))
	assert.Equal(t, V3(1, 2, 3), V3FromGL(V3(1, 2, 3).GL()))
}

func TestRadians(t *testing.T) {
	assert.InDelta(t, math.Pi/4, Radians(45), eps)
	assert.Equal(t, 43.0, Clamp(42, 43, 47))
	assert.Equal(t, 47.0, Clamp(50, 43, 47))
	assert.Equal(t, 45.0, Clamp(45, 43, 47))
}

func TestMulVec3DirIgnoresTranslation(t *testing.T) {
	m := Translate(V3(10, 20, 30)).Mul(ScaleUniform(2))
	assert.Equal(t, V3(2, 0, 0), m.MulVec3Dir(V3(1, 0, 0)))
	assert.Equal(t, V3(12, 20, 30), m.MulVec3(V3(1, 0, 0)))
}

func TestNormalizeZero(t *testing.T) {
	assert.Equal(t, Zero3(), Zero3().Normalize())
	assert.InDelta(t, 1, V3(3, 4, 0).Normalize().Len(), eps)
	assert.Equal(t, V3(0, 0, 1), V3(1, 0, 0).Cross(V3(0, 1, 0)))
}
