package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/nanoview/pkg/math3d"
)

const eps = 1e-9

func assertBasis(t *testing.T, c *Camera) {
	t.Helper()
	assert.InDelta(t, 1, c.Front.Len(), eps)
	assert.InDelta(t, 1, c.Right.Len(), eps)
	assert.InDelta(t, 1, c.Up.Len(), eps)
	assert.InDelta(t, 0, c.Front.Dot(c.Right), eps)
	assert.InDelta(t, 0, c.Front.Dot(c.Up), eps)
	assert.InDelta(t, 0, c.Right.Dot(c.Up), eps)
}

func TestNewDefaults(t *testing.T) {
	c := New(math3d.V3(0, 0, 3))

	assert.Equal(t, DefaultYaw, c.Yaw)
	assert.Equal(t, DefaultPitch, c.Pitch)
	assert.Equal(t, DefaultSpeed, c.MovementSpeed)
	assert.Equal(t, DefaultSensitivity, c.MouseSensitivity)
	assert.Equal(t, DefaultZoom, c.Zoom)

	assert.True(t, c.Front.ApproxEqual(math3d.V3(0, 0, -1), eps), "front %v", c.Front)
	assert.True(t, c.Right.ApproxEqual(math3d.V3(1, 0, 0), eps), "right %v", c.Right)
	assert.True(t, c.Up.ApproxEqual(math3d.V3(0, 1, 0), eps), "up %v", c.Up)
	assertBasis(t, c)
}

func TestOptions(t *testing.T) {
	c := New(math3d.Zero3(),
		WithAngles(0, 30),
		WithSpeed(10),
		WithSensitivity(1),
		WithZoom(44),
	)
	assert.Equal(t, 0.0, c.Yaw)
	assert.Equal(t, 30.0, c.Pitch)
	assert.Equal(t, 10.0, c.MovementSpeed)
	assert.Equal(t, 1.0, c.MouseSensitivity)
	assert.Equal(t, 44.0, c.Zoom)
	assertBasis(t, c)
}

func TestBasisStaysOrthonormal(t *testing.T) {
	c := New(math3d.Zero3())
	offsets := [][2]float64{{10, 5}, {-200, 40}, {33.3, -400}, {720, 720}, {-1, -1}}
	for _, o := range offsets {
		c.ProcessMouseMovement(o[0], o[1], true)
		assertBasis(t, c)
	}
}

func TestPitchConstrained(t *testing.T) {
	c := New(math3d.Zero3())

	c.ProcessMouseMovement(0, 10000, true)
	assert.Equal(t, MaxPitch, c.Pitch)
	assertBasis(t, c)

	c.ProcessMouseMovement(0, -100000, true)
	assert.Equal(t, -MaxPitch, c.Pitch)
	assertBasis(t, c)
}

func TestPitchUnconstrained(t *testing.T) {
	c := New(math3d.Zero3())
	c.ProcessMouseMovement(0, 400, false)
	assert.Equal(t, 100.0, c.Pitch)
}

func TestMouseSensitivity(t *testing.T) {
	c := New(math3d.Zero3())
	c.ProcessMouseMovement(4, -8, true)
	assert.InDelta(t, DefaultYaw+1, c.Yaw, eps)
	assert.InDelta(t, -2, c.Pitch, eps)
}

func TestProcessKeyboard(t *testing.T) {
	tests := []struct {
		name string
		dir  Movement
		want math3d.Vec3
	}{
		{"forward", Forward, math3d.V3(0, 0, -3)},
		{"backward", Backward, math3d.V3(0, 0, 3)},
		{"left", Left, math3d.V3(-3, 0, 0)},
		{"right", Right, math3d.V3(3, 0, 0)},
		{"up", Up, math3d.V3(0, 3, 0)},
		{"down", Down, math3d.V3(0, -3, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(math3d.Zero3())
			c.ProcessKeyboard(tt.dir, 1, 1)
			assert.True(t, c.Position.ApproxEqual(tt.want, eps), "got %v", c.Position)
		})
	}
}

func TestProcessKeyboardSpeedMultiplier(t *testing.T) {
	c := New(math3d.Zero3())
	c.ProcessKeyboard(Forward, 0.5, 2)
	assert.True(t, c.Position.ApproxEqual(math3d.V3(0, 0, -3), eps), "got %v", c.Position)
}

func TestZoomConvergesToMinimum(t *testing.T) {
	c := New(math3d.Zero3())
	for range 1000 {
		c.ProcessZoom(0.01)
		assert.GreaterOrEqual(t, c.Zoom, MinZoom)
		assert.LessOrEqual(t, c.Zoom, MaxZoom)
	}
	assert.Equal(t, MinZoom, c.Zoom)

	// Further zoom-in keeps it pinned.
	c.ProcessZoom(0.01)
	assert.Equal(t, MinZoom, c.Zoom)
}

func TestZoomConvergesToMaximum(t *testing.T) {
	c := New(math3d.Zero3())
	for range 1000 {
		c.ProcessZoom(-0.01)
	}
	assert.Equal(t, MaxZoom, c.Zoom)
}

func TestZoomOutOfRangeSnaps(t *testing.T) {
	c := New(math3d.Zero3(), WithZoom(10))
	c.ProcessZoom(-5)
	assert.Equal(t, MinZoom, c.Zoom)

	c = New(math3d.Zero3(), WithZoom(90))
	c.ProcessZoom(5)
	assert.Equal(t, MaxZoom, c.Zoom)
}

func TestViewMatrixLooksDownFront(t *testing.T) {
	c := New(math3d.V3(0, 0, 3))
	view := c.ViewMatrix()

	assert.True(t, view.MulVec3(c.Position).ApproxEqual(math3d.Zero3(), eps))
	ahead := view.MulVec3(c.Position.Add(c.Front))
	assert.True(t, ahead.ApproxEqual(math3d.V3(0, 0, -1), eps), "got %v", ahead)
}

func TestProjectionMatrixUsesZoomInDegrees(t *testing.T) {
	c := New(math3d.Zero3())
	got := c.ProjectionMatrix(1, 0.1, 100)
	want := math3d.Perspective(math3d.Radians(45), 1, 0.1, 100)
	assert.Equal(t, want, got)
}
