// Package camera implements the yaw/pitch fly camera the viewer moves
// around the scene with.
package camera

import (
	"math"

	"github.com/taigrr/nanoview/pkg/math3d"
)

// Default camera parameters.
const (
	DefaultYaw         = -90.0
	DefaultPitch       = 0.0
	DefaultSpeed       = 3.0
	DefaultSensitivity = 0.25
	DefaultZoom        = 45.0

	// MinZoom and MaxZoom bound the zoom value in degrees.
	MinZoom = 43.0
	MaxZoom = 47.0

	// MaxPitch keeps the front vector from reaching the world up axis,
	// where right = front × worldUp degenerates.
	MaxPitch = 89.0
)

// Movement is a keyboard movement direction.
type Movement int

const (
	Forward Movement = iota
	Backward
	Left
	Right
	Up
	Down
)

// Camera holds position and Euler-angle orientation. Front, Right and Up are
// derived from Yaw and Pitch and are recomputed by every method that
// changes either angle.
type Camera struct {
	Position math3d.Vec3
	WorldUp  math3d.Vec3

	// Euler angles in degrees
	Yaw   float64
	Pitch float64

	// Orthonormal basis derived from Yaw/Pitch
	Front math3d.Vec3
	Right math3d.Vec3
	Up    math3d.Vec3

	MovementSpeed    float64
	MouseSensitivity float64
	Zoom             float64 // Field of view in degrees
}

// Option configures a Camera in New.
type Option func(*Camera)

// WithWorldUp overrides the world up axis.
func WithWorldUp(up math3d.Vec3) Option {
	return func(c *Camera) { c.WorldUp = up }
}

// WithAngles sets the initial yaw and pitch in degrees.
func WithAngles(yaw, pitch float64) Option {
	return func(c *Camera) {
		c.Yaw = yaw
		c.Pitch = pitch
	}
}

// WithSpeed sets the movement speed in units per second.
func WithSpeed(speed float64) Option {
	return func(c *Camera) { c.MovementSpeed = speed }
}

// WithSensitivity sets the mouse sensitivity in degrees per offset unit.
func WithSensitivity(s float64) Option {
	return func(c *Camera) { c.MouseSensitivity = s }
}

// WithZoom sets the initial zoom in degrees. Values outside
// [MinZoom, MaxZoom] are kept and snapped by the next ProcessZoom.
func WithZoom(z float64) Option {
	return func(c *Camera) { c.Zoom = z }
}

// New creates a camera at position looking down -Z.
func New(position math3d.Vec3, opts ...Option) *Camera {
	c := &Camera{
		Position:         position,
		WorldUp:          math3d.Up(),
		Yaw:              DefaultYaw,
		Pitch:            DefaultPitch,
		MovementSpeed:    DefaultSpeed,
		MouseSensitivity: DefaultSensitivity,
		Zoom:             DefaultZoom,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.updateVectors()
	return c
}

// ViewMatrix returns the look-at matrix from Position towards Position+Front.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	return math3d.LookAt(c.Position, c.Position.Add(c.Front), c.Up)
}

// ProjectionMatrix returns a perspective projection using Zoom as the
// vertical field of view.
func (c *Camera) ProjectionMatrix(aspect, near, far float64) math3d.Mat4 {
	return math3d.Perspective(math3d.Radians(c.Zoom), aspect, near, far)
}

// ProcessKeyboard moves the camera by MovementSpeed*deltaTime*speedMultiplier
// along the axis matching dir. Position is unbounded.
func (c *Camera) ProcessKeyboard(dir Movement, deltaTime, speedMultiplier float64) {
	velocity := c.MovementSpeed * deltaTime * speedMultiplier

	switch dir {
	case Forward:
		c.Position = c.Position.Add(c.Front.Scale(velocity))
	case Backward:
		c.Position = c.Position.Sub(c.Front.Scale(velocity))
	case Left:
		c.Position = c.Position.Sub(c.Right.Scale(velocity))
	case Right:
		c.Position = c.Position.Add(c.Right.Scale(velocity))
	case Up:
		c.Position = c.Position.Add(c.Up.Scale(velocity))
	case Down:
		c.Position = c.Position.Sub(c.Up.Scale(velocity))
	}
}

// ProcessMouseMovement turns the camera by the scaled offsets. With
// constrainPitch the pitch stays within [-MaxPitch, MaxPitch].
func (c *Camera) ProcessMouseMovement(xOffset, yOffset float64, constrainPitch bool) {
	c.Yaw += xOffset * c.MouseSensitivity
	c.Pitch += yOffset * c.MouseSensitivity

	if constrainPitch {
		c.Pitch = math3d.Clamp(c.Pitch, -MaxPitch, MaxPitch)
	}

	c.updateVectors()
}

// ProcessZoom decrements Zoom by offset while Zoom lies in
// [MinZoom, MaxZoom], clamping the result to that range. A zoom that starts
// outside the range snaps to the nearest bound and the offset is dropped.
func (c *Camera) ProcessZoom(offset float64) {
	switch {
	case c.Zoom >= MinZoom && c.Zoom <= MaxZoom:
		c.Zoom = math3d.Clamp(c.Zoom-offset, MinZoom, MaxZoom)
	case c.Zoom < MinZoom:
		c.Zoom = MinZoom
	default:
		c.Zoom = MaxZoom
	}
}

// SetAngles replaces yaw and pitch (degrees) and recomputes the basis.
func (c *Camera) SetAngles(yaw, pitch float64) {
	c.Yaw = yaw
	c.Pitch = pitch
	c.updateVectors()
}

// updateVectors derives Front, Right and Up from Yaw and Pitch.
// The cross product order fixes a right-handed, Y-up basis.
func (c *Camera) updateVectors() {
	yaw := math3d.Radians(c.Yaw)
	pitch := math3d.Radians(c.Pitch)

	c.Front = math3d.V3(
		math.Cos(yaw)*math.Cos(pitch),
		math.Sin(pitch),
		math.Sin(yaw)*math.Cos(pitch),
	).Normalize()
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}
