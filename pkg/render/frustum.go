package render

import (
	"math"

	"github.com/taigrr/nanoview/pkg/math3d"
)

// Plane is the set of points p with Normal·p + D = 0. Points on the side
// the normal faces have positive distance.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

func newPlane(a, b, c, d float64) Plane {
	p := Plane{Normal: math3d.V3(a, b, c), D: d}
	if l := p.Normal.Len(); l > 0 {
		p.Normal = p.Normal.Scale(1 / l)
		p.D /= l
	}
	return p
}

// Distance returns the signed distance from the plane to pt.
func (p Plane) Distance(pt math3d.Vec3) float64 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view-projection, normals facing
// inward, ordered left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts the clip planes of the column-major matrix m.
// Each pair is the fourth row plus and minus one of the first three.
func FrustumFromMatrix(m math3d.Mat4) Frustum {
	row := func(i int) [4]float64 {
		return [4]float64{m[i], m[i+4], m[i+8], m[i+12]}
	}
	w := row(3)

	var f Frustum
	for axis := range 3 {
		r := row(axis)
		f[2*axis] = newPlane(w[0]+r[0], w[1]+r[1], w[2]+r[2], w[3]+r[3])
		f[2*axis+1] = newPlane(w[0]-r[0], w[1]-r[1], w[2]-r[2], w[3]-r[3])
	}
	return f
}

// Contains reports whether pt is inside or on every plane.
func (f Frustum) Contains(pt math3d.Vec3) bool {
	for _, p := range f {
		if p.Distance(pt) < 0 {
			return false
		}
	}
	return true
}

// Intersects reports whether any part of b may be inside the frustum. It
// can accept boxes near a corner that are actually outside.
func (f Frustum) Intersects(b AABB) bool {
	c, e := b.Center(), b.Extents()
	for _, p := range f {
		r := e.X*math.Abs(p.Normal.X) + e.Y*math.Abs(p.Normal.Y) + e.Z*math.Abs(p.Normal.Z)
		if p.Distance(c)+r < 0 {
			return false
		}
	}
	return true
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max math3d.Vec3
}

func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extents returns the half size along each axis.
func (b AABB) Extents() math3d.Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Transform returns the box bounding b after the affine transform m. The
// extents are carried through the absolute value of m's linear part.
func (b AABB) Transform(m math3d.Mat4) AABB {
	c := m.MulVec3(b.Center())
	e := b.Extents()

	var half [3]float64
	for i := range 3 {
		half[i] = math.Abs(m[i])*e.X + math.Abs(m[i+4])*e.Y + math.Abs(m[i+8])*e.Z
	}
	h := math3d.V3(half[0], half[1], half[2])
	return AABB{Min: c.Sub(h), Max: c.Add(h)}
}
