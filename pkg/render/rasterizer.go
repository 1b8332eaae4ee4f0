// Package render rasterizes indexed meshes on the CPU into a Framebuffer
// that can be saved as PNG or shown in a terminal with half blocks.
package render

import (
	"math"

	"github.com/taigrr/nanoview/pkg/math3d"
)

// nearW rejects geometry at or behind the eye plane.
const nearW = 1e-6

// Mesh is indexed triangle geometry in model space.
type Mesh interface {
	TriangleCount() int
	Face(i int) [3]int
	Vertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
}

// BoundedMesh is a Mesh that knows its model-space bounds, which lets the
// rasterizer skip it when it is outside the view.
type BoundedMesh interface {
	Mesh
	Bounds() AABB
}

// Shading is a point light evaluated at each vertex and interpolated.
// Ambient and Diffuse are per-channel factors applied to the base color.
type Shading struct {
	Light   math3d.Vec3
	Ambient math3d.Vec3
	Diffuse math3d.Vec3
}

func (s Shading) at(pos, normal math3d.Vec3) math3d.Vec3 {
	lambert := math.Max(0, normal.Dot(s.Light.Sub(pos).Normalize()))
	return s.Ambient.Add(s.Diffuse.Scale(lambert))
}

// CullingStats counts bounded meshes tested against the view since the
// last ResetStats.
type CullingStats struct {
	Tested int
	Culled int
	Drawn  int
}

// Rasterizer draws meshes into a Framebuffer. Triangles are filled with
// edge functions and depth tested; faces wound clockwise in NDC are
// skipped unless TwoSided is set.
type Rasterizer struct {
	Stats    CullingStats
	TwoSided bool

	fb       *Framebuffer
	viewProj math3d.Mat4
	frustum  Frustum
	stale    bool
}

// NewRasterizer returns a rasterizer targeting fb with an identity
// view-projection.
func NewRasterizer(fb *Framebuffer) *Rasterizer {
	return &Rasterizer{fb: fb, viewProj: math3d.Identity(), stale: true}
}

func (r *Rasterizer) SetFramebuffer(fb *Framebuffer) { r.fb = fb }

func (r *Rasterizer) Framebuffer() *Framebuffer { return r.fb }

// SetViewProjection sets the world to clip transform.
func (r *Rasterizer) SetViewProjection(m math3d.Mat4) {
	if m != r.viewProj {
		r.viewProj = m
		r.stale = true
	}
}

func (r *Rasterizer) ResetStats() { r.Stats = CullingStats{} }

// Visible reports whether a world-space box may be on screen.
func (r *Rasterizer) Visible(b AABB) bool {
	if r.stale {
		r.frustum = FrustumFromMatrix(r.viewProj)
		r.stale = false
	}
	return r.frustum.Intersects(b)
}

// culled tests a bounded mesh against the view and records the result.
// Unbounded meshes are always drawn.
func (r *Rasterizer) culled(mesh Mesh, model math3d.Mat4) bool {
	b, ok := mesh.(BoundedMesh)
	if !ok {
		return false
	}
	r.Stats.Tested++
	if !r.Visible(b.Bounds().Transform(model)) {
		r.Stats.Culled++
		return true
	}
	r.Stats.Drawn++
	return false
}

// fragment is a vertex after projection. x and y are in pixels, z in NDC.
type fragment struct {
	x, y, z float64
	invW    float64
	uv      math3d.Vec2
	light   math3d.Vec3
}

func (r *Rasterizer) project(world math3d.Vec3) (fragment, bool) {
	clip := r.viewProj.MulVec4(math3d.V4FromV3(world, 1))
	if clip.W <= nearW {
		return fragment{}, false
	}
	invW := 1 / clip.W
	return fragment{
		x:    (clip.X*invW + 1) * 0.5 * float64(r.fb.Width),
		y:    (1 - clip.Y*invW) * 0.5 * float64(r.fb.Height),
		z:    clip.Z * invW,
		invW: invW,
	}, true
}

// edge is twice the signed area of (a, b, p). It is negative when the
// three turn clockwise on screen, which is counter-clockwise in NDC.
func edge(a, b fragment, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// DrawMesh fills every triangle of mesh. Positions go through model and
// normals through its normal matrix. Each pixel is base lit by shade,
// modulated by tex when tex is not nil.
func (r *Rasterizer) DrawMesh(mesh Mesh, model math3d.Mat4, base Color, tex *Texture, shade Shading) {
	if r.fb == nil || r.culled(mesh, model) {
		return
	}
	normals := model.NormalMatrix()

	for i := range mesh.TriangleCount() {
		face := mesh.Face(i)
		var tri [3]fragment
		visible := true
		for j, idx := range face {
			p, n, uv := mesh.Vertex(idx)
			world := model.MulVec3(p)
			f, ok := r.project(world)
			if !ok {
				visible = false
				break
			}
			f.uv = uv
			f.light = shade.at(world, normals.MulVec3(n).Normalize())
			tri[j] = f
		}
		if visible {
			r.fill(tri, base, tex, r.lod(tri, tex))
		}
	}
}

// lod picks a mip level from the ratio of texel area to pixel area.
func (r *Rasterizer) lod(tri [3]fragment, tex *Texture) float64 {
	if tex == nil || tex.Levels() == 1 {
		return 0
	}
	w, h := tex.Size()
	e1, e2 := tri[1].uv.Sub(tri[0].uv), tri[2].uv.Sub(tri[0].uv)
	texels := math.Abs(e1.X*e2.Y-e1.Y*e2.X) * float64(w*h)
	pixels := math.Abs(edge(tri[0], tri[1], tri[2].x, tri[2].y))
	if texels == 0 || pixels == 0 {
		return 0
	}
	return math.Max(0, 0.5*math.Log2(texels/pixels))
}

func (r *Rasterizer) fill(tri [3]fragment, base Color, tex *Texture, lod float64) {
	area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
	if area == 0 || (area > 0 && !r.TwoSided) {
		return
	}
	inv := 1 / area

	minX := max(0, int(math.Floor(min(tri[0].x, tri[1].x, tri[2].x))))
	maxX := min(r.fb.Width-1, int(math.Ceil(max(tri[0].x, tri[1].x, tri[2].x))))
	minY := max(0, int(math.Floor(min(tri[0].y, tri[1].y, tri[2].y))))
	maxY := min(r.fb.Height-1, int(math.Ceil(max(tri[0].y, tri[1].y, tri[2].y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			b0 := edge(tri[1], tri[2], px, py) * inv
			b1 := edge(tri[2], tri[0], px, py) * inv
			b2 := edge(tri[0], tri[1], px, py) * inv
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*tri[0].z + b1*tri[1].z + b2*tri[2].z
			if z < -1 || z > 1 || !r.fb.testAndSetDepth(x, y, float32(z)) {
				continue
			}

			// perspective-correct weights
			w0, w1, w2 := b0*tri[0].invW, b1*tri[1].invW, b2*tri[2].invW
			norm := 1 / (w0 + w1 + w2)
			w0, w1, w2 = w0*norm, w1*norm, w2*norm

			light := tri[0].light.Scale(w0).Add(tri[1].light.Scale(w1)).Add(tri[2].light.Scale(w2))
			c := base
			if tex != nil {
				u := w0*tri[0].uv.X + w1*tri[1].uv.X + w2*tri[2].uv.X
				v := w0*tri[0].uv.Y + w1*tri[1].uv.Y + w2*tri[2].uv.Y
				c = Modulate(tex.SampleLevel(u, v, lod), base)
			}
			r.fb.SetPixel(x, y, lit(c, light))
		}
	}
}

// DrawWireframe draws the edges of every triangle of mesh in c. Edges are
// depth tested against each other.
func (r *Rasterizer) DrawWireframe(mesh Mesh, model math3d.Mat4, c Color) {
	if r.fb == nil || r.culled(mesh, model) {
		return
	}
	for i := range mesh.TriangleCount() {
		face := mesh.Face(i)
		var tri [3]fragment
		visible := true
		for j, idx := range face {
			p, _, _ := mesh.Vertex(idx)
			f, ok := r.project(model.MulVec3(p))
			if !ok {
				visible = false
				break
			}
			tri[j] = f
		}
		if !visible {
			continue
		}
		for j := range 3 {
			r.line(tri[j], tri[(j+1)%3], c)
		}
	}
}

// line steps from a to b one pixel at a time along the longer axis.
// Edges reaching far off screen are stepped coarsely.
func (r *Rasterizer) line(a, b fragment, c Color) {
	dx, dy, dz := b.x-a.x, b.y-a.y, b.z-a.z
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	steps = min(steps, 4*(r.fb.Width+r.fb.Height))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		x := int(math.Floor(a.x + dx*t))
		y := int(math.Floor(a.y + dy*t))
		if r.fb.testAndSetDepth(x, y, float32(a.z+dz*t)) {
			r.fb.SetPixel(x, y, c)
		}
	}
}

// lit scales each color channel by the matching light factor.
func lit(c Color, k math3d.Vec3) Color {
	return Color{R: channel(float64(c.R) * k.X), G: channel(float64(c.G) * k.Y), B: channel(float64(c.B) * k.Z), A: c.A}
}

// channel rounds v to 8 bits, saturating at both ends.
func channel(v float64) uint8 {
	return uint8(math.Round(math3d.Clamp(v, 0, 255)))
}
