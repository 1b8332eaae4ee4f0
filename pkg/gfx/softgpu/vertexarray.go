package softgpu

import (
	"fmt"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/render"
)

// Attribute locations the device reads.
const (
	locPosition = 0
	locNormal   = 1
	locUV       = 2
)

// vertexArray is an uploaded interleaved vertex buffer with its indices.
type vertexArray struct {
	data     []float32
	indices  []uint32
	stride   int
	offsets  [3]int // per location, -1 when absent
	min, max math3d.Vec3
}

func newVertexArray(data []float32, indices []uint32, layout gfx.VertexLayout) (*vertexArray, error) {
	if len(data) == 0 || len(indices) == 0 {
		return nil, gfx.ErrEmptyVertexArray
	}
	if layout.Stride <= 0 {
		return nil, fmt.Errorf("invalid vertex stride %d", layout.Stride)
	}
	if len(data)%layout.Stride != 0 {
		return nil, fmt.Errorf("vertex data length %d is not a multiple of stride %d", len(data), layout.Stride)
	}

	va := &vertexArray{
		data:    data,
		indices: indices,
		stride:  layout.Stride,
		offsets: [3]int{-1, -1, -1},
	}
	for _, a := range layout.Attributes {
		if a.Location <= locUV {
			va.offsets[a.Location] = a.Offset
		}
	}
	if va.offsets[locPosition] < 0 {
		return nil, fmt.Errorf("vertex layout has no position at location %d", locPosition)
	}

	n := va.vertexCount()
	for i, idx := range indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, n)
		}
	}

	for i := range n {
		p, _, _ := va.Vertex(i)
		if i == 0 {
			va.min, va.max = p, p
			continue
		}
		va.min = va.min.Min(p)
		va.max = va.max.Max(p)
	}
	return va, nil
}

func (va *vertexArray) vertexCount() int {
	return len(va.data) / va.stride
}

func (va *vertexArray) vec3(i, loc int) math3d.Vec3 {
	off := va.offsets[loc]
	if off < 0 {
		return math3d.Vec3{}
	}
	b := i*va.stride + off
	return math3d.V3(float64(va.data[b]), float64(va.data[b+1]), float64(va.data[b+2]))
}

func (va *vertexArray) Vertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	pos = va.vec3(i, locPosition)
	normal = va.vec3(i, locNormal)
	if off := va.offsets[locUV]; off >= 0 {
		b := i*va.stride + off
		uv = math3d.V2(float64(va.data[b]), float64(va.data[b+1]))
	}
	return pos, normal, uv
}

// view returns the first count indices as a drawable mesh.
func (va *vertexArray) view(count int) meshView {
	count = min(count, len(va.indices))
	return meshView{vertexArray: va, triangles: count / 3}
}

// meshView is a vertexArray limited to a draw's index count. It implements
// render.BoundedMesh.
type meshView struct {
	*vertexArray
	triangles int
}

func (m meshView) TriangleCount() int {
	return m.triangles
}

func (m meshView) Face(i int) [3]int {
	j := i * 3
	return [3]int{int(m.indices[j]), int(m.indices[j+1]), int(m.indices[j+2])}
}

func (m meshView) Bounds() render.AABB {
	return render.AABB{Min: m.min, Max: m.max}
}
