package scene

import "github.com/taigrr/nanoview/pkg/math3d"

// triangulate replaces every polygon with a fan of triangles around its
// first corner. Points and lines are dropped.
func triangulate(m *Mesh) {
	faces := make([][]int, 0, len(m.Faces))
	for _, f := range m.Faces {
		switch {
		case len(f) < 3:
			continue
		case len(f) == 3:
			faces = append(faces, f)
		default:
			for i := 2; i < len(f); i++ {
				faces = append(faces, []int{f[0], f[i-1], f[i]})
			}
		}
	}
	m.Faces = faces
}

func flipUVs(m *Mesh) {
	for i, uv := range m.TexCoords {
		m.TexCoords[i] = math3d.V2(uv.X, 1-uv.Y)
	}
}

// calcTangentSpace computes per-vertex tangents and bitangents by summing
// the tangent frames of the triangles sharing each vertex. Tangents are
// orthogonalized against the normal. It reports false when the mesh lacks
// normals or texture coordinates.
func calcTangentSpace(m *Mesh) bool {
	n := len(m.Positions)
	if len(m.Normals) != n || len(m.TexCoords) != n {
		return false
	}

	tangents := make([]math3d.Vec3, n)
	bitangents := make([]math3d.Vec3, n)

	for _, f := range m.Faces {
		if len(f) != 3 {
			continue
		}
		p0, p1, p2 := m.Positions[f[0]], m.Positions[f[1]], m.Positions[f[2]]
		t0, t1, t2 := m.TexCoords[f[0]], m.TexCoords[f[1]], m.TexCoords[f[2]]

		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		du1, dv1 := t1.X-t0.X, t1.Y-t0.Y
		du2, dv2 := t2.X-t0.X, t2.Y-t0.Y

		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		r := 1 / det
		t := e1.Scale(dv2).Sub(e2.Scale(dv1)).Scale(r)
		b := e2.Scale(du1).Sub(e1.Scale(du2)).Scale(r)

		for _, v := range f {
			tangents[v] = tangents[v].Add(t)
			bitangents[v] = bitangents[v].Add(b)
		}
	}

	for i := range n {
		nrm := m.Normals[i]
		t := tangents[i]
		// Gram-Schmidt
		t = t.Sub(nrm.Scale(nrm.Dot(t)))
		if t.Len() < 1e-12 {
			tangents[i], bitangents[i] = math3d.Vec3{}, math3d.Vec3{}
			continue
		}
		tangents[i] = t.Normalize()

		b := bitangents[i]
		if b.Len() < 1e-12 {
			b = nrm.Cross(tangents[i])
		}
		bitangents[i] = b.Normalize()
	}

	m.Tangents = tangents
	m.Bitangents = bitangents
	return true
}
