package scene

import (
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/nanoview/pkg/math3d"
)

// gltfReader converts one glTF document.
type gltfReader struct {
	doc *gltf.Document
	sc  *Scene
	// glTF mesh index -> scene mesh indices, one per primitive
	meshes map[int][]int
	// image index -> texture reference ("*N" or a relative path)
	images map[int]string
}

func readGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	r := &gltfReader{
		doc:    doc,
		sc:     &Scene{},
		meshes: make(map[int][]int),
		images: make(map[int]string),
	}
	if err := r.readImages(); err != nil {
		return nil, err
	}
	r.readMaterials()

	for i, m := range doc.Meshes {
		if err := r.readMesh(i, m); err != nil {
			return nil, fmt.Errorf("read mesh %q: %w", m.Name, err)
		}
	}

	roots, err := r.rootNodes()
	if err != nil {
		return nil, err
	}
	r.sc.Root = &Node{Name: "root", Transform: math3d.Identity()}
	seen := make([]bool, len(doc.Nodes))
	for _, n := range roots {
		child, err := r.readNode(n, seen)
		if err != nil {
			return nil, err
		}
		r.sc.Root.Children = append(r.sc.Root.Children, child)
	}

	if len(r.sc.Meshes) == 0 {
		r.sc.Flags |= FlagIncomplete
	}
	return r.sc, nil
}

// rootNodes returns the nodes of the default scene, or of the first scene
// when no default is set.
func (r *gltfReader) rootNodes() ([]int, error) {
	if len(r.doc.Scenes) == 0 {
		return nil, nil
	}
	idx := 0
	if r.doc.Scene != nil {
		idx = *r.doc.Scene
	}
	if idx < 0 || idx >= len(r.doc.Scenes) {
		return nil, fmt.Errorf("%w: scene %d of %d", ErrIncomplete, idx, len(r.doc.Scenes))
	}
	return r.doc.Scenes[idx].Nodes, nil
}

// readNode converts node idx and its subtree. A glTF node has at most one
// parent, so a node reached twice means a cycle or a shared child.
func (r *gltfReader) readNode(idx int, seen []bool) (*Node, error) {
	if idx < 0 || idx >= len(r.doc.Nodes) {
		return nil, fmt.Errorf("%w: node %d of %d", ErrIncomplete, idx, len(r.doc.Nodes))
	}
	if seen[idx] {
		return nil, fmt.Errorf("%w: node %d reached twice", ErrIncomplete, idx)
	}
	seen[idx] = true

	n := r.doc.Nodes[idx]
	node := &Node{Name: n.Name, Transform: nodeTransform(n)}
	if n.Mesh != nil {
		node.Meshes = append(node.Meshes, r.meshes[*n.Mesh]...)
	}
	for _, c := range n.Children {
		child, err := r.readNode(c, seen)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func nodeTransform(n *gltf.Node) math3d.Mat4 {
	m := n.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		var out math3d.Mat4
		for i := range 16 {
			out[i] = m[i]
		}
		return out
	}

	t := n.TranslationOrDefault()
	q := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(quatMat4(q)).
		Mul(math3d.Scale(math3d.V3(s[0], s[1], s[2])))
}

// quatMat4 converts an (x, y, z, w) unit quaternion to a rotation matrix.
func quatMat4(q [4]float64) math3d.Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return math3d.Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// readImages collects embedded images as scene textures and remembers the
// reference each image is known by.
func (r *gltfReader) readImages() error {
	for i, img := range r.doc.Images {
		switch {
		case img.BufferView != nil:
			if *img.BufferView < 0 || *img.BufferView >= len(r.doc.BufferViews) {
				return fmt.Errorf("%w: image %d: buffer view %d of %d", ErrIncomplete, i, *img.BufferView, len(r.doc.BufferViews))
			}
			data, err := modeler.ReadBufferView(r.doc, r.doc.BufferViews[*img.BufferView])
			if err != nil {
				return fmt.Errorf("%w: image %d: %w", ErrIncomplete, i, err)
			}
			r.embed(i, data, img.MimeType)
		case img.IsEmbeddedResource():
			data, err := img.MarshalData()
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			mime := strings.TrimPrefix(strings.SplitN(img.URI, ";", 2)[0], "data:")
			r.embed(i, data, mime)
		case img.URI != "":
			r.images[i] = img.URI
		}
	}
	return nil
}

func (r *gltfReader) embed(image int, data []byte, mime string) {
	r.images[image] = fmt.Sprintf("*%d", len(r.sc.Textures))
	r.sc.Textures = append(r.sc.Textures, Embedded{Data: data, MimeType: mime})
}

// textureRef returns the reference of the image behind texture index tex.
func (r *gltfReader) textureRef(tex int) (string, bool) {
	if tex < 0 || tex >= len(r.doc.Textures) || r.doc.Textures[tex].Source == nil {
		return "", false
	}
	ref, ok := r.images[*r.doc.Textures[tex].Source]
	return ref, ok
}

func (r *gltfReader) readMaterials() {
	for i, gm := range r.doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material%d", i)
		}
		m := NewMaterial(name)

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				m.Colors[ColorDiffuse] = math3d.V3(f[0], f[1], f[2])
				m.Opacity = f[3]
			}
			if t := pbr.BaseColorTexture; t != nil {
				if ref, ok := r.textureRef(t.Index); ok {
					m.addTexture(TextureDiffuse, ref)
				}
			}
		}
		if t := gm.NormalTexture; t != nil && t.Index != nil {
			if ref, ok := r.textureRef(*t.Index); ok {
				m.addTexture(TextureNormals, ref)
			}
		}
		if t := gm.OcclusionTexture; t != nil && t.Index != nil {
			if ref, ok := r.textureRef(*t.Index); ok {
				m.addTexture(TextureLightmap, ref)
			}
		}
		r.sc.Materials = append(r.sc.Materials, m)
	}

	// primitives without a material use a default one at the end
	r.sc.Materials = append(r.sc.Materials, NewMaterial(defaultMaterial))
}

// readMesh adds one scene mesh per triangle primitive of m.
func (r *gltfReader) readMesh(idx int, m *gltf.Mesh) error {
	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// lines, points, strips and fans
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readAccessor(r.doc, posIdx, modeler.ReadPosition)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}
		mesh := &Mesh{
			Name:          fmt.Sprintf("%s_%d", m.Name, pi),
			Positions:     vec3s(positions),
			MaterialIndex: len(r.sc.Materials) - 1,
		}
		if prim.Material != nil && *prim.Material < len(r.doc.Materials) {
			mesh.MaterialIndex = *prim.Material
		}

		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err := readAccessor(r.doc, normIdx, modeler.ReadNormal)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
			mesh.Normals = vec3s(normals)
		}

		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err := readAccessor(r.doc, uvIdx, modeler.ReadTextureCoord)
			if err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
			mesh.TexCoords = make([]math3d.Vec2, len(uvs))
			for i, uv := range uvs {
				// glTF puts v=0 at the top; store with v=0 at the bottom like OBJ
				mesh.TexCoords[i] = math3d.V2(float64(uv[0]), 1-float64(uv[1]))
			}
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = readAccessor(r.doc, *prim.Indices, modeler.ReadIndices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			mesh.Faces = append(mesh.Faces, []int{int(indices[i]), int(indices[i+1]), int(indices[i+2])})
		}
		if err := checkFaces(mesh); err != nil {
			return err
		}

		r.meshes[idx] = append(r.meshes[idx], len(r.sc.Meshes))
		r.sc.Meshes = append(r.sc.Meshes, mesh)
	}
	return nil
}

// readAccessor checks accessor idx against the document before handing it
// to read. The modeler readers check buffer views and buffers themselves.
func readAccessor[T any](doc *gltf.Document, idx int, read func(*gltf.Document, *gltf.Accessor, []T) ([]T, error)) ([]T, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrIncomplete, idx, len(doc.Accessors))
	}
	acr := doc.Accessors[idx]
	if acr.BufferView != nil {
		bv := *acr.BufferView
		if bv < 0 || bv >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: accessor %d: buffer view %d of %d", ErrIncomplete, idx, bv, len(doc.BufferViews))
		}
		if acr.ByteOffset > doc.BufferViews[bv].ByteLength {
			return nil, fmt.Errorf("%w: accessor %d: offset %d past its buffer view", ErrIncomplete, idx, acr.ByteOffset)
		}
	}
	return read(doc, acr, nil)
}

func vec3s(in [][3]float32) []math3d.Vec3 {
	out := make([]math3d.Vec3, len(in))
	for i, v := range in {
		out[i] = math3d.V3(float64(v[0]), float64(v[1]), float64(v[2]))
	}
	return out
}

func checkFaces(m *Mesh) error {
	n := len(m.Positions)
	for _, f := range m.Faces {
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("index %d out of range for %d vertices", v, n)
			}
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != n {
		return fmt.Errorf("%d normals for %d vertices", len(m.Normals), n)
	}
	if len(m.TexCoords) != 0 && len(m.TexCoords) != n {
		return fmt.Errorf("%d texture coordinates for %d vertices", len(m.TexCoords), n)
	}
	return nil
}
