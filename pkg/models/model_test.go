package models

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/gfx/gfxtest"
	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/scene"
)

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const quadOBJ = `mtllib quad.mtl
o Quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl Skin
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const quadMTL = `newmtl Skin
Ka 0.1 0.2 0.3
Kd 0.5 0.5 0.5
Ks 1 1 1
Ns 32
map_Kd tex.png
map_Ks tex.png
map_bump normal.png
`

// quadModel writes the quad OBJ with its material and textures.
func quadModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "quad.mtl", []byte(quadMTL))
	writeFile(t, dir, "tex.png", pngBytes(t, 2, 2, color.RGBA{255, 0, 0, 255}))
	writeFile(t, dir, "normal.png", pngBytes(t, 4, 4, color.RGBA{128, 128, 255, 255}))
	return writeFile(t, dir, "quad.obj", []byte(quadOBJ))
}

// noFatal fails the test when Fatal is reached.
func noFatal(t *testing.T) {
	t.Helper()
	old := Fatal
	Fatal = func(msg string, args ...any) { t.Errorf("unexpected fatal: %s %v", msg, args) }
	t.Cleanup(func() { Fatal = old })
}

func TestLoadOBJ(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()

	m, err := Load(dev, quadModel(t))
	require.NoError(t, err)
	require.False(t, m.Empty())
	require.Len(t, m.Meshes, 1)

	mesh := m.Meshes[0]
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, math3d.V3(0.1, 0.2, 0.3), mesh.Ambient)
	assert.Equal(t, math3d.Splat3(0.5), mesh.Diffuse)
	assert.Equal(t, math3d.Splat3(1), mesh.Specular)
	assert.Equal(t, 32.0, mesh.Shininess)
	assert.Equal(t, 2, m.TriangleCount())

	info, ok := dev.VertexArray(mesh.VertexArray())
	require.True(t, ok)
	assert.Len(t, info.Data, 4*vertexStride)
	assert.Equal(t, VertexLayout, info.Layout)
	// first vertex: uv (0,0) flipped to (0,1), tangent along +x
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1, 0, 1}, info.Data[:8])
	assert.InDelta(t, 1, info.Data[8], 1e-6)

	lo, hi := m.Bounds()
	assert.Equal(t, math3d.V3(0, 0, 0), lo)
	assert.Equal(t, math3d.V3(1, 1, 0), hi)
}

func TestLoadDeduplicatesTextures(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()

	m, err := Load(dev, quadModel(t))
	require.NoError(t, err)

	assert.Equal(t, 2, dev.Count("CreateTexture"), "tex.png is uploaded once")
	assert.Equal(t, 2, m.Cache().Len())

	tex := m.Meshes[0].Textures
	require.Len(t, tex, 3)
	assert.Equal(t, SemanticDiffuse, tex[0].Type)
	assert.Equal(t, SemanticSpecular, tex[1].Type)
	assert.Equal(t, SemanticNormal, tex[2].Type)
	assert.Equal(t, tex[0].ID, tex[1].ID)
	assert.Equal(t, "normal.png", tex[2].Path)
	assert.Equal(t, 4, tex[2].Width)
}

func TestLoadSharedCache(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()
	cache := NewTextureCache()
	path := quadModel(t)

	_, err := Load(dev, path, WithCache(cache))
	require.NoError(t, err)
	_, err = Load(dev, path, WithCache(cache))
	require.NoError(t, err)

	assert.Equal(t, 2, dev.Count("CreateTexture"))
	assert.Equal(t, 2, cache.Len())
}

func TestReleaseLeavesSharedCache(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()
	cache := NewTextureCache()
	path := quadModel(t)

	a, err := Load(dev, path, WithCache(cache))
	require.NoError(t, err)
	b, err := Load(dev, path, WithCache(cache))
	require.NoError(t, err)

	a.Release()
	assert.Equal(t, 2, dev.LiveTextures(), "b still draws with the cached textures")
	assert.Equal(t, 1, dev.LiveVertexArrays())
	assert.Equal(t, 2, cache.Len())

	b.Release()
	cache.Release(dev)
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveVertexArrays())
	assert.Zero(t, cache.Len())
}

func TestLoadWithSlots(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()

	m, err := Load(dev, quadModel(t), WithSlots([]Slot{{scene.TextureHeight, SemanticHeight}}))
	require.NoError(t, err)

	tex := m.Meshes[0].Textures
	require.Len(t, tex, 1)
	assert.Equal(t, SemanticHeight, tex[0].Type)
	assert.Equal(t, "normal.png", tex[0].Path)
}

func TestLoadMissingTextureIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quad.mtl", []byte("newmtl Skin\nmap_Kd gone.png\n"))
	path := writeFile(t, dir, "quad.obj", []byte(quadOBJ))

	var fatals []string
	old := Fatal
	Fatal = func(msg string, args ...any) { fatals = append(fatals, fmt.Sprint(args...)) }
	defer func() { Fatal = old }()

	m, err := Load(gfxtest.New(), path)
	require.NoError(t, err)
	require.Len(t, fatals, 1)
	assert.Contains(t, fatals[0], "gone.png")
	assert.False(t, m.Meshes[0].Textured())
}

func TestLoadImportFailure(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.obj") }},
		{"unsupported format", func(t *testing.T) string {
			return writeFile(t, t.TempDir(), "model.fbx", []byte("x"))
		}},
		{"no faces", func(t *testing.T) string {
			return writeFile(t, t.TempDir(), "empty.obj", []byte("v 0 0 0\n"))
		}},
		{"gltf node cycle", func(t *testing.T) string {
			doc := gltf.NewDocument()
			doc.Nodes = []*gltf.Node{{Name: "Loop", Children: []int{0, 0}}}
			doc.Scene = gltf.Index(0)
			doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
			path := filepath.Join(t.TempDir(), "loop.glb")
			require.NoError(t, gltf.SaveBinary(doc, path))
			return path
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gfxtest.New()
			m, err := Load(dev, tt.path(t))
			require.NoError(t, err)
			assert.True(t, m.Empty())
			assert.Zero(t, dev.Count("CreateVertexArray"))

			m.Draw(&uniformLog{})
			assert.Empty(t, dev.Draws)
		})
	}
}

func TestLoadMaterialDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))

	m, err := Load(gfxtest.New(), path)
	require.NoError(t, err)
	require.Len(t, m.Meshes, 1)

	mesh := m.Meshes[0]
	assert.Equal(t, DefaultAmbient, mesh.Ambient)
	assert.Equal(t, DefaultDiffuse, mesh.Diffuse)
	assert.Equal(t, DefaultSpecular, mesh.Specular)
	assert.Equal(t, DefaultShininess, mesh.Shininess)
	assert.False(t, mesh.Textured())
}

func TestModelRelease(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()
	m, err := Load(dev, quadModel(t))
	require.NoError(t, err)
	require.Equal(t, 2, dev.LiveTextures())
	require.Equal(t, 1, dev.LiveVertexArrays())

	m.Release()
	m.Release()
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveVertexArrays())
	assert.Equal(t, 2, dev.Count("DeleteTexture"))
	assert.Equal(t, 1, dev.Count("DeleteVertexArray"))
	assert.Zero(t, m.Cache().Len())
}

func TestModelWireframe(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()
	m, err := Load(dev, quadModel(t))
	require.NoError(t, err)

	m.SetWireframe(true)
	m.Draw(&uniformLog{})
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gfx.Wireframe, dev.Draws[0].Mode)
}

// writeGLB saves a one-triangle binary glTF whose texture is embedded.
func writeGLB(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	img, err := modeler.WriteImage(doc, "tex", "image/png",
		bytes.NewReader(pngBytes(t, 3, 1, color.RGBA{0, 255, 0, 255})))
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(img)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "Green",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "Tri",
		Primitives: []*gltf.Primitive{{
			Indices:  gltf.Index(idx),
			Material: gltf.Index(0),
			Attributes: map[string]int{
				gltf.POSITION:   pos,
				gltf.NORMAL:     nrm,
				gltf.TEXCOORD_0: uv,
			},
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "Tri", Mesh: gltf.Index(0)})
	doc.Scene = gltf.Index(0)
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}

	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestLoadSkipsMeshWithoutFaces(t *testing.T) {
	noFatal(t)
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	tri := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	pair := modeler.WriteIndices(doc, []uint16{0, 1})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "M",
		Primitives: []*gltf.Primitive{
			{Indices: gltf.Index(tri), Attributes: map[string]int{gltf.POSITION: pos}},
			{Indices: gltf.Index(pair), Attributes: map[string]int{gltf.POSITION: pos}},
		},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "M", Mesh: gltf.Index(0)})
	doc.Scene = gltf.Index(0)
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	path := filepath.Join(t.TempDir(), "m.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	dev := gfxtest.New()
	m, err := Load(dev, path)
	require.NoError(t, err)
	require.Len(t, m.Meshes, 1)
	assert.Equal(t, 1, m.TriangleCount())
	assert.Equal(t, 1, dev.Count("CreateVertexArray"))
}

func TestNewMeshRejectsEmpty(t *testing.T) {
	_, err := NewMesh(gfxtest.New(), nil, nil, nil, [3]math3d.Vec3{}, 1)
	assert.ErrorIs(t, err, gfx.ErrEmptyVertexArray)
}

func TestLoadGLBEmbeddedTexture(t *testing.T) {
	noFatal(t)
	dev := gfxtest.New()

	m, err := Load(dev, writeGLB(t))
	require.NoError(t, err)
	require.Len(t, m.Meshes, 1)

	tex := m.Meshes[0].Textures
	require.Len(t, tex, 1)
	assert.Equal(t, "*0", tex[0].Path)
	assert.Equal(t, SemanticDiffuse, tex[0].Type)

	img, ok := dev.Texture(tex[0].ID)
	require.True(t, ok)
	assert.Equal(t, 3, img.Rect.Dx())
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(2, 0))
}

func TestTextureCache(t *testing.T) {
	c := NewTextureCache()
	a := &Texture{ID: 1, Path: "a.png"}
	c.Insert(a)
	c.Insert(&Texture{ID: 2, Path: "b.png"})
	c.Insert(&Texture{ID: 3, Path: "a.png"})

	assert.Equal(t, 2, c.Len())
	got, ok := c.Lookup("a.png")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = c.Lookup("A.png")
	assert.False(t, ok, "paths are compared exactly")

	list := c.Textures()
	require.Len(t, list, 2)
	assert.Equal(t, gfx.Texture(1), list[0].ID)
	assert.Equal(t, gfx.Texture(2), list[1].ID)
}
