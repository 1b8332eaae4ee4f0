package models

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/scene"
)

// Fatal handles texture decode failures, which the viewer cannot recover
// from. Tests replace it.
var Fatal = func(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

// Slot maps a material texture type to the sampler semantic it binds to.
type Slot struct {
	Type     scene.TextureType
	Semantic Semantic
}

// DefaultSlots is the texture slot table, in binding order. Height maps
// feed the normal samplers and ambient maps the height samplers, which is
// how OBJ exporters commonly store normal maps.
var DefaultSlots = []Slot{
	{scene.TextureDiffuse, SemanticDiffuse},
	{scene.TextureSpecular, SemanticSpecular},
	{scene.TextureHeight, SemanticNormal},
	{scene.TextureAmbient, SemanticHeight},
}

// Material defaults for properties a model does not define.
var (
	DefaultAmbient   = math3d.Splat3(0.2)
	DefaultDiffuse   = math3d.Splat3(1)
	DefaultSpecular  = math3d.Splat3(1)
	DefaultShininess = 1.0
)

// importFlags are the post-processing steps every model is read with.
const importFlags = scene.Triangulate | scene.FlipUVs | scene.CalcTangentSpace

type options struct {
	slots      []Slot
	cache      *TextureCache
	maxTexture int
	texture    gfx.TextureOptions
}

// Option configures Load.
type Option func(*options)

// WithSlots replaces the texture slot table.
func WithSlots(slots []Slot) Option {
	return func(o *options) { o.slots = slots }
}

// WithCache makes the model load textures through c. The caller owns c:
// Model.Release leaves its textures alone and c.Release frees them.
func WithCache(c *TextureCache) Option {
	return func(o *options) { o.cache = c }
}

// WithMaxTextureSize downscales textures whose larger side exceeds n.
// Zero disables downscaling.
func WithMaxTextureSize(n int) Option {
	return func(o *options) { o.maxTexture = n }
}

// WithTextureOptions sets the sampling options textures are created with.
func WithTextureOptions(t gfx.TextureOptions) Option {
	return func(o *options) { o.texture = t }
}

// Model is a set of meshes loaded from one file, sharing a texture cache.
type Model struct {
	Meshes    []*Mesh
	Path      string
	Directory string

	dev       gfx.Device
	cache     *TextureCache
	opts      options
	wireframe bool
	released  bool
	ownsCache bool
}

// Load imports the model at path and uploads its meshes. A file that
// cannot be imported is logged and yields a model with no meshes and no
// error; callers check Empty. Errors are returned only for device
// failures.
func Load(dev gfx.Device, path string, opts ...Option) (*Model, error) {
	o := options{
		slots:      DefaultSlots,
		maxTexture: DefaultMaxTextureSize,
		texture:    gfx.TextureOptions{Wrap: gfx.WrapRepeat, Mipmaps: true},
	}
	for _, opt := range opts {
		opt(&o)
	}
	owns := o.cache == nil
	if owns {
		o.cache = NewTextureCache()
	}

	m := &Model{
		Path:      path,
		dev:       dev,
		cache:     o.cache,
		opts:      o,
		ownsCache: owns,
	}

	sc, err := scene.ReadFile(path, importFlags)
	if err == nil {
		err = sc.Validate()
	}
	if err != nil {
		slog.Error("import model", "path", path, "err", err)
		return m, nil
	}
	m.Directory = filepath.Dir(path)

	if err := m.processNode(sc.Root, sc); err != nil {
		m.Release()
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	slog.Info("model loaded", "path", path, "meshes", len(m.Meshes), "textures", m.cache.Len())
	return m, nil
}

// processNode converts the meshes of n, then its children, depth first.
func (m *Model) processNode(n *scene.Node, sc *scene.Scene) error {
	for _, idx := range n.Meshes {
		sm := sc.Meshes[idx]
		if len(sm.Faces) == 0 || len(sm.Positions) == 0 {
			slog.Warn("skip mesh without faces", "path", m.Path, "mesh", sm.Name)
			continue
		}
		mesh, err := m.processMesh(sm, sc)
		if err != nil {
			return err
		}
		m.Meshes = append(m.Meshes, mesh)
	}
	for _, c := range n.Children {
		if err := m.processNode(c, sc); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) processMesh(sm *scene.Mesh, sc *scene.Scene) (*Mesh, error) {
	vertices := make([]Vertex, len(sm.Positions))
	for i, p := range sm.Positions {
		v := Vertex{Position: p}
		if i < len(sm.Normals) {
			v.Normal = sm.Normals[i]
		}
		if i < len(sm.TexCoords) {
			v.TexCoords = sm.TexCoords[i]
		}
		if i < len(sm.Tangents) {
			v.Tangent = sm.Tangents[i]
		}
		if i < len(sm.Bitangents) {
			v.Bitangent = sm.Bitangents[i]
		}
		vertices[i] = v
	}

	var indices []uint32
	for _, f := range sm.Faces {
		for _, idx := range f {
			indices = append(indices, uint32(idx))
		}
	}

	colors := [3]math3d.Vec3{DefaultAmbient, DefaultDiffuse, DefaultSpecular}
	shininess := DefaultShininess
	var textures []*Texture
	if sm.MaterialIndex >= 0 && sm.MaterialIndex < len(sc.Materials) {
		mat := sc.Materials[sm.MaterialIndex]
		for _, slot := range m.opts.slots {
			textures = append(textures, m.materialTextures(mat, slot, sc)...)
		}
		for i, kind := range []scene.ColorKind{scene.ColorAmbient, scene.ColorDiffuse, scene.ColorSpecular} {
			if c, ok := mat.Color(kind); ok {
				colors[i] = c
			}
		}
		if mat.HasShininess {
			shininess = mat.Shininess
		}
	}

	mesh, err := NewMesh(m.dev, vertices, indices, textures, colors, shininess)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", sm.Name, err)
	}
	return mesh, nil
}

// materialTextures returns the textures of one slot, loading each path
// the first time it is seen.
func (m *Model) materialTextures(mat *scene.Material, slot Slot, sc *scene.Scene) []*Texture {
	var out []*Texture
	for i := range mat.TextureCount(slot.Type) {
		ref := mat.Texture(slot.Type, i)
		if t, ok := m.cache.Lookup(ref); ok {
			if t.Type != slot.Semantic {
				// same image in another slot: share the upload, not the role
				alias := *t
				alias.Type = slot.Semantic
				t = &alias
			}
			out = append(out, t)
			continue
		}
		t, err := m.loadTexture(ref, sc)
		if err != nil {
			Fatal("load texture", "path", ref, "model", m.Path, "err", err)
			continue
		}
		t.Type = slot.Semantic
		m.cache.Insert(t)
		out = append(out, t)
	}
	return out
}

func (m *Model) loadTexture(ref string, sc *scene.Scene) (*Texture, error) {
	var (
		img *image.RGBA
		err error
	)
	if emb, ok := sc.Embedded(ref); ok {
		img, err = decodeImage(emb.Data, embeddedName(ref, emb.MimeType), m.opts.maxTexture)
	} else {
		path := filepath.Join(m.Directory, filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/")))
		img, err = readImageFile(path, m.opts.maxTexture)
	}
	if err != nil {
		return nil, err
	}

	id, err := m.dev.CreateTexture(img, m.opts.texture)
	if err != nil {
		return nil, fmt.Errorf("upload texture: %w", err)
	}
	slog.Debug("texture loaded", "path", ref, "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return &Texture{
		ID:     id,
		Path:   ref,
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
	}, nil
}

// embeddedName gives an embedded image a file name whose extension
// matches its MIME type, for format fallback and diagnostics.
func embeddedName(ref, mimeType string) string {
	sub, ok := strings.CutPrefix(mimeType, "image/")
	if !ok || sub == "" {
		return ref
	}
	return ref + "." + sub
}

// Empty reports whether the model has no meshes, as after a failed import.
func (m *Model) Empty() bool { return len(m.Meshes) == 0 }

// Cache returns the model's texture cache.
func (m *Model) Cache() *TextureCache { return m.cache }

// SetWireframe draws the model's triangle edges instead of filled faces.
func (m *Model) SetWireframe(on bool) { m.wireframe = on }

// Draw draws every mesh in load order with p, which must be in use.
func (m *Model) Draw(p Program) {
	mode := gfx.Triangles
	if m.wireframe {
		mode = gfx.Wireframe
	}
	for _, mesh := range m.Meshes {
		mesh.draw(p, mode)
	}
}

// Bounds returns the box enclosing every mesh.
func (m *Model) Bounds() (lo, hi math3d.Vec3) {
	for i, mesh := range m.Meshes {
		if i == 0 {
			lo, hi = mesh.BoundsMin, mesh.BoundsMax
			continue
		}
		lo = lo.Min(mesh.BoundsMin)
		hi = hi.Max(mesh.BoundsMax)
	}
	return lo, hi
}

// TriangleCount returns the number of triangles over all meshes.
func (m *Model) TriangleCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += mesh.TriangleCount()
	}
	return n
}

// Release frees the meshes, and the cached textures unless the cache was
// passed in with WithCache. Calling Release again does nothing.
func (m *Model) Release() {
	if m.released {
		return
	}
	m.released = true
	for _, mesh := range m.Meshes {
		mesh.Release()
	}
	if m.ownsCache {
		m.cache.Release(m.dev)
	}
}
