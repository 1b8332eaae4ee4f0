// Package scene imports model files into a format-neutral scene graph.
//
// ReadFile picks a reader by file extension, then applies the requested
// post-processing steps. The graph mirrors what general purpose asset
// importers produce: meshes and materials are stored flat on the Scene and
// nodes refer to meshes by index.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/nanoview/pkg/math3d"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrIncomplete        = errors.New("incomplete scene")
)

// Process selects post-processing steps for ReadFile.
type Process uint

const (
	// Triangulate splits polygons into triangle fans and drops faces with
	// fewer than three corners.
	Triangulate Process = 1 << iota
	// FlipUVs maps v to 1-v so that v=0 addresses the first image row.
	FlipUVs
	// CalcTangentSpace derives per-vertex tangents and bitangents from
	// positions, normals and texture coordinates.
	CalcTangentSpace
)

// Flags describe the state of an imported scene.
type Flags uint

const (
	// FlagIncomplete marks a scene that cannot be rendered as is.
	FlagIncomplete Flags = 1 << iota
)

// Scene is an imported model.
type Scene struct {
	Meshes    []*Mesh
	Materials []*Material
	Root      *Node
	// Textures are images stored inside the model file. Materials refer to
	// them as "*N", N being the index here.
	Textures []Embedded
	Flags    Flags
}

// Validate reports ErrIncomplete for a scene without a root node or one
// flagged incomplete by its reader.
func (s *Scene) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil scene", ErrIncomplete)
	case s.Flags&FlagIncomplete != 0:
		return ErrIncomplete
	case s.Root == nil:
		return fmt.Errorf("%w: no root node", ErrIncomplete)
	}
	return nil
}

// Embedded returns the embedded texture a "*N" reference names.
func (s *Scene) Embedded(ref string) (*Embedded, bool) {
	if !strings.HasPrefix(ref, "*") {
		return nil, false
	}
	i, err := strconv.Atoi(ref[1:])
	if err != nil || i < 0 || i >= len(s.Textures) {
		return nil, false
	}
	return &s.Textures[i], true
}

// Node is a scene graph node.
type Node struct {
	Name      string
	Transform math3d.Mat4 // relative to the parent
	Meshes    []int       // indices into Scene.Meshes
	Children  []*Node
}

// Mesh is indexed geometry with a single material. Optional attributes are
// either nil or as long as Positions.
type Mesh struct {
	Name       string
	Positions  []math3d.Vec3
	Normals    []math3d.Vec3
	TexCoords  []math3d.Vec2
	Tangents   []math3d.Vec3
	Bitangents []math3d.Vec3
	// Faces are polygons as lists of vertex indices.
	Faces         [][]int
	MaterialIndex int
}

// ColorKind selects a material color.
type ColorKind int

const (
	ColorAmbient ColorKind = iota
	ColorDiffuse
	ColorSpecular
)

// TextureType is the role a texture plays in a material.
type TextureType int

const (
	TextureDiffuse TextureType = iota
	TextureSpecular
	TextureAmbient
	TextureHeight
	TextureNormals
	TextureLightmap
	TextureOpacity
)

func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureSpecular:
		return "specular"
	case TextureAmbient:
		return "ambient"
	case TextureHeight:
		return "height"
	case TextureNormals:
		return "normals"
	case TextureLightmap:
		return "lightmap"
	case TextureOpacity:
		return "opacity"
	default:
		return "unknown"
	}
}

// Material holds the properties a model file defined. Absent properties are
// absent from the maps.
type Material struct {
	Name         string
	Colors       map[ColorKind]math3d.Vec3
	Shininess    float64
	HasShininess bool
	Opacity      float64
	// Textures lists texture paths per role, as written in the file.
	Textures map[TextureType][]string
}

// NewMaterial returns a material with no properties.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Colors:   make(map[ColorKind]math3d.Vec3),
		Opacity:  1,
		Textures: make(map[TextureType][]string),
	}
}

// Color returns the color of kind k, if defined.
func (m *Material) Color(k ColorKind) (math3d.Vec3, bool) {
	c, ok := m.Colors[k]
	return c, ok
}

// TextureCount returns how many textures of type t the material has.
func (m *Material) TextureCount(t TextureType) int {
	return len(m.Textures[t])
}

// Texture returns the i-th texture path of type t.
func (m *Material) Texture(t TextureType, i int) string {
	return m.Textures[t][i]
}

func (m *Material) addTexture(t TextureType, path string) {
	m.Textures[t] = append(m.Textures[t], path)
}

// Embedded is an image stored inside a model file.
type Embedded struct {
	Data     []byte
	MimeType string
}

// ReadFile imports the model at path and applies the steps in proc.
func ReadFile(path string, proc Process) (*Scene, error) {
	var (
		sc  *Scene
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		sc, err = readOBJ(path)
	case ".gltf", ".glb":
		sc, err = readGLTF(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if proc&Triangulate != 0 {
		for _, m := range sc.Meshes {
			triangulate(m)
		}
	}
	if proc&FlipUVs != 0 {
		for _, m := range sc.Meshes {
			flipUVs(m)
		}
	}
	if proc&CalcTangentSpace != 0 {
		for _, m := range sc.Meshes {
			if !calcTangentSpace(m) {
				slog.Debug("tangent space skipped", "path", path, "mesh", m.Name)
			}
		}
	}
	return sc, nil
}
