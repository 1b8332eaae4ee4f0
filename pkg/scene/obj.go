package scene

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/nanoview/pkg/math3d"
)

const defaultMaterial = "DefaultMaterial"

// objDecoder holds the state of one Wavefront OBJ decode.
type objDecoder struct {
	dir       string
	objects   []*objObject
	matlibs   []string
	materials map[string]*Material
	vertices  []math3d.Vec3
	normals   []math3d.Vec3
	uvs       []math3d.Vec2
	warnings  []string
	line      int

	current  *objObject
	material string
}

type objObject struct {
	name  string
	faces []objFace
}

// objFace is a polygon. Missing uv and normal indices are -1.
type objFace struct {
	vertices []int
	uvs      []int
	normals  []int
	material string
}

func readOBJ(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	dec := &objDecoder{
		dir:       filepath.Dir(path),
		materials: make(map[string]*Material),
	}
	if err := dec.parse(f, dec.parseObjLine); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	for _, lib := range dec.matlibs {
		if err := dec.readMTL(filepath.Join(dec.dir, lib)); err != nil {
			dec.warn("mtl", fmt.Sprintf("material library %s: %v", lib, err))
		}
	}
	sc := dec.scene(filepath.Base(path))
	for _, w := range dec.warnings {
		slog.Warn("obj import", "path", path, "warning", w)
	}
	return sc, nil
}

// parse reads lines from r and dispatches them to parseLine.
func (dec *objDecoder) parse(r io.Reader, parseLine func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	dec.line = 0
	for sc.Scan() {
		dec.line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := parseLine(fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (dec *objDecoder) parseObjLine(fields []string) error {
	args := fields[1:]
	switch fields[0] {
	case "mtllib":
		if len(args) < 1 {
			return dec.formatError("mtllib with no fields")
		}
		dec.matlibs = append(dec.matlibs, strings.Join(args, " "))
	case "o", "g":
		name := "unnamed"
		if len(args) > 0 {
			name = strings.Join(args, " ")
		}
		dec.beginObject(name)
	case "v":
		v, err := dec.parseVec3(fields[0], args)
		if err != nil {
			return err
		}
		dec.vertices = append(dec.vertices, v)
	case "vn":
		v, err := dec.parseVec3(fields[0], args)
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, v)
	case "vt":
		if len(args) < 1 {
			return dec.formatError("vt with no fields")
		}
		var uv [2]float64
		for i := 0; i < 2 && i < len(args); i++ {
			f, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return dec.formatError("vt: " + err.Error())
			}
			uv[i] = f
		}
		dec.uvs = append(dec.uvs, math3d.V2(uv[0], uv[1]))
	case "f":
		return dec.parseFace(args)
	case "usemtl":
		if len(args) < 1 {
			return dec.formatError("usemtl with no fields")
		}
		dec.material = strings.Join(args, " ")
	case "s", "l", "p":
		// smoothing groups, lines and points carry nothing we draw
	default:
		dec.warn("obj", "field not supported: "+fields[0])
	}
	return nil
}

func (dec *objDecoder) beginObject(name string) {
	dec.current = &objObject{name: name}
	dec.objects = append(dec.objects, dec.current)
}

func (dec *objDecoder) parseVec3(kind string, args []string) (math3d.Vec3, error) {
	if len(args) < 3 {
		return math3d.Vec3{}, dec.formatError(kind + " with less than 3 fields")
	}
	var c [3]float64
	for i := range 3 {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return math3d.Vec3{}, dec.formatError(kind + ": " + err.Error())
		}
		c[i] = f
	}
	return math3d.V3(c[0], c[1], c[2]), nil
}

// resolve turns a 1-based or negative (relative) OBJ index into a 0-based
// index into a list of n elements.
func (dec *objDecoder) resolve(field string, n int) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, dec.formatError("face index: " + err.Error())
	}
	switch {
	case v > 0:
		v--
	case v < 0:
		v += n
	default:
		return 0, dec.formatError("face index 0")
	}
	if v < 0 || v >= n {
		return 0, dec.formatError(fmt.Sprintf("face index %s out of range", field))
	}
	return v, nil
}

// parseFace parses f v1[/vt1][/vn1] v2[/vt2][/vn2] ...
func (dec *objDecoder) parseFace(args []string) error {
	if len(args) < 3 {
		return dec.formatError("face with less than 3 vertices")
	}
	if dec.current == nil {
		dec.beginObject("defaultobject")
	}

	face := objFace{
		vertices: make([]int, len(args)),
		uvs:      make([]int, len(args)),
		normals:  make([]int, len(args)),
		material: dec.material,
	}
	for i, a := range args {
		parts := strings.Split(a, "/")

		v, err := dec.resolve(parts[0], len(dec.vertices))
		if err != nil {
			return err
		}
		face.vertices[i] = v

		face.uvs[i] = -1
		if len(parts) > 1 && parts[1] != "" {
			if face.uvs[i], err = dec.resolve(parts[1], len(dec.uvs)); err != nil {
				return err
			}
		}

		face.normals[i] = -1
		if len(parts) > 2 && parts[2] != "" {
			if face.normals[i], err = dec.resolve(parts[2], len(dec.normals)); err != nil {
				return err
			}
		}
	}
	dec.current.faces = append(dec.current.faces, face)
	return nil
}

func (dec *objDecoder) formatError(msg string) error {
	return fmt.Errorf("%s in line %d", msg, dec.line)
}

func (dec *objDecoder) warn(kind, msg string) {
	dec.warnings = append(dec.warnings, fmt.Sprintf("%s(%d): %s", kind, dec.line, msg))
}

// scene builds the scene graph: a root node with one child per object, and
// one mesh per run of faces sharing a material.
func (dec *objDecoder) scene(name string) *Scene {
	sc := &Scene{
		Root: &Node{Name: name, Transform: math3d.Identity()},
	}
	matIndex := make(map[string]int)
	materialFor := func(name string) int {
		if name == "" {
			name = defaultMaterial
		}
		if i, ok := matIndex[name]; ok {
			return i
		}
		m, ok := dec.materials[name]
		if !ok {
			if name != defaultMaterial {
				dec.warn("obj", "undefined material "+name)
			}
			m = NewMaterial(name)
		}
		matIndex[name] = len(sc.Materials)
		sc.Materials = append(sc.Materials, m)
		return matIndex[name]
	}

	for _, obj := range dec.objects {
		if len(obj.faces) == 0 {
			continue
		}
		node := &Node{Name: obj.name, Transform: math3d.Identity()}

		var mesh *Mesh
		part := 0
		for fi := range obj.faces {
			face := &obj.faces[fi]
			mat := materialFor(face.material)
			if mesh == nil || mesh.MaterialIndex != mat {
				mesh = &Mesh{Name: fmt.Sprintf("%s_%d", obj.name, part), MaterialIndex: mat}
				part++
				node.Meshes = append(node.Meshes, len(sc.Meshes))
				sc.Meshes = append(sc.Meshes, mesh)
			}
			dec.appendFace(mesh, face)
		}
		sc.Root.Children = append(sc.Root.Children, node)
	}

	if len(sc.Meshes) == 0 {
		sc.Flags |= FlagIncomplete
	}
	return sc
}

// appendFace copies a face into mesh with one new vertex per corner.
func (dec *objDecoder) appendFace(mesh *Mesh, face *objFace) {
	hasUV, hasNormal := false, false
	for i := range face.vertices {
		hasUV = hasUV || face.uvs[i] >= 0
		hasNormal = hasNormal || face.normals[i] >= 0
	}
	base := len(mesh.Positions)
	if hasUV && mesh.TexCoords == nil {
		mesh.TexCoords = make([]math3d.Vec2, base)
	}
	if hasNormal && mesh.Normals == nil {
		mesh.Normals = make([]math3d.Vec3, base)
	}

	idx := make([]int, len(face.vertices))
	for i, v := range face.vertices {
		idx[i] = len(mesh.Positions)
		mesh.Positions = append(mesh.Positions, dec.vertices[v])
		if mesh.TexCoords != nil {
			var uv math3d.Vec2
			if face.uvs[i] >= 0 {
				uv = dec.uvs[face.uvs[i]]
			}
			mesh.TexCoords = append(mesh.TexCoords, uv)
		}
		if mesh.Normals != nil {
			var n math3d.Vec3
			if face.normals[i] >= 0 {
				n = dec.normals[face.normals[i]]
			}
			mesh.Normals = append(mesh.Normals, n)
		}
	}
	mesh.Faces = append(mesh.Faces, idx)
}
