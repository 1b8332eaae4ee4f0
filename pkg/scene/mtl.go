package scene

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var errNoMaterial = errors.New("material property before newmtl")

// mtlTextures maps MTL texture statements to texture roles.
var mtlTextures = map[string]TextureType{
	"map_Kd":   TextureDiffuse,
	"map_Ks":   TextureSpecular,
	"map_Ka":   TextureAmbient,
	"map_bump": TextureHeight,
	"map_Bump": TextureHeight,
	"bump":     TextureHeight,
	"map_Kn":   TextureNormals,
	"norm":     TextureNormals,
	"map_d":    TextureOpacity,
}

// texture options that take arguments, with their argument counts
var mtlOptionArgs = map[string]int{
	"-blendu": 1, "-blendv": 1, "-bm": 1, "-boost": 1, "-cc": 1,
	"-clamp": 1, "-imfchan": 1, "-mm": 2, "-o": 3, "-s": 3, "-t": 3,
	"-texres": 1, "-type": 1,
}

func (dec *objDecoder) readMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var current *Material
	return dec.parse(f, func(fields []string) error {
		args := fields[1:]
		if fields[0] == "newmtl" {
			if len(args) < 1 {
				return dec.formatError("newmtl with no fields")
			}
			name := strings.Join(args, " ")
			current = NewMaterial(name)
			dec.materials[name] = current
			return nil
		}
		if current == nil {
			return dec.formatError(errNoMaterial.Error())
		}
		return dec.parseMtlLine(current, fields[0], args)
	})
}

func (dec *objDecoder) parseMtlLine(m *Material, kind string, args []string) error {
	switch kind {
	case "Ka", "Kd", "Ks":
		c, err := dec.parseVec3(kind, args)
		if err != nil {
			return err
		}
		m.Colors[map[string]ColorKind{"Ka": ColorAmbient, "Kd": ColorDiffuse, "Ks": ColorSpecular}[kind]] = c
	case "Ns":
		v, err := dec.parseFloat(kind, args)
		if err != nil {
			return err
		}
		m.Shininess, m.HasShininess = v, true
	case "d":
		v, err := dec.parseFloat(kind, args)
		if err != nil {
			return err
		}
		m.Opacity = v
	case "Tr":
		v, err := dec.parseFloat(kind, args)
		if err != nil {
			return err
		}
		m.Opacity = 1 - v
	default:
		typ, ok := mtlTextures[kind]
		if !ok {
			// Ke, Ni, illum and friends
			return nil
		}
		file := textureFile(args)
		if file == "" {
			return dec.formatError(kind + " with no file")
		}
		m.addTexture(typ, file)
	}
	return nil
}

func (dec *objDecoder) parseFloat(kind string, args []string) (float64, error) {
	if len(args) < 1 {
		return 0, dec.formatError(kind + " with no fields")
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, dec.formatError(fmt.Sprintf("%s: %v", kind, err))
	}
	return v, nil
}

// textureFile skips texture options and returns the file name, which may
// contain spaces.
func textureFile(args []string) string {
	i := 0
	for i < len(args) && strings.HasPrefix(args[i], "-") {
		n, ok := mtlOptionArgs[args[i]]
		if !ok {
			n = 1
		}
		i += 1 + n
	}
	if i >= len(args) {
		return ""
	}
	return strings.Join(args[i:], " ")
}
