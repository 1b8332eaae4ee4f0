package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/gfx/gfxtest"
	"github.com/taigrr/nanoview/pkg/math3d"
)

func writeSources(t *testing.T, vs, fs string) Sources {
	t.Helper()
	dir := t.TempDir()
	src := Sources{
		Vertex:   filepath.Join(dir, "test.vs"),
		Fragment: filepath.Join(dir, "test.frag"),
	}
	require.NoError(t, os.WriteFile(src.Vertex, []byte(vs), 0o644))
	require.NoError(t, os.WriteFile(src.Fragment, []byte(fs), 0o644))
	return src
}

func TestLoad(t *testing.T) {
	dev := gfxtest.New()
	p := Load(dev, writeSources(t, "vertex", "fragment"))

	require.NoError(t, p.Err())
	assert.True(t, p.Valid())
	assert.Equal(t, 2, dev.Count("CreateShader"))
	assert.Equal(t, 1, dev.Count("CreateProgram"))
	assert.Zero(t, dev.LiveShaders(), "stage objects are released after linking")
	assert.Equal(t, 1, dev.LivePrograms())
}

func TestLoadWithGeometry(t *testing.T) {
	dev := gfxtest.New()
	src := writeSources(t, "vertex", "fragment")
	src.Geometry = filepath.Join(filepath.Dir(src.Vertex), "test.gs")
	require.NoError(t, os.WriteFile(src.Geometry, []byte("geometry"), 0o644))

	p := Load(dev, src)
	require.NoError(t, p.Err())
	assert.Equal(t, 3, dev.Count("CreateShader"))
	assert.Len(t, src.Paths(), 3)
}

func TestLoadMissingFile(t *testing.T) {
	dev := gfxtest.New()
	src := writeSources(t, "vertex", "fragment")
	src.Fragment = filepath.Join(t.TempDir(), "missing.frag")

	p := Load(dev, src)
	assert.False(t, p.Valid())
	assert.ErrorIs(t, p.Err(), os.ErrNotExist)
	assert.ErrorIs(t, p.Err(), gfx.ErrCompile, "missing source compiles as empty")
	assert.Zero(t, dev.Count("CreateProgram"))
	assert.Zero(t, dev.LiveShaders())
}

func TestLoadCompileFailure(t *testing.T) {
	dev := gfxtest.New()
	dev.CompileErr = func(stage gfx.Stage, src string) error {
		if stage == gfx.FragmentStage {
			return errors.New("0:1: syntax error")
		}
		return nil
	}

	p := Load(dev, writeSources(t, "vertex", "fragment"))
	assert.False(t, p.Valid())
	assert.ErrorIs(t, p.Err(), gfx.ErrCompile)
	assert.Contains(t, p.Err().Error(), "syntax error")
}

func TestLoadLinkFailure(t *testing.T) {
	dev := gfxtest.New()
	dev.LinkErr = func([]gfx.Shader) error { return errors.New("varying mismatch") }

	p := Load(dev, writeSources(t, "vertex", "fragment"))
	assert.False(t, p.Valid())
	assert.ErrorIs(t, p.Err(), gfx.ErrLink)
	assert.Zero(t, dev.LiveShaders())
}

func TestSetters(t *testing.T) {
	dev := gfxtest.New()
	p := Load(dev, writeSources(t, "vertex", "fragment"))
	p.Use()
	require.Equal(t, p.ID(), dev.Current())

	p.SetBool("flag", true)
	p.SetInt("unit", 3)
	p.SetFloat("shininess", 4)
	p.SetVec2f("uv", 1, 2)
	p.SetVec3f("color", 1, 0.5, 0.31)
	p.SetVec4("tint", math3d.V4(1, 2, 3, 4))
	p.SetMat3("normalMatrix", math3d.Identity3())
	p.SetMat4("model", math3d.Translate(math3d.V3(1, 2, 3)))

	get := func(name string) any {
		v, ok := dev.Uniform(p.ID(), name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, int32(1), get("flag"))
	assert.Equal(t, int32(3), get("unit"))
	assert.Equal(t, float32(4), get("shininess"))
	assert.Equal(t, mgl32.Vec2{1, 2}, get("uv"))
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.31}, get("color"))
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 4}, get("tint"))
	assert.Equal(t, mgl32.Ident3(), get("normalMatrix"))
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), get("model"))
}

func TestSetterLooksUpEveryCall(t *testing.T) {
	dev := gfxtest.New()
	p := Load(dev, writeSources(t, "vertex", "fragment"))
	p.Use()

	before := dev.Count("UniformLocation")
	p.SetFloat("x", 1)
	p.SetFloat("x", 2)
	assert.Equal(t, before+2, dev.Count("UniformLocation"))
}

func TestSetterInactiveUniform(t *testing.T) {
	dev := gfxtest.New()
	dev.Inactive = map[string]bool{"unused": true}
	p := Load(dev, writeSources(t, "vertex", "fragment"))
	p.Use()

	p.SetFloat("unused", 1)
	_, ok := dev.Uniform(p.ID(), "unused")
	assert.False(t, ok)
}

func TestDeleteOnce(t *testing.T) {
	dev := gfxtest.New()
	p := Load(dev, writeSources(t, "vertex", "fragment"))

	p.Delete()
	p.Delete()
	assert.Equal(t, 1, dev.Count("DeleteProgram"))
	assert.False(t, p.Valid())
}

func TestReload(t *testing.T) {
	dev := gfxtest.New()
	src := writeSources(t, "vertex", "fragment")
	p := Load(dev, src)
	old := p.ID()

	require.NoError(t, p.Reload())
	assert.NotEqual(t, old, p.ID())
	assert.Equal(t, 1, dev.LivePrograms())
}

func TestReloadKeepsProgramOnFailure(t *testing.T) {
	dev := gfxtest.New()
	src := writeSources(t, "vertex", "fragment")
	p := Load(dev, src)
	old := p.ID()

	require.NoError(t, os.WriteFile(src.Fragment, nil, 0o644))
	err := p.Reload()
	assert.ErrorIs(t, err, gfx.ErrCompile)
	assert.Equal(t, old, p.ID())
	assert.NoError(t, p.Err())
}

func TestReloadRecoversInvalidProgram(t *testing.T) {
	dev := gfxtest.New()
	src := writeSources(t, "vertex", "")
	p := Load(dev, src)
	require.False(t, p.Valid())

	require.NoError(t, os.WriteFile(src.Fragment, []byte("fragment"), 0o644))
	require.NoError(t, p.Reload())
	assert.True(t, p.Valid())
	assert.NoError(t, p.Err())
}
