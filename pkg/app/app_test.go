package app

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/nanoview/pkg/config"
	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/gfx/gfxtest"
	"github.com/taigrr/nanoview/pkg/input"
	"github.com/taigrr/nanoview/pkg/math3d"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig points every asset at fixtures in a temp directory.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Shaders.Lamp = config.Shader{
		Vertex:   write(t, dir, "lamp.vs", "lamp vertex"),
		Fragment: write(t, dir, "lamp.frag", "lamp fragment"),
	}
	cfg.Shaders.Nano = config.Shader{
		Vertex:   write(t, dir, "nano.vs", "nano vertex"),
		Fragment: write(t, dir, "nano.frag", "nano fragment"),
	}
	cfg.Models.Lamp = write(t, dir, "cube.obj", triangleOBJ)
	cfg.Models.Nano = write(t, dir, "nano.obj", triangleOBJ)
	return cfg
}

type fixture struct {
	app     *App
	dev     *gfxtest.Recorder
	surface *Offscreen
}

func newFixture(t *testing.T, cfg config.Config) fixture {
	t.Helper()
	dev := gfxtest.New()
	surface := NewOffscreen(800, 600)
	a, err := New(cfg, dev, surface)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return fixture{app: a, dev: dev, surface: surface}
}

func (f fixture) frame(t *testing.T, dt float64) {
	t.Helper()
	f.surface.Advance(dt)
	more, err := f.app.Frame()
	require.NoError(t, err)
	require.True(t, more)
}

func (f fixture) nanoUniform(t *testing.T, name string) any {
	t.Helper()
	v, ok := f.dev.Uniform(f.app.nanoProgram.ID(), name)
	require.True(t, ok, "uniform %s not set", name)
	return v
}

func TestFrameDrawsLampThenModel(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.frame(t, 0.016)

	ops := f.dev.Ops()
	first := -1
	for i, op := range ops {
		if op == "Viewport" {
			first = i
			break
		}
	}
	require.GreaterOrEqual(t, first, 0)
	assert.Equal(t, "Clear", ops[first+1])

	require.Len(t, f.dev.Draws, 2)
	assert.Equal(t, f.app.lampProgram.ID(), f.dev.Draws[0].Program)
	assert.Equal(t, f.app.nanoProgram.ID(), f.dev.Draws[1].Program)
	assert.Equal(t, gfx.Triangles, f.dev.Draws[1].Mode)
	assert.Equal(t, 1, f.surface.Frames())
	assert.Equal(t, 1, f.app.Frames())
	assert.Equal(t, 2, f.app.TriangleCount())

	f.frame(t, 0.016)
	assert.Equal(t, 1, f.dev.Count("Viewport"), "viewport follows size changes only")
	f.surface.Width = 400
	f.frame(t, 0.016)
	assert.Equal(t, 2, f.dev.Count("Viewport"))
}

func TestFirstFrameUsesStartingLight(t *testing.T) {
	f := newFixture(t, testConfig(t))

	f.frame(t, 0.016)
	assert.Equal(t, mgl32.Vec3{0.8, 0.8, 0.8}, f.nanoUniform(t, "light.ambient"))
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, f.nanoUniform(t, "light.diffuse"))

	f.frame(t, 0.016)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, f.nanoUniform(t, "light.ambient"))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, f.nanoUniform(t, "light.specular"))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, f.nanoUniform(t, "material.color"))
}

func TestLampOrbits(t *testing.T) {
	f := newFixture(t, testConfig(t))

	f.frame(t, math.Pi) // t*0.5 = pi/2
	assert.InDelta(t, 1, f.app.Lamp.Position.X, 1e-9)
	assert.InDelta(t, 0, f.app.Lamp.Position.Z, 1e-9)
	assert.Equal(t, 2.75, f.app.Lamp.Position.Y)

	// The uniform lags the orbit by one frame.
	f.frame(t, math.Pi)
	got := f.nanoUniform(t, "light.position").(mgl32.Vec3)
	assert.InDelta(t, 1, got.X(), 1e-6)
	assert.InDelta(t, -1, f.app.Lamp.Position.Z, 1e-9)
}

func TestModelMatrices(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.frame(t, 0.016)

	want := math3d.Translate(math3d.V3(0, 0.25, 0)).Mul(math3d.ScaleUniform(0.2))
	assert.Equal(t, want.GL(), f.nanoUniform(t, "model"))
	assert.Equal(t, want.NormalMatrix().GL(), f.nanoUniform(t, "normalMatrix"))

	proj := f.nanoUniform(t, "projection").(mgl32.Mat4)
	wantProj := f.app.Camera.ProjectionMatrix(800.0/600.0, 0.1, 100).GL()
	assert.True(t, proj.ApproxEqual(wantProj))
}

func TestCloseStopsBeforeDrawing(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.surface.Input().KeyDown(input.KeyEscape)

	more, err := f.app.Frame()
	require.NoError(t, err)
	assert.False(t, more)
	assert.Empty(t, f.dev.Draws)
	assert.Zero(t, f.surface.Frames())
}

func TestMovement(t *testing.T) {
	f := newFixture(t, testConfig(t))
	in := f.surface.Input()

	in.KeyDown(input.KeyW)
	f.frame(t, 1)
	assert.InDelta(t, 0, f.app.Camera.Position.Z, 1e-9, "speed 3 for one second")

	in.KeyDown(input.KeyLeftShift)
	f.frame(t, 0.5)
	assert.InDelta(t, -3, f.app.Camera.Position.Z, 1e-9, "shift doubles speed")

	in.ReleaseAll()
	in.KeyDown(input.KeyQ)
	f.frame(t, 1)
	assert.InDelta(t, 3, f.app.Camera.Position.Y, 1e-9)
}

func TestZoomKeys(t *testing.T) {
	f := newFixture(t, testConfig(t))
	in := f.surface.Input()

	in.KeyDown(input.KeyEqual)
	f.frame(t, 0.016)
	assert.InDelta(t, 44.99, f.app.Camera.Zoom, 1e-9)

	in.KeyUp(input.KeyEqual)
	in.KeyDown(input.KeyMinus)
	f.frame(t, 0.016)
	f.frame(t, 0.016)
	assert.InDelta(t, 45.01, f.app.Camera.Zoom, 1e-9)
}

func TestMouseLookNeedsButton(t *testing.T) {
	f := newFixture(t, testConfig(t))
	in := f.surface.Input()

	in.MouseMove(0, 0)
	in.MouseMove(40, 0)
	f.frame(t, 0.016)
	assert.Equal(t, -90.0, f.app.Camera.Yaw)

	in.LeftButton(true)
	in.MouseMove(0, 0)
	in.MouseMove(40, 20)
	f.frame(t, 0.016)
	assert.InDelta(t, -80, f.app.Camera.Yaw, 1e-9)
	assert.InDelta(t, -5, f.app.Camera.Pitch, 1e-9)
}

func TestMaterialKeys(t *testing.T) {
	f := newFixture(t, testConfig(t))
	in := f.surface.Input()

	in.KeyDown(input.Key6)
	for range 12 {
		f.frame(t, 0.016)
	}
	assert.Equal(t, 1024.0, f.app.Nano.Shininess, "doubling stops at 1024")

	in.ReleaseAll()
	in.KeyDown(input.Key5)
	for range 12 {
		f.frame(t, 0.016)
	}
	assert.Equal(t, 1.0, f.app.Nano.Shininess, "halving stops at 1")

	in.ReleaseAll()
	in.KeyDown(input.Key7)
	f.frame(t, 0.016)
	assert.InDelta(t, 0.998, f.app.Nano.Ambient.X, 1e-9)

	in.ReleaseAll()
	in.KeyDown(input.Key8)
	for range 3 {
		f.frame(t, 0.016)
	}
	assert.Equal(t, math3d.V3(1, 1, 1), f.app.Nano.Ambient, "ambient clamps at 1")
}

func TestWireframeToggle(t *testing.T) {
	f := newFixture(t, testConfig(t))
	in := f.surface.Input()

	in.KeyDown(input.KeyX)
	f.frame(t, 0.016)
	require.Len(t, f.dev.Draws, 2)
	assert.Equal(t, gfx.Wireframe, f.dev.Draws[0].Mode)
	assert.Equal(t, gfx.Wireframe, f.dev.Draws[1].Mode)

	f.frame(t, 0.016)
	assert.Equal(t, gfx.Wireframe, f.dev.Draws[3].Mode, "held key toggles once")

	in.KeyUp(input.KeyX)
	in.KeyDown(input.KeyX)
	f.frame(t, 0.016)
	assert.Equal(t, gfx.Triangles, f.dev.Draws[5].Mode)
}

func TestMissingAssetsKeepRunning(t *testing.T) {
	cfg := testConfig(t)
	cfg.Shaders.Nano.Fragment = filepath.Join(t.TempDir(), "missing.frag")
	cfg.Models.Nano = filepath.Join(t.TempDir(), "missing.obj")

	f := newFixture(t, cfg)
	assert.False(t, f.app.nanoProgram.Valid())
	f.frame(t, 0.016)
	require.Len(t, f.dev.Draws, 1, "only the lamp draws")
}

func TestRunStops(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, f.app.Run(ctx))
	assert.Positive(t, f.app.Frames())

	f.surface.Close()
	frames := f.app.Frames()
	require.NoError(t, f.app.Run(context.Background()))
	assert.Equal(t, frames, f.app.Frames())
}

func TestCloseReleasesResources(t *testing.T) {
	cfg := testConfig(t)
	dev := gfxtest.New()
	a, err := New(cfg, dev, NewOffscreen(10, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, dev.LivePrograms())
	assert.Equal(t, 2, dev.LiveVertexArrays())

	a.Close()
	assert.Zero(t, dev.LivePrograms())
	assert.Zero(t, dev.LiveVertexArrays())
}
