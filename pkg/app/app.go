// Package app runs the viewer: a lamp cube orbiting a lit nanosuit, a fly
// camera, and keyboard controls for the material.
//
// Each frame runs in a fixed order: clear, poll input, move the camera,
// zoom, mouse look, material tweaks, uniform upload, lamp draw, model draw
// and present.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/taigrr/nanoview/pkg/camera"
	"github.com/taigrr/nanoview/pkg/config"
	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/input"
	"github.com/taigrr/nanoview/pkg/math3d"
	"github.com/taigrr/nanoview/pkg/models"
	"github.com/taigrr/nanoview/pkg/shader"
)

// Frame constants.
const (
	ZoomStep      = 0.01
	AmbientStep   = 0.002
	MaxShininess  = 1024.0
	MinShininess  = 1.0
	LampScale     = 0.2
	NanoScale     = 0.2
	LampOrbitRate = 0.5 // radians per second
)

// NanoOffset lifts the model so it sits at the center of the view.
var NanoOffset = math3d.V3(0, 0.25, 0)

// Lamp is the light source and the cube drawn at its position.
type Lamp struct {
	Position math3d.Vec3
	Color    math3d.Vec3
	Ambient  math3d.Vec3
	Diffuse  math3d.Vec3
	Specular math3d.Vec3
}

// NewLamp returns a lamp at pos with the given color. The light terms
// start brighter than they settle at after the first frame.
func NewLamp(pos, color math3d.Vec3) Lamp {
	return Lamp{
		Position: pos,
		Color:    color,
		Ambient:  color.Scale(0.8),
		Diffuse:  color.Scale(0.5),
		Specular: color,
	}
}

// Material is the nanosuit material the keyboard adjusts.
type Material struct {
	Ambient   math3d.Vec3
	Diffuse   math3d.Vec3
	Specular  math3d.Vec3
	Shininess float64
}

// App is the viewer state. It owns its programs and models.
type App struct {
	Camera *camera.Camera
	Lamp   Lamp
	Nano   Material

	cfg     config.Config
	dev     gfx.Device
	surface Surface

	lampProgram *shader.Program
	nanoProgram *shader.Program
	lampModel   *models.Model
	nanoModel   *models.Model
	watcher     *shader.Watcher

	lastFrame     float64
	width, height int
	wireframe     bool
	frames        int
}

// New builds the programs and loads the models named in cfg. Shader and
// model problems are logged and leave the viewer running with whatever
// did load; only device failures are returned.
func New(cfg config.Config, dev gfx.Device, surface Surface) (*App, error) {
	a := &App{
		Camera: camera.New(cfg.Camera.Position.Vec(),
			camera.WithAngles(cfg.Camera.Yaw, cfg.Camera.Pitch),
			camera.WithSpeed(cfg.Camera.Speed),
			camera.WithSensitivity(cfg.Camera.Sensitivity),
			camera.WithZoom(cfg.Camera.Zoom),
		),
		Lamp: NewLamp(cfg.Lamp.Position.Vec(), cfg.Lamp.Color.Vec()),
		Nano: Material{
			Ambient:   cfg.Nano.Ambient.Vec(),
			Diffuse:   cfg.Nano.Diffuse.Vec(),
			Specular:  cfg.Nano.Specular.Vec(),
			Shininess: cfg.Nano.Shininess,
		},
		cfg:       cfg,
		dev:       dev,
		surface:   surface,
		wireframe: cfg.Render.Wireframe,
	}

	a.lampProgram = shader.Load(dev, shaderSources(cfg.Shaders.Lamp))
	a.nanoProgram = shader.Load(dev, shaderSources(cfg.Shaders.Nano))

	opts := []models.Option{models.WithMaxTextureSize(cfg.Render.MaxTextureSize)}
	var err error
	if a.lampModel, err = models.Load(dev, cfg.Models.Lamp, opts...); err != nil {
		a.Close()
		return nil, fmt.Errorf("load lamp: %w", err)
	}
	if a.nanoModel, err = models.Load(dev, cfg.Models.Nano, opts...); err != nil {
		a.Close()
		return nil, fmt.Errorf("load nano: %w", err)
	}
	a.lampModel.SetWireframe(a.wireframe)
	a.nanoModel.SetWireframe(a.wireframe)

	if cfg.Watch {
		paths := append(a.lampProgram.Sources().Paths(), a.nanoProgram.Sources().Paths()...)
		w, err := shader.NewWatcher(paths...)
		if err != nil {
			slog.Warn("shader hot reload disabled", "err", err)
		} else {
			a.watcher = w
		}
	}

	a.lastFrame = surface.Time()
	return a, nil
}

func shaderSources(s config.Shader) shader.Sources {
	return shader.Sources{Vertex: s.Vertex, Fragment: s.Fragment, Geometry: s.Geometry}
}

// Frames returns the number of frames drawn.
func (a *App) Frames() int { return a.frames }

// Run draws frames until the user closes the surface or ctx is done.
// Frames are paced to the configured rate.
func (a *App) Run(ctx context.Context) error {
	var budget time.Duration
	if a.cfg.FPS > 0 {
		budget = time.Second / time.Duration(a.cfg.FPS)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		more, err := a.Frame()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		if elapsed := time.Since(start); elapsed < budget {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(budget - elapsed):
			}
		}
	}
}

// Frame runs one frame. It reports false once the user asked to quit, in
// which case nothing is drawn.
func (a *App) Frame() (bool, error) {
	a.reloadShaders()
	a.syncViewport()

	c := a.cfg.Render.ClearColor
	a.dev.Clear(float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3]))

	in := a.surface.Poll()
	if in.Close {
		return false, nil
	}

	now := a.surface.Time()
	dt := now - a.lastFrame
	a.lastFrame = now

	a.doMovement(in, dt)
	a.doZoom(in)
	a.doLook(in)
	a.doToggles(in)
	a.updateLights(in)
	a.updateUniforms()
	a.drawLamp(now)
	a.drawNano()

	if err := a.surface.Present(); err != nil {
		return false, fmt.Errorf("present: %w", err)
	}
	a.frames++
	return true, nil
}

func (a *App) syncViewport() {
	w, h := a.surface.Size()
	if w == a.width && h == a.height {
		return
	}
	a.width, a.height = w, h
	a.dev.Viewport(0, 0, w, h)
}

var movementKeys = []struct {
	key input.Key
	dir camera.Movement
}{
	{input.KeyW, camera.Forward},
	{input.KeyS, camera.Backward},
	{input.KeyA, camera.Left},
	{input.KeyD, camera.Right},
	{input.KeyQ, camera.Up},
	{input.KeyZ, camera.Down},
}

func (a *App) doMovement(in input.Snapshot, dt float64) {
	speed := 1.0
	if in.Down(input.KeyLeftShift) {
		speed = 2
	}
	for _, m := range movementKeys {
		if in.Down(m.key) {
			a.Camera.ProcessKeyboard(m.dir, dt, speed)
		}
	}
}

func (a *App) doZoom(in input.Snapshot) {
	if in.Down(input.KeyEqual) {
		a.Camera.ProcessZoom(ZoomStep)
	}
	if in.Down(input.KeyMinus) {
		a.Camera.ProcessZoom(-ZoomStep)
	}
	if in.Scroll != 0 {
		a.Camera.ProcessZoom(in.Scroll)
	}
}

func (a *App) doLook(in input.Snapshot) {
	if !in.LeftButton || (in.MouseDX == 0 && in.MouseDY == 0) {
		return
	}
	a.Camera.ProcessMouseMovement(in.MouseDX, in.MouseDY, true)
}

func (a *App) doToggles(in input.Snapshot) {
	if !in.Pressed(input.KeyX) {
		return
	}
	a.wireframe = !a.wireframe
	a.lampModel.SetWireframe(a.wireframe)
	a.nanoModel.SetWireframe(a.wireframe)
}

func (a *App) updateLights(in input.Snapshot) {
	if in.Down(input.Key8) {
		a.Nano.Ambient = stepVec(a.Nano.Ambient, AmbientStep, 0, 1)
	}
	if in.Down(input.Key7) {
		a.Nano.Ambient = stepVec(a.Nano.Ambient, -AmbientStep, 0, 1)
	}
	if in.Down(input.Key6) && a.Nano.Shininess < MaxShininess {
		a.Nano.Shininess *= 2
	}
	if in.Down(input.Key5) && a.Nano.Shininess > MinShininess {
		a.Nano.Shininess /= 2
	}
}

// stepVec adds by to each component and clamps the result to [lo, hi].
func stepVec(v math3d.Vec3, by, lo, hi float64) math3d.Vec3 {
	return math3d.V3(
		math3d.Clamp(v.X+by, lo, hi),
		math3d.Clamp(v.Y+by, lo, hi),
		math3d.Clamp(v.Z+by, lo, hi),
	)
}

func (a *App) updateUniforms() {
	a.lampProgram.Use()
	a.lampProgram.SetVec3("lamp.position", a.Lamp.Position)
	a.lampProgram.SetVec3("lamp.color", a.Lamp.Color)

	a.nanoProgram.Use()
	a.nanoProgram.SetVec3("viewPos", a.Camera.Position)
	a.nanoProgram.SetVec3("light.position", a.Lamp.Position)
	a.nanoProgram.SetVec3("light.ambient", a.Lamp.Ambient)
	a.nanoProgram.SetVec3("light.diffuse", a.Lamp.Diffuse)
	a.nanoProgram.SetVec3("light.specular", a.Lamp.Specular)
	a.nanoProgram.SetVec3f("material.color", 1, 1, 1)
	a.nanoProgram.SetVec3("material.ambient", a.Nano.Ambient)
	a.nanoProgram.SetVec3("material.diffuse", a.Nano.Diffuse)
	a.nanoProgram.SetVec3("material.specular", a.Nano.Specular)
	a.nanoProgram.SetFloat("material.shininess", a.Nano.Shininess)
}

func (a *App) projection() math3d.Mat4 {
	aspect := 1.0
	if a.height > 0 {
		aspect = float64(a.width) / float64(a.height)
	}
	return a.Camera.ProjectionMatrix(aspect, a.cfg.Render.Near, a.cfg.Render.Far)
}

func (a *App) drawLamp(now float64) {
	a.Lamp.Ambient = a.Lamp.Color.Scale(0.5)
	a.Lamp.Diffuse = a.Lamp.Color.Scale(0.5)
	a.Lamp.Specular = a.Lamp.Color
	a.Lamp.Position.X = math.Sin(now * LampOrbitRate)
	a.Lamp.Position.Z = math.Cos(now * LampOrbitRate)

	a.lampProgram.Use()
	a.lampProgram.SetMat4("projection", a.projection())
	a.lampProgram.SetMat4("view", a.Camera.ViewMatrix())
	model := math3d.Translate(a.Lamp.Position).Mul(math3d.ScaleUniform(LampScale))
	a.lampProgram.SetMat4("model", model)
	a.lampModel.Draw(a.lampProgram)
}

func (a *App) drawNano() {
	a.nanoProgram.Use()
	a.nanoProgram.SetMat4("projection", a.projection())
	a.nanoProgram.SetMat4("view", a.Camera.ViewMatrix())
	model := math3d.Translate(NanoOffset).Mul(math3d.ScaleUniform(NanoScale))
	a.nanoProgram.SetMat4("model", model)
	a.nanoProgram.SetMat3("normalMatrix", model.NormalMatrix())
	a.nanoModel.Draw(a.nanoProgram)
}

// reloadShaders rebuilds programs whose sources changed on disk.
func (a *App) reloadShaders() {
	if a.watcher == nil {
		return
	}
	changed := a.watcher.Changed()
	if len(changed) == 0 {
		return
	}
	for _, p := range []*shader.Program{a.lampProgram, a.nanoProgram} {
		if !shader.Affects(p, changed) {
			continue
		}
		if err := p.Reload(); err != nil {
			slog.Error("reload shader", "vertex", p.Sources().Vertex, "err", err)
			continue
		}
		slog.Info("shader reloaded", "vertex", p.Sources().Vertex)
	}
}

// Close releases programs, models and the watcher. It does not close the
// surface.
func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	for _, m := range []*models.Model{a.lampModel, a.nanoModel} {
		if m != nil {
			m.Release()
		}
	}
	for _, p := range []*shader.Program{a.lampProgram, a.nanoProgram} {
		if p != nil {
			p.Delete()
		}
	}
}

// TriangleCount returns the triangles drawn per frame.
func (a *App) TriangleCount() int {
	n := 0
	for _, m := range []*models.Model{a.lampModel, a.nanoModel} {
		if m != nil {
			n += m.TriangleCount()
		}
	}
	return n
}
