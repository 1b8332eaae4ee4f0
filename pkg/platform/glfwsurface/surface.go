// Package glfwsurface opens a GLFW window with an OpenGL 3.3 core context
// and feeds its events into an input.Tracker.
//
// GLFW must be driven from the main OS thread. Call runtime.LockOSThread
// from an init function in package main before calling New, and call
// every Surface method from that goroutine.
package glfwsurface

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/taigrr/nanoview/pkg/input"
)

// ErrNoContext is returned when no GL 3.3 core window could be created.
var ErrNoContext = errors.New("no OpenGL 3.3 core context")

// Surface is a GLFW window. It implements app.Surface.
type Surface struct {
	win     *glfw.Window
	tracker *input.Tracker
}

// New initializes GLFW and opens a window with a current GL context.
func New(width, height int, title string) (*Surface, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %w", ErrNoContext, err)
	}
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	s := &Surface{win: win, tracker: input.NewTracker()}
	win.SetKeyCallback(s.onKey)
	win.SetMouseButtonCallback(s.onMouseButton)
	win.SetCursorPosCallback(s.onCursorPos)
	win.SetScrollCallback(s.onScroll)
	win.SetCloseCallback(func(*glfw.Window) { s.tracker.RequestClose() })

	fw, fh := win.GetFramebufferSize()
	slog.Info("window opened", "width", width, "height", height, "framebuffer", fmt.Sprintf("%dx%d", fw, fh))
	return s, nil
}

var keys = map[glfw.Key]input.Key{
	glfw.KeyW:          input.KeyW,
	glfw.KeyS:          input.KeyS,
	glfw.KeyA:          input.KeyA,
	glfw.KeyD:          input.KeyD,
	glfw.KeyQ:          input.KeyQ,
	glfw.KeyZ:          input.KeyZ,
	glfw.KeyX:          input.KeyX,
	glfw.KeyLeftShift:  input.KeyLeftShift,
	glfw.KeyEqual:      input.KeyEqual,
	glfw.KeyMinus:      input.KeyMinus,
	glfw.Key5:          input.Key5,
	glfw.Key6:          input.Key6,
	glfw.Key7:          input.Key7,
	glfw.Key8:          input.Key8,
	glfw.KeyEscape:     input.KeyEscape,
	glfw.KeyKPAdd:      input.KeyEqual,
	glfw.KeyKPSubtract: input.KeyMinus,
}

// keyFor maps a GLFW key to the viewer's key set.
func keyFor(k glfw.Key) input.Key {
	if ik, ok := keys[k]; ok {
		return ik
	}
	return input.KeyUnknown
}

func (s *Surface) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	k := keyFor(key)
	if k == input.KeyUnknown {
		return
	}
	switch action {
	case glfw.Press:
		s.tracker.KeyDown(k)
	case glfw.Release:
		s.tracker.KeyUp(k)
	}
}

func (s *Surface) onMouseButton(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	s.tracker.LeftButton(action == glfw.Press)
}

func (s *Surface) onCursorPos(_ *glfw.Window, x, y float64) {
	s.tracker.MouseMove(x, y)
}

func (s *Surface) onScroll(_ *glfw.Window, _, yoff float64) {
	s.tracker.Scroll(yoff)
}

// Poll processes pending window events.
func (s *Surface) Poll() input.Snapshot {
	glfw.PollEvents()
	if s.win.ShouldClose() {
		s.tracker.RequestClose()
	}
	snap := s.tracker.Snapshot()
	if snap.Close {
		s.win.SetShouldClose(true)
	}
	return snap
}

func (s *Surface) Present() error {
	s.win.SwapBuffers()
	return nil
}

// Size returns the framebuffer size, which differs from the window size
// on high density displays.
func (s *Surface) Size() (int, int) {
	return s.win.GetFramebufferSize()
}

func (s *Surface) Time() float64 {
	return glfw.GetTime()
}

// Close destroys the window and terminates GLFW.
func (s *Surface) Close() {
	s.win.Destroy()
	glfw.Terminate()
}
