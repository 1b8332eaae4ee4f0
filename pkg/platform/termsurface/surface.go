// Package termsurface shows software-rendered frames in a terminal with
// half-block characters and turns terminal events into viewer input.
//
// Terminals rarely report key releases, so a key counts as held until it
// stops repeating for HoldTimeout. Mouse drags arrive in whole cells; the
// cursor handed to the viewer follows them on a critically damped spring
// so the camera turns smoothly.
package termsurface

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/nanoview/pkg/gfx/softgpu"
	"github.com/taigrr/nanoview/pkg/input"
)

// HoldTimeout is how long a key stays down after its last press or repeat.
const HoldTimeout = 150 * time.Millisecond

// Pixels per cell handed to the mouse tracker. Cells are twice as tall as
// framebuffer rows.
const (
	cellWidth  = 4.0
	cellHeight = 8.0
)

// Surface is a terminal screen driven by a software device. It implements
// app.Surface.
type Surface struct {
	term *uv.Terminal
	dev  *softgpu.Device
	hud  *HUD

	tracker *input.Tracker
	start   time.Time
	now     func() time.Time

	mu       sync.Mutex
	cols     int
	rows     int
	resized  bool
	lastSeen map[input.Key]time.Time
	dragging bool
	target   [2]float64 // cursor in tracker pixels
	cursor   [2]float64
	velocity [2]float64
	spring   harmonica.Spring
}

// New takes over the terminal: alternate screen, hidden cursor and
// all-motion mouse reporting. dev's framebuffer is sized to the terminal.
func New(dev *softgpu.Device, title string, fps int) (*Surface, error) {
	term := uv.DefaultTerminal()

	cols, rows, err := term.GetSize()
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return nil, fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(cols, rows)

	fmt.Fprint(os.Stdout, "\x1b[?1003h") // any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // SGR extended mouse mode

	s := newSurface(dev, title, fps)
	s.term = term
	s.cols, s.rows = cols, rows
	s.resized = true

	go func() {
		for ev := range term.Events() {
			s.handle(ev)
		}
	}()
	return s, nil
}

func newSurface(dev *softgpu.Device, title string, fps int) *Surface {
	return &Surface{
		dev:      dev,
		hud:      NewHUD(title),
		tracker:  input.NewTracker(),
		start:    time.Now(),
		now:      time.Now,
		lastSeen: make(map[input.Key]time.Time),
		spring:   harmonica.NewSpring(harmonica.FPS(fps), 12.0, 1.0),
	}
}

// HUD returns the overlay drawn after each frame.
func (s *Surface) HUD() *HUD { return s.hud }

// handle applies one terminal event. It runs on the event goroutine.
func (s *Surface) handle(ev uv.Event) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		s.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		if ev.MatchString("ctrl+c") {
			s.tracker.RequestClose()
			return
		}
		if ev.MatchString("?", "shift+/") {
			s.hud.Toggle()
			return
		}
		k, shift := keyFor(ev)
		if k == input.KeyUnknown {
			return
		}
		s.press(k)
		if shift {
			s.press(input.KeyLeftShift)
		}

	case uv.KeyReleaseEvent:
		k, _ := keyFor(ev)
		if k == input.KeyUnknown {
			return
		}
		s.mu.Lock()
		delete(s.lastSeen, k)
		s.mu.Unlock()
		s.tracker.KeyUp(k)

	case uv.MouseClickEvent:
		if ev.Button == uv.MouseLeft {
			s.dragStart(ev.X, ev.Y)
		}

	case uv.MouseReleaseEvent:
		s.dragEnd()

	case uv.MouseMotionEvent:
		s.dragTo(ev.X, ev.Y)

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			s.tracker.Scroll(1)
		case uv.MouseWheelDown:
			s.tracker.Scroll(-1)
		}
	}
}

func (s *Surface) resize(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.resized = true
	s.mu.Unlock()
}

func (s *Surface) dragStart(x, y int) {
	s.mu.Lock()
	s.dragging = true
	s.target = cellToPixels(x, y)
	s.cursor = s.target
	s.velocity = [2]float64{}
	p := s.target
	s.mu.Unlock()
	s.tracker.LeftButton(true)
	s.tracker.MouseMove(p[0], p[1])
}

func (s *Surface) dragEnd() {
	s.mu.Lock()
	s.dragging = false
	s.mu.Unlock()
	s.tracker.LeftButton(false)
}

func (s *Surface) dragTo(x, y int) {
	s.mu.Lock()
	s.target = cellToPixels(x, y)
	s.mu.Unlock()
}

func cellToPixels(x, y int) [2]float64 {
	return [2]float64{float64(x) * cellWidth, float64(y) * cellHeight}
}

func (s *Surface) press(k input.Key) {
	s.mu.Lock()
	s.lastSeen[k] = s.now()
	s.mu.Unlock()
	s.tracker.KeyDown(k)
}

// Poll releases keys that stopped repeating, advances the drag spring and
// applies terminal resizes before taking the frame's input.
func (s *Surface) Poll() input.Snapshot {
	s.mu.Lock()
	now := s.now()
	var stale []input.Key
	for k, seen := range s.lastSeen {
		if now.Sub(seen) > HoldTimeout {
			stale = append(stale, k)
			delete(s.lastSeen, k)
		}
	}

	var move bool
	if s.dragging {
		for i := range s.cursor {
			s.cursor[i], s.velocity[i] = s.spring.Update(s.cursor[i], s.velocity[i], s.target[i])
		}
		move = true
	}
	cursor := s.cursor

	resized := s.resized
	cols, rows := s.cols, s.rows
	s.resized = false
	s.mu.Unlock()

	for _, k := range stale {
		s.tracker.KeyUp(k)
	}
	if move {
		s.tracker.MouseMove(cursor[0], cursor[1])
	}
	if resized && s.term != nil {
		s.term.Erase()
		s.term.Resize(cols, rows)
	}
	return s.tracker.Snapshot()
}

// Present draws the device's framebuffer over the whole terminal and the
// HUD on top of it.
func (s *Surface) Present() error {
	s.hud.Frame(s.dev.Stats())
	if s.term == nil {
		return nil
	}

	cols, rows := s.cells()
	fb := s.dev.Framebuffer()
	fb.Draw(s.term, uv.Rect(0, 0, cols, rows))
	if err := s.term.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	s.hud.Render(os.Stdout, cols, rows)
	return nil
}

func (s *Surface) cells() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Size returns the framebuffer size: one pixel per column and two per row.
func (s *Surface) Size() (int, int) {
	cols, rows := s.cells()
	return cols, rows * 2
}

func (s *Surface) Time() float64 {
	return s.now().Sub(s.start).Seconds()
}

// Close restores the terminal.
func (s *Surface) Close() {
	s.tracker.RequestClose()
	if s.term == nil {
		return
	}
	fmt.Fprint(os.Stdout, "\x1b[?1003l")
	fmt.Fprint(os.Stdout, "\x1b[?1006l")
	s.term.ExitAltScreen()
	s.term.ShowCursor()
	s.term.Shutdown(context.Background())
}
