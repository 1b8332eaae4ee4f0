package app

import (
	"github.com/taigrr/nanoview/pkg/input"
)

// Surface is where frames are shown and input comes from: a window or a
// terminal. All methods are called from the render goroutine.
type Surface interface {
	// Poll processes pending events and returns this frame's input.
	Poll() input.Snapshot
	// Present shows the frame drawn since the previous Present.
	Present() error
	// Size returns the drawable size in device pixels.
	Size() (width, height int)
	// Time returns seconds since the surface was created.
	Time() float64
	Close()
}

// Offscreen is a surface with no display and no input. Its clock only
// moves when Advance is called.
type Offscreen struct {
	Width, Height int

	now     float64
	tracker *input.Tracker
	frames  int
}

// NewOffscreen returns an offscreen surface of the given size.
func NewOffscreen(width, height int) *Offscreen {
	return &Offscreen{Width: width, Height: height, tracker: input.NewTracker()}
}

// Input returns the tracker Poll snapshots, for scripted input.
func (o *Offscreen) Input() *input.Tracker { return o.tracker }

// Advance moves the clock forward by dt seconds.
func (o *Offscreen) Advance(dt float64) { o.now += dt }

// Frames returns the number of presented frames.
func (o *Offscreen) Frames() int { return o.frames }

func (o *Offscreen) Poll() input.Snapshot { return o.tracker.Snapshot() }

func (o *Offscreen) Present() error {
	o.frames++
	return nil
}

func (o *Offscreen) Size() (int, int) { return o.Width, o.Height }

func (o *Offscreen) Time() float64 { return o.now }

func (o *Offscreen) Close() { o.tracker.RequestClose() }
