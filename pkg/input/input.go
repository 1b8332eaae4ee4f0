// Package input turns window and terminal events into per-frame snapshots.
//
// Backends feed a Tracker from their event callbacks. The render loop takes
// one Snapshot per frame; a snapshot never changes after it is taken, so the
// frame sees a consistent view of the keyboard and mouse even while events
// keep arriving.
package input

import "sync"

// Key identifies a key the viewer reacts to.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyS
	KeyA
	KeyD
	KeyQ
	KeyZ
	KeyX
	KeyLeftShift
	KeyEqual
	KeyMinus
	Key5
	Key6
	Key7
	Key8
	KeyEscape
	keyCount
)

var keyNames = [...]string{
	KeyUnknown:   "unknown",
	KeyW:         "w",
	KeyS:         "s",
	KeyA:         "a",
	KeyD:         "d",
	KeyQ:         "q",
	KeyZ:         "z",
	KeyX:         "x",
	KeyLeftShift: "left shift",
	KeyEqual:     "=",
	KeyMinus:     "-",
	Key5:         "5",
	Key6:         "6",
	Key7:         "7",
	Key8:         "8",
	KeyEscape:    "escape",
}

func (k Key) String() string {
	if k < 0 || k >= keyCount {
		return "unknown"
	}
	return keyNames[k]
}

// Snapshot is the input state for one frame.
type Snapshot struct {
	down    [keyCount]bool
	pressed [keyCount]bool

	// Mouse movement since the previous snapshot, y growing upwards.
	MouseDX, MouseDY float64
	// LeftButton reports whether the left mouse button is held.
	LeftButton bool
	// Scroll is the wheel movement since the previous snapshot.
	Scroll float64
	// Close is set once the user asked to quit.
	Close bool
}

// Down reports whether k is held.
func (s Snapshot) Down(k Key) bool {
	return k > KeyUnknown && k < keyCount && s.down[k]
}

// Pressed reports whether k went down since the previous snapshot.
func (s Snapshot) Pressed(k Key) bool {
	return k > KeyUnknown && k < keyCount && s.pressed[k]
}

// Tracker accumulates events between snapshots. It is safe to feed from
// one goroutine while another takes snapshots.
type Tracker struct {
	mu sync.Mutex

	down    [keyCount]bool
	pressed [keyCount]bool

	left         bool
	havePos      bool
	lastX, lastY float64
	dx, dy       float64
	scroll       float64
	close        bool
}

// NewTracker returns a tracker with nothing held.
func NewTracker() *Tracker {
	return &Tracker{}
}

// KeyDown records a key press. Escape also requests close.
func (t *Tracker) KeyDown(k Key) {
	if k <= KeyUnknown || k >= keyCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.down[k] {
		t.pressed[k] = true
	}
	t.down[k] = true
	if k == KeyEscape {
		t.close = true
	}
}

// KeyUp records a key release.
func (t *Tracker) KeyUp(k Key) {
	if k <= KeyUnknown || k >= keyCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down[k] = false
}

// LeftButton records the left mouse button state. A press forgets the
// last cursor position, so the first move after it produces no delta.
func (t *Tracker) LeftButton(down bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if down && !t.left {
		t.havePos = false
	}
	t.left = down
}

// MouseMove records the cursor position in window coordinates, y growing
// downwards.
func (t *Tracker) MouseMove(x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.havePos {
		t.lastX, t.lastY = x, y
		t.havePos = true
	}
	t.dx += x - t.lastX
	t.dy += t.lastY - y
	t.lastX, t.lastY = x, y
}

// Scroll records wheel movement.
func (t *Tracker) Scroll(dy float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scroll += dy
}

// RequestClose marks the session as ending.
func (t *Tracker) RequestClose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.close = true
}

// Snapshot returns the current state and starts a new accumulation
// period for mouse deltas, scroll and key presses.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		down:       t.down,
		pressed:    t.pressed,
		MouseDX:    t.dx,
		MouseDY:    t.dy,
		LeftButton: t.left,
		Scroll:     t.scroll,
		Close:      t.close,
	}
	t.pressed = [keyCount]bool{}
	t.dx, t.dy, t.scroll = 0, 0, 0
	return s
}

// ReleaseAll lets go of every held key. Terminal backends call it when
// they infer releases they were never told about.
func (t *Tracker) ReleaseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down = [keyCount]bool{}
}
