package termsurface

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/taigrr/nanoview/pkg/gfx/softgpu"
)

// HUD is a one-line overlay with the frame rate and render stats. It is
// hidden until toggled with ?.
type HUD struct {
	title string

	mu      sync.Mutex
	visible bool
	stats   softgpu.Stats
	fps     float64
	frames  int
	since   time.Time
}

// NewHUD returns a hidden HUD.
func NewHUD(title string) *HUD {
	return &HUD{title: title, since: time.Now()}
}

// Toggle shows or hides the HUD.
func (h *HUD) Toggle() {
	h.mu.Lock()
	h.visible = !h.visible
	h.mu.Unlock()
}

// Visible reports whether the HUD is drawn.
func (h *HUD) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

// Frame records one presented frame.
func (h *HUD) Frame(stats softgpu.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = stats
	h.frames++
	if elapsed := time.Since(h.since); elapsed >= time.Second {
		h.fps = float64(h.frames) / elapsed.Seconds()
		h.frames = 0
		h.since = time.Now()
	}
}

// Render writes the HUD rows to w with ANSI positioning. The top and
// bottom rows are cleared even when the HUD is hidden.
func (h *HUD) Render(w io.Writer, width, height int) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprint(w, moveTo(1, 1)+clearLine)
	fmt.Fprint(w, moveTo(height, 1)+clearLine)
	if !h.visible {
		return
	}

	fmt.Fprintf(w, "%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)

	titleCol := max((width-len(h.title)-2)/2, 1)
	fmt.Fprintf(w, "%s%s%s%s %s %s", moveTo(1, titleCol), bold, bgBlack, fgWhite, h.title, reset)

	stats := fmt.Sprintf(" %d tris %d culled %d draws ", h.stats.Triangles, h.stats.Culled, h.stats.DrawCalls)
	fmt.Fprintf(w, "%s%s%s%s%s", moveTo(1, max(width-len(stats), 1)), bgBlack, fgCyan, stats, reset)

	fmt.Fprintf(w, "%s%s%s WASD/QZ move  drag look  +/- zoom  5-8 material  X wireframe  Esc quit %s",
		moveTo(height, 1), bgBlack, fgWhite, reset)
}
