package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// farDepth is the cleared depth value; every fragment in front of it wins.
const farDepth = math.MaxFloat32

// Framebuffer is a color target with a matching depth buffer. Its height
// is twice the terminal rows it is shown on, one pixel per half block.
type Framebuffer struct {
	Width  int
	Height int

	img   *image.RGBA
	depth []float32
}

// NewFramebuffer allocates a cleared width x height target.
func NewFramebuffer(width, height int) *Framebuffer {
	width, height = max(width, 0), max(height, 0)
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		depth:  make([]float32, width*height),
	}
	fb.ClearDepth()
	return fb
}

// Image returns the color buffer. It is reused between frames.
func (fb *Framebuffer) Image() *image.RGBA {
	return fb.img
}

// Clear fills the color buffer with c.
func (fb *Framebuffer) Clear(c Color) {
	draw.Draw(fb.img, fb.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// ClearDepth resets every depth sample to the far plane.
func (fb *Framebuffer) ClearDepth() {
	if len(fb.depth) == 0 {
		return
	}
	fb.depth[0] = farDepth
	for n := 1; n < len(fb.depth); n *= 2 {
		copy(fb.depth[n:], fb.depth[:n])
	}
}

func (fb *Framebuffer) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < fb.Width && y < fb.Height
}

// SetPixel writes c at (x, y). Writes outside the buffer are dropped.
func (fb *Framebuffer) SetPixel(x, y int, c Color) {
	fb.img.SetRGBA(x, y, c)
}

// GetPixel returns the color at (x, y), or transparent black outside the
// buffer.
func (fb *Framebuffer) GetPixel(x, y int) Color {
	return fb.img.RGBAAt(x, y)
}

// Depth returns the stored depth at (x, y).
func (fb *Framebuffer) Depth(x, y int) float32 {
	if !fb.inside(x, y) {
		return farDepth
	}
	return fb.depth[y*fb.Width+x]
}

// testAndSetDepth stores z at (x, y) and reports true when z is nearer
// than what is there.
func (fb *Framebuffer) testAndSetDepth(x, y int, z float32) bool {
	if !fb.inside(x, y) {
		return false
	}
	i := y*fb.Width + x
	if z >= fb.depth[i] {
		return false
	}
	fb.depth[i] = z
	return true
}

// ToImage returns a copy of the color buffer.
func (fb *Framebuffer) ToImage() *image.RGBA {
	out := image.NewRGBA(fb.img.Bounds())
	draw.Draw(out, out.Bounds(), fb.img, image.Point{}, draw.Src)
	return out
}

// SavePNG writes the color buffer to path.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, fb.img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
