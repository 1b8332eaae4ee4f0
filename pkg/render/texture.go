package render

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"

	"github.com/taigrr/nanoview/pkg/math3d"
)

// Wrap selects how coordinates outside [0, 1] resolve.
type Wrap int

const (
	WrapRepeat Wrap = iota
	WrapClamp
)

// Filter selects how a level is sampled.
type Filter int

const (
	FilterNearest Filter = iota
	FilterBilinear
)

// Texture is an RGBA image with an optional mip chain. Level 0 is the
// source image; each further level halves both sides down to 1x1.
type Texture struct {
	Wrap   Wrap
	Filter Filter

	levels []*image.RGBA
}

// NewTexture copies img into a texture. With mipmaps the chain is built
// with a box filter.
func NewTexture(img *image.RGBA, mipmaps bool) *Texture {
	b := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)

	t := &Texture{Filter: FilterBilinear, levels: []*image.RGBA{base}}
	if !mipmaps {
		return t
	}
	for w, h := b.Dx(), b.Dy(); w > 1 || h > 1; {
		w, h = max(w/2, 1), max(h/2, 1)
		t.levels = append(t.levels, transform.Resize(t.levels[len(t.levels)-1], w, h, transform.Box))
	}
	return t
}

// Size returns the level 0 dimensions.
func (t *Texture) Size() (int, int) {
	b := t.levels[0].Bounds()
	return b.Dx(), b.Dy()
}

// Levels returns the number of mip levels, at least 1.
func (t *Texture) Levels() int {
	return len(t.levels)
}

// Sample reads level 0 at (u, v). v = 0 is the first image row, which is
// what a GL upload of the same image sees.
func (t *Texture) Sample(u, v float64) Color {
	return t.SampleLevel(u, v, 0)
}

// SampleLevel reads the mip level nearest lod.
func (t *Texture) SampleLevel(u, v, lod float64) Color {
	i := int(math.Round(math3d.Clamp(lod, 0, float64(len(t.levels)-1))))
	img := t.levels[i]
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return Color{}
	}

	x, y := u*float64(w), v*float64(h)
	if t.Filter == FilterNearest {
		return img.RGBAAt(t.wrap(int(math.Floor(x)), w), t.wrap(int(math.Floor(y)), h))
	}

	x, y = x-0.5, y-0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	at := func(dx, dy int) Color {
		return img.RGBAAt(t.wrap(ix+dx, w), t.wrap(iy+dy, h))
	}
	return lerp(lerp(at(0, 0), at(1, 0), fx), lerp(at(0, 1), at(1, 1), fx), fy)
}

// wrap maps texel index i into [0, n).
func (t *Texture) wrap(i, n int) int {
	if t.Wrap == WrapClamp {
		return min(max(i, 0), n-1)
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func lerp(a, b Color, f float64) Color {
	mix := func(p, q uint8) uint8 {
		return uint8(float64(p) + (float64(q)-float64(p))*f + 0.5)
	}
	return Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// Modulate multiplies two colors channel by channel.
func Modulate(a, b Color) Color {
	mul := func(p, q uint8) uint8 { return uint8(uint16(p) * uint16(q) / 255) }
	return Color{R: mul(a.R, b.R), G: mul(a.G, b.G), B: mul(a.B, b.B), A: mul(a.A, b.A)}
}
