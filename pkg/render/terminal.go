package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Color is the pixel type of framebuffers and textures.
type Color = color.RGBA

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

func RGBA(r, g, b, a uint8) Color { return Color{R: r, G: g, B: b, A: a} }

// Draw shows the framebuffer in area with upper half blocks. Cell (c, r)
// takes pixel row 2r as its foreground and row 2r+1 as its background.
// Transparent pixels leave the terminal's default color.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	rows := min(area.Max.Y-area.Min.Y, (fb.Height+1)/2)
	cols := min(area.Max.X-area.Min.X, fb.Width)
	for cy := range rows {
		for cx := range cols {
			scr.SetCell(area.Min.X+cx, area.Min.Y+cy, halfBlock(fb.GetPixel(cx, 2*cy), fb.GetPixel(cx, 2*cy+1)))
		}
	}
}

func halfBlock(top, bottom Color) *uv.Cell {
	return &uv.Cell{
		Content: "▀",
		Width:   1,
		Style:   uv.Style{Fg: opaque(top), Bg: opaque(bottom)},
	}
}

func opaque(c Color) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
