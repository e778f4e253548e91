package raster

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // depth per pixel, len = W*H, initialized to -inf
}

// NewFrameBuffer allocates a zeroed color buffer and -inf z-buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   zbuf,
	}
}

// Fill paints every pixel with c without touching depth.
func (fb *FrameBuffer) Fill(c color.NRGBA) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = c.R
		fb.Color[i+1] = c.G
		fb.Color[i+2] = c.B
		fb.Color[i+3] = c.A
	}
}

// Plot writes c at (x, y) if z is nearer than what is already there.
// Larger z is nearer. Out-of-bounds pixels are ignored.
func (fb *FrameBuffer) Plot(x, y int, z float64, c color.NRGBA) {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return
	}
	i := y*fb.Width + x
	if z < fb.ZBuf[i] {
		return
	}
	fb.ZBuf[i] = z
	o := i * 4
	fb.Color[o] = c.R
	fb.Color[o+1] = c.G
	fb.Color[o+2] = c.B
	fb.Color[o+3] = c.A
}

// ToNRGBA copies the color buffer into a new image.
func (fb *FrameBuffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}
