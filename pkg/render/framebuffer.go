// Package render implements facet's software rasterization pipeline: the
// framebuffer, textures, camera, vertex and fragment stages and the
// scan-conversion loop that ties them together.
package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// ClearDepth is the depth of the far plane. Depth runs from 0 at the near
// plane to 1 at the far plane.
const ClearDepth float32 = 1

// DefaultClearColor is opaque black.
const DefaultClearColor uint32 = 0xFF000000

// Framebuffer owns a packed color buffer and a parallel depth buffer.
// It is allocated once and reused every frame by a single render loop.
type Framebuffer struct {
	Width  int       // Width in pixels
	Height int       // Height in pixels
	Colors []uint32  // Row-major ARGB words, (a<<24)|(r<<16)|(g<<8)|b
	Depth  []float32 // Row-major depth values in [0, 1]
}

// NewFramebuffer creates a framebuffer cleared to opaque black and far depth.
func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Colors: make([]uint32, width*height),
		Depth:  make([]float32, width*height),
	}
	fb.Clear(DefaultClearColor)
	return fb
}

// Clear sets every color cell to c and every depth cell to ClearDepth.
func (fb *Framebuffer) Clear(c uint32) {
	fill(fb.Colors, c)
	fill(fb.Depth, ClearDepth)
}

// fill sets every element of s to v by doubling copies.
func fill[T any](s []T, v T) {
	if len(s) == 0 {
		return
	}
	s[0] = v
	for i := 1; i < len(s); i *= 2 {
		copy(s[i:], s[:i])
	}
}

// Resize reallocates the buffers if the dimensions changed, then clears.
func (fb *Framebuffer) Resize(width, height int) {
	if width != fb.Width || height != fb.Height {
		fb.Width = width
		fb.Height = height
		fb.Colors = make([]uint32, width*height)
		fb.Depth = make([]float32, width*height)
	}
	fb.Clear(DefaultClearColor)
}

func (fb *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < fb.Width && y >= 0 && y < fb.Height
}

// SetPixel sets the packed color at (x, y).
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c uint32) {
	if !fb.inBounds(x, y) {
		return
	}
	fb.Colors[y*fb.Width+x] = c
}

// GetPixel returns the packed color at (x, y).
// Returns 0 (transparent black) if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) uint32 {
	if !fb.inBounds(x, y) {
		return 0
	}
	return fb.Colors[y*fb.Width+x]
}

// SetDepth sets the depth at (x, y).
func (fb *Framebuffer) SetDepth(x, y int, z float32) {
	if !fb.inBounds(x, y) {
		return
	}
	fb.Depth[y*fb.Width+x] = z
}

// GetDepth returns the depth at (x, y), or ClearDepth if out of bounds.
func (fb *Framebuffer) GetDepth(x, y int) float32 {
	if !fb.inBounds(x, y) {
		return ClearDepth
	}
	return fb.Depth[y*fb.Width+x]
}

// DrawLine draws an unweighted line from (x0, y0) to (x1, y1) using
// Bresenham's algorithm. Depth is neither tested nor written.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c uint32) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	fb.CopyRGBA(img.Pix)
	return img
}

// CopyRGBA writes the color buffer into pix as 8-bit RGBA, the layout of
// image.RGBA.Pix. pix must hold at least 4*Width*Height bytes.
func (fb *Framebuffer) CopyRGBA(pix []byte) {
	for i, c := range fb.Colors {
		p := pix[i*4 : i*4+4 : i*4+4]
		p[0] = uint8(c >> 16)
		p[1] = uint8(c >> 8)
		p[2] = uint8(c)
		p[3] = uint8(c >> 24)
	}
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, fb.ToImage()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
