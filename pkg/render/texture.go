package render

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"os"
	"slices"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/taigrr/facet/pkg/math3d"
)

// WrapMode determines how texture coordinates outside [0,1) are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Keep the fractional part
	WrapClamp                  // Clamp to edge
	WrapMirror                 // Repeat, flipping every other tile
)

// Texture holds a decoded RGBA image for nearest-texel sampling.
// A loaded texture is never mutated; use Clone for an owned copy.
type Texture struct {
	Width  int
	Height int
	Pixels []Color  // Row-major, row 0 is the top of the image
	WrapU  WrapMode // Horizontal wrap mode
	WrapV  WrapMode // Vertical wrap mode
	SRGB   bool     // Color channels are sRGB encoded and decoded on sample
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]Color, width*height),
	}
}

// LoadTexture loads a texture from an image file. PNG, JPEG, GIF, BMP,
// TIFF and WebP are supported.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	tex, err := DecodeTexture(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	Logger().Debug("texture loaded", "path", path, "width", tex.Width, "height", tex.Height)
	return tex, nil
}

// DecodeTexture decodes an image stream into a texture.
func DecodeTexture(r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage creates a texture from an image.Image.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	}

	tex := NewTexture(bounds.Dx(), bounds.Dy())
	for i := range tex.Pixels {
		p := rgba.Pix[i*4 : i*4+4 : i*4+4]
		tex.Pixels[i] = Color{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return tex
}

// NewSolidTexture creates a 1x1 texture of a single color.
func NewSolidTexture(c Color) *Texture {
	tex := NewTexture(1, 1)
	tex.Pixels[0] = c
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			cx := x / checkSize
			cy := y / checkSize
			if (cx+cy)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// Clone returns a deep copy of the texture.
func (t *Texture) Clone() *Texture {
	c := *t
	c.Pixels = slices.Clone(t.Pixels)
	return &c
}

// SetPixel sets a pixel in the texture.
func (t *Texture) SetPixel(x, y int, c Color) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) Color {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return Color{}
	}
	return t.Pixels[y*t.Width+x]
}

// Sample returns the texel at uv as a float color. Coordinates are wrapped
// into [0, 1) and mapped to a texel by truncation; V=0 is the first image
// row. There is no filtering.
func (t *Texture) Sample(uv math3d.Vec2) math3d.Vec4 {
	return ToVec4(t.texel(uv), t.SRGB)
}

func (t *Texture) texel(uv math3d.Vec2) Color {
	if len(t.Pixels) == 0 {
		return Color{}
	}
	u := wrapCoord(uv.X, t.WrapU)
	v := wrapCoord(uv.Y, t.WrapV)

	x := int(u * float32(t.Width))
	y := int(v * float32(t.Height))
	x = min(max(x, 0), t.Width-1)
	y = min(max(y, 0), t.Height-1)
	return t.Pixels[y*t.Width+x]
}

// wrapCoord maps a coordinate into [0, 1].
func wrapCoord(c float32, mode WrapMode) float32 {
	switch mode {
	case WrapClamp:
		return math3d.Saturate(c)
	case WrapMirror:
		c -= 2 * math32.Floor(c/2)
		if c > 1 {
			c = 2 - c
		}
		return c
	default:
		return c - math32.Floor(c)
	}
}
