package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/facet/pkg/math3d"
)

// Color is an alias for color.RGBA for convenience.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack   = color.RGBA{0, 0, 0, 255}
	ColorWhite   = color.RGBA{255, 255, 255, 255}
	ColorRed     = color.RGBA{255, 0, 0, 255}
	ColorGreen   = color.RGBA{0, 255, 0, 255}
	ColorBlue    = color.RGBA{0, 0, 255, 255}
	ColorYellow  = color.RGBA{255, 255, 0, 255}
	ColorCyan    = color.RGBA{0, 255, 255, 255}
	ColorMagenta = color.RGBA{255, 0, 255, 255}
	ColorGray    = color.RGBA{128, 128, 128, 255}
)

// RGB creates a color from RGB values.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// Pack converts c to the framebuffer's ARGB word.
func Pack(c color.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack converts an ARGB word back to color.RGBA.
func Unpack(argb uint32) color.RGBA {
	return color.RGBA{
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
		A: uint8(argb >> 24),
	}
}

// ParseHex parses a "#rrggbb" string into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return RGB(r, g, b), nil
}

// srgbToLinear maps an 8-bit sRGB channel to linear [0, 1].
var srgbToLinear [256]float32

// unormToFloat maps an 8-bit channel to [0, 1].
var unormToFloat [256]float32

func init() {
	for i := range 256 {
		v := float64(i) / 255
		lr, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
		srgbToLinear[i] = float32(lr)
		unormToFloat[i] = float32(v)
	}
}

// ToVec4 converts an 8-bit color to a float color. When srgb is set the
// color channels are decoded to linear; alpha is always linear.
func ToVec4(c color.RGBA, srgb bool) math3d.Vec4 {
	lut := &unormToFloat
	if srgb {
		lut = &srgbToLinear
	}
	return math3d.V4(lut[c.R], lut[c.G], lut[c.B], unormToFloat[c.A])
}
