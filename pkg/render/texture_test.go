package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/taigrr/facet/pkg/math3d"
)

// uniqueTexture returns a w×h texture whose texels all differ.
func uniqueTexture(w, h int) *Texture {
	tex := NewTexture(w, h)
	for y := range h {
		for x := range w {
			tex.SetPixel(x, y, Color{R: uint8(x * 40), G: uint8(y * 40), B: 7, A: 255})
		}
	}
	return tex
}

func TestTextureSampleTexel(t *testing.T) {
	tex := uniqueTexture(4, 4)

	tests := []struct {
		name string
		uv   math3d.Vec2
		x, y int
	}{
		{"origin", math3d.V2(0, 0), 0, 0},
		{"first row is v=0", math3d.V2(0.3, 0.1), 1, 0},
		{"last texel", math3d.V2(0.99, 0.99), 3, 3},
		{"truncates", math3d.V2(0.49, 0.51), 1, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := ToVec4(tex.GetPixel(tc.x, tc.y), false)
			if got := tex.Sample(tc.uv); got != want {
				t.Errorf("Sample(%v) = %v, want texel (%d,%d) %v", tc.uv, got, tc.x, tc.y, want)
			}
		})
	}
}

func TestTextureWrapModes(t *testing.T) {
	tex := uniqueTexture(4, 4)

	t.Run("repeat", func(t *testing.T) {
		if a, b := tex.Sample(math3d.V2(1.25, -0.1)), tex.Sample(math3d.V2(0.25, 0.9)); a != b {
			t.Errorf("(1.25,-0.1) = %v, (0.25,0.9) = %v", a, b)
		}
	})

	t.Run("clamp", func(t *testing.T) {
		tex := tex.Clone()
		tex.WrapU, tex.WrapV = WrapClamp, WrapClamp
		if a, b := tex.Sample(math3d.V2(5, -3)), tex.Sample(math3d.V2(1, 0)); a != b {
			t.Errorf("(5,-3) = %v, (1,0) = %v", a, b)
		}
	})

	t.Run("mirror", func(t *testing.T) {
		tex := tex.Clone()
		tex.WrapU, tex.WrapV = WrapMirror, WrapMirror
		if a, b := tex.Sample(math3d.V2(1.25, 0.1)), tex.Sample(math3d.V2(0.75, 0.1)); a != b {
			t.Errorf("(1.25) = %v, (0.75) = %v", a, b)
		}
		if a, b := tex.Sample(math3d.V2(-0.25, 0.1)), tex.Sample(math3d.V2(0.25, 0.1)); a != b {
			t.Errorf("(-0.25) = %v, (0.25) = %v", a, b)
		}
	})
}

func TestTextureSRGB(t *testing.T) {
	tex := NewSolidTexture(Color{R: 128, G: 255, B: 0, A: 128})
	linear := tex.Sample(math3d.V2(0, 0))

	tex.SRGB = true
	decoded := tex.Sample(math3d.V2(0, 0))

	// sRGB 128 is about 0.2158 linear.
	if math32.Abs(decoded.X-0.2158) > 1e-3 {
		t.Errorf("decoded red = %v, want ~0.2158", decoded.X)
	}
	if decoded.Y != 1 || decoded.Z != 0 {
		t.Errorf("endpoints changed: %v", decoded)
	}
	if decoded.W != linear.W {
		t.Errorf("alpha decoded as sRGB: %v vs %v", decoded.W, linear.W)
	}
}

func TestTextureCloneIndependent(t *testing.T) {
	tex := uniqueTexture(2, 2)
	clone := tex.Clone()
	clone.SetPixel(0, 0, ColorMagenta)

	if tex.GetPixel(0, 0) == ColorMagenta {
		t.Error("modifying the clone changed the original")
	}
}

func TestTextureFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 13, 22))
	img.Set(10, 20, color.NRGBA{R: 255, A: 255})
	img.Set(12, 21, color.NRGBA{B: 255, A: 255})

	tex := TextureFromImage(img)
	if tex.Width != 3 || tex.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", tex.Width, tex.Height)
	}
	if got := tex.GetPixel(0, 0); got != ColorRed {
		t.Errorf("top-left = %v, want red", got)
	}
	if got := tex.GetPixel(2, 1); got != ColorBlue {
		t.Errorf("bottom-right = %v, want blue", got)
	}
}

func TestTextureEmpty(t *testing.T) {
	tex := NewTexture(0, 0)
	if got := tex.Sample(math3d.V2(0.5, 0.5)); got != (math3d.Vec4{}) {
		t.Errorf("empty texture sampled %v", got)
	}
}

func TestLoadTextureMissing(t *testing.T) {
	if _, err := LoadTexture("does-not-exist.png"); err == nil {
		t.Error("expected error for missing file")
	}
}

func BenchmarkTextureSample(b *testing.B) {
	tex := NewCheckerTexture(256, 256, 16, ColorWhite, ColorBlack)
	tex.SRGB = true
	uv := math3d.V2(0.3, 0.7)

	for b.Loop() {
		_ = tex.Sample(uv)
	}
}
