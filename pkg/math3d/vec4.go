package math3d

import "github.com/chewxy/math32"

// Vec4 represents a 4D vector, a homogeneous point or a linear RGBA color.
type Vec4 struct {
	X, Y, Z, W float32
}

// V4 creates a new Vec4.
func V4(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// V4FromV3 creates a Vec4 from Vec3 with specified W.
func V4FromV3(v Vec3, w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// Vec3 returns the Vec3 portion (ignoring W).
func (v Vec4) Vec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Vec2 returns the X and Y components.
func (v Vec4) Vec2() Vec2 {
	return Vec2{v.X, v.Y}
}

// PerspectiveDivide divides X, Y and Z by W and stores 1/W in W.
// The reciprocal is kept for perspective-correct interpolation.
func (v Vec4) PerspectiveDivide() Vec4 {
	inv := 1 / v.W
	return Vec4{v.X * inv, v.Y * inv, v.Z * inv, inv}
}

// Add returns the vector sum.
//
//nolint:st1016 // a+b naming convention is clearer for vector operations
func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
}

// Sub returns the vector difference.
//
//nolint:st1016 // a-b naming convention is clearer for vector operations
func (a Vec4) Sub(b Vec4) Vec4 {
	return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W}
}

// Mul returns the component-wise product.
//
//nolint:st1016 // a*b naming convention is clearer for vector operations
func (a Vec4) Mul(b Vec4) Vec4 {
	return Vec4{a.X * b.X, a.Y * b.Y, a.Z * b.Z, a.W * b.W}
}

// Scale returns the scalar product.
func (v Vec4) Scale(s float32) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

// Dot returns the dot product.
//
//nolint:st1016 // a·b naming convention is clearer for vector operations
func (a Vec4) Dot(b Vec4) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Len returns the length.
func (v Vec4) Len() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z + v.W*v.W)
}

// Normalize returns the unit vector.
func (v Vec4) Normalize() Vec4 {
	l := v.Len()
	if l == 0 {
		return Vec4{}
	}
	return Vec4{v.X / l, v.Y / l, v.Z / l, v.W / l}
}

// Lerp returns linear interpolation.
//
//nolint:st1016 // a,b naming convention is clearer for interpolation
func (a Vec4) Lerp(b Vec4, t float32) Vec4 {
	return Vec4{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
		a.W + (b.W-a.W)*t,
	}
}

// Saturate clamps every component to [0, 1].
func (v Vec4) Saturate() Vec4 {
	return Vec4{Saturate(v.X), Saturate(v.Y), Saturate(v.Z), Saturate(v.W)}
}

// PackARGB packs an RGBA color into a 32-bit word laid out as
// (a<<24)|(r<<16)|(g<<8)|b. X, Y, Z and W hold red, green, blue and alpha,
// each clamped to [0, 1] before scaling to [0, 255].
func (v Vec4) PackARGB() uint32 {
	c := v.Saturate()
	r := uint32(c.X * 255)
	g := uint32(c.Y * 255)
	b := uint32(c.Z * 255)
	a := uint32(c.W * 255)
	return a<<24 | r<<16 | g<<8 | b
}

// UnpackARGB is the inverse of PackARGB, returning channels in [0, 1].
func UnpackARGB(c uint32) Vec4 {
	return Vec4{
		float32(c>>16&0xff) / 255,
		float32(c>>8&0xff) / 255,
		float32(c&0xff) / 255,
		float32(c>>24) / 255,
	}
}
