package math3d

import "github.com/chewxy/math32"

// Quat is a rotation quaternion (X, Y, Z, W) with W the scalar part.
//
// Operations that consume a quaternion normalize it first. A quaternion
// whose squared norm is below Epsilon collapses to the identity instead of
// producing NaN.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// AngleAxis returns a rotation of angle radians about axis.
func AngleAxis(angle float32, axis Vec3) Quat {
	axis = axis.Normalize()
	s, c := math32.Sincos(angle / 2)
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, c}
}

// FromTo returns the shortest-arc rotation taking direction from onto to.
func FromTo(from, to Vec3) Quat {
	f := from.Normalize()
	t := to.Normalize()
	d := f.Dot(t)

	if d >= 1-Epsilon {
		return QuatIdentity()
	}
	if d <= -1+Epsilon {
		// Opposite directions: rotate half a turn about any axis orthogonal
		// to f, picked by the smallest component of f.
		ortho := V3(1, 0, 0)
		if math32.Abs(f.Y) < math32.Abs(f.X) {
			ortho = V3(0, 1, 0)
		}
		if math32.Abs(f.Z) < math32.Abs(f.Y) && math32.Abs(f.Z) < math32.Abs(f.X) {
			ortho = V3(0, 0, 1)
		}
		axis := f.Cross(ortho).Normalize()
		return Quat{axis.X, axis.Y, axis.Z, 0}
	}

	half := f.Add(t).Normalize()
	axis := f.Cross(half)
	return Quat{axis.X, axis.Y, axis.Z, f.Dot(half)}
}

// LookRotation returns the rotation that maps +Z onto forward and +Y onto
// the component of up orthogonal to forward. When up is parallel to
// forward the result is the shortest arc from +Z.
func LookRotation(forward, up Vec3) Quat {
	f := forward.Normalize()
	if f.LenSq() == 0 {
		return QuatIdentity()
	}
	r := up.Cross(f)
	if r.LenSq() < Epsilon {
		return FromTo(V3(0, 0, 1), f)
	}
	r = r.Normalize()
	u := f.Cross(r)
	return quatFromBasis(r, u, f)
}

// quatFromBasis converts an orthonormal basis (the columns of a rotation
// matrix) to a quaternion.
func quatFromBasis(x, y, z Vec3) Quat {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q Quat
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := math32.Sqrt(trace+1) * 2
		q = Quat{(m21 - m12) / s, (m02 - m20) / s, (m10 - m01) / s, s / 4}
	case m00 > m11 && m00 > m22:
		s := math32.Sqrt(1+m00-m11-m22) * 2
		q = Quat{s / 4, (m01 + m10) / s, (m02 + m20) / s, (m21 - m12) / s}
	case m11 > m22:
		s := math32.Sqrt(1+m11-m00-m22) * 2
		q = Quat{(m01 + m10) / s, s / 4, (m12 + m21) / s, (m02 - m20) / s}
	default:
		s := math32.Sqrt(1+m22-m00-m11) * 2
		q = Quat{(m02 + m20) / s, (m12 + m21) / s, s / 4, (m10 - m01) / s}
	}
	return q.Normalize()
}

// LenSq returns the squared norm.
func (q Quat) LenSq() float32 {
	return q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
}

// Normalize returns q scaled to unit length, or the identity if q is
// too close to zero to normalize.
func (q Quat) Normalize() Quat {
	n := q.LenSq()
	if n < Epsilon {
		return QuatIdentity()
	}
	inv := 1 / math32.Sqrt(n)
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Conjugate returns (-X, -Y, -Z, W).
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Inverse returns the inverse rotation.
func (q Quat) Inverse() Quat {
	return q.Normalize().Conjugate()
}

// Mul returns the Hamilton product a * b. Applied to a vector, b rotates
// first and a second.
//
//nolint:st1016 // a*b naming convention is clearer for quaternion products
func (a Quat) Mul(b Quat) Quat {
	return Quat{
		a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// Dot returns the four-component dot product.
//
//nolint:st1016 // a·b naming convention is clearer for quaternion operations
func (a Quat) Dot(b Quat) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
}

// Rotate rotates v by q using the expanded sandwich product q v q*.
func (q Quat) Rotate(v Vec3) Vec3 {
	q = q.Normalize()
	u := Vec3{q.X, q.Y, q.Z}
	s := q.W
	return u.Scale(2 * u.Dot(v)).
		Add(v.Scale(s*s - u.Dot(u))).
		Add(u.Cross(v).Scale(2 * s))
}

// Mat4 returns the rotation matrix for q.
func (q Quat) Mat4() Mat4 {
	q = q.Normalize()
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y), 0,
		2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x), 0,
		2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// Slerp spherically interpolates from a to b by t along the shorter arc.
//
//nolint:st1016 // a,b naming convention is clearer for interpolation
func (a Quat) Slerp(b Quat, t float32) Quat {
	a = a.Normalize()
	b = b.Normalize()
	d := a.Dot(b)
	if d < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
		d = -d
	}
	if d > 1-Epsilon {
		return Quat{
			a.X + (b.X-a.X)*t,
			a.Y + (b.Y-a.Y)*t,
			a.Z + (b.Z-a.Z)*t,
			a.W + (b.W-a.W)*t,
		}.Normalize()
	}
	theta := math32.Acos(d)
	sinTheta := math32.Sin(theta)
	wa := math32.Sin((1-t)*theta) / sinTheta
	wb := math32.Sin(t*theta) / sinTheta
	return Quat{
		a.X*wa + b.X*wb,
		a.Y*wa + b.Y*wb,
		a.Z*wa + b.Z*wb,
		a.W*wa + b.W*wb,
	}
}
