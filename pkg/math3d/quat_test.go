package math3d

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestQuatNormalizeDegenerate(t *testing.T) {
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero quaternion normalized to %+v", got)
	}
	if got := (Quat{0, 0, 0, 1e-5}).Rotate(V3(1, 2, 3)); got != V3(1, 2, 3) {
		t.Errorf("near-zero quaternion rotated to %+v", got)
	}
	q := Quat{0, 0, 0, 2}.Normalize()
	if q != QuatIdentity() {
		t.Errorf("Normalize(0,0,0,2) = %+v", q)
	}
}

func TestAngleAxisRotate(t *testing.T) {
	q := AngleAxis(Pi/2, Up())
	assertVec3(t, "rotated", q.Rotate(V3(0, 0, 1)), V3(1, 0, 0))
	assertVec3(t, "axis fixed", q.Rotate(V3(0, 2, 0)), V3(0, 2, 0))
}

func TestQuatMulOrder(t *testing.T) {
	a := AngleAxis(Pi/2, V3(1, 0, 0))
	b := AngleAxis(Pi/2, V3(0, 0, 1))
	v := V3(1, 0, 0)

	// b applies first: x -> y (about Z), then y -> z (about X).
	assertVec3(t, "a*b", a.Mul(b).Rotate(v), a.Rotate(b.Rotate(v)))
	assertVec3(t, "a*b value", a.Mul(b).Rotate(v), V3(0, 0, 1))

	// The product is not commutative.
	assertVec3(t, "b*a value", b.Mul(a).Rotate(v), V3(0, 1, 0))
}

func TestQuatMat4MatchesRotate(t *testing.T) {
	q := AngleAxis(1.1, V3(-1, 2, 0.5))
	v := V3(0.4, -1.5, 2)
	assertVec3(t, "matrix", q.Mat4().MulVec3Dir(v), q.Rotate(v))
	assertMat4(t, "rotation matrix vs RotateY", AngleAxis(0.5, Up()).Mat4(), RotateY(0.5))
}

func TestFromTo(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vec3
	}{
		{"quarter", V3(1, 0, 0), V3(0, 1, 0)},
		{"arbitrary", V3(1, 2, 3), V3(-3, 0.5, 1)},
		{"same", V3(0, 0, 1), V3(0, 0, 2)},
		{"opposite x", V3(1, 0, 0), V3(-1, 0, 0)},
		{"opposite y", V3(0, 1, 0), V3(0, -1, 0)},
		{"opposite z", V3(0, 0, 1), V3(0, 0, -1)},
		{"opposite diagonal", V3(1, 1, 1), V3(-1, -1, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := FromTo(tt.from, tt.to)
			if l := q.LenSq(); math32.Abs(l-1) > tolerance {
				t.Errorf("|q|^2 = %v", l)
			}
			assertVec3(t, "rotated", q.Rotate(tt.from.Normalize()), tt.to.Normalize())
		})
	}
}

func TestLookRotation(t *testing.T) {
	fwd := V3(1, 0, -1).Normalize()
	q := LookRotation(fwd, Up())
	assertVec3(t, "forward", q.Rotate(V3(0, 0, 1)), fwd)
	if up := q.Rotate(V3(0, 1, 0)); !near(up.Dot(fwd), 0) || up.Y <= 0 {
		t.Errorf("up = %+v", up)
	}

	// Parallel up falls back to the shortest arc.
	q = LookRotation(V3(0, 1, 0), V3(0, 1, 0))
	assertVec3(t, "parallel up", q.Rotate(V3(0, 0, 1)), V3(0, 1, 0))
}

func TestQuatInverseAndSlerp(t *testing.T) {
	q := AngleAxis(0.9, V3(0, 1, 1))
	v := V3(3, -1, 2)
	assertVec3(t, "inverse", q.Inverse().Rotate(q.Rotate(v)), v)

	a := QuatIdentity()
	b := AngleAxis(Pi/2, Up())
	mid := a.Slerp(b, 0.5)
	assertVec3(t, "slerp midpoint", mid.Rotate(V3(0, 0, 1)), V3(math32.Sqrt(0.5), 0, math32.Sqrt(0.5)))
	assertVec3(t, "slerp end", a.Slerp(b, 1).Rotate(V3(0, 0, 1)), V3(1, 0, 0))
}
