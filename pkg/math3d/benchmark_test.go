package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec4(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	v := V4(1, 2, 3, 1)

	for b.Loop() {
		_ = m.MulVec4(v)
	}
}

func BenchmarkMat4Inverse(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(Scale(V3(2, 2, 2)))

	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkVec3Normalize(b *testing.B) {
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = v.Normalize()
	}
}

func BenchmarkQuatRotate(b *testing.B) {
	q := AngleAxis(0.7, V3(1, 1, 0))
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = q.Rotate(v)
	}
}

func BenchmarkTransformMatrix(b *testing.B) {
	t := Transform{
		Position: V3(1, 2, 3),
		Rotation: AngleAxis(0.5, Up()),
		Scale:    V3(2, 2, 2),
	}

	for b.Loop() {
		_ = t.Matrix()
	}
}

func BenchmarkViewProjection(b *testing.B) {
	view := LookAt(V3(0, 0, 10), Zero3(), Up())
	proj := Perspective(Radians(60), 1.333, 0.1, 100)

	for b.Loop() {
		_ = proj.Mul(view)
	}
}
