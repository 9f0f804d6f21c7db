package math3d

import (
	"testing"

	"github.com/chewxy/math32"
)

const tolerance = 1e-4

func near(a, b float32) bool {
	return math32.Abs(a-b) <= tolerance
}

func assertVec3(t *testing.T, name string, got, want Vec3) {
	t.Helper()
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Z, want.Z) {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

func assertVec4(t *testing.T, name string, got, want Vec4) {
	t.Helper()
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Z, want.Z) || !near(got.W, want.W) {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

func assertMat4(t *testing.T, name string, got, want Mat4) {
	t.Helper()
	for i := range got {
		if !near(got[i], want[i]) {
			t.Errorf("%s[%d] = %v, want %v\n got %v\nwant %v", name, i, got[i], want[i], got, want)
			return
		}
	}
}
