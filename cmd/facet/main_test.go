package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"

	"github.com/taigrr/facet/pkg/config"
	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

const triangleOBJ = `o tri
v -1 -1 0
v 1 -1 0
v 0 1 0
f 1 2 3
`

func writeModel(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "tri.obj")
	if err := os.WriteFile(path, []byte(triangleOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestFrameName(t *testing.T) {
	tests := []struct {
		path string
		i, n int
		want string
	}{
		{"out.png", 0, 1, "out_0.png"},
		{"out.png", 7, 10, "out_7.png"},
		{"out.png", 7, 360, "out_007.png"},
		{"frames/spin.png", 12, 100, "frames/spin_12.png"},
		{"spin", 3, 36, "spin_03.png"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := frameName(tt.path, tt.i, tt.n); got != tt.want {
				t.Errorf("frameName(%q, %d, %d) = %q, want %q", tt.path, tt.i, tt.n, got, tt.want)
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	model := writeModel(t, dir)
	out := filepath.Join(dir, "still.png")

	stdout, err := execute(t, "render", model, "-o", out, "--width", "32", "--height", "24", "--bg", "#000000")
	if err != nil {
		t.Fatalf("render: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "wrote "+out) {
		t.Errorf("unexpected output %q", stdout)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("size = %v, want 32x24", b)
	}
	r, g, b, _ := img.At(16, 12).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Error("center pixel is background; triangle not drawn")
	}
	r, g, b, _ = img.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("corner pixel should be background")
	}
}

func TestRenderCommandSceneFile(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir)
	scene := filepath.Join(dir, "scene.yaml")
	yaml := "model: tri.obj\noutput:\n  width: 40\n  height: 30\n  path: " + filepath.Join(dir, "scene.png") + "\n"
	if err := os.WriteFile(scene, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	// Flags override the file.
	if _, err := execute(t, "render", "--scene", scene, "--width", "20"); err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "scene.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 20 || cfg.Height != 30 {
		t.Errorf("size = %dx%d, want 20x30", cfg.Width, cfg.Height)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	dir := t.TempDir()
	model := writeModel(t, dir)

	if _, err := execute(t, "render"); !errors.Is(err, errNoModel) {
		t.Errorf("no model: got %v", err)
	}
	if _, err := execute(t, "render", filepath.Join(dir, "missing.obj")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing model: got %v", err)
	}
	if _, err := execute(t, "render", model, "--bg", "blue", "-o", filepath.Join(dir, "x.png")); err == nil {
		t.Error("expected error for bad background")
	}
}

func TestTurntableCommand(t *testing.T) {
	dir := t.TempDir()
	model := writeModel(t, dir)
	out := filepath.Join(dir, "spin.png")

	if _, err := execute(t, "turntable", model, "-o", out, "-n", "3", "--width", "16", "--height", "12"); err != nil {
		t.Fatalf("turntable: %v", err)
	}
	for i := range 3 {
		if _, err := os.Stat(frameName(out, i, 3)); err != nil {
			t.Errorf("frame %d: %v", i, err)
		}
	}
	if _, err := os.Stat(frameName(out, 3, 3)); err == nil {
		t.Error("unexpected extra frame")
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")

	if _, err := execute(t, "init", path, "model.glb"); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "model: model.glb") {
		t.Errorf("scene missing model:\n%s", data)
	}
	if _, err := execute(t, "init", path); err == nil {
		t.Error("init should not overwrite an existing file")
	}
}

func TestDrawModeCycle(t *testing.T) {
	m := modeShaded
	seen := map[string]bool{}
	for range 3 {
		seen[m.String()] = true
		m = m.next()
	}
	if m != modeShaded || len(seen) != 3 {
		t.Errorf("cycle ended at %v after visiting %v", m, seen)
	}
}

func TestOrientationDecay(t *testing.T) {
	o := newOrientation(60)
	o.impulse(0, 0.1, 0)
	for range 300 {
		o.step(0)
	}
	if math32.Abs(float32(o.yaw.velocity)) > 1e-3 {
		t.Errorf("velocity did not decay: %v", o.yaw.velocity)
	}
	if o.yaw.position <= 0.1 {
		t.Errorf("yaw position = %v, expected it to coast past the first step", o.yaw.position)
	}
}

func TestOrientationReset(t *testing.T) {
	o := newOrientation(60)
	o.impulse(0.2, 0.3, 0.1)
	for range 30 {
		o.step(0)
	}
	o.reset()

	// Right after a reset the model has not jumped.
	before := o.resetFrom.Mat4()
	if !matNear(o.matrix(), before, 1e-4) {
		t.Error("reset jumped immediately")
	}

	for range 600 {
		o.step(0)
	}
	if o.resetting {
		t.Fatal("reset never finished")
	}
	if !matNear(o.matrix(), math3d.Identity(), 1e-4) {
		t.Errorf("orientation after reset = %v, want identity", o.matrix())
	}
}

func TestOrientationSpin(t *testing.T) {
	o := newOrientation(60)
	o.step(math32.Pi / 2)
	p := o.matrix().MulVec3(math3d.V3(1, 0, 0))
	if p.Sub(math3d.V3(0, 0, -1)).Len() > 1e-4 {
		t.Errorf("quarter spin moved +X to %v, want -Z", p)
	}
}

func matNear(a, b math3d.Mat4, eps float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestStageGuides(t *testing.T) {
	s := config.Default()
	s.Model = writeModel(t, t.TempDir())
	s.Background = "#000000"
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}

	st, err := newStage(t.Context(), s, 48, 36)
	if err != nil {
		t.Fatal(err)
	}

	count := func(c uint32) int {
		n := 0
		for _, px := range st.fb.Colors {
			if px == c {
				n++
			}
		}
		return n
	}

	if err := st.draw(math3d.Identity()); err != nil {
		t.Fatal(err)
	}
	if count(render.Pack(boundsColor)) != 0 || count(render.Pack(render.ColorRed)) != 0 {
		t.Fatal("guides drawn while disabled")
	}

	st.showBounds, st.showGuides = true, true
	if err := st.draw(math3d.Identity()); err != nil {
		t.Fatal(err)
	}
	if count(render.Pack(boundsColor)) == 0 {
		t.Error("bounds not drawn")
	}
	if count(render.Pack(render.ColorRed)) == 0 {
		t.Error("X axis not drawn")
	}

	st.mode = modeWireframe
	if err := st.draw(math3d.Identity()); err != nil {
		t.Fatal(err)
	}
	if st.pipe.Stats.Triangles != 0 {
		t.Errorf("wireframe mode shaded %d triangles", st.pipe.Stats.Triangles)
	}
	if count(render.Pack(wireColor)) == 0 {
		t.Error("wireframe not drawn")
	}
}
