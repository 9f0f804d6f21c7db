package render

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/taigrr/facet/pkg/math3d"
)

// mockMesh implements BoundedMeshRenderer for testing.
type mockMesh struct {
	vertices []mockVertex
	faces    [][3]int
}

type mockVertex struct {
	pos    math3d.Vec3
	normal math3d.Vec3
	uv     math3d.Vec2
}

func (m *mockMesh) VertexCount() int     { return len(m.vertices) }
func (m *mockMesh) TriangleCount() int   { return len(m.faces) }
func (m *mockMesh) GetFace(i int) [3]int { return m.faces[i] }
func (m *mockMesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	v := m.vertices[i]
	return v.pos, v.normal, v.uv
}

func (m *mockMesh) GetBounds() (lo, hi math3d.Vec3) {
	lo, hi = m.vertices[0].pos, m.vertices[0].pos
	for _, v := range m.vertices[1:] {
		lo = lo.Min(v.pos)
		hi = hi.Max(v.pos)
	}
	return lo, hi
}

// unitTriangle is a counter-clockwise triangle in the z=0 plane facing +Z.
func unitTriangle() *mockMesh {
	n := math3d.V3(0, 0, 1)
	return &mockMesh{
		vertices: []mockVertex{
			{math3d.V3(-1, -1, 0), n, math3d.V2(0, 1)},
			{math3d.V3(1, -1, 0), n, math3d.V2(1, 1)},
			{math3d.V3(0, 1, 0), n, math3d.V2(0.5, 0)},
		},
		faces: [][3]int{{0, 1, 2}},
	}
}

// createTestPipeline creates a pipeline with the camera at (0, 0, 3)
// looking at the origin.
func createTestPipeline(width, height int) (*Pipeline, *Framebuffer) {
	fb := NewFramebuffer(width, height)
	camera := NewCamera()
	camera.SetFOV(math3d.Radians(60))
	camera.SetAspectRatio(float32(width) / float32(height))
	p := NewPipeline(camera, fb)
	p.BeginFrame(DefaultClearColor)
	return p, fb
}

// screenVertex builds a vertex-stage output that lands on pixel
// coordinates (sx, sy) with depth z and w = 1. The screen position is
// carried in Varying.Position so a shader can recover its pixel.
func screenVertex(fb *Framebuffer, sx, sy, z float32) VertexOutput {
	w := float32(fb.Width-1) / 2
	h := float32(fb.Height-1) / 2
	return VertexOutput{
		Clip:    math3d.V4(sx/w-1, 1-sy/h, z, 1),
		Varying: Varying{Position: math3d.V3(sx, sy, 0)},
	}
}

func solid(c math3d.Vec4) FragmentShader {
	return func(Varying) math3d.Vec4 { return c }
}

func TestBarycentric(t *testing.T) {
	a, b, c := math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(0, 1)

	tests := []struct {
		name     string
		p        math3d.Vec2
		expected math3d.Vec3
	}{
		{"vertex 0", a, math3d.V3(1, 0, 0)},
		{"vertex 1", b, math3d.V3(0, 1, 0)},
		{"vertex 2", c, math3d.V3(0, 0, 1)},
		{"centroid", math3d.V2(1.0/3, 1.0/3), math3d.V3(1.0/3, 1.0/3, 1.0/3)},
		{"edge midpoint", math3d.V2(0.5, 0), math3d.V3(0.5, 0.5, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bc := Barycentric(a, b, c, tc.p)
			if math32.Abs(bc.X-tc.expected.X) > 1e-5 ||
				math32.Abs(bc.Y-tc.expected.Y) > 1e-5 ||
				math32.Abs(bc.Z-tc.expected.Z) > 1e-5 {
				t.Errorf("Barycentric(%v) = %v, want %v", tc.p, bc, tc.expected)
			}
		})
	}

	t.Run("outside triangle", func(t *testing.T) {
		bc := Barycentric(a, b, c, math3d.V2(-1, -1))
		if bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 {
			t.Errorf("outside point has non-negative weights %v", bc)
		}
	})

	t.Run("partition of unity", func(t *testing.T) {
		a, b, c := math3d.V2(3.2, 1.1), math3d.V2(40.7, 9.9), math3d.V2(12.5, 31.3)
		for _, p := range []math3d.Vec2{{X: 10, Y: 10}, {X: 20.5, Y: 12.25}, {X: 15, Y: 25}, {X: -4, Y: 50}} {
			bc := Barycentric(a, b, c, p)
			if sum := bc.X + bc.Y + bc.Z; math32.Abs(sum-1) > 1e-5 {
				t.Errorf("weights at %v sum to %v", p, sum)
			}
			got := a.Scale(bc.X).Add(b.Scale(bc.Y)).Add(c.Scale(bc.Z))
			if math32.Abs(got.X-p.X) > 1e-3 || math32.Abs(got.Y-p.Y) > 1e-3 {
				t.Errorf("weights at %v reconstruct %v", p, got)
			}
		}
	})

	t.Run("winding independent", func(t *testing.T) {
		p := math3d.V2(0.25, 0.25)
		cw := Barycentric(a, c, b, p)
		ccw := Barycentric(a, b, c, p)
		if math32.Abs(cw.Y-ccw.Z) > 1e-6 || math32.Abs(cw.Z-ccw.Y) > 1e-6 {
			t.Errorf("cw %v vs ccw %v", cw, ccw)
		}
	})

	degenerate := []struct {
		name    string
		a, b, c math3d.Vec2
	}{
		{"collinear", math3d.V2(0, 0), math3d.V2(1, 1), math3d.V2(2, 2)},
		{"point", math3d.V2(3, 3), math3d.V2(3, 3), math3d.V2(3, 3)},
		{"repeated vertex", math3d.V2(0, 0), math3d.V2(0, 0), math3d.V2(5, 1)},
	}
	for _, tc := range degenerate {
		t.Run(tc.name, func(t *testing.T) {
			if bc := Barycentric(tc.a, tc.b, tc.c, math3d.V2(1, 1)); bc != math3d.V3(-1, -1, -1) {
				t.Errorf("Barycentric = %v, want sentinel", bc)
			}
		})
	}
}

func TestBackFaceCulling(t *testing.T) {
	v0 := math3d.V4(0, 0, 0.5, 1)
	v1 := math3d.V4(1, 0, 0.5, 1)
	v2 := math3d.V4(0, 1, 0.5, 1)

	if BackFacing(v0, v1, v2) {
		t.Error("counter-clockwise triangle reported back-facing")
	}
	if !BackFacing(v0, v2, v1) {
		t.Error("clockwise triangle not reported back-facing")
	}

	p, fb := createTestPipeline(8, 8)
	white := solid(math3d.V4(1, 1, 1, 1))

	p.DrawTriangle([3]VertexOutput{{Clip: v0}, {Clip: v2}, {Clip: v1}}, white)
	if p.Stats.BackFacing != 1 || p.Stats.Fragments != 0 {
		t.Errorf("reversed winding: stats = %+v", p.Stats)
	}

	p.DrawTriangle([3]VertexOutput{{Clip: v0}, {Clip: v1}, {Clip: v2}}, white)
	if p.Stats.Fragments == 0 {
		t.Fatal("front-facing triangle produced no fragments")
	}
	// (0,0) (1,0) (0,1) covers the upper right quadrant; pixel (4, 2) is inside.
	if got := fb.GetPixel(4, 2); got != 0xFFFFFFFF {
		t.Errorf("pixel (4,2) = %#08x, want white", got)
	}

	p.DisableBackfaceCulling = true
	p.BeginFrame(DefaultClearColor)
	p.DrawTriangle([3]VertexOutput{{Clip: v0}, {Clip: v2}, {Clip: v1}}, white)
	if p.Stats.Fragments == 0 {
		t.Error("culling disabled: reversed triangle produced no fragments")
	}
}

func TestCoarseReject(t *testing.T) {
	p, _ := createTestPipeline(8, 8)
	shade := solid(math3d.V4(1, 0, 0, 1))

	// Entirely right of the x = w plane.
	p.DrawTriangle([3]VertexOutput{
		{Clip: math3d.V4(2, 0, 0.5, 1)},
		{Clip: math3d.V4(3, 0, 0.5, 1)},
		{Clip: math3d.V4(2, 1, 0.5, 1)},
	}, shade)
	// A vertex on the camera plane.
	p.DrawTriangle([3]VertexOutput{
		{Clip: math3d.V4(0, 0, 0.5, 0)},
		{Clip: math3d.V4(1, 0, 0.5, 1)},
		{Clip: math3d.V4(0, 1, 0.5, 1)},
	}, shade)

	if p.Stats.Rejected != 2 || p.Stats.Fragments != 0 {
		t.Errorf("stats = %+v, want 2 rejected and no fragments", p.Stats)
	}
}

func TestDepthRange(t *testing.T) {
	p, fb := createTestPipeline(8, 8)

	// Two vertices lie beyond the far plane, so depth crosses 1 inside
	// the triangle. Those fragments are discarded.
	p.DrawTriangle([3]VertexOutput{
		screenVertex(fb, 0, 7, 1.5),
		screenVertex(fb, 7, 7, 1.5),
		screenVertex(fb, 0, 0, 0.5),
	}, solid(math3d.V4(1, 1, 1, 1)))

	if p.Stats.Fragments == 0 {
		t.Fatal("no fragments inside the depth range were shaded")
	}
	if got := fb.GetDepth(0, 6); got != ClearDepth {
		t.Errorf("depth at (0,6) = %v, want untouched", got)
	}
	if got := fb.GetDepth(0, 1); got <= 0 || got >= 1 {
		t.Errorf("depth at (0,1) = %v, want inside (0,1)", got)
	}
	for i, d := range fb.Depth {
		if d > 1 {
			t.Errorf("pixel %d stored depth %v", i, d)
		}
	}
}

func TestDepthTestOrdering(t *testing.T) {
	red := math3d.V4(1, 0, 0, 1)
	green := math3d.V4(0, 1, 0, 1)

	tri := func(fb *Framebuffer, z float32) [3]VertexOutput {
		return [3]VertexOutput{
			screenVertex(fb, 0, 7, z),
			screenVertex(fb, 7, 7, z),
			screenVertex(fb, 0, 0, z),
		}
	}

	t.Run("tie goes to the later triangle", func(t *testing.T) {
		p, fb := createTestPipeline(8, 8)
		p.DrawTriangle(tri(fb, 0.5), solid(red))
		p.DrawTriangle(tri(fb, 0.5), solid(green))

		if p.Stats.DepthFailed != 0 {
			t.Errorf("DepthFailed = %d on an exact tie", p.Stats.DepthFailed)
		}
		if got := fb.GetPixel(1, 5); got != green.PackARGB() {
			t.Errorf("pixel = %#08x, want green", got)
		}
		if got := fb.GetDepth(1, 5); got != 0.5 {
			t.Errorf("depth = %v, want 0.5", got)
		}
	})

	t.Run("nearer triangle survives", func(t *testing.T) {
		p, fb := createTestPipeline(8, 8)
		p.DrawTriangle(tri(fb, 0.25), solid(red))
		p.DrawTriangle(tri(fb, 0.75), solid(green))

		if p.Stats.DepthFailed == 0 {
			t.Error("far triangle passed the depth test")
		}
		if got := fb.GetPixel(1, 5); got != red.PackARGB() {
			t.Errorf("pixel = %#08x, want red", got)
		}
	})
}

func TestSharedEdgeTopLeft(t *testing.T) {
	// Two triangles share the vertical edge x = 2.5, which passes through
	// the centers of every pixel in column 2. A lies left of the edge and B
	// to its right, so the shared edge is a left edge of B only.
	fb := NewFramebuffer(11, 9)
	p := NewPipeline(NewCamera(), fb)
	p.BeginFrame(DefaultClearColor)

	counts := make([]int, fb.Width*fb.Height)
	owner := make([]byte, fb.Width*fb.Height)
	tagged := func(tag byte) FragmentShader {
		return func(v Varying) math3d.Vec4 {
			x := int(math32.Floor(v.Position.X))
			y := int(math32.Floor(v.Position.Y))
			counts[y*fb.Width+x]++
			owner[y*fb.Width+x] = tag
			return math3d.V4(1, 1, 1, 1)
		}
	}

	p.DrawTriangle([3]VertexOutput{
		screenVertex(fb, 2.5, 0, 0.5),
		screenVertex(fb, 0, 0, 0.5),
		screenVertex(fb, 2.5, 8, 0.5),
	}, tagged('A'))
	p.DrawTriangle([3]VertexOutput{
		screenVertex(fb, 2.5, 8, 0.5),
		screenVertex(fb, 5, 8, 0.5),
		screenVertex(fb, 2.5, 0, 0.5),
	}, tagged('B'))

	if p.Stats.BackFacing != 0 {
		t.Fatalf("stats = %+v, both triangles should be front-facing", p.Stats)
	}
	for row := range 8 {
		i := row*fb.Width + 2
		if counts[i] != 1 {
			t.Errorf("pixel (2,%d) shaded %d times, want 1", row, counts[i])
		}
		if owner[i] != 'B' {
			t.Errorf("pixel (2,%d) owned by %q, want 'B'", row, owner[i])
		}
	}
	for i, n := range counts {
		if n > 1 {
			t.Errorf("pixel (%d,%d) shaded %d times", i%fb.Width, i/fb.Width, n)
		}
	}
}

func TestFanSharedVertex(t *testing.T) {
	// Triangles fanned around one vertex must shade every pixel at most
	// once, and every pixel well inside the fan exactly once, wherever the
	// center lands relative to the pixel grid.
	centers := []struct {
		name string
		c    math3d.Vec2
	}{
		{"just off a pixel center", math3d.V2(15.500001, 47.5)},
		{"on a pixel center", math3d.V2(20.5, 20.5)},
		{"on a pixel corner", math3d.V2(32, 32)},
		{"arbitrary", math3d.V2(29.37, 30.81)},
	}
	const (
		spokes = 11
		radius = 12
	)
	for _, tc := range centers {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(64, 64)
			p := NewPipeline(NewCamera(), fb)
			p.DisableBackfaceCulling = true
			p.BeginFrame(DefaultClearColor)

			counts := make([]int, fb.Width*fb.Height)
			count := func(v Varying) math3d.Vec4 {
				x := int(math32.Floor(v.Position.X))
				y := int(math32.Floor(v.Position.Y))
				counts[y*fb.Width+x]++
				return math3d.V4(1, 1, 1, 1)
			}

			rim := make([]math3d.Vec2, spokes)
			for i := range rim {
				angle := 2 * math32.Pi * float32(i) / spokes
				rim[i] = tc.c.Add(math3d.V2(math32.Cos(angle), math32.Sin(angle)).Scale(radius))
			}
			center := screenVertex(fb, tc.c.X, tc.c.Y, 0.5)
			for i := range rim {
				a, b := rim[i], rim[(i+1)%spokes]
				p.DrawTriangle([3]VertexOutput{
					center,
					screenVertex(fb, a.X, a.Y, 0.5),
					screenVertex(fb, b.X, b.Y, 0.5),
				}, count)
			}

			// Distance to the nearest rim edge is radius·cos(π/spokes).
			inner := radius*math32.Cos(math32.Pi/spokes) - 1
			for i, n := range counts {
				x, y := i%fb.Width, i/fb.Width
				if n > 1 {
					t.Errorf("pixel (%d,%d) shaded %d times", x, y, n)
				}
				d := math3d.V2(float32(x)+0.5, float32(y)+0.5).Sub(tc.c)
				if d.Dot(d) < inner*inner && n != 1 {
					t.Errorf("interior pixel (%d,%d) shaded %d times, want 1", x, y, n)
				}
			}
		})
	}
}

func TestGuardBandReject(t *testing.T) {
	fb := NewFramebuffer(16, 16)
	p := NewPipeline(NewCamera(), fb)
	p.DisableBackfaceCulling = true
	p.BeginFrame(DefaultClearColor)

	// One vertex lands millions of pixels away.
	p.DrawTriangle([3]VertexOutput{
		screenVertex(fb, 2, 2, 0.5),
		screenVertex(fb, 3e6, 4, 0.5),
		screenVertex(fb, 2, 12, 0.5),
	}, solid(math3d.V4(1, 1, 1, 1)))

	if p.Stats.Rejected != 1 || p.Stats.Fragments != 0 {
		t.Errorf("stats = %+v, want one rejected triangle", p.Stats)
	}
}

func TestPerspectiveCorrectInterpolation(t *testing.T) {
	p, fb := createTestPipeline(48, 48)

	// A triangle receding in depth so 1/w varies strongly across it.
	n := math3d.V3(0, 1, 0)
	mesh := &mockMesh{
		vertices: []mockVertex{
			{math3d.V3(-1, -0.5, 2), n, math3d.V2(0, 0)},
			{math3d.V3(1, -0.5, 2), n, math3d.V2(1, 0)},
			{math3d.V3(0, -0.5, -20), n, math3d.V2(0.5, 1)},
		},
		faces: [][3]int{{0, 1, 2}},
	}

	u := NewUniform(math3d.Identity(), p.Camera(), p.Light, nil)
	var out [3]VertexOutput
	for i := range out {
		pos, normal, uv := mesh.GetVertex(i)
		out[i] = u.ShadeVertex(pos, normal, uv)
	}

	var positions []math3d.Vec3
	p.DrawTriangle(out, func(v Varying) math3d.Vec4 {
		positions = append(positions, v.Position)
		return math3d.V4(1, 1, 1, 1)
	})
	if len(positions) == 0 {
		t.Fatal("no fragments shaded")
	}

	// Every interpolated view-space position must project back onto the
	// center of a pixel.
	for _, pos := range positions {
		clip := u.Projection.MulVec4(math3d.V4FromV3(pos, 1))
		s := viewport(clip.PerspectiveDivide(), fb.Width, fb.Height)
		fx := s.X - math32.Floor(s.X)
		fy := s.Y - math32.Floor(s.Y)
		if math32.Abs(fx-0.5) > 0.02 || math32.Abs(fy-0.5) > 0.02 {
			t.Fatalf("position %v projects to %v, not a pixel center", pos, s.Vec2())
		}
	}
}

func TestDrawMeshIndexOutOfRange(t *testing.T) {
	p, fb := createTestPipeline(16, 16)
	mesh := unitTriangle()
	mesh.faces = append(mesh.faces, [3]int{0, 1, 3})

	err := p.DrawMesh(mesh, math3d.Identity(), nil)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("DrawMesh error = %v, want ErrIndexOutOfRange", err)
	}
	for i, d := range fb.Depth {
		if d != ClearDepth {
			t.Fatalf("pixel %d written before validation failed", i)
		}
	}
}

func TestFrustumCullMesh(t *testing.T) {
	p, _ := createTestPipeline(16, 16)

	// Behind the camera.
	if err := p.DrawMesh(unitTriangle(), math3d.Translate(math3d.V3(0, 0, 10)), nil); err != nil {
		t.Fatal(err)
	}
	if p.Stats.MeshesCulled != 1 || p.Stats.Triangles != 0 {
		t.Errorf("stats = %+v, want mesh culled", p.Stats)
	}

	if err := p.DrawMesh(unitTriangle(), math3d.Identity(), nil); err != nil {
		t.Fatal(err)
	}
	if p.Stats.MeshesDrawn != 1 || p.Stats.Triangles != 1 {
		t.Errorf("stats = %+v, want mesh drawn", p.Stats)
	}
}

func BenchmarkDrawMesh(b *testing.B) {
	p, _ := createTestPipeline(256, 256)
	mesh := unitTriangle()
	mat := NewMaterial()
	mat.AlbedoMap = NewCheckerTexture(64, 64, 8, ColorWhite, ColorGray)

	for b.Loop() {
		p.BeginFrame(DefaultClearColor)
		_ = p.DrawMesh(mesh, math3d.Identity(), mat)
	}
}
