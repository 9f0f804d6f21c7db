package render

import (
	"github.com/taigrr/facet/pkg/math3d"
)

// Wireframe draws unshaded lines over a framebuffer as seen from a camera.
// Lines ignore and leave the depth buffer untouched, so an overlay drawn
// after the shaded frame is always visible.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a world-space segment, clipped to the view volume.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, c Color) {
	vp := w.camera.ViewProjectionMatrix()
	a := vp.MulVec4(math3d.V4FromV3(p1, 1))
	b := vp.MulVec4(math3d.V4FromV3(p2, 1))

	a, b, ok := clipSegment(a, b)
	if !ok {
		return
	}
	sa := viewport(a.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	sb := viewport(b.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	w.fb.DrawLine(int(sa.X+0.5), int(sa.Y+0.5), int(sb.X+0.5), int(sb.Y+0.5), Pack(c))
}

// clipSegment clips a clip-space segment against the six planes of the
// view volume (Liang-Barsky in homogeneous coordinates).
func clipSegment(a, b math3d.Vec4) (math3d.Vec4, math3d.Vec4, bool) {
	// Signed distances to each plane; inside is >= 0.
	dist := func(v math3d.Vec4) [6]float32 {
		return [6]float32{v.W + v.X, v.W - v.X, v.W + v.Y, v.W - v.Y, v.Z, v.W - v.Z}
	}
	da, db := dist(a), dist(b)

	t0, t1 := float32(0), float32(1)
	for i := range da {
		switch {
		case da[i] < 0 && db[i] < 0:
			return a, b, false
		case da[i] < 0:
			t0 = max(t0, da[i]/(da[i]-db[i]))
		case db[i] < 0:
			t1 = min(t1, da[i]/(da[i]-db[i]))
		}
	}
	if t0 > t1 {
		return a, b, false
	}
	return a.Lerp(b, t0), a.Lerp(b, t1), true
}

// DrawMesh draws every triangle edge of mesh transformed by model.
// Faces with out-of-range indices are skipped.
func (w *Wireframe) DrawMesh(mesh MeshRenderer, model math3d.Mat4, c Color) {
	n := mesh.VertexCount()
	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		var world [3]math3d.Vec3
		valid := true
		for j, idx := range face {
			if idx < 0 || idx >= n {
				valid = false
				break
			}
			pos, _, _ := mesh.GetVertex(idx)
			world[j] = model.MulVec3(pos)
		}
		if !valid {
			continue
		}
		w.DrawLine3D(world[0], world[1], c)
		w.DrawLine3D(world[1], world[2], c)
		w.DrawLine3D(world[2], world[0], c)
	}
}

// boxEdges indexes the corners returned by AABB.Corners.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBounds draws the twelve edges of a local-space box under model.
func (w *Wireframe) DrawBounds(box AABB, model math3d.Mat4, c Color) {
	corners := box.Corners()
	for i := range corners {
		corners[i] = model.MulVec3(corners[i])
	}
	for _, e := range boxEdges {
		w.DrawLine3D(corners[e[0]], corners[e[1]], c)
	}
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float32) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)   // X axis
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen) // Y axis
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)  // Z axis
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (w *Wireframe) DrawGrid(size, step float32, c Color) {
	half := size / 2
	for x := -half; x <= half; x += step {
		w.DrawLine3D(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), c)
	}
	for z := -half; z <= half; z += step {
		w.DrawLine3D(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), c)
	}
}

// DrawPoint draws a point as a small three-axis cross.
func (w *Wireframe) DrawPoint(pos math3d.Vec3, size float32, c Color) {
	h := size / 2
	w.DrawLine3D(pos.Sub(math3d.V3(h, 0, 0)), pos.Add(math3d.V3(h, 0, 0)), c)
	w.DrawLine3D(pos.Sub(math3d.V3(0, h, 0)), pos.Add(math3d.V3(0, h, 0)), c)
	w.DrawLine3D(pos.Sub(math3d.V3(0, 0, h)), pos.Add(math3d.V3(0, 0, h)), c)
}
