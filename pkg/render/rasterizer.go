package render

import (
	"github.com/chewxy/math32"
	"github.com/taigrr/facet/pkg/math3d"
)

// Clip-space outcodes. Depth is clipped to 0 <= z <= w.
const (
	outLeft uint8 = 1 << iota
	outRight
	outBottom
	outTop
	outNear
	outFar
)

func outcode(v math3d.Vec4) uint8 {
	var c uint8
	if v.X < -v.W {
		c |= outLeft
	}
	if v.X > v.W {
		c |= outRight
	}
	if v.Y < -v.W {
		c |= outBottom
	}
	if v.Y > v.W {
		c |= outTop
	}
	if v.Z < 0 {
		c |= outNear
	}
	if v.Z > v.W {
		c |= outFar
	}
	return c
}

// BackFacing reports whether a clip-space triangle faces away from the
// viewer: the z component of (v1-v0) × (v2-v0), over x, y and z before the
// perspective divide, is negative.
func BackFacing(v0, v1, v2 math3d.Vec4) bool {
	e1 := v1.Vec3().Sub(v0.Vec3())
	e2 := v2.Vec3().Sub(v0.Vec3())
	return e1.Cross(e2).Z < 0
}

// viewport maps normalized device x and y in [-1, 1] to pixel coordinates
// with row 0 at the top. Z and W pass through.
func viewport(ndc math3d.Vec4, width, height int) math3d.Vec4 {
	w := float32(width-1) / 2
	h := float32(height-1) / 2
	return math3d.V4(ndc.X*w+w, h-ndc.Y*h, ndc.Z, ndc.W)
}

// DrawTriangle runs primitive assembly and rasterization for one triangle
// of vertex-stage outputs, shading covered pixels with shade.
//
// Triangles are culled by winding, then rejected when all three vertices
// lie outside the same clip plane or any w is zero. There is no clipping:
// a triangle straddling the near plane is divided as is and may render
// incorrectly, and one whose screen vertices leave the guard band is
// rejected.
func (p *Pipeline) DrawTriangle(v [3]VertexOutput, shade FragmentShader) {
	p.Stats.Triangles++

	if !p.DisableBackfaceCulling && BackFacing(v[0].Clip, v[1].Clip, v[2].Clip) {
		p.Stats.BackFacing++
		return
	}
	if outcode(v[0].Clip)&outcode(v[1].Clip)&outcode(v[2].Clip) != 0 ||
		v[0].Clip.W == 0 || v[1].Clip.W == 0 || v[2].Clip.W == 0 {
		p.Stats.Rejected++
		return
	}

	var screen [3]math3d.Vec4
	for i := range v {
		screen[i] = viewport(v[i].Clip.PerspectiveDivide(), p.fb.Width, p.fb.Height)
		if !inGuardBand(screen[i].Vec2()) {
			p.Stats.Rejected++
			return
		}
	}
	p.rasterize(screen, [3]Varying{v[0].Varying, v[1].Varying, v[2].Varying}, shade)
}

// rasterize scans the clamped bounding box of a screen-space triangle.
// Each screen vertex holds pixel x and y, depth in z and 1/w in w.
func (p *Pipeline) rasterize(s [3]math3d.Vec4, vary [3]Varying, shade FragmentShader) {
	tri, ok := newScreenTriangle(s[0].Vec2(), s[1].Vec2(), s[2].Vec2())
	if !ok {
		p.Stats.Degenerate++
		return
	}

	fb := p.fb
	minX, maxX, okX := span(min3(s[0].X, s[1].X, s[2].X), max3(s[0].X, s[1].X, s[2].X), fb.Width)
	minY, maxY, okY := span(min3(s[0].Y, s[1].Y, s[2].Y), max3(s[0].Y, s[1].Y, s[2].Y), fb.Height)
	if !okX || !okY {
		return
	}

	for y := minY; y <= maxY; y++ {
		row := y * fb.Width
		for x := minX; x <= maxX; x++ {
			bc, inside := tri.cover(x, y)
			if !inside {
				continue
			}

			z := bc.X*s[0].Z + bc.Y*s[1].Z + bc.Z*s[2].Z
			if z < 0 || z > 1 {
				continue
			}
			idx := row + x
			if z > fb.Depth[idx] {
				p.Stats.DepthFailed++
				continue
			}
			fb.Depth[idx] = z

			// Perspective-correct weights: scale by each vertex's 1/w and
			// renormalize by the interpolated 1/w.
			pw := math3d.V3(bc.X*s[0].W, bc.Y*s[1].W, bc.Z*s[2].W)
			pw = pw.Scale(1 / (pw.X + pw.Y + pw.Z))

			fb.Colors[idx] = shade(interpolate(vary, pw)).PackARGB()
			p.Stats.Fragments++
		}
	}
}

// interpolate blends three varyings with weights w.
func interpolate(v [3]Varying, w math3d.Vec3) Varying {
	return Varying{
		TexCoord: v[0].TexCoord.Scale(w.X).Add(v[1].TexCoord.Scale(w.Y)).Add(v[2].TexCoord.Scale(w.Z)),
		Normal:   v[0].Normal.Scale(w.X).Add(v[1].Normal.Scale(w.Y)).Add(v[2].Normal.Scale(w.Z)),
		Position: v[0].Position.Scale(w.X).Add(v[1].Position.Scale(w.Y)).Add(v[2].Position.Scale(w.Z)),
	}
}

// span clamps the pixel range [lo, hi] to [0, size-1]. It reports false
// when the range is empty or not finite.
func span(lo, hi float32, size int) (int, int, bool) {
	if !(lo <= hi) || math32.IsInf(lo, 0) || math32.IsInf(hi, 0) {
		return 0, 0, false
	}
	lo = math32.Max(math32.Floor(lo), 0)
	hi = math32.Min(math32.Floor(hi), float32(size-1))
	if lo > hi {
		return 0, 0, false
	}
	return int(lo), int(hi), true
}

func min3(a, b, c float32) float32 {
	return math32.Min(a, math32.Min(b, c))
}

func max3(a, b, c float32) float32 {
	return math32.Max(a, math32.Max(b, c))
}

// degenerateEpsilon bounds |sin| of the angle between a triangle's two edge
// vectors below which it is treated as a line or a point.
const degenerateEpsilon = 1e-6

func degenerate(e1, e2 math3d.Vec2, area float32) bool {
	return area == 0 || area*area <= degenerateEpsilon*degenerateEpsilon*e1.Dot(e1)*e2.Dot(e2)
}

// Barycentric returns the weights (u, v, w) of p with respect to triangle
// a, b, c, so that p = u·a + v·b + w·c and u+v+w = 1. The weights come from
// Cramer's rule on the two edge vectors b-a and c-a. A triangle that
// degenerates to a line or a point returns the sentinel (-1, -1, -1), which
// fails every inside test.
func Barycentric(a, b, c, p math3d.Vec2) math3d.Vec3 {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	area := e1.Cross(e2)
	if degenerate(e1, e2, area) {
		return math3d.V3(-1, -1, -1)
	}
	ap := p.Sub(a)
	v := ap.Cross(e2) / area
	w := e1.Cross(ap) / area
	return math3d.V3(1-v-w, v, w)
}

// Screen positions are snapped to a grid of 1/subpixelScale pixels and the
// inside test runs on integers, so triangles sharing an edge or a vertex
// agree exactly on which pixel centers they own.
const (
	subpixelBits  = 8
	subpixelScale = 1 << subpixelBits
	subpixelHalf  = subpixelScale / 2

	// guardBand bounds |x| and |y| in pixels. Within it, edge terms fit in
	// an int64 with room to spare.
	guardBand = 1 << 19
)

// inGuardBand reports whether a screen position can be snapped. It is
// false for NaN and infinite coordinates.
func inGuardBand(v math3d.Vec2) bool {
	return math32.Abs(v.X) <= guardBand && math32.Abs(v.Y) <= guardBand
}

// fixed is a snapped screen position in subpixels.
type fixed struct{ x, y int64 }

func snap(v math3d.Vec2) fixed {
	return fixed{int64(math32.Round(v.X * subpixelScale)), int64(math32.Round(v.Y * subpixelScale))}
}

// pixelCenter returns the center of pixel (x, y), which lies on the grid.
func pixelCenter(x, y int) fixed {
	return fixed{int64(x)<<subpixelBits + subpixelHalf, int64(y)<<subpixelBits + subpixelHalf}
}

// edge returns the signed area term (q-p) × (x-p).
func edge(p, q, x fixed) int64 {
	return (q.x-p.x)*(x.y-p.y) - (q.y-p.y)*(x.x-p.x)
}

// screenTriangle caches the per-triangle terms of the inside test.
type screenTriangle struct {
	v       [3]fixed
	area    int64 // edge(v0, v1, v2), signed by winding
	invArea float64
	// topLeft[i] reports whether the edge opposite vertex i is a top or
	// left edge. Pixels centered exactly on such an edge are covered.
	topLeft [3]bool
}

// newScreenTriangle snaps a, b and c to the subpixel grid. It reports false
// for triangles that are degenerate before or after snapping. The vertices
// must lie inside the guard band.
func newScreenTriangle(a, b, c math3d.Vec2) (screenTriangle, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	if degenerate(e1, e2, e1.Cross(e2)) {
		return screenTriangle{}, false
	}

	t := screenTriangle{v: [3]fixed{snap(a), snap(b), snap(c)}}
	t.area = edge(t.v[0], t.v[1], t.v[2])
	if t.area == 0 {
		return screenTriangle{}, false
	}
	t.invArea = 1 / float64(t.area)
	t.topLeft[0] = isTopLeft(t.v[1], t.v[2], t.v[0])
	t.topLeft[1] = isTopLeft(t.v[2], t.v[0], t.v[1])
	t.topLeft[2] = isTopLeft(t.v[0], t.v[1], t.v[2])
	return t, true
}

// isTopLeft reports whether edge p→q, with the triangle's third vertex at
// r, is a top edge (horizontal with the interior below it in screen space)
// or a left edge (interior to its right).
func isTopLeft(p, q, r fixed) bool {
	dx, dy := q.x-p.x, q.y-p.y
	// Outward normal: perpendicular to the edge, pointing away from r.
	nx, ny := dy, -dx
	if nx*(r.x-p.x)+ny*(r.y-p.y) > 0 {
		nx, ny = -nx, -ny
	}
	if dy == 0 {
		return ny < 0
	}
	return nx < 0
}

// cover reports whether the center of pixel (x, y) is inside the triangle
// under the top-left fill rule, and returns its barycentric weights. Weight
// i is the edge term of the edge opposite vertex i over the signed area.
func (t *screenTriangle) cover(x, y int) (math3d.Vec3, bool) {
	c := pixelCenter(x, y)
	e := [3]int64{
		edge(t.v[1], t.v[2], c),
		edge(t.v[2], t.v[0], c),
		edge(t.v[0], t.v[1], c),
	}
	for i := range e {
		if !t.owns(e[i], i) {
			return math3d.Vec3{}, false
		}
	}
	return math3d.V3(
		float32(float64(e[0])*t.invArea),
		float32(float64(e[1])*t.invArea),
		float32(float64(e[2])*t.invArea),
	), true
}

func (t *screenTriangle) owns(e int64, i int) bool {
	if t.area < 0 {
		e = -e
	}
	return e > 0 || (e == 0 && t.topLeft[i])
}
