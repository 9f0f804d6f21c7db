package render

import (
	"errors"
	"fmt"

	"github.com/taigrr/facet/pkg/math3d"
)

// ErrIndexOutOfRange is returned when a mesh face references a vertex that
// does not exist.
var ErrIndexOutOfRange = errors.New("vertex index out of range")

// MeshRenderer is the mesh shape the pipeline draws. models.Mesh implements
// it; the interface keeps render free of a models import.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer extends MeshRenderer with bounding box support for frustum culling.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() (min, max math3d.Vec3)
}

// Uniform holds the inputs that are constant across one draw call. It is
// built once per mesh per frame and only read while that mesh is drawn.
type Uniform struct {
	ModelView    math3d.Mat4
	NormalMatrix math3d.Mat3 // Upper-left 3x3 of ModelView
	Projection   math3d.Mat4
	Light        Light // Position in view space
	Material     *Material
}

// NewUniform builds the per-draw uniform block for a model matrix seen
// through cam. The light is given in world space.
//
// Normals are transformed by the upper-left 3x3 of the model-view rather
// than its inverse transpose. That is exact for rotation and uniform scale;
// non-uniform scale skews lighting.
func NewUniform(model math3d.Mat4, cam *Camera, light Light, mat *Material) Uniform {
	if mat == nil {
		mat = NewMaterial()
	}
	view := cam.ViewMatrix()
	modelView := view.Mul(model)
	return Uniform{
		ModelView:    modelView,
		NormalMatrix: modelView.Mat3(),
		Projection:   cam.ProjectionMatrix(),
		Light:        light.viewSpace(view),
		Material:     mat,
	}
}

// Varying is the per-vertex state interpolated across a triangle.
type Varying struct {
	TexCoord math3d.Vec2
	Normal   math3d.Vec3
	Position math3d.Vec3 // View space
}

// VertexOutput is the result of the vertex stage.
type VertexOutput struct {
	Clip    math3d.Vec4
	Varying Varying
}

// FragmentShader computes the color of one covered pixel.
type FragmentShader func(Varying) math3d.Vec4

// ShadeVertex is the vertex stage. It is a pure function of its inputs.
func (u *Uniform) ShadeVertex(pos, normal math3d.Vec3, uv math3d.Vec2) VertexOutput {
	view := u.ModelView.MulVec4(math3d.V4FromV3(pos, 1))
	return VertexOutput{
		Clip: u.Projection.MulVec4(view),
		Varying: Varying{
			TexCoord: uv,
			Normal:   u.NormalMatrix.MulVec3(normal).Normalize(),
			Position: view.Vec3(),
		},
	}
}

// Stats counts what the pipeline did since the last BeginFrame.
type Stats struct {
	MeshesTested int // Meshes tested against the view frustum
	MeshesCulled int // Meshes rejected by the frustum test
	MeshesDrawn  int // Meshes that passed the frustum test

	Triangles  int // Triangles submitted
	BackFacing int // Triangles removed by back-face culling
	Rejected   int // Triangles outside one clip plane, with w == 0 or beyond the guard band
	Degenerate int // Triangles with no area on screen

	Fragments   int // Fragments shaded
	DepthFailed int // Fragments that lost the depth test
}

// Pipeline drives the vertex stage, primitive assembly, rasterization and
// fragment stage into one framebuffer. It is not safe for concurrent use:
// the framebuffer belongs to whichever goroutine runs the frame.
type Pipeline struct {
	camera *Camera
	fb     *Framebuffer

	// Light is the scene's point light in world space.
	Light Light

	// Stats are reset by BeginFrame.
	Stats Stats

	// DisableBackfaceCulling renders both windings.
	DisableBackfaceCulling bool

	frustum  Frustum
	vertices []VertexOutput
}

// NewPipeline creates a pipeline drawing into fb as seen from camera, lit
// by a default white light at the camera's eye.
func NewPipeline(camera *Camera, fb *Framebuffer) *Pipeline {
	return &Pipeline{
		camera: camera,
		fb:     fb,
		Light:  NewLight(camera.Eye, math3d.Splat3(10)),
	}
}

// Camera returns the pipeline's camera.
func (p *Pipeline) Camera() *Camera {
	return p.camera
}

// Framebuffer returns the render target.
func (p *Pipeline) Framebuffer() *Framebuffer {
	return p.fb
}

// BeginFrame clears the framebuffer to clearColor, resets the statistics
// and snapshots the camera frustum for mesh culling.
func (p *Pipeline) BeginFrame(clearColor uint32) {
	p.fb.Clear(clearColor)
	p.Stats = Stats{}
	p.frustum = p.camera.Frustum()
}

// EndFrame logs the frame statistics at debug level.
func (p *Pipeline) EndFrame() {
	s := p.Stats
	Logger().Debug("frame",
		"meshes", s.MeshesDrawn,
		"meshes_culled", s.MeshesCulled,
		"triangles", s.Triangles,
		"backfacing", s.BackFacing,
		"rejected", s.Rejected,
		"degenerate", s.Degenerate,
		"fragments", s.Fragments,
		"depth_failed", s.DepthFailed,
	)
}

// IsVisible tests a local-space bounding box against the frame's frustum.
func (p *Pipeline) IsVisible(localBounds AABB, model math3d.Mat4) bool {
	return p.frustum.IntersectAABB(localBounds.Transform(model))
}

// tryFrustumCull reports whether the mesh lies entirely outside the view.
// Meshes without bounds are never culled.
func (p *Pipeline) tryFrustumCull(mesh MeshRenderer, model math3d.Mat4) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}

	p.Stats.MeshesTested++
	lo, hi := bounded.GetBounds()
	if !p.IsVisible(AABB{Min: lo, Max: hi}, model) {
		p.Stats.MeshesCulled++
		return true
	}
	p.Stats.MeshesDrawn++
	return false
}

// ValidateMesh checks that every face index refers to an existing vertex.
func ValidateMesh(mesh MeshRenderer) error {
	n := mesh.VertexCount()
	for i := range mesh.TriangleCount() {
		for _, idx := range mesh.GetFace(i) {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d of %d: %w", i, idx, n, ErrIndexOutOfRange)
			}
		}
	}
	return nil
}

// DrawMesh renders mesh with the given model matrix and material using the
// physically-based fragment stage. A nil material draws with NewMaterial.
// An invalid mesh is reported before anything is drawn.
func (p *Pipeline) DrawMesh(mesh MeshRenderer, model math3d.Mat4, mat *Material) error {
	if err := ValidateMesh(mesh); err != nil {
		return fmt.Errorf("draw mesh: %w", err)
	}
	if p.tryFrustumCull(mesh, model) {
		return nil
	}

	u := NewUniform(model, p.camera, p.Light, mat)

	// Each vertex runs through the vertex stage once.
	n := mesh.VertexCount()
	if cap(p.vertices) < n {
		p.vertices = make([]VertexOutput, n)
	}
	out := p.vertices[:n]
	for i := range out {
		pos, normal, uv := mesh.GetVertex(i)
		out[i] = u.ShadeVertex(pos, normal, uv)
	}

	for i := range mesh.TriangleCount() {
		face := mesh.GetFace(i)
		p.DrawTriangle([3]VertexOutput{out[face[0]], out[face[1]], out[face[2]]}, u.Shade)
	}
	return nil
}
