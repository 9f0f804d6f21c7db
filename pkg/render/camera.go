package render

import (
	"github.com/chewxy/math32"
	"github.com/taigrr/facet/pkg/math3d"
)

// Camera is a look-at camera with a perspective projection.
type Camera struct {
	// Eye, target and up vector in world space
	Eye    math3d.Vec3
	Target math3d.Vec3
	Up     math3d.Vec3

	// Projection parameters
	FOV         float32 // Vertical field of view in radians
	AspectRatio float32 // Width / Height
	Near        float32 // Near clipping plane
	Far         float32 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
	viewProjDirty  bool
}

// NewCamera creates a camera at (0, 0, 3) looking at the origin with a 45
// degree vertical field of view.
func NewCamera() *Camera {
	return &Camera{
		Eye:           math3d.V3(0, 0, 3),
		Target:        math3d.Zero3(),
		Up:            math3d.Up(),
		FOV:           math3d.Radians(45),
		AspectRatio:   1,
		Near:          0.1,
		Far:           100,
		viewDirty:     true,
		projDirty:     true,
		viewProjDirty: true,
	}
}

// SetEye sets the camera position.
func (c *Camera) SetEye(eye math3d.Vec3) {
	c.Eye = eye
	c.invalidateView()
}

// SetTarget sets the point the camera looks at.
func (c *Camera) SetTarget(target math3d.Vec3) {
	c.Target = target
	c.invalidateView()
}

// SetUp sets the up hint used to orient the view.
func (c *Camera) SetUp(up math3d.Vec3) {
	c.Up = up
	c.invalidateView()
}

// SetFOV sets the vertical field of view (in radians).
func (c *Camera) SetFOV(fov float32) {
	c.FOV = fov
	c.invalidateProjection()
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float32) {
	c.AspectRatio = aspect
	c.invalidateProjection()
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float32) {
	c.Near = near
	c.Far = far
	c.invalidateProjection()
}

func (c *Camera) invalidateView() {
	c.viewDirty = true
	c.viewProjDirty = true
}

func (c *Camera) invalidateProjection() {
	c.projDirty = true
	c.viewProjDirty = true
}

// Forward returns the unit direction from the eye to the target.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

// Distance returns the distance from the eye to the target.
func (c *Camera) Distance() float32 {
	return c.Eye.Distance(c.Target)
}

// Orbit moves the eye around the target by yaw radians about the up axis
// and pitch radians about the camera's right axis, keeping its distance.
// Pitch stops just short of the poles.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.Eye.Sub(c.Target)
	up := c.Up.Normalize()

	offset = math3d.AngleAxis(yaw, up).Rotate(offset)

	const maxPitch = math3d.Pi/2 - 0.01
	current := math32.Asin(math3d.Clamp(offset.Normalize().Dot(up), -1, 1))
	next := math3d.Clamp(current+pitch, -maxPitch, maxPitch)
	right := up.Cross(offset).Normalize()
	offset = math3d.AngleAxis(current-next, right).Rotate(offset)

	c.SetEye(c.Target.Add(offset))
}

// Zoom scales the eye's distance to the target by factor.
func (c *Camera) Zoom(factor float32) {
	c.SetEye(c.Target.Add(c.Eye.Sub(c.Target).Scale(factor)))
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookAt(c.Eye, c.Target, c.Up)
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	if c.viewProjDirty {
		c.viewProjMatrix = c.ProjectionMatrix().Mul(c.ViewMatrix())
		c.viewProjDirty = false
	}
	return c.viewProjMatrix
}

// WorldToScreen transforms a world point to pixel coordinates using the
// same viewport mapping as the rasterizer.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float32, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Behind the camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < 0 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	s := viewport(ndc, screenWidth, screenHeight)
	return s.X, s.Y, s.Z, true
}
