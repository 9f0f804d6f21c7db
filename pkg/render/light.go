package render

import "github.com/taigrr/facet/pkg/math3d"

// DefaultAmbient is the constant ambient term added to every lit fragment,
// scaled by ambient occlusion.
var DefaultAmbient = math3d.Splat3(0.03)

// Light is a single point light with inverse-square falloff.
type Light struct {
	Position  math3d.Vec3 // World space, or view space inside a Uniform
	Intensity math3d.Vec3 // Radiant intensity per channel
	Ambient   math3d.Vec3 // Ambient color added regardless of direct light
}

// NewLight creates a point light with the default ambient term.
func NewLight(position, intensity math3d.Vec3) Light {
	return Light{
		Position:  position,
		Intensity: intensity,
		Ambient:   DefaultAmbient,
	}
}

// FromTransform places the light at the transform's position. Rotation and
// scale have no effect on a point light.
func (l Light) FromTransform(t math3d.Transform) Light {
	l.Position = t.Position
	return l
}

// viewSpace returns a copy of the light with its position moved into the
// space of view.
func (l Light) viewSpace(view math3d.Mat4) Light {
	l.Position = view.MulVec3(l.Position)
	return l
}
