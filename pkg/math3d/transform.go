package math3d

// Transform is a position, rotation and non-uniform scale. It is owned by
// a single mesh or node and mutated in place between frames.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    One3(),
	}
}

// Matrix returns the model matrix T * R * S. The rotated, scaled basis
// axes become the first three columns and the position the fourth.
func (t Transform) Matrix() Mat4 {
	x := t.Rotation.Rotate(V3(t.Scale.X, 0, 0))
	y := t.Rotation.Rotate(V3(0, t.Scale.Y, 0))
	z := t.Rotation.Rotate(V3(0, 0, t.Scale.Z))
	p := t.Position

	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		p.X, p.Y, p.Z, 1,
	}
}

// Rotate applies q after the current rotation.
func (t *Transform) Rotate(q Quat) {
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// Apply transforms a point from local to parent space.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Rotation.Rotate(p.Mul(t.Scale)).Add(t.Position)
}
