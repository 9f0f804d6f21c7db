// Package models provides mesh and scene loading for facet.
package models

import (
	"fmt"
	"slices"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// ErrIndexOutOfRange is returned when a face references a vertex that does
// not exist. It is the same value the pipeline reports.
var ErrIndexOutOfRange = render.ErrIndexOutOfRange

// Vertex holds all vertex attributes.
type Vertex struct {
	Position math3d.Vec3
	TexCoord math3d.Vec2
	Normal   math3d.Vec3
}

// Mesh is an indexed triangle list. Every three indices form one
// counter-clockwise triangle.
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Indices   []uint32
	Transform math3d.Transform
	Material  int // Index into the owning scene's materials, -1 for none

	// World is the node matrix of a mesh flattened out of a scene graph.
	// It is applied after Transform and may contain shear.
	World *math3d.Mat4

	// Bounding box in local space, set by CalculateBounds
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// NewMesh creates an empty mesh with an identity transform.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Transform: math3d.NewTransform(),
		Material:  -1,
	}
}

// Validate checks that every index refers to an existing vertex and that
// the index count is a multiple of three.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: %d indices do not form whole triangles", m.Name, len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("mesh %q: index %d is %d of %d vertices: %w", m.Name, i, idx, n, ErrIndexOutOfRange)
		}
	}
	return nil
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals replaces every normal with the area-weighted
// average of the face normals around the vertex.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for t := range m.TriangleCount() {
		f := m.GetFace(t)
		v0 := m.Vertices[f[0]].Position
		v1 := m.Vertices[f[1]].Position
		v2 := m.Vertices[f[2]].Position

		// Unnormalized, so larger faces weigh more.
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		for _, idx := range f {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// ApplyMatrix bakes mat into the vertex data and recomputes the bounds.
// Normals use the matrix's upper-left 3x3, matching the pipeline.
func (m *Mesh) ApplyMatrix(mat math3d.Mat4) {
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulVec3(m.Vertices[i].Position)
		m.Vertices[i].Normal = mat.MulVec3Dir(m.Vertices[i].Normal).Normalize()
	}
	m.CalculateBounds()
}

// Model returns the mesh's local-to-world matrix.
func (m *Mesh) Model() math3d.Mat4 {
	if m.World != nil {
		return m.World.Mul(m.Transform.Matrix())
	}
	return m.Transform.Matrix()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Vertices = slices.Clone(m.Vertices)
	c.Indices = slices.Clone(m.Indices)
	if m.World != nil {
		w := *m.World
		c.World = &w
	}
	return &c
}

// GetVertex returns the position, normal, and UV for vertex i.
// Implements render.MeshRenderer interface.
func (m *Mesh) GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2) {
	v := m.Vertices[i]
	return v.Position, v.Normal, v.TexCoord
}

// GetFace returns the vertex indices for triangle i.
// Implements render.MeshRenderer interface.
func (m *Mesh) GetFace(i int) [3]int {
	f := m.Indices[i*3 : i*3+3 : i*3+3]
	return [3]int{int(f[0]), int(f[1]), int(f[2])}
}

// GetBounds returns the axis-aligned bounding box.
// Implements render.BoundedMeshRenderer interface.
func (m *Mesh) GetBounds() (min, max math3d.Vec3) {
	return m.BoundsMin, m.BoundsMax
}
