package models

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// Model is everything needed to draw a loaded file: meshes carrying
// world transforms and the materials they index.
type Model struct {
	Name      string
	Meshes    []*Mesh
	Materials []*render.Material
}

// Load reads an OBJ, glTF or GLB file, choosing the format by extension.
func Load(path string) (*Model, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		mesh, err := LoadOBJ(path)
		if err != nil {
			return nil, err
		}
		return &Model{Name: mesh.Name, Meshes: []*Mesh{mesh}}, nil
	case ".gltf", ".glb":
		scene, err := LoadGLTF(path)
		if err != nil {
			return nil, err
		}
		return &Model{Name: scene.Name, Meshes: scene.Meshes(), Materials: scene.Materials}, nil
	default:
		return nil, fmt.Errorf("unsupported model format %q (use .obj, .gltf or .glb)", ext)
	}
}

// Material returns the material of mesh, or nil when it has none.
func (m *Model) Material(mesh *Mesh) *render.Material {
	if mesh.Material < 0 || mesh.Material >= len(m.Materials) {
		return nil
	}
	return m.Materials[mesh.Material]
}

// TriangleCount returns the total number of triangles.
func (m *Model) TriangleCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += mesh.TriangleCount()
	}
	return n
}

// Bounds returns the world-space box around every mesh.
func (m *Model) Bounds() render.AABB {
	var box render.AABB
	for i, mesh := range m.Meshes {
		b := render.NewAABB(mesh.GetBounds()).Transform(mesh.Model())
		if i == 0 {
			box = b
			continue
		}
		box.Min = box.Min.Min(b.Min)
		box.Max = box.Max.Max(b.Max)
	}
	return box
}

// Fit returns a matrix that centers the model on the origin and scales
// its largest dimension to size. Apply it in front of each mesh's own
// transform.
func (m *Model) Fit(size float32) math3d.Mat4 {
	box := m.Bounds()
	largest := box.Size().MaxComponent()
	if largest <= 0 {
		return math3d.Identity()
	}
	return math3d.ScaleUniform(size / largest).Mul(math3d.Translate(box.Center().Negate()))
}
