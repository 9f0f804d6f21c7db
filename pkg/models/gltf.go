package models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"runtime"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// Node is one entry of a scene's node tree. Nodes[0] of a Scene is a
// synthetic root that parents the document's scene roots.
type Node struct {
	Name     string
	Meshes   []int // Indices into Scene.Ranges
	Children []int
	Parent   int // -1 for the root
	Local    math3d.Mat4
}

// MeshRange locates one primitive inside the scene's flattened buffers.
// Indices in the range are relative to FirstVertex.
type MeshRange struct {
	FirstIndex  int
	NumIndices  int
	FirstVertex int
	NumVertices int
	Material    int // Index into Scene.Materials, -1 for none
}

// Scene is an imported glTF scene: a node tree over flattened vertex and
// index buffers.
type Scene struct {
	Name      string
	Nodes     []Node
	Ranges    []MeshRange
	Materials []*render.Material

	Positions []math3d.Vec3
	Normals   []math3d.Vec3
	TexCoords []math3d.Vec2
	Indices   []uint32
}

// LoadGLTF loads a .gltf or .glb file. External buffers and images are
// resolved relative to the file.
func LoadGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	scene, err := ImportGLTF(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	scene.Name = filepath.Base(path)
	render.Logger().Info("scene loaded", "path", path,
		"nodes", len(scene.Nodes)-1, "primitives", len(scene.Ranges),
		"materials", len(scene.Materials), "vertices", len(scene.Positions))
	return scene, nil
}

// ImportGLTF converts a decoded document. dir is used to resolve external
// image URIs.
func ImportGLTF(doc *gltf.Document, dir string) (*Scene, error) {
	s := &Scene{}

	images, err := decodeImages(doc, dir)
	if err != nil {
		return nil, err
	}
	for _, m := range doc.Materials {
		s.Materials = append(s.Materials, importMaterial(doc, m, images))
	}

	// Each glTF mesh is imported once; instancing nodes share its ranges.
	meshRanges := make([][]int, len(doc.Meshes))
	for i, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			r, ok, err := s.importPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
			}
			if ok {
				meshRanges[i] = append(meshRanges[i], len(s.Ranges))
				s.Ranges = append(s.Ranges, r)
			}
		}
	}

	s.Nodes = append(s.Nodes, Node{Name: "root", Parent: -1, Local: math3d.Identity()})
	visited := make([]bool, len(doc.Nodes))
	for _, n := range sceneRoots(doc) {
		if err := s.importNode(doc, n, 0, meshRanges, visited); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// sceneRoots returns the root nodes of the default scene. Documents
// without scenes use every node that is nobody's child.
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

func (s *Scene) importNode(doc *gltf.Document, idx, parent int, meshRanges [][]int, visited []bool) error {
	if idx < 0 || idx >= len(doc.Nodes) {
		return fmt.Errorf("node %d: %w", idx, ErrIndexOutOfRange)
	}
	if visited[idx] {
		return fmt.Errorf("node %d appears twice in the hierarchy", idx)
	}
	visited[idx] = true

	src := doc.Nodes[idx]
	node := Node{Name: src.Name, Parent: parent, Local: nodeMatrix(src)}
	if src.Mesh != nil {
		if *src.Mesh >= len(meshRanges) {
			return fmt.Errorf("node %q mesh %d: %w", src.Name, *src.Mesh, ErrIndexOutOfRange)
		}
		node.Meshes = meshRanges[*src.Mesh]
	}

	self := len(s.Nodes)
	s.Nodes = append(s.Nodes, node)
	s.Nodes[parent].Children = append(s.Nodes[parent].Children, self)

	for _, c := range src.Children {
		if err := s.importNode(doc, c, self, meshRanges, visited); err != nil {
			return err
		}
	}
	return nil
}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodeMatrix returns a node's local transform, from its matrix when one
// is set and from translation, rotation and scale otherwise.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	if n.Matrix != [16]float64{} && n.Matrix != identity64 {
		var m math3d.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}

	t := math3d.NewTransform()
	t.Position = math3d.V3(float32(n.Translation[0]), float32(n.Translation[1]), float32(n.Translation[2]))
	if n.Rotation != [4]float64{} {
		t.Rotation = math3d.Quat{
			X: float32(n.Rotation[0]),
			Y: float32(n.Rotation[1]),
			Z: float32(n.Rotation[2]),
			W: float32(n.Rotation[3]),
		}.Normalize()
	}
	if n.Scale != [3]float64{} {
		t.Scale = math3d.V3(float32(n.Scale[0]), float32(n.Scale[1]), float32(n.Scale[2]))
	}
	return t.Matrix()
}

// importPrimitive appends one triangle primitive to the flattened buffers.
// Non-triangle primitives and primitives without positions are skipped.
func (s *Scene) importPrimitive(doc *gltf.Document, prim *gltf.Primitive) (MeshRange, bool, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return MeshRange{}, false, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return MeshRange{}, false, nil
	}

	acr, err := accessor(doc, posIdx)
	if err != nil {
		return MeshRange{}, false, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return MeshRange{}, false, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return MeshRange{}, false, fmt.Errorf("normals: %w", err)
		}
		if normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return MeshRange{}, false, fmt.Errorf("read normals: %w", err)
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return MeshRange{}, false, fmt.Errorf("uvs: %w", err)
		}
		if uvs, err = modeler.ReadTextureCoord(doc, acr, nil); err != nil {
			return MeshRange{}, false, fmt.Errorf("read uvs: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if acr, err = accessor(doc, *prim.Indices); err != nil {
			return MeshRange{}, false, fmt.Errorf("indices: %w", err)
		}
		if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return MeshRange{}, false, fmt.Errorf("read indices: %w", err)
		}
	} else {
		// Unindexed: consecutive vertex triples.
		indices = make([]uint32, len(positions)-len(positions)%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	numIndices := len(indices) - len(indices)%3
	for _, idx := range indices[:numIndices] {
		if int(idx) >= len(positions) {
			return MeshRange{}, false, fmt.Errorf("index %d of %d vertices: %w", idx, len(positions), ErrIndexOutOfRange)
		}
	}

	r := MeshRange{
		FirstIndex:  len(s.Indices),
		NumIndices:  numIndices,
		FirstVertex: len(s.Positions),
		NumVertices: len(positions),
		Material:    -1,
	}
	if prim.Material != nil && *prim.Material < len(s.Materials) {
		r.Material = *prim.Material
	}

	for i, p := range positions {
		s.Positions = append(s.Positions, math3d.V3(p[0], p[1], p[2]))
		var n math3d.Vec3
		if i < len(normals) {
			n = math3d.V3(normals[i][0], normals[i][1], normals[i][2])
		}
		s.Normals = append(s.Normals, n)
		var uv math3d.Vec2
		if i < len(uvs) {
			uv = math3d.V2(uvs[i][0], uvs[i][1])
		}
		s.TexCoords = append(s.TexCoords, uv)
	}
	s.Indices = append(s.Indices, indices[:numIndices]...)
	return r, true, nil
}

// accessor returns accessor idx once its index and byte offset are known
// to lie inside the document.
func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", idx, ErrIndexOutOfRange)
	}
	acr := doc.Accessors[idx]
	if acr.BufferView == nil {
		return acr, nil
	}
	bv := *acr.BufferView
	if bv < 0 || bv >= len(doc.BufferViews) {
		return nil, fmt.Errorf("accessor %d buffer view %d: %w", idx, bv, ErrIndexOutOfRange)
	}
	if acr.ByteOffset > doc.BufferViews[bv].ByteLength {
		return nil, fmt.Errorf("accessor %d byte offset %d: %w", idx, acr.ByteOffset, ErrIndexOutOfRange)
	}
	return acr, nil
}

// decodeImages decodes every image of the document in parallel.
func decodeImages(doc *gltf.Document, dir string) ([]image.Image, error) {
	images := make([]image.Image, len(doc.Images))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, img := range doc.Images {
		g.Go(func() error {
			data, err := imageData(doc, img, dir)
			if err != nil {
				return fmt.Errorf("image %d %q: %w", i, img.Name, err)
			}
			if images[i], _, err = image.Decode(bytes.NewReader(data)); err != nil {
				return fmt.Errorf("decode image %d %q: %w", i, img.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// imageData returns the encoded bytes of an image from a buffer view, a
// data URI or a file next to the document.
func imageData(doc *gltf.Document, img *gltf.Image, dir string) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d: %w", *img.BufferView, ErrIndexOutOfRange)
		}
		bv := doc.BufferViews[*img.BufferView]
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return nil, fmt.Errorf("buffer view %d buffer %d: %w", *img.BufferView, bv.Buffer, ErrIndexOutOfRange)
		}
		return modeler.ReadBufferView(doc, bv)
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
	default:
		return nil, fmt.Errorf("image has no source")
	}
}

func importMaterial(doc *gltf.Document, m *gltf.Material, images []image.Image) *render.Material {
	mat := render.NewMaterial()
	mat.Name = m.Name
	mat.Metallic = 1 // glTF default
	mat.EmissiveFactor = math3d.V3(float32(m.EmissiveFactor[0]), float32(m.EmissiveFactor[1]), float32(m.EmissiveFactor[2]))

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			mat.BaseColor = math3d.V4(float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3]))
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			mat.AlbedoMap = texture(doc, pbr.BaseColorTexture.Index, images, true)
		}
		if pbr.MetallicRoughnessTexture != nil {
			mat.MetallicRoughnessMap = texture(doc, pbr.MetallicRoughnessTexture.Index, images, false)
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		mat.NormalMap = texture(doc, *m.NormalTexture.Index, images, false)
	}
	if m.OcclusionTexture != nil && m.OcclusionTexture.Index != nil {
		mat.OcclusionMap = texture(doc, *m.OcclusionTexture.Index, images, false)
	}
	if m.EmissiveTexture != nil {
		mat.EmissiveMap = texture(doc, m.EmissiveTexture.Index, images, true)
		if mat.EmissiveFactor == (math3d.Vec3{}) {
			// A texture with the default zero factor would contribute nothing.
			render.Logger().Warn("emissive texture with zero factor", "material", m.Name)
		}
	}
	return mat
}

// texture builds a render texture for a glTF texture index, applying its
// sampler's wrap modes. It returns nil when the image is unavailable.
func texture(doc *gltf.Document, idx int, images []image.Image, srgb bool) *render.Texture {
	if idx < 0 || idx >= len(doc.Textures) {
		return nil
	}
	t := doc.Textures[idx]
	if t.Source == nil || *t.Source < 0 || *t.Source >= len(images) || images[*t.Source] == nil {
		return nil
	}

	tex := render.TextureFromImage(images[*t.Source])
	tex.SRGB = srgb
	if t.Sampler != nil && *t.Sampler >= 0 && *t.Sampler < len(doc.Samplers) {
		sampler := doc.Samplers[*t.Sampler]
		tex.WrapU = wrapMode(sampler.WrapS)
		tex.WrapV = wrapMode(sampler.WrapT)
	}
	return tex
}

func wrapMode(w gltf.WrappingMode) render.WrapMode {
	switch w {
	case gltf.WrapClampToEdge:
		return render.WrapClamp
	case gltf.WrapMirroredRepeat:
		return render.WrapMirror
	default:
		return render.WrapRepeat
	}
}

// Material returns material i, or nil for -1 and out-of-range indices.
func (s *Scene) Material(i int) *render.Material {
	if i < 0 || i >= len(s.Materials) {
		return nil
	}
	return s.Materials[i]
}

// WorldMatrix returns the accumulated transform of node i.
func (s *Scene) WorldMatrix(i int) math3d.Mat4 {
	m := s.Nodes[i].Local
	for p := s.Nodes[i].Parent; p >= 0; p = s.Nodes[p].Parent {
		m = s.Nodes[p].Local.Mul(m)
	}
	return m
}

// TriangleCount returns the number of triangles drawn by the node tree,
// counting every instance.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, node := range s.Nodes {
		for _, r := range node.Meshes {
			n += s.Ranges[r].NumIndices / 3
		}
	}
	return n
}

// Meshes flattens the node tree into standalone meshes, one per primitive
// instance, each carrying its node's world matrix in World. Primitives without
// normals get smooth normals.
func (s *Scene) Meshes() []*Mesh {
	var out []*Mesh
	var walk func(i int, parent math3d.Mat4)
	walk = func(i int, parent math3d.Mat4) {
		node := &s.Nodes[i]
		world := parent.Mul(node.Local)
		for _, ri := range node.Meshes {
			out = append(out, s.rangeMesh(node.Name, s.Ranges[ri], world))
		}
		for _, c := range node.Children {
			walk(c, world)
		}
	}
	walk(0, math3d.Identity())
	return out
}

func (s *Scene) rangeMesh(name string, r MeshRange, world math3d.Mat4) *Mesh {
	m := NewMesh(name)
	m.Material = r.Material
	m.World = &world

	m.Vertices = make([]Vertex, r.NumVertices)
	hasNormals := false
	for i := range m.Vertices {
		j := r.FirstVertex + i
		m.Vertices[i] = Vertex{Position: s.Positions[j], TexCoord: s.TexCoords[j], Normal: s.Normals[j]}
		if s.Normals[j] != (math3d.Vec3{}) {
			hasNormals = true
		}
	}
	m.Indices = append([]uint32(nil), s.Indices[r.FirstIndex:r.FirstIndex+r.NumIndices]...)

	if !hasNormals {
		m.CalculateSmoothNormals()
	}
	m.CalculateBounds()
	return m
}
