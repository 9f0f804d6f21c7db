package render

import "github.com/taigrr/facet/pkg/math3d"

// Material describes a metallic-roughness surface. Factors multiply the
// corresponding texture samples; a nil texture samples as white.
type Material struct {
	Name string

	BaseColor      math3d.Vec4 // Linear RGBA
	Metallic       float32
	Roughness      float32
	EmissiveFactor math3d.Vec3

	AlbedoMap            *Texture // sRGB base color
	NormalMap            *Texture // Tangent-space normals, carried but not sampled
	MetallicRoughnessMap *Texture // G = roughness, B = metallic
	EmissiveMap          *Texture // sRGB emissive color
	OcclusionMap         *Texture // R = ambient occlusion
}

// NewMaterial returns a white, fully rough dielectric with no emission.
func NewMaterial() *Material {
	return &Material{
		Name:      "default",
		BaseColor: math3d.V4(1, 1, 1, 1),
		Metallic:  0,
		Roughness: 1,
	}
}

// surface is a material evaluated at one texture coordinate.
type surface struct {
	albedo    math3d.Vec3
	metallic  float32
	roughness float32
	emissive  math3d.Vec3
	occlusion float32
}

// sample evaluates every material slot at uv.
func (m *Material) sample(uv math3d.Vec2) surface {
	s := surface{
		albedo:    m.BaseColor.Vec3(),
		metallic:  m.Metallic,
		roughness: m.Roughness,
		emissive:  m.EmissiveFactor,
		occlusion: 1,
	}
	if m.AlbedoMap != nil {
		s.albedo = s.albedo.Mul(m.AlbedoMap.Sample(uv).Vec3())
	}
	if m.MetallicRoughnessMap != nil {
		mr := m.MetallicRoughnessMap.Sample(uv)
		s.roughness *= mr.Y
		s.metallic *= mr.Z
	}
	if m.EmissiveMap != nil {
		s.emissive = s.emissive.Mul(m.EmissiveMap.Sample(uv).Vec3())
	}
	if m.OcclusionMap != nil {
		s.occlusion = m.OcclusionMap.Sample(uv).X
	}
	return s
}
