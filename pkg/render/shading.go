package render

import (
	"github.com/chewxy/math32"
	"github.com/taigrr/facet/pkg/math3d"
)

const (
	// dielectricF0 is the normal-incidence reflectance of non-metals.
	dielectricF0 = 0.04

	// minRoughness keeps the GGX denominator away from zero at n·h = 1.
	minRoughness = 0.045

	// geometryEpsilon floors the Schlick-GGX denominator.
	geometryEpsilon = 1e-4
)

// Shade is the physically-based fragment stage: one point light, a
// Cook-Torrance specular lobe (GGX distribution, Schlick-GGX visibility,
// Schlick Fresnel) and a Lambertian diffuse term. The result is opaque with
// every channel clamped to [0, 1].
func (u *Uniform) Shade(in Varying) math3d.Vec4 {
	s := u.Material.sample(in.TexCoord)

	n := in.Normal.Normalize()
	v := in.Position.Negate().Normalize()

	l := u.Light.Position.Sub(in.Position)
	distanceSq := l.LenSq()
	l = l.Normalize()
	h := v.Add(l).Normalize()

	nDotL := n.Dot(l)
	if nDotL <= 0 {
		return math3d.V4(0, 0, 0, 1)
	}
	nDotV := n.Dot(v)

	roughness := math32.Max(s.roughness, minRoughness)
	f0 := math3d.Splat3(dielectricF0).Lerp(s.albedo, s.metallic)

	d := DistributionGGX(n.Dot(h), roughness)
	vis := VisibilitySchlickGGX(nDotL, nDotV, roughness)
	f := FresnelSchlick(f0, v.Dot(h))
	specular := f.Scale(vis * d * 0.25)

	diffuse := s.albedo.Scale(1 / math3d.Pi)
	radiance := u.Light.Intensity.Scale(1 / distanceSq)

	color := diffuse.Add(specular).Add(s.emissive).Scale(nDotL).Mul(radiance)
	color = color.Add(s.emissive).Add(u.Light.Ambient.Scale(s.occlusion))

	return math3d.V4FromV3(color.Saturate(), 1)
}

// DistributionGGX is the Trowbridge-Reitz normal distribution
// alpha² / (π ((n·h)²(alpha²-1) + 1)²) with alpha = roughness².
func DistributionGGX(nDotH, roughness float32) float32 {
	alpha := roughness * roughness
	alpha2 := alpha * alpha
	denom := nDotH*nDotH*(alpha2-1) + 1
	return alpha2 / (math3d.Pi * denom * denom)
}

// geometrySchlickGGX is 1 / (x(1-k) + k) with the denominator floored.
func geometrySchlickGGX(x, k float32) float32 {
	return 1 / math32.Max(x*(1-k)+k, geometryEpsilon)
}

// VisibilitySchlickGGX is the product of the Schlick-GGX factor evaluated
// at n·l and n·v, with k = (roughness+1)²/8.
func VisibilitySchlickGGX(nDotL, nDotV, roughness float32) float32 {
	r := roughness + 1
	k := r * r / 8
	return geometrySchlickGGX(nDotL, k) * geometrySchlickGGX(nDotV, k)
}

// FresnelSchlick returns F0 + (1-F0)(1 - v·h)⁵ with v·h clamped to [0, 1].
func FresnelSchlick(f0 math3d.Vec3, vDotH float32) math3d.Vec3 {
	t := 1 - math3d.Saturate(vDotH)
	t5 := t * t * t * t * t
	return f0.Add(math3d.One3().Sub(f0).Scale(t5))
}
