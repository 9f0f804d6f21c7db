// Package config reads facet scene descriptions: which model to draw, how
// to place it, the camera, the light and the output.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

// ErrInvalidConfig is returned for scene files that parse but describe
// something that cannot be rendered.
var ErrInvalidConfig = errors.New("invalid scene config")

// Scene is the top-level scene file.
type Scene struct {
	Model      string          `yaml:"model"`
	Material   MaterialConfig  `yaml:"material,omitempty"`
	Transform  TransformConfig `yaml:"transform"`
	Camera     CameraConfig    `yaml:"camera"`
	Light      LightConfig     `yaml:"light"`
	Output     OutputConfig    `yaml:"output"`
	Background string          `yaml:"background"`

	// Spin is the turntable and live-view rotation speed in degrees per
	// second about +Y.
	Spin float32 `yaml:"spin"`

	// Wireframe draws triangle edges over the shaded image.
	Wireframe bool `yaml:"wireframe,omitempty"`

	background uint32
}

// MaterialConfig overrides the model's own material. Unset fields keep
// the model's values; texture paths replace the matching slot.
type MaterialConfig struct {
	BaseColor *[4]float32 `yaml:"baseColor,omitempty"`
	Metallic  *float32    `yaml:"metallic,omitempty"`
	Roughness *float32    `yaml:"roughness,omitempty"`
	Emissive  *[3]float32 `yaml:"emissive,omitempty"`

	Albedo            string `yaml:"albedo,omitempty"`
	Normal            string `yaml:"normal,omitempty"`
	MetallicRoughness string `yaml:"metallicRoughness,omitempty"`
	EmissiveMap       string `yaml:"emissiveMap,omitempty"`
	Occlusion         string `yaml:"occlusion,omitempty"`

	// Wrap applies to every override texture: repeat, clamp or mirror.
	Wrap string `yaml:"wrap,omitempty"`
}

// TransformConfig places the model in the world.
type TransformConfig struct {
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"` // Euler degrees, X then Y then Z
	Scale    float32    `yaml:"scale"`

	// Fit rescales the model so its largest dimension is Fit units and
	// centers it on the origin. Zero leaves the model as authored.
	Fit float32 `yaml:"fit"`
}

// CameraConfig is a look-at camera.
type CameraConfig struct {
	Eye    [3]float32 `yaml:"eye"`
	Target [3]float32 `yaml:"target"`
	Up     [3]float32 `yaml:"up"`
	FOV    float32    `yaml:"fov"` // Vertical, degrees
	Near   float32    `yaml:"near"`
	Far    float32    `yaml:"far"`
}

// LightConfig is the scene's point light. A nil position puts the light
// at the camera eye.
type LightConfig struct {
	Position  *[3]float32 `yaml:"position,omitempty"`
	Intensity [3]float32  `yaml:"intensity"`
	Ambient   [3]float32  `yaml:"ambient"`
}

// OutputConfig sizes still and turntable output.
type OutputConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Path   string `yaml:"path"`
	Frames int    `yaml:"frames"` // Turntable frame count
}

// Default returns the scene used when no file is given.
func Default() *Scene {
	return &Scene{
		Transform: TransformConfig{Scale: 1, Fit: 2},
		Camera: CameraConfig{
			Eye:  [3]float32{0, 0.5, 3},
			Up:   [3]float32{0, 1, 0},
			FOV:  45,
			Near: 0.1,
			Far:  100,
		},
		Light: LightConfig{
			Intensity: [3]float32{12, 12, 12},
			Ambient:   [3]float32{0.03, 0.03, 0.03},
		},
		Output: OutputConfig{
			Width:  640,
			Height: 480,
			Path:   "facet.png",
			Frames: 36,
		},
		Background: "#1e1e28",
		Spin:       30,
		background: 0xFF1E1E28,
	}
}

// Load reads a scene file over the defaults. Relative paths in the file
// are resolved against the file's directory. Unknown keys are an error.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	s := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s.resolve(filepath.Dir(path))
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	render.Logger().Debug("scene config loaded", "path", path, "model", s.Model)
	return s, nil
}

// Save writes the scene as YAML.
func (s *Scene) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// resolve makes every relative file path absolute against dir.
func (s *Scene) resolve(dir string) {
	for _, p := range []*string{
		&s.Model,
		&s.Material.Albedo,
		&s.Material.Normal,
		&s.Material.MetallicRoughness,
		&s.Material.EmissiveMap,
		&s.Material.Occlusion,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks ranges and parses the background color. It must be
// called again after fields are changed by hand. A scene without a model
// is valid; the model may come from the command line.
func (s *Scene) Validate() error {
	if s.Output.Width <= 0 || s.Output.Height <= 0 {
		return fmt.Errorf("output size %dx%d: %w", s.Output.Width, s.Output.Height, ErrInvalidConfig)
	}
	if s.Output.Frames <= 0 {
		return fmt.Errorf("frames %d: %w", s.Output.Frames, ErrInvalidConfig)
	}
	c := s.Camera
	if c.FOV <= 0 || c.FOV >= 180 {
		return fmt.Errorf("fov %v outside (0, 180): %w", c.FOV, ErrInvalidConfig)
	}
	if c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("clip planes %v..%v: %w", c.Near, c.Far, ErrInvalidConfig)
	}
	if vec3(c.Eye) == vec3(c.Target) {
		return fmt.Errorf("camera eye equals target: %w", ErrInvalidConfig)
	}
	if s.Transform.Scale <= 0 {
		return fmt.Errorf("scale %v: %w", s.Transform.Scale, ErrInvalidConfig)
	}
	if _, err := wrapMode(s.Material.Wrap); err != nil {
		return err
	}

	bg, err := render.ParseHex(s.Background)
	if err != nil {
		return fmt.Errorf("background %q: %w", s.Background, ErrInvalidConfig)
	}
	s.background = render.Pack(bg)
	return nil
}

// BackgroundColor returns the parsed background as a framebuffer word.
func (s *Scene) BackgroundColor() uint32 {
	return s.background
}

func vec3(v [3]float32) math3d.Vec3 {
	return math3d.V3(v[0], v[1], v[2])
}

// NewCamera builds the scene camera for the given aspect ratio.
func (s *Scene) NewCamera(aspect float32) *render.Camera {
	cam := render.NewCamera()
	cam.SetEye(vec3(s.Camera.Eye))
	cam.SetTarget(vec3(s.Camera.Target))
	cam.SetUp(vec3(s.Camera.Up))
	cam.SetFOV(math3d.Radians(s.Camera.FOV))
	cam.SetAspectRatio(aspect)
	cam.SetClipPlanes(s.Camera.Near, s.Camera.Far)
	return cam
}

// NewLight builds the scene light. Without a configured position the
// light sits at eye.
func (s *Scene) NewLight(eye math3d.Vec3) render.Light {
	pos := eye
	if s.Light.Position != nil {
		pos = vec3(*s.Light.Position)
	}
	l := render.NewLight(pos, vec3(s.Light.Intensity))
	l.Ambient = vec3(s.Light.Ambient)
	return l
}

// ModelMatrix returns the world placement of the model. Spin is applied
// after the configured rotation and before the translation.
func (s *Scene) ModelMatrix(spin math3d.Mat4) math3d.Mat4 {
	t := s.Transform
	r := t.Rotation
	return math3d.Translate(vec3(t.Position)).
		Mul(spin).
		Mul(math3d.Euler(r[0], r[1], r[2])).
		Mul(math3d.ScaleUniform(t.Scale))
}

func wrapMode(s string) (render.WrapMode, error) {
	switch s {
	case "", "repeat":
		return render.WrapRepeat, nil
	case "clamp":
		return render.WrapClamp, nil
	case "mirror":
		return render.WrapMirror, nil
	default:
		return 0, fmt.Errorf("wrap mode %q: %w", s, ErrInvalidConfig)
	}
}

// IsZero reports whether the override changes nothing.
func (m MaterialConfig) IsZero() bool {
	return m.BaseColor == nil && m.Metallic == nil && m.Roughness == nil && m.Emissive == nil &&
		m.Albedo == "" && m.Normal == "" && m.MetallicRoughness == "" && m.EmissiveMap == "" && m.Occlusion == ""
}

// Apply returns a copy of base with the overrides applied. Override
// textures are decoded in parallel; the first failure cancels the rest.
// A nil base starts from render.NewMaterial.
func (m MaterialConfig) Apply(ctx context.Context, base *render.Material) (*render.Material, error) {
	mat := render.NewMaterial()
	if base != nil {
		c := *base
		mat = &c
	}
	if m.BaseColor != nil {
		c := *m.BaseColor
		mat.BaseColor = math3d.V4(c[0], c[1], c[2], c[3])
	}
	if m.Metallic != nil {
		mat.Metallic = *m.Metallic
	}
	if m.Roughness != nil {
		mat.Roughness = *m.Roughness
	}
	if m.Emissive != nil {
		mat.EmissiveFactor = vec3(*m.Emissive)
	}

	wrap, err := wrapMode(m.Wrap)
	if err != nil {
		return nil, err
	}

	slots := []struct {
		path string
		dst  **render.Texture
		srgb bool
	}{
		{m.Albedo, &mat.AlbedoMap, true},
		{m.Normal, &mat.NormalMap, false},
		{m.MetallicRoughness, &mat.MetallicRoughnessMap, false},
		{m.EmissiveMap, &mat.EmissiveMap, true},
		{m.Occlusion, &mat.OcclusionMap, false},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, slot := range slots {
		if slot.path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tex, err := render.LoadTexture(slot.path)
			if err != nil {
				return err
			}
			tex.SRGB = slot.srgb
			tex.WrapU, tex.WrapV = wrap, wrap
			*slot.dst = tex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("material textures: %w", err)
	}
	return mat, nil
}
