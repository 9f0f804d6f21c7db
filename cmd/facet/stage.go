package main

import (
	"context"
	"fmt"

	"github.com/taigrr/facet/pkg/config"
	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/models"
	"github.com/taigrr/facet/pkg/render"
)

// drawMode selects what a frame shows.
type drawMode int

const (
	modeShaded drawMode = iota
	modeOverlay         // Shaded with wireframe on top
	modeWireframe
)

func (m drawMode) next() drawMode {
	return (m + 1) % 3
}

func (m drawMode) String() string {
	switch m {
	case modeOverlay:
		return "shaded+wire"
	case modeWireframe:
		return "wireframe"
	default:
		return "shaded"
	}
}

var (
	wireColor   = render.RGB(0, 255, 128)
	boundsColor = render.ColorYellow
	gridColor   = render.RGB(70, 70, 80)
)

// stage is a loaded scene ready to draw into its own framebuffer.
type stage struct {
	scene *config.Scene
	model *models.Model
	fit   math3d.Mat4

	// materials parallels model.Materials with overrides applied;
	// fallback is used by meshes without a material.
	materials []*render.Material
	fallback  *render.Material

	camera *render.Camera
	fb     *render.Framebuffer
	pipe   *render.Pipeline
	wire   *render.Wireframe
	mode   drawMode

	showBounds bool // Mesh bounding boxes
	showGuides bool // Ground grid and world axes
}

func newStage(ctx context.Context, s *config.Scene, width, height int) (*stage, error) {
	model, err := models.Load(s.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	st := &stage{
		scene:     s,
		model:     model,
		fit:       math3d.Identity(),
		materials: model.Materials,
		camera:    s.NewCamera(float32(width) / float32(height)),
		fb:        render.NewFramebuffer(width, height),
	}
	if s.Transform.Fit > 0 {
		st.fit = model.Fit(s.Transform.Fit)
	}
	if s.Wireframe {
		st.mode = modeOverlay
	}

	if !s.Material.IsZero() {
		st.materials = make([]*render.Material, len(model.Materials))
		for i, m := range model.Materials {
			if st.materials[i], err = s.Material.Apply(ctx, m); err != nil {
				return nil, err
			}
		}
		if st.fallback, err = s.Material.Apply(ctx, nil); err != nil {
			return nil, err
		}
	}

	st.pipe = render.NewPipeline(st.camera, st.fb)
	st.pipe.Light = s.NewLight(st.camera.Eye)
	st.wire = render.NewWireframe(st.camera, st.fb)
	return st, nil
}

func (st *stage) material(mesh *models.Mesh) *render.Material {
	if mesh.Material >= 0 && mesh.Material < len(st.materials) {
		return st.materials[mesh.Material]
	}
	return st.fallback
}

// resize changes the framebuffer size and the camera aspect ratio.
func (st *stage) resize(width, height int) {
	st.fb.Resize(width, height)
	st.camera.SetAspectRatio(float32(width) / float32(height))
}

// draw renders one frame with spin applied to the model. Guides are
// drawn without depth, so the grid sits under the model while the axes
// and the light marker sit on top of it.
func (st *stage) draw(spin math3d.Mat4) error {
	st.pipe.BeginFrame(st.scene.BackgroundColor())
	base := st.scene.ModelMatrix(spin).Mul(st.fit)
	if st.showGuides {
		st.wire.DrawGrid(2, 0.25, gridColor)
	}

	for _, mesh := range st.model.Meshes {
		world := base.Mul(mesh.Model())
		if st.mode != modeWireframe {
			if err := st.pipe.DrawMesh(mesh, world, st.material(mesh)); err != nil {
				return fmt.Errorf("%s: %w", mesh.Name, err)
			}
		}
		if st.mode != modeShaded {
			st.wire.DrawMesh(mesh, world, wireColor)
		}
		if st.showBounds {
			st.wire.DrawBounds(render.NewAABB(mesh.GetBounds()), world, boundsColor)
		}
	}
	if st.showGuides {
		st.wire.DrawAxes(1)
		st.wire.DrawPoint(st.pipe.Light.Position, 0.1, render.ColorWhite)
	}
	st.pipe.EndFrame()
	return nil
}

// lightAtEye keeps the light on the camera when the scene leaves its
// position unset.
func (st *stage) lightAtEye() {
	if st.scene.Light.Position == nil {
		st.pipe.Light.Position = st.camera.Eye
	}
}
