package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"

	"github.com/taigrr/facet/pkg/config"
	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

func newWindowCmd(o *options) *cobra.Command {
	var scale int
	cmd := &cobra.Command{
		Use:   "window [model]",
		Short: "View a model in a desktop window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.loadScene(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := newStage(ctx, s, s.Output.Width, s.Output.Height)
			if err != nil {
				return err
			}
			g := &windowGame{
				ctx:    ctx,
				opts:   o,
				cmd:    cmd,
				args:   args,
				st:     st,
				pixels: make([]byte, 4*st.fb.Width*st.fb.Height),
				start:  time.Now(),
			}
			if o.watch && o.scenePath != "" {
				if g.reload, err = config.Watch(ctx, o.scenePath); err != nil {
					return err
				}
			}

			scale = max(scale, 1)
			ebiten.SetWindowTitle("facet - " + filepath.Base(s.Model))
			ebiten.SetWindowSize(s.Output.Width*scale, s.Output.Height*scale)
			ebiten.SetTPS(60)
			return ebiten.RunGame(g)
		},
	}
	cmd.Flags().IntVar(&scale, "scale", 1, "window size as a multiple of the output size")
	return cmd
}

// windowGame uploads each rendered frame to an ebiten image. The model
// spins at the scene's rate; Escape or closing the window quits.
type windowGame struct {
	ctx    context.Context
	opts   *options
	cmd    *cobra.Command
	args   []string
	reload <-chan *config.Scene

	st     *stage
	img    *ebiten.Image
	pixels []byte
	start  time.Time
}

func (g *windowGame) Update() error {
	if g.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		g.st.mode = g.st.mode.next()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		g.st.showBounds = !g.st.showBounds
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		g.st.showGuides = !g.st.showGuides
	}

	select {
	case s, ok := <-g.reload:
		if !ok {
			g.reload = nil
			break
		}
		if err := g.swap(s); err != nil {
			render.Logger().Warn("reload failed", "err", err)
		}
	default:
	}

	angle := math3d.Radians(g.st.scene.Spin) * float32(time.Since(g.start).Seconds())
	return g.st.draw(math3d.RotateY(angle))
}

// swap replaces the stage with one built from s at the same size.
func (g *windowGame) swap(s *config.Scene) error {
	if err := g.opts.apply(g.cmd, s, g.args); err != nil {
		return err
	}
	st, err := newStage(g.ctx, s, g.st.fb.Width, g.st.fb.Height)
	if err != nil {
		return err
	}
	st.mode = g.st.mode
	st.showBounds, st.showGuides = g.st.showBounds, g.st.showGuides
	g.st = st
	return nil
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	fb := g.st.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.Width || g.img.Bounds().Dy() != fb.Height {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(fb.Width, fb.Height)
		g.pixels = make([]byte, 4*fb.Width*fb.Height)
	}
	fb.CopyRGBA(g.pixels)
	g.img.WritePixels(g.pixels)
	screen.DrawImage(g.img, nil)
}

func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.st.fb.Width, g.st.fb.Height
}
