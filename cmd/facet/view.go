package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taigrr/facet/pkg/config"
	"github.com/taigrr/facet/pkg/math3d"
	"github.com/taigrr/facet/pkg/render"
)

const (
	mouseOn  = "\x1b[?1003h\x1b[?1006h" // Any-event tracking, SGR encoding
	mouseOff = "\x1b[?1003l\x1b[?1006l"

	minDistance = 0.5
	maxDistance = 50
)

var (
	hudText   = render.RGB(230, 230, 230)
	hudAccent = render.RGB(120, 220, 255)
	hudWarn   = render.RGB(255, 200, 80)
)

func newViewCmd(o *options) *cobra.Command {
	var fps int
	cmd := &cobra.Command{
		Use:   "view [model]",
		Short: "View a model interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("view needs a terminal on stdout; use facet render to write a file")
			}
			if fps <= 0 {
				return fmt.Errorf("fps must be positive, got %d", fps)
			}
			s, err := o.loadScene(cmd, args)
			if err != nil {
				return err
			}
			v := &viewer{opts: o, cmd: cmd, args: args, fps: fps}
			return v.run(cmd.Context(), s)
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 30, "target frames per second")
	return cmd
}

// viewer is the terminal view loop. All of its state is owned by the
// goroutine running run.
type viewer struct {
	opts *options
	cmd  *cobra.Command
	args []string
	fps  int

	st     *stage
	orient *orientation
	paused bool

	width, height int
	dragging      bool
	lastX, lastY  int

	showHUD   bool
	status    string
	statusEnd time.Time
	fpsCount  int
	fpsTime   time.Time
	fpsValue  float64
}

func (v *viewer) run(ctx context.Context, s *config.Scene) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := uv.DefaultTerminal()
	width, height, err := t.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	v.width, v.height = width, height

	v.st, err = newStage(ctx, s, width, height*2)
	if err != nil {
		return err
	}
	v.orient = newOrientation(v.fps)
	v.showHUD = true
	v.fpsTime = time.Now()

	var reload <-chan *config.Scene
	if v.opts.watch && v.opts.scenePath != "" {
		if reload, err = config.Watch(ctx, v.opts.scenePath); err != nil {
			return err
		}
	}

	if err := t.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	t.EnterAltScreen()
	t.HideCursor()
	t.Resize(width, height)
	fmt.Fprint(os.Stdout, mouseOn)
	defer func() {
		fmt.Fprint(os.Stdout, mouseOff)
		t.ExitAltScreen()
		t.ShowCursor()
		t.Shutdown(context.Background())
	}()

	ticker := time.NewTicker(time.Second / time.Duration(v.fps))
	defer ticker.Stop()

	events := t.Events()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ws, ok := ev.(uv.WindowSizeEvent); ok {
				v.width, v.height = ws.Width, ws.Height
				t.Erase()
				t.Resize(ws.Width, ws.Height)
				v.st.resize(ws.Width, ws.Height*2)
				continue
			}
			if v.handle(ev) {
				return nil
			}

		case s, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			v.reload(ctx, s)

		case now := <-ticker.C:
			dt := min(now.Sub(last).Seconds(), 0.1)
			last = now

			spin := 0.0
			if !v.paused {
				spin = float64(math3d.Radians(v.st.scene.Spin)) * dt
			}
			v.orient.step(spin)

			if err := v.st.draw(v.orient.matrix()); err != nil {
				return err
			}
			v.st.fb.Draw(t, t.Bounds())
			v.drawHUD(t, now)
			if err := t.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}

// reload swaps in a new stage built from s, keeping the orientation, the
// draw mode and the camera distance.
func (v *viewer) reload(ctx context.Context, s *config.Scene) {
	if err := v.opts.apply(v.cmd, s, v.args); err != nil {
		v.setStatus("reload: " + err.Error())
		return
	}
	st, err := newStage(ctx, s, v.st.fb.Width, v.st.fb.Height)
	if err != nil {
		render.Logger().Warn("reload failed", "err", err)
		v.setStatus("reload: " + err.Error())
		return
	}
	st.mode = v.st.mode
	st.showBounds, st.showGuides = v.st.showBounds, v.st.showGuides
	v.st = st
	v.setStatus("reloaded " + filepath.Base(s.Model))
}

// handle applies one input event and reports whether the viewer should
// quit.
func (v *viewer) handle(ev any) bool {
	const impulse = 0.05

	switch ev := ev.(type) {
	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c"):
			return true
		case ev.MatchString("w", "up"):
			v.orient.impulse(-impulse, 0, 0)
		case ev.MatchString("s", "down"):
			v.orient.impulse(impulse, 0, 0)
		case ev.MatchString("a", "left"):
			v.orient.impulse(0, -impulse, 0)
		case ev.MatchString("d", "right"):
			v.orient.impulse(0, impulse, 0)
		case ev.MatchString("q"):
			v.orient.impulse(0, 0, -impulse)
		case ev.MatchString("e"):
			v.orient.impulse(0, 0, impulse)
		case ev.MatchString("space"):
			v.orient.impulse(
				(rand.Float64()-0.5)*0.5,
				(rand.Float64()-0.5)*0.5,
				(rand.Float64()-0.5)*0.5,
			)
		case ev.MatchString("r"):
			v.orient.reset()
			e := v.st.scene.Camera.Eye
			v.st.camera.SetEye(math3d.V3(e[0], e[1], e[2]))
			v.st.lightAtEye()
		case ev.MatchString("p"):
			v.paused = !v.paused
		case ev.MatchString("x"):
			v.st.mode = v.st.mode.next()
		case ev.MatchString("b"):
			v.st.showBounds = !v.st.showBounds
		case ev.MatchString("g"):
			v.st.showGuides = !v.st.showGuides
		case ev.MatchString("+", "="):
			v.zoom(0.9)
		case ev.MatchString("-", "_"):
			v.zoom(1 / 0.9)
		case ev.MatchString("?", "shift+/"):
			v.showHUD = !v.showHUD
		}

	case uv.MouseClickEvent:
		v.dragging = true
		v.lastX, v.lastY = ev.X, ev.Y

	case uv.MouseReleaseEvent:
		v.dragging = false

	case uv.MouseMotionEvent:
		if v.dragging {
			dx := ev.X - v.lastX
			dy := ev.Y - v.lastY
			v.orient.impulse(float64(dy)*0.03, float64(dx)*0.03, 0)
			v.lastX, v.lastY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.zoom(0.9)
		case uv.MouseWheelDown:
			v.zoom(1 / 0.9)
		}
	}
	return false
}

func (v *viewer) zoom(factor float32) {
	cam := v.st.camera
	d := cam.Distance() * factor
	if d < minDistance || d > maxDistance {
		return
	}
	cam.Zoom(factor)
	v.st.lightAtEye()
}

func (v *viewer) setStatus(s string) {
	v.status = s
	v.statusEnd = time.Now().Add(3 * time.Second)
}

// drawHUD writes the overlay rows over the drawn frame.
func (v *viewer) drawHUD(scr uv.Screen, now time.Time) {
	v.fpsCount++
	if elapsed := now.Sub(v.fpsTime); elapsed >= time.Second {
		v.fpsValue = float64(v.fpsCount) / elapsed.Seconds()
		v.fpsCount = 0
		v.fpsTime = now
	}

	if v.status != "" && now.Before(v.statusEnd) {
		render.DrawText(scr, 0, v.height-1, v.status, hudWarn)
	}
	if !v.showHUD {
		return
	}

	name := filepath.Base(v.st.scene.Model)
	tris := fmt.Sprintf("%d tris", v.st.model.TriangleCount())
	render.DrawText(scr, 0, 0, fmt.Sprintf("%.0f fps", v.fpsValue), hudAccent)
	render.DrawText(scr, max((v.width-len(name))/2, 0), 0, name, hudText)
	render.DrawText(scr, max(v.width-len(tris), 0), 0, tris, hudAccent)

	if v.status == "" || now.After(v.statusEnd) {
		mode := v.st.mode.String()
		if v.paused {
			mode += " (paused)"
		}
		render.DrawText(scr, 0, v.height-1, mode+"  x: mode  r: reset  ?: hud", hudText)
	}
}
