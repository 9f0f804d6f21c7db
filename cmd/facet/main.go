// facet renders OBJ and glTF models with a software rasterizer, to PNG
// stills and turntables, live in the terminal, or in a desktop window.
//
// Terminal controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Random spin
//	R           - Reset orientation
//	P           - Pause turntable spin
//	X           - Cycle shaded, shaded+wireframe, wireframe
//	B           - Toggle bounding boxes
//	G           - Toggle grid and axes
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/facet/pkg/render"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "facet",
		Short: "Software-rasterized 3D model viewer",
		Long: "facet draws OBJ, glTF and GLB models with a physically based software rasterizer.\n" +
			"A model can be given as an argument or through a YAML scene file.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if o.verbose {
				level = slog.LevelDebug
			}
			render.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	o.register(root)

	root.AddCommand(
		newRenderCmd(o),
		newTurntableCmd(o),
		newViewCmd(o),
		newWindowCmd(o),
		newInitCmd(),
	)
	return root
}
