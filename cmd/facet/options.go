package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taigrr/facet/pkg/config"
)

// options are the flags shared by every drawing command. Flags that are
// set on the command line override the scene file.
type options struct {
	scenePath  string
	width      int
	height     int
	background string
	spin       float32
	wireframe  bool
	watch      bool
	verbose    bool
}

func (o *options) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.scenePath, "scene", "s", "", "YAML scene file")
	f.IntVar(&o.width, "width", 0, "output width in pixels (default from scene)")
	f.IntVar(&o.height, "height", 0, "output height in pixels (default from scene)")
	f.StringVar(&o.background, "bg", "", "background color as #rrggbb")
	f.Float32Var(&o.spin, "spin", 0, "spin speed in degrees per second")
	f.BoolVar(&o.wireframe, "wireframe", false, "draw triangle edges over the model")
	f.BoolVar(&o.watch, "watch", false, "reload the scene when the scene or model file changes")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log frame statistics and loader details")
}

var errNoModel = errors.New("no model: pass a model file or --scene")

// loadScene reads the scene file, if any, then applies the positional
// model argument and any flags that were set.
func (o *options) loadScene(cmd *cobra.Command, args []string) (*config.Scene, error) {
	s := config.Default()
	if o.scenePath != "" {
		var err error
		if s, err = config.Load(o.scenePath); err != nil {
			return nil, err
		}
	}
	if err := o.apply(cmd, s, args); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *options) apply(cmd *cobra.Command, s *config.Scene, args []string) error {
	if len(args) > 0 {
		s.Model = args[0]
	}
	if s.Model == "" {
		return errNoModel
	}
	if _, err := os.Stat(s.Model); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		s.Output.Width = o.width
	}
	if flags.Changed("height") {
		s.Output.Height = o.height
	}
	if flags.Changed("bg") {
		s.Background = o.background
	}
	if flags.Changed("spin") {
		s.Spin = o.spin
	}
	if flags.Changed("wireframe") {
		s.Wireframe = o.wireframe
	}
	return s.Validate()
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <scene.yaml> [model]",
		Short: "Write a scene file with default settings",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			s := config.Default()
			if len(args) > 1 {
				s.Model = args[1]
			}
			if err := s.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}
