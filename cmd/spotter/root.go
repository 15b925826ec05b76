package main

import (
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/spotter"
)

// Version is the application version.
const Version = "0.1.0"

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	camera     string
	model      string
	target     string
	addr       string
}

// load resolves the configuration: defaults, file, environment, then flags.
func (o *options) load() (spotter.Config, error) {
	cfg, err := spotter.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.camera != "" {
		cfg.Camera.Device = o.camera
	}
	if o.model != "" {
		cfg.Model.ModelPath = o.model
	}
	if o.target != "" {
		cfg.Alert.Target = o.target
	}
	if o.addr != "" {
		cfg.Web.Addr = o.addr
	}
	if err := log.Init(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "spotter",
		Short:         "Webcam object detection with a spoken alert",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpotter(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	f := root.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./spotter.yaml when present)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.camera, "camera", "", "capture device index, path or stream URL")
	f.StringVar(&opts.model, "model", "", "model weights file")
	f.StringVar(&opts.target, "target", "", "class that triggers the alert (default: person)")
	f.StringVar(&opts.addr, "addr", "", "dashboard listen address")

	root.AddCommand(
		newRunCmd(opts),
		newClassesCmd(),
		newSayCmd(opts),
		newModelCmd(opts),
	)
	return root
}
