package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/spotter"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the webcam, detect objects and serve the dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpotter(cmd, opts)
		},
	}
}

func runSpotter(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	app, err := spotter.New(cfg, log.L())
	if err != nil {
		return err
	}
	defer app.Shutdown()

	log.Info("spotter starting",
		zap.String("version", Version),
		zap.String("camera", cfg.Camera.Device),
		zap.String("model", cfg.Model.Family),
		zap.String("target", cfg.Alert.Target),
		zap.String("dashboard", cfg.Web.Addr),
	)
	return app.Run(cmd.Context())
}
