package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/detection"
)

func newModelCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage detector weights",
	}
	cmd.AddCommand(newModelPullCmd(opts), newModelPathsCmd(opts))
	return cmd
}

func newModelPullCmd(opts *options) *cobra.Command {
	var url, dst string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download model weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if dst == "" {
				if dst, _, err = cfg.Model.Paths(); err != nil {
					return err
				}
			}
			if err := detection.Pull(cmd.Context(), url, dst); err != nil {
				return err
			}
			log.Info("model saved", zap.String("path", dst))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "weights URL (required)")
	cmd.Flags().StringVar(&dst, "dst", "", "destination file (default: the configured model path)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newModelPathsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the files the configured model loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			model, graph, err := cfg.Model.Paths()
			if err != nil {
				return err
			}
			fmt.Println(model)
			if graph != "" {
				fmt.Println(graph)
			}
			return nil
		},
	}
}
