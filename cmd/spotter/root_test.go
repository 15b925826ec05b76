package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsLoad_FlagsWin(t *testing.T) {
	t.Setenv("SPOTTER_TARGET", "cat")
	opts := &options{
		configPath: filepath.Join("testdata", "spotter.yaml"),
		logLevel:   "warn",
		camera:     "/dev/video4",
		target:     "dog",
		addr:       ":9090",
	}

	cfg, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/dev/video4", cfg.Camera.Device)
	assert.Equal(t, "dog", cfg.Alert.Target)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.Equal(t, 15, cfg.Camera.Framerate, "file value kept")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "classes", "say", "model"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	pull, _, err := root.Find([]string{"model", "pull"})
	require.NoError(t, err)
	assert.NotNil(t, pull.Flags().Lookup("url"))
}
