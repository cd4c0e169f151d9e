// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/config"
	"github.com/devblok/wind/gfx"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDisablesValidation(t *testing.T) {
	cfg := config.Default()
	assert.False(t, cfg.Instance.Validation)
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
	assert.Equal(t, uint32(3), cfg.Renderer.SwapchainSize)
	lvl, err := cfg.Log.ParseLevel()
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, lvl)
}

func TestParse(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(strings.Join([]string{
		"WIND_VK_VALIDATION=true",
		"WIND_FRAMES_IN_FLIGHT=3",
		"WIND_SWAPCHAIN_SIZE=4",
		"WIND_SHADER_ARCHIVE=shaders.kar",
		"WIND_FPS=0",
		"WIND_LOG_LEVEL=debug",
	}, "\n")))
	require.NoError(t, err)

	assert.True(t, cfg.Instance.Validation)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, uint32(4), cfg.Renderer.SwapchainSize)
	assert.Equal(t, "shaders.kar", cfg.Renderer.ShaderArchive)
	assert.Equal(t, "shaders", cfg.Renderer.ShaderDir)
	assert.Equal(t, 0, cfg.Time.FramesPerSecond)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"WIND_VK_VALIDATION=maybe",
		"WIND_FRAMES_IN_FLIGHT=0",
		"WIND_SWAPCHAIN_SIZE=three",
		"WIND_FPS=-1",
		"WIND_LOG_LEVEL=loud",
	} {
		_, err := config.Parse(strings.NewReader(line))
		assert.Error(t, err, line)
		assert.True(t, errors.Is(err, gfx.ErrBootstrap), line)
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvValidation, "1")
	t.Setenv(config.EnvFramesInFlight, "4")

	cfg, err := config.FromEnvironment()
	require.NoError(t, err)
	assert.True(t, cfg.Instance.Validation)
	assert.Equal(t, 4, cfg.Renderer.FramesInFlight)
}

func TestFromEnvironmentFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	// t.Setenv restores the variable after envy overwrote it.
	t.Setenv(config.EnvShaderDir, "")

	path := filepath.Join(dir, ".env")
	require.NoError(t, ioutil.WriteFile(path, []byte("WIND_SHADER_DIR=/opt/wind/shaders\n"), 0644))

	cfg, err := config.FromEnvironment(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/wind/shaders", cfg.Renderer.ShaderDir)

	_, err = config.FromEnvironment(filepath.Join(dir, "missing.env"))
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
}
