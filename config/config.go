// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config holds the engine configuration and reads it from the
// environment. Every setting is read once at startup and passed
// explicitly to the components that need it.
package config

import (
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment variables read by FromEnvironment and Parse.
const (
	EnvValidation     = "WIND_VK_VALIDATION"
	EnvFramesInFlight = "WIND_FRAMES_IN_FLIGHT"
	EnvSwapchainSize  = "WIND_SWAPCHAIN_SIZE"
	EnvScreenWidth    = "WIND_SCREEN_WIDTH"
	EnvScreenHeight   = "WIND_SCREEN_HEIGHT"
	EnvShaderDir      = "WIND_SHADER_DIR"
	EnvShaderArchive  = "WIND_SHADER_ARCHIVE"
	EnvFPS            = "WIND_FPS"
	EnvLogLevel       = "WIND_LOG_LEVEL"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	Instance InstanceConfiguration
	Log      LogConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the window event polling interval in milliseconds.
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	FramesInFlight   int
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// ShaderArchive, when set, is a kar archive holding the shaders and
	// takes precedence over ShaderDir.
	ShaderDir     string
	ShaderArchive string
}

// InstanceConfiguration configures the graphics API instance.
type InstanceConfiguration struct {
	// Validation enables the validation layer. Off unless asked for.
	Validation bool
}

// LogConfiguration configures logging.
type LogConfiguration struct {
	Level string
}

// ParseLevel returns the configured logrus level.
func (c LogConfiguration) ParseLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel, gfx.Bootstrap(err, EnvLogLevel)
	}
	return lvl, nil
}

// Default returns the configuration used when nothing is set.
func Default() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			FramesInFlight: 2,
			SwapchainSize:  3,
			ScreenWidth:    1280,
			ScreenHeight:   720,
			ShaderDir:      "shaders",
		},
		Log: LogConfiguration{
			Level: "info",
		},
	}
}

// FromEnvironment loads the given dotenv files into the process
// environment and reads the configuration from it. Unset variables keep
// their default; malformed ones are bootstrap errors.
func FromEnvironment(files ...string) (Configuration, error) {
	if len(files) > 0 {
		if err := envy.Load(files...); err != nil {
			return Configuration{}, gfx.Bootstrap(err, "loading environment files")
		}
	} else {
		envy.Reload()
	}
	return apply(Default(), envy.Map())
}

// Parse reads the configuration from dotenv content without touching the
// process environment.
func Parse(r io.Reader) (Configuration, error) {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return Configuration{}, gfx.Bootstrap(err, "parsing environment")
	}
	return apply(Default(), vars)
}

func apply(cfg Configuration, vars map[string]string) (Configuration, error) {
	var err error
	if v, ok := vars[EnvValidation]; ok {
		if cfg.Instance.Validation, err = strconv.ParseBool(v); err != nil {
			return cfg, invalid(EnvValidation, v, err)
		}
	}
	if v, ok := vars[EnvFramesInFlight]; ok {
		if cfg.Renderer.FramesInFlight, err = positive(EnvFramesInFlight, v); err != nil {
			return cfg, err
		}
	}
	if v, ok := vars[EnvSwapchainSize]; ok {
		n, err := positive(EnvSwapchainSize, v)
		if err != nil {
			return cfg, err
		}
		cfg.Renderer.SwapchainSize = uint32(n)
	}
	if v, ok := vars[EnvScreenWidth]; ok {
		n, err := positive(EnvScreenWidth, v)
		if err != nil {
			return cfg, err
		}
		cfg.Renderer.ScreenWidth = uint32(n)
	}
	if v, ok := vars[EnvScreenHeight]; ok {
		n, err := positive(EnvScreenHeight, v)
		if err != nil {
			return cfg, err
		}
		cfg.Renderer.ScreenHeight = uint32(n)
	}
	if v, ok := vars[EnvFPS]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, invalid(EnvFPS, v, err)
		}
		cfg.Time.FramesPerSecond = n
	}
	if v, ok := vars[EnvShaderDir]; ok {
		cfg.Renderer.ShaderDir = v
	}
	if v, ok := vars[EnvShaderArchive]; ok {
		cfg.Renderer.ShaderArchive = v
	}
	if v, ok := vars[EnvLogLevel]; ok {
		cfg.Log.Level = v
		if _, err := cfg.Log.ParseLevel(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func positive(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, invalid(key, v, err)
	}
	return n, nil
}

func invalid(key, v string, cause error) error {
	if cause == nil {
		cause = errors.New("out of range")
	}
	return gfx.Bootstrap(errors.Wrapf(cause, "invalid value %q", v), key)
}
