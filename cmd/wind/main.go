// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/assets"
	"github.com/devblok/wind/config"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/vulkan"
	"github.com/devblok/wind/gfx/vkr"
	"github.com/devblok/wind/model"
	"github.com/gobuffalo/packd"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var (
	envFile    = flag.String("env", "", "Load configuration from the given dotenv file")
	validation = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	cpuProfile = flag.String("cpuprof", "", "Profile CPU usage to file")
)

func main() {
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.FromEnvironment(files...)
	if err != nil {
		log.WithError(err).Fatal("Failed to read configuration")
	}
	if *validation {
		cfg.Instance.Validation = true
	}
	lvl, err := cfg.Log.ParseLevel()
	if err != nil {
		log.WithError(err).Fatal("Failed to read configuration")
	}
	log.SetLevel(lvl)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.WithError(err).Fatal("Failed to create profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.WithError(err).Fatal("Failed to start profile")
		}
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Error("Exiting")
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func newWindow(cfg config.RendererConfiguration) (*sdl.Window, error) {
	return sdl.CreateWindow("Wind",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
}

func drawableExtent(window *sdl.Window) driver.Extent2D {
	w, h := window.VulkanGetDrawableSize()
	return driver.Extent2D{Width: uint32(w), Height: uint32(h)}
}

func run(cfg config.Configuration) (err error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(cfg.Renderer)
	if err != nil {
		return errors.Wrap(err, "sdl.CreateWindow()")
	}
	defer window.Destroy()

	shaders, closer, err := assets.Shaders(cfg.Renderer.ShaderDir, cfg.Renderer.ShaderArchive)
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := assets.Verify(shaders); err != nil {
		return err
	}

	drv, err := vulkan.New(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}

	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{
		ApplicationName: "Wind",
		Extensions:      window.VulkanGetInstanceExtensions(),
		Validation:      cfg.Instance.Validation,
	})
	if err != nil {
		return err
	}

	var (
		surface  *vkr.Surface
		device   *vkr.Device
		renderer *vkr.Renderer
	)
	defer func() {
		err = errors.CombineErrors(err, gfx.ReleaseAll(renderer, device, surface, instance))
	}()

	native, err := window.VulkanCreateSurface(drv.NativeInstance(instance.Handle()))
	if err != nil {
		return gfx.Bootstrap(err, "sdl.VulkanCreateSurface()")
	}
	if surface, err = newSurface(drv, instance, native); err != nil {
		return err
	}

	physical, err := instance.PickPhysicalDevice()
	if err != nil {
		return err
	}
	if device, err = vkr.NewDevice(instance, physical, vkr.DeviceConfig{
		Extensions: cfg.Renderer.DeviceExtensions,
	}); err != nil {
		return err
	}

	if renderer, err = newRenderer(device, surface, shaders, cfg.Renderer, drawableExtent(window)); err != nil {
		return err
	}

	return loop(window, renderer, newTime(cfg.Time))
}

func newRenderer(device *vkr.Device, surface *vkr.Surface, shaders packd.Finder, cfg config.RendererConfiguration, extent driver.Extent2D) (*vkr.Renderer, error) {
	return vkr.NewRenderer(device, surface, shaders, vkr.RendererConfig{
		FramesInFlight: cfg.FramesInFlight,
		SwapchainSize:  cfg.SwapchainSize,
		Extent:         extent,
	})
}

// uniform spins the model around the z axis in front of the camera.
func uniform(angle float32, extent driver.Extent2D) model.Uniform {
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	projection := glm.Perspective(glm.DegToRad(45), aspect, 0.1, 10)
	// Vulkan clip space has y pointing down.
	projection[5] *= -1
	return model.Uniform{
		Model:      glm.HomogRotate3D(angle, glm.Vec3{0, 0, 1}),
		View:       glm.LookAtV(glm.Vec3{0, 0, 2}, glm.Vec3{0, 0, 0}, glm.Vec3{0, 1, 0}),
		Projection: projection,
	}
}

func loop(window *sdl.Window, renderer *vkr.Renderer, ts *timeService) error {
	defer ts.Stop()
	var (
		angle     float32
		minimized bool
	)

	for {
		select {
		case <-ts.eventTicker.C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						log.Info("Event loop exited")
						return nil
					}
				case *sdl.QuitEvent:
					log.Info("Event loop exited")
					return nil
				case *sdl.WindowEvent:
					switch et.Event {
					case sdl.WINDOWEVENT_MINIMIZED:
						minimized = true
					case sdl.WINDOWEVENT_RESTORED:
						minimized = false
					case sdl.WINDOWEVENT_SIZE_CHANGED:
						extent := drawableExtent(window)
						minimized = extent.Width == 0 || extent.Height == 0
						if !minimized {
							renderer.Resize(extent)
						}
					}
				}
			}
		case <-ts.fpsTicker.C:
			if minimized {
				continue
			}
			start := hrtime.Now()
			if err := renderer.DrawFrame(uniform(angle, renderer.Extent())); err != nil {
				if gfx.IsFatal(err) || gfx.IsContractViolation(err) {
					return err
				}
				log.WithError(err).Warn("Frame dropped")
			}
			ts.Frame(hrtime.Since(start))
			angle += 0.01
		}
	}
}
