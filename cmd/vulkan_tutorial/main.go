package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/vkngwrapper/vulkan_tutorial/internal/assets"
	"github.com/vkngwrapper/vulkan_tutorial/internal/config"
	"github.com/vkngwrapper/vulkan_tutorial/internal/logging"
	"github.com/vkngwrapper/vulkan_tutorial/internal/renderer"
	"github.com/vkngwrapper/vulkan_tutorial/internal/window"
)

func init() {
	// SDL and the Vulkan surface must stay on the thread that created them
	runtime.LockOSThread()
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}

	win, err := window.New(cfg.Window)
	if err != nil {
		return err
	}
	defer win.Destroy()

	r, err := renderer.New(cfg, logger, win, os.DirFS(cfg.Assets.Dir))
	if err != nil {
		return err
	}
	defer r.Destroy()

	var shadersChanged <-chan struct{}
	if cfg.Assets.HotReload {
		watcher, err := assets.NewShaderWatcher(logger,
			filepath.Join(cfg.Assets.Dir, cfg.Assets.VertexShader),
			filepath.Join(cfg.Assets.Dir, cfg.Assets.FragmentShader))
		if err != nil {
			return err
		}
		defer watcher.Close()
		shadersChanged = watcher.Changed()
	}

	err = mainLoop(logger, win, r, shadersChanged)
	if err != nil {
		return err
	}

	return r.WaitIdle()
}

func mainLoop(logger *log.Logger, win *window.Window, r *renderer.Renderer, shadersChanged <-chan struct{}) error {
	frames := 0
	for {
		win.PollEvents()
		if win.ShouldClose() {
			logger.Info("window closed", "frames", frames)
			return nil
		}

		if win.ConsumeResize() {
			r.FramebufferResized()
		}

		select {
		case <-shadersChanged:
			err := r.ReloadShaders()
			if err != nil {
				return err
			}
		default:
		}

		err := r.Draw()
		if err != nil {
			return err
		}
		frames++
	}
}
