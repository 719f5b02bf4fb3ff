// Package renderer draws a textured, mip-mapped, multi-sampled OBJ model with Vulkan.
//
// A Renderer owns every Vulkan object it creates. Objects are registered on release
// stacks as they are created: one for the renderer's lifetime, one for the current
// swapchain and one for the current pipeline. Destroy, or a failure part way through
// New, releases them in reverse creation order.
package renderer

import (
	"io/fs"
	"time"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/vulkan_tutorial/internal/config"
	"github.com/vkngwrapper/vulkan_tutorial/internal/frame"
)

// Window is what the renderer needs from the windowing system.
type Window interface {
	frame.Sizer
	ProcAddr() unsafe.Pointer
	InstanceExtensions() []string
	CreateSurface(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error)
}

type Renderer struct {
	cfg    config.Config
	logger *log.Logger
	window Window
	assets fs.FS

	lifetime releaseStack

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physicalDevice    core1_0.PhysicalDevice
	queueFamilies     QueueFamilyIndices
	msaaSamples       core1_0.SampleCountFlags
	sampleRateShading bool

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension khr_swapchain.ExtensionDriver
	swapchain          *swapchain
	pipeline           *graphicsPipeline
	depthFormat        core1_0.Format

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      frame.Slots[core1_0.DescriptorSet]

	commandPool    core1_0.CommandPool
	commandBuffers frame.Slots[core1_0.CommandBuffer]

	vertexBuffer gpuBuffer
	indexBuffer  gpuBuffer
	indexCount   int

	uniformBuffers frame.Slots[uniformBuffer]
	texture        texture

	sync frame.Slots[frameSync]
	loop *frame.Loop

	startTime time.Duration
}

// New creates every Vulkan object needed to draw. assets is the filesystem the
// configured shader, texture and model paths are resolved against.
func New(cfg config.Config, logger *log.Logger, window Window, assets fs.FS) (*Renderer, error) {
	r := &Renderer{
		cfg:         cfg,
		logger:      logger,
		window:      window,
		assets:      assets,
		msaaSamples: core1_0.Samples1,
	}

	err := r.initVulkan()
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.loop = frame.NewLoop(&frameOps{r})
	r.startTime = hrtime.Now()
	return r, nil
}

func (r *Renderer) initVulkan() error {
	var err error
	r.globalDriver, err = core.CreateDriverFromProcAddr(r.window.ProcAddr())
	if err != nil {
		return errors.Wrap(err, "failed to load vulkan")
	}

	err = r.createInstance()
	if err != nil {
		return err
	}

	err = r.setupDebugMessenger()
	if err != nil {
		return err
	}

	err = r.createSurface()
	if err != nil {
		return err
	}

	err = r.pickPhysicalDevice()
	if err != nil {
		return err
	}

	err = r.createLogicalDevice()
	if err != nil {
		return err
	}

	err = r.findDepthFormat()
	if err != nil {
		return err
	}

	err = r.createCommandPool()
	if err != nil {
		return err
	}

	err = r.createDescriptorSetLayout()
	if err != nil {
		return err
	}

	// These three are replaced while running, so the lifetime stack releases
	// whichever instance is current at teardown.
	err = r.createSwapchain()
	if err != nil {
		return err
	}
	r.lifetime.push(func() { r.swapchain.release() })

	err = r.createGraphicsPipeline()
	if err != nil {
		return err
	}
	r.lifetime.push(r.destroyGraphicsPipeline)

	err = r.createFramebuffers()
	if err != nil {
		return err
	}
	r.lifetime.push(func() { r.swapchain.releaseFramebuffers() })

	mesh, tex, err := loadSceneAssets(r.assets, r.cfg.Assets)
	if err != nil {
		return err
	}
	r.logger.Info("assets loaded",
		"vertices", len(mesh.Vertices),
		"indices", len(mesh.Indices),
		"texture", r.cfg.Assets.Texture,
		"width", tex.Width,
		"height", tex.Height)

	err = r.createTexture(tex)
	if err != nil {
		return err
	}

	err = r.createVertexBuffer(mesh.Vertices)
	if err != nil {
		return err
	}

	err = r.createIndexBuffer(mesh.Indices)
	if err != nil {
		return err
	}

	err = r.createUniformBuffers()
	if err != nil {
		return err
	}

	err = r.createDescriptorPool()
	if err != nil {
		return err
	}

	err = r.createDescriptorSets()
	if err != nil {
		return err
	}

	err = r.createCommandBuffers()
	if err != nil {
		return err
	}

	return r.createSyncObjects()
}

// Draw renders one frame, rebuilding the swapchain if the surface went stale.
func (r *Renderer) Draw() error {
	return r.loop.Draw()
}

// FramebufferResized requests a swapchain rebuild after the next present.
func (r *Renderer) FramebufferResized() {
	r.loop.FramebufferResized()
}

// CurrentFrame is the in-flight slot the next Draw will use.
func (r *Renderer) CurrentFrame() int {
	return r.loop.Current()
}

func (r *Renderer) WaitIdle() error {
	_, err := r.deviceDriver.DeviceWaitIdle()
	return errors.Wrap(err, "failed to wait for device idle")
}

// ReloadShaders rebuilds the graphics pipeline from the shader files on disk. Shader
// files that do not load are logged and the running pipeline is kept.
func (r *Renderer) ReloadShaders() error {
	err := checkShaders(r.assets, r.cfg.Assets.VertexShader, r.cfg.Assets.FragmentShader)
	if err != nil {
		r.logger.Error("keeping current shaders", "err", err)
		return nil
	}

	err = r.WaitIdle()
	if err != nil {
		return err
	}

	r.logger.Info("reloading shaders",
		"vertex", r.cfg.Assets.VertexShader,
		"fragment", r.cfg.Assets.FragmentShader)
	r.swapchain.releaseFramebuffers()
	r.destroyGraphicsPipeline()

	err = r.createGraphicsPipeline()
	if err != nil {
		return err
	}
	return r.createFramebuffers()
}

// Destroy releases everything in reverse creation order. It is safe to call on a
// partially initialized renderer.
func (r *Renderer) Destroy() {
	if r.deviceDriver != nil {
		_, err := r.deviceDriver.DeviceWaitIdle()
		if err != nil {
			r.logger.Error("failed to wait for device idle", "err", err)
		}
	}

	r.lifetime.release()
}
