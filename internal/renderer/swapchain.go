package renderer

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"golang.org/x/exp/constraints"

	"github.com/vkngwrapper/vulkan_tutorial/internal/frame"
)

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// swapchain is everything whose size or format follows the surface. It is rebuilt
// wholesale when the surface goes stale.
type swapchain struct {
	handle     khr_swapchain.Swapchain
	images     []core1_0.Image
	imageViews []core1_0.ImageView
	format     core1_0.Format
	extent     core1_0.Extent2D

	colorView core1_0.ImageView
	depthView core1_0.ImageView

	framebuffers []core1_0.Framebuffer

	releases            releaseStack
	framebufferReleases releaseStack
}

func (s *swapchain) release() {
	if s == nil {
		return
	}
	s.framebufferReleases.release()
	s.framebuffers = nil
	s.releases.release()
}

func (s *swapchain) releaseFramebuffers() {
	if s == nil {
		return
	}
	s.framebufferReleases.release()
	s.framebuffers = nil
}

func (r *Renderer) querySwapChainSupport(device core1_0.PhysicalDevice) (SwapChainSupportDetails, error) {
	var details SwapChainSupportDetails
	var err error

	details.Capabilities, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(r.surface, device)
	if err != nil {
		return details, errors.Wrap(err, "failed to query surface capabilities")
	}

	details.Formats, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceFormats(r.surface, device)
	if err != nil {
		return details, errors.Wrap(err, "failed to query surface formats")
	}

	details.PresentModes, _, err = r.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(r.surface, device)
	return details, errors.Wrap(err, "failed to query surface present modes")
}

func chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func chooseSwapPresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// chooseSwapExtent uses the surface's current extent unless the surface reports
// 0xFFFFFFFF, meaning the swapchain decides. The drawable size is then clamped into the
// supported range.
func chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if uint32(capabilities.CurrentExtent.Width) != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A MaxImageCount of 0
// means no upper limit.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func clamp[T constraints.Ordered](value, low, high T) T {
	return max(low, min(value, high))
}

func (r *Renderer) createSwapchain() error {
	if r.swapchainExtension == nil {
		r.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(r.deviceDriver)
	}

	swapchainSupport, err := r.querySwapChainSupport(r.physicalDevice)
	if err != nil {
		return err
	}

	width, height := r.window.DrawableSize()
	surfaceFormat := chooseSwapSurfaceFormat(swapchainSupport.Formats)
	presentMode := chooseSwapPresentMode(swapchainSupport.PresentModes)
	extent := chooseSwapExtent(swapchainSupport.Capabilities, width, height)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	if families := r.queueFamilies.Unique(); len(families) > 1 {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = families
	}

	handle, _, err := r.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: r.surface,

		MinImageCount:    chooseImageCount(swapchainSupport.Capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	sc := &swapchain{
		handle: handle,
		format: surfaceFormat.Format,
		extent: extent,
	}
	sc.releases.push(func() { r.swapchainExtension.DestroySwapchain(handle, nil) })

	err = r.createSwapchainViews(sc)
	if err != nil {
		sc.release()
		return err
	}

	r.swapchain = sc
	r.logger.Debug("swapchain created",
		"width", extent.Width,
		"height", extent.Height,
		"images", len(sc.images),
		"format", surfaceFormat.Format,
		"presentMode", presentMode)
	return nil
}

func (r *Renderer) createSwapchainViews(sc *swapchain) error {
	images, _, err := r.swapchainExtension.GetSwapchainImages(sc.handle)
	if err != nil {
		return errors.Wrap(err, "failed to get swapchain images")
	}
	sc.images = images

	for _, image := range images {
		view, err := r.createImageView(&sc.releases, image, sc.format, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
		sc.imageViews = append(sc.imageViews, view)
	}

	// Multisampled render target, resolved into the swapchain image
	colorImage, err := r.createImage(&sc.releases, imageOptions{
		width:      sc.extent.Width,
		height:     sc.extent.Height,
		mipLevels:  1,
		samples:    r.msaaSamples,
		format:     sc.format,
		usage:      core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment,
		properties: core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}
	sc.colorView, err = r.createImageView(&sc.releases, colorImage, sc.format, core1_0.ImageAspectColor, 1)
	if err != nil {
		return err
	}

	depthImage, err := r.createImage(&sc.releases, imageOptions{
		width:      sc.extent.Width,
		height:     sc.extent.Height,
		mipLevels:  1,
		samples:    r.msaaSamples,
		format:     r.depthFormat,
		usage:      core1_0.ImageUsageDepthStencilAttachment,
		properties: core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}
	sc.depthView, err = r.createImageView(&sc.releases, depthImage, r.depthFormat, core1_0.ImageAspectDepth, 1)
	return err
}

func (r *Renderer) createFramebuffers() error {
	sc := r.swapchain
	for _, imageView := range sc.imageViews {
		framebuffer, _, err := r.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: r.pipeline.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				sc.colorView,
				sc.depthView,
				imageView,
			},
			Width:  sc.extent.Width,
			Height: sc.extent.Height,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create framebuffer")
		}
		sc.framebufferReleases.push(func() { r.deviceDriver.DestroyFramebuffer(framebuffer, nil) })

		sc.framebuffers = append(sc.framebuffers, framebuffer)
	}

	return nil
}

// recreateSwapchain rebuilds everything that follows the surface. While the window is
// minimized it blocks on window events; if the window is closed meanwhile it returns
// without rebuilding and the caller's loop exits on its next ShouldClose check.
func (r *Renderer) recreateSwapchain() error {
	_, _, ok := frame.WaitForDrawable(r.window)
	if !ok {
		return nil
	}

	err := r.WaitIdle()
	if err != nil {
		return err
	}

	oldFormat := r.swapchain.format
	r.swapchain.release()
	r.swapchain = nil

	err = r.createSwapchain()
	if err != nil {
		return err
	}

	// The render pass and pipeline only depend on the image format
	if r.swapchain.format != oldFormat {
		r.logger.Info("swapchain format changed, rebuilding pipeline", "old", oldFormat, "new", r.swapchain.format)
		r.destroyGraphicsPipeline()
		err = r.createGraphicsPipeline()
		if err != nil {
			return err
		}
	}

	return r.createFramebuffers()
}
