package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Unique lists the distinct family indices, graphics first.
func (i *QueueFamilyIndices) Unique() []int {
	families := []int{*i.GraphicsFamily}
	if *i.PresentFamily != *i.GraphicsFamily {
		families = append(families, *i.PresentFamily)
	}
	return families
}

// deviceCapabilities is what a physical device is judged on when picking one.
type deviceCapabilities struct {
	indices           QueueFamilyIndices
	missingExtensions []string
	formatCount       int
	presentModeCount  int
	samplerAnisotropy bool
}

func (c *deviceCapabilities) suitable() bool {
	return c.indices.IsComplete() &&
		len(c.missingExtensions) == 0 &&
		c.formatCount > 0 && c.presentModeCount > 0 &&
		c.samplerAnisotropy
}

// selectDevice returns the first device whose capabilities are suitable. A failed query
// is returned as is; ErrNoSuitableGPU only means every device was queried and rejected.
func selectDevice[D any](devices []D, query func(D) (deviceCapabilities, error)) (D, deviceCapabilities, error) {
	var none D
	for _, device := range devices {
		caps, err := query(device)
		if err != nil {
			return none, deviceCapabilities{}, err
		}
		if caps.suitable() {
			return device, caps, nil
		}
	}
	return none, deviceCapabilities{}, ErrNoSuitableGPU
}

func (r *Renderer) pickPhysicalDevice() error {
	physicalDevices, _, err := r.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "failed to enumerate physical devices")
	}

	device, caps, err := selectDevice(physicalDevices, r.queryDeviceCapabilities)
	if err != nil {
		return err
	}

	properties, err := r.instanceDriver.GetPhysicalDeviceProperties(device)
	if err != nil {
		return errors.Wrap(err, "failed to read device properties")
	}

	r.physicalDevice = device
	r.queueFamilies = caps.indices
	r.msaaSamples = maxUsableSampleCount(
		properties.Limits.FramebufferColorSampleCounts&properties.Limits.FramebufferDepthSampleCounts,
		r.cfg.Vulkan.MaxSamples)
	r.sampleRateShading = r.instanceDriver.GetPhysicalDeviceFeatures(device).SampleRateShading

	r.logger.Info("selected GPU",
		"name", properties.DeviceName,
		"samples", r.msaaSamples,
		"sampleRateShading", r.sampleRateShading)
	return nil
}

func (r *Renderer) queryDeviceCapabilities(device core1_0.PhysicalDevice) (deviceCapabilities, error) {
	var caps deviceCapabilities
	var err error

	caps.indices, err = r.findQueueFamilies(device)
	if err != nil {
		return caps, err
	}

	caps.missingExtensions, err = r.missingDeviceExtensions(device)
	if err != nil {
		return caps, err
	}

	swapChainSupport, err := r.querySwapChainSupport(device)
	if err != nil {
		return caps, err
	}
	caps.formatCount = len(swapChainSupport.Formats)
	caps.presentModeCount = len(swapChainSupport.PresentModes)

	caps.samplerAnisotropy = r.instanceDriver.GetPhysicalDeviceFeatures(device).SamplerAnisotropy
	return caps, nil
}

func (r *Renderer) missingDeviceExtensions(device core1_0.PhysicalDevice) ([]string, error) {
	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate device extensions")
	}

	var missing []string
	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			missing = append(missing, extension)
		}
	}

	return missing, nil
}

// maxUsableSampleCount is the highest single sample count present in counts that does
// not exceed limit.
func maxUsableSampleCount(counts core1_0.SampleCountFlags, limit int) core1_0.SampleCountFlags {
	for samples := core1_0.Samples64; samples > core1_0.Samples1; samples >>= 1 {
		if int(samples) <= limit && counts&samples != 0 {
			return samples
		}
	}
	return core1_0.Samples1
}

func (r *Renderer) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}
	queueFamilies := r.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if indices.GraphicsFamily == nil && (queueFamily.QueueFlags&core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := r.surfaceExtension.GetPhysicalDeviceSurfaceSupport(r.surface, device, queueFamilyIdx)
		if err != nil {
			return indices, errors.Wrap(err, "failed to query surface support")
		}

		if indices.PresentFamily == nil && supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (r *Renderer) createLogicalDevice() error {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range r.queueFamilies.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Portability implementations must have the subset extension enabled if they expose it
	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(r.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	r.deviceDriver, _, err = r.instanceDriver.CreateDevice(r.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
			SampleRateShading: r.sampleRateShading,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}
	r.lifetime.push(func() { r.deviceDriver.DestroyDevice(nil) })

	r.graphicsQueue = r.deviceDriver.GetQueue(*r.queueFamilies.GraphicsFamily, 0)
	r.presentQueue = r.deviceDriver.GetQueue(*r.queueFamilies.PresentFamily, 0)
	return nil
}
