package renderer

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

func (r *Renderer) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    r.cfg.Window.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := r.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "failed to enumerate instance extensions")
	}

	for _, ext := range r.window.InstanceExtensions() {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Wrapf(ErrMissingExtension, "instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if r.cfg.Vulkan.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	// Required to see MoltenVK devices on macOS
	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if r.cfg.Vulkan.Validation {
		layers, _, err := r.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "failed to enumerate instance layers")
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Wrapf(ErrMissingValidationLayer, "layer %s (install the LunarG Vulkan SDK)", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		// Covers messages emitted by vkCreateInstance and vkDestroyInstance themselves
		instanceOptions.Next = r.debugMessengerOptions()
	}

	r.instanceDriver, _, err = r.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "failed to create instance")
	}
	r.lifetime.push(func() { r.instanceDriver.DestroyInstance(nil) })

	r.logger.Debug("instance created", "extensions", instanceOptions.EnabledExtensionNames, "layers", instanceOptions.EnabledLayerNames)
	return nil
}

func (r *Renderer) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    r.logDebug,
	}
}

func (r *Renderer) setupDebugMessenger() error {
	if !r.cfg.Vulkan.Validation {
		return nil
	}

	var err error
	r.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(r.instanceDriver)
	r.debugMessenger, _, err = r.debugDriver.CreateDebugUtilsMessenger(nil, r.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "failed to set up debug messenger")
	}
	r.lifetime.push(func() { r.debugDriver.DestroyDebugUtilsMessenger(r.debugMessenger, nil) })

	return nil
}

func (r *Renderer) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	r.logger.Log(debugLevel(severity), data.Message, "type", msgType)
	return false
}

func debugLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) log.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return log.ErrorLevel
	case severity&ext_debug_utils.SeverityWarning != 0:
		return log.WarnLevel
	default:
		return log.DebugLevel
	}
}

func (r *Renderer) createSurface() error {
	r.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(r.instanceDriver)
	surface, err := r.window.CreateSurface(r.instanceDriver.Instance(), r.surfaceExtension)
	if err != nil {
		return err
	}

	r.surface = surface
	r.lifetime.push(func() { r.surfaceExtension.DestroySurface(r.surface, nil) })
	return nil
}
