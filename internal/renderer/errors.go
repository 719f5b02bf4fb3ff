package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var (
	ErrNoSuitableGPU               = errors.New("failed to find a suitable GPU")
	ErrNoSuitableMemoryType        = errors.New("failed to find a suitable memory type")
	ErrMissingValidationLayer      = errors.New("validation layers requested, but not available")
	ErrMissingExtension            = errors.New("required extension not available")
	ErrUnsupportedFormat           = errors.New("failed to find supported format")
	ErrLinearBlitUnsupported       = errors.New("texture image format does not support linear blitting")
	ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")
)

// isStale reports the results that mean the swapchain no longer matches the surface.
// They trigger a rebuild instead of failing the frame.
func isStale(res common.VkResult) bool {
	return res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal
}
