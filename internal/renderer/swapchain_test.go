package renderer

import (
	"math"
	"testing"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestChooseSwapSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	unorm := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	rgba := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	formats := []khr_surface.SurfaceFormat{unorm, rgba, preferred}
	got := chooseSwapSurfaceFormat(formats)
	if got != preferred {
		t.Errorf("format = %+v, want %+v", got, preferred)
	}
	if again := chooseSwapSurfaceFormat(formats); again != got {
		t.Errorf("second choice %+v differs from first %+v", again, got)
	}

	got = chooseSwapSurfaceFormat([]khr_surface.SurfaceFormat{rgba, unorm})
	if got != rgba {
		t.Errorf("fallback = %+v, want first entry %+v", got, rgba)
	}
}

func TestChooseSwapPresentMode(t *testing.T) {
	got := chooseSwapPresentMode([]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeImmediate, khr_surface.PresentModeMailbox})
	if got != khr_surface.PresentModeMailbox {
		t.Errorf("mode = %s, want mailbox", got)
	}

	got = chooseSwapPresentMode([]khr_surface.PresentMode{khr_surface.PresentModeImmediate, khr_surface.PresentModeFIFO})
	if got != khr_surface.PresentModeFIFO {
		t.Errorf("mode = %s, want FIFO", got)
	}
}

func TestChooseSwapExtent(t *testing.T) {
	caps := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: 800, Height: 600},
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
	}

	got := chooseSwapExtent(caps, 1920, 1080)
	if got != caps.CurrentExtent {
		t.Errorf("extent = %+v, want current extent %+v", got, caps.CurrentExtent)
	}

	caps.CurrentExtent = core1_0.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	caps.MinImageExtent = core1_0.Extent2D{Width: 200, Height: 200}
	caps.MaxImageExtent = core1_0.Extent2D{Width: 1000, Height: 1000}

	tests := []struct {
		width, height int
		want          core1_0.Extent2D
	}{
		{640, 480, core1_0.Extent2D{Width: 640, Height: 480}},
		{1920, 1080, core1_0.Extent2D{Width: 1000, Height: 1000}},
		{100, 50, core1_0.Extent2D{Width: 200, Height: 200}},
		{100, 2000, core1_0.Extent2D{Width: 200, Height: 1000}},
	}
	for _, test := range tests {
		got := chooseSwapExtent(caps, test.width, test.height)
		if got != test.want {
			t.Errorf("drawable %dx%d: extent = %+v, want %+v", test.width, test.height, got, test.want)
		}
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max int
		want     int
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}

	for _, test := range tests {
		caps := &khr_surface.SurfaceCapabilities{MinImageCount: test.min, MaxImageCount: test.max}
		if got := chooseImageCount(caps); got != test.want {
			t.Errorf("min %d max %d: count = %d, want %d", test.min, test.max, got, test.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 1, 3); got != 3 {
		t.Errorf("clamp(5, 1, 3) = %d", got)
	}
	if got := clamp(-1, 0, 3); got != 0 {
		t.Errorf("clamp(-1, 0, 3) = %d", got)
	}
	if got := clamp(float32(0.5), 0, 1); got != 0.5 {
		t.Errorf("clamp(0.5, 0, 1) = %v", got)
	}
}
