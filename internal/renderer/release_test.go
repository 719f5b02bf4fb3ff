package renderer

import (
	"reflect"
	"testing"
)

func TestReleaseStackReversesCreationOrder(t *testing.T) {
	var order []string
	var stack releaseStack

	for _, name := range []string{"instance", "surface", "device", "swapchain"} {
		name := name
		stack.push(func() { order = append(order, name) })
	}

	stack.release()

	want := []string{"swapchain", "device", "surface", "instance"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("release order = %v, want %v", order, want)
	}
	if stack.size() != 0 {
		t.Errorf("stack still holds %d releasers", stack.size())
	}
}

func TestReleaseStackReleasesOnce(t *testing.T) {
	calls := 0
	var stack releaseStack
	stack.push(func() { calls++ })

	stack.release()
	stack.release()

	if calls != 1 {
		t.Errorf("releaser ran %d times, want 1", calls)
	}
}

func TestReleaseStackPartialSetup(t *testing.T) {
	var released []int
	var stack releaseStack

	// Simulates a setup that fails after creating two of three objects
	for i := 0; i < 2; i++ {
		i := i
		stack.push(func() { released = append(released, i) })
	}
	stack.release()

	if !reflect.DeepEqual(released, []int{1, 0}) {
		t.Errorf("released = %v, want [1 0]", released)
	}
}

func TestNilSwapchainRelease(t *testing.T) {
	var sc *swapchain
	sc.release()
	sc.releaseFramebuffers()
}

func TestSwapchainReleasesFramebuffersFirst(t *testing.T) {
	var order []string
	sc := &swapchain{}
	sc.releases.push(func() { order = append(order, "swapchain") })
	sc.releases.push(func() { order = append(order, "view") })
	sc.framebufferReleases.push(func() { order = append(order, "framebuffer") })

	sc.release()

	want := []string{"framebuffer", "view", "swapchain"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("release order = %v, want %v", order, want)
	}
}
