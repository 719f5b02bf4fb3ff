package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestMaxUsableSampleCount(t *testing.T) {
	upTo8 := core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8

	tests := []struct {
		name   string
		counts core1_0.SampleCountFlags
		limit  int
		want   core1_0.SampleCountFlags
	}{
		{"highest supported", upTo8, 64, core1_0.Samples8},
		{"capped by limit", upTo8, 4, core1_0.Samples4},
		{"limit of one", upTo8, 1, core1_0.Samples1},
		{"single sample only", core1_0.Samples1, 64, core1_0.Samples1},
		{"gaps in support", core1_0.Samples1 | core1_0.Samples4 | core1_0.Samples16, 8, core1_0.Samples4},
		{"everything", core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8 | core1_0.Samples16 | core1_0.Samples32 | core1_0.Samples64, 64, core1_0.Samples64},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := maxUsableSampleCount(test.counts, test.limit); got != test.want {
				t.Errorf("samples = %s, want %s", got, test.want)
			}
		})
	}
}

func TestQueueFamilyIndices(t *testing.T) {
	graphics, present := 0, 0
	indices := QueueFamilyIndices{GraphicsFamily: &graphics}
	if indices.IsComplete() {
		t.Fatal("incomplete indices reported complete")
	}

	indices.PresentFamily = &present
	if !indices.IsComplete() {
		t.Fatal("complete indices reported incomplete")
	}
	if got := indices.Unique(); len(got) != 1 || got[0] != 0 {
		t.Errorf("unique = %v, want [0]", got)
	}

	present = 2
	if got := indices.Unique(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("unique = %v, want [0 2]", got)
	}
}

func suitableCapabilities() deviceCapabilities {
	graphics, present := 0, 1
	return deviceCapabilities{
		indices:           QueueFamilyIndices{GraphicsFamily: &graphics, PresentFamily: &present},
		formatCount:       2,
		presentModeCount:  1,
		samplerAnisotropy: true,
	}
}

func TestDeviceCapabilitiesSuitable(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*deviceCapabilities)
		want   bool
	}{
		{"complete", func(*deviceCapabilities) {}, true},
		{"no present family", func(c *deviceCapabilities) { c.indices.PresentFamily = nil }, false},
		{"missing swapchain extension", func(c *deviceCapabilities) { c.missingExtensions = []string{"VK_KHR_swapchain"} }, false},
		{"no surface formats", func(c *deviceCapabilities) { c.formatCount = 0 }, false},
		{"no present modes", func(c *deviceCapabilities) { c.presentModeCount = 0 }, false},
		{"no anisotropy", func(c *deviceCapabilities) { c.samplerAnisotropy = false }, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			caps := suitableCapabilities()
			test.modify(&caps)
			if got := caps.suitable(); got != test.want {
				t.Errorf("suitable() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestSelectDevicePicksFirstSuitable(t *testing.T) {
	query := func(name string) (deviceCapabilities, error) {
		caps := suitableCapabilities()
		if name == "integrated" {
			caps.samplerAnisotropy = false
		}
		return caps, nil
	}

	device, _, err := selectDevice([]string{"integrated", "discrete", "other"}, query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if device != "discrete" {
		t.Errorf("picked %q, want discrete", device)
	}
}

func TestSelectDeviceNoneSuitable(t *testing.T) {
	query := func(string) (deviceCapabilities, error) {
		return deviceCapabilities{}, nil
	}

	_, _, err := selectDevice([]string{"a", "b"}, query)
	if !errors.Is(err, ErrNoSuitableGPU) {
		t.Fatalf("expected ErrNoSuitableGPU, got %v", err)
	}
}

func TestSelectDeviceQueryFailure(t *testing.T) {
	lost := errors.New("device lost")
	query := func(name string) (deviceCapabilities, error) {
		if name == "broken" {
			return deviceCapabilities{}, errors.Wrap(lost, "failed to enumerate device extensions")
		}
		return suitableCapabilities(), nil
	}

	_, _, err := selectDevice([]string{"broken", "fine"}, query)
	if !errors.Is(err, lost) {
		t.Fatalf("expected the query failure, got %v", err)
	}
	if errors.Is(err, ErrNoSuitableGPU) {
		t.Errorf("a failed query must not read as a missing capability: %v", err)
	}
}
