// Package frame sequences one rendered frame: fence wait, image acquire, record,
// submit and present, with swapchain recreation when the surface goes stale.
package frame

// MaxFramesInFlight is how many frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// Slots holds one T per in-flight frame.
type Slots[T any] [MaxFramesInFlight]T

// Ops performs the individual steps of a frame for a given slot. Stale results
// (VK_ERROR_OUT_OF_DATE_KHR, VK_SUBOPTIMAL_KHR) are reported through the bool and
// are not errors.
type Ops interface {
	WaitForFrame(slot int) error
	AcquireImage(slot int) (imageIndex int, stale bool, err error)
	UpdateUniforms(slot int) error
	ResetFrameFence(slot int) error
	RecordCommands(slot int, imageIndex int) error
	Submit(slot int, imageIndex int) error
	Present(slot int, imageIndex int) (stale bool, err error)
	RecreateSwapchain() error
}

// Loop runs frames over MaxFramesInFlight slots, advancing one slot per submitted frame.
type Loop struct {
	ops          Ops
	currentFrame int
	resized      bool
}

// NewLoop starts at slot 0 with no resize pending.
func NewLoop(ops Ops) *Loop {
	return &Loop{ops: ops}
}

// Current is the slot the next Draw will use.
func (l *Loop) Current() int {
	return l.currentFrame
}

// FramebufferResized marks the swapchain for recreation after the next present.
func (l *Loop) FramebufferResized() {
	l.resized = true
}

// Draw renders one frame. If the acquire reports a stale swapchain the frame is
// abandoned before the fence is reset, so the next wait on this slot cannot block on
// a fence that will never be signaled.
func (l *Loop) Draw() error {
	slot := l.currentFrame

	err := l.ops.WaitForFrame(slot)
	if err != nil {
		return err
	}

	imageIndex, stale, err := l.ops.AcquireImage(slot)
	if err != nil {
		return err
	}
	if stale {
		return l.ops.RecreateSwapchain()
	}

	err = l.ops.UpdateUniforms(slot)
	if err != nil {
		return err
	}

	err = l.ops.ResetFrameFence(slot)
	if err != nil {
		return err
	}

	err = l.ops.RecordCommands(slot, imageIndex)
	if err != nil {
		return err
	}

	err = l.ops.Submit(slot, imageIndex)
	if err != nil {
		return err
	}

	// The frame is in flight from here on, so the slot advances even if
	// presenting triggers a rebuild.
	l.currentFrame = (l.currentFrame + 1) % MaxFramesInFlight

	stale, err = l.ops.Present(slot, imageIndex)
	if err != nil {
		return err
	}

	if stale || l.resized {
		l.resized = false
		return l.ops.RecreateSwapchain()
	}

	return nil
}

// Sizer reports the drawable size of a window and lets the caller block for events.
type Sizer interface {
	DrawableSize() (width, height int)
	WaitEvents()
	ShouldClose() bool
}

// WaitForDrawable blocks while the window has a zero-area drawable, which happens
// while it is minimized. It returns false if the window was closed while waiting.
func WaitForDrawable(win Sizer) (width, height int, ok bool) {
	width, height = win.DrawableSize()
	for width == 0 || height == 0 {
		if win.ShouldClose() {
			return 0, 0, false
		}
		win.WaitEvents()
		width, height = win.DrawableSize()
	}

	return width, height, true
}
