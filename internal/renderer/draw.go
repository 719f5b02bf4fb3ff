package renderer

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// vulkanClip converts OpenGL clip space, which mgl32 produces, to Vulkan's: Y points
// down and depth runs from 0 to 1.
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// uniformsAt is the model spinning a quarter turn per second about Z, seen from (2,2,2).
func uniformsAt(elapsed time.Duration, extent core1_0.Extent2D) UniformBufferObject {
	// Wrapping at one full turn keeps the angle precise in float32
	seconds := math.Mod(elapsed.Seconds(), 4.0)
	aspectRatio := float32(extent.Width) / float32(extent.Height)

	return UniformBufferObject{
		Model: mgl32.HomogRotate3DZ(float32(seconds) * mgl32.DegToRad(90)),
		View: mgl32.LookAtV(
			mgl32.Vec3{2, 2, 2},
			mgl32.Vec3{0, 0, 0},
			mgl32.Vec3{0, 0, 1},
		),
		Proj: vulkanClip.Mul4(mgl32.Perspective(mgl32.DegToRad(45), aspectRatio, 0.1, 10)),
	}
}

// frameOps performs the Vulkan side of each step of frame.Loop.
type frameOps struct {
	r *Renderer
}

func (o *frameOps) WaitForFrame(slot int) error {
	r := o.r
	_, err := r.deviceDriver.WaitForFences(true, common.NoTimeout, r.sync[slot].inFlight)
	return errors.Wrap(err, "failed to wait for in-flight fence")
}

func (o *frameOps) AcquireImage(slot int) (int, bool, error) {
	r := o.r
	imageIndex, res, err := r.swapchainExtension.AcquireNextImage(r.swapchain.handle, common.NoTimeout, &r.sync[slot].imageAvailable, nil)
	if res == khr_swapchain.VKSuboptimal {
		// An image was acquired and the semaphore will be signaled. Nothing else
		// waits on it once the frame is abandoned, so consume the signal here.
		err = o.consumeImageAvailable(slot)
		if err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}
	if isStale(res) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to acquire swapchain image")
	}

	return imageIndex, false, nil
}

func (o *frameOps) consumeImageAvailable(slot int) error {
	r := o.r
	_, err := r.deviceDriver.QueueSubmit(r.graphicsQueue, nil, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{r.sync[slot].imageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
	})
	return errors.Wrap(err, "failed to release acquired image semaphore")
}

func (o *frameOps) UpdateUniforms(slot int) error {
	r := o.r
	ubo := uniformsAt(hrtime.Since(r.startTime), r.swapchain.extent)
	return encodeInto(r.uniformBuffers[slot].mapped, &ubo)
}

func (o *frameOps) ResetFrameFence(slot int) error {
	r := o.r
	_, err := r.deviceDriver.ResetFences(r.sync[slot].inFlight)
	return errors.Wrap(err, "failed to reset in-flight fence")
}

// RecordCommands rewrites the slot's command buffer. The pool was created with the
// reset-buffer flag, so beginning the buffer resets it.
func (o *frameOps) RecordCommands(slot int, imageIndex int) error {
	r := o.r
	buffer := r.commandBuffers[slot]
	extent := r.swapchain.extent

	_, err := r.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return errors.Wrap(err, "failed to begin recording command buffer")
	}

	err = r.deviceDriver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  r.pipeline.renderPass,
			Framebuffer: r.swapchain.framebuffers[imageIndex],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
			},
		})
	if err != nil {
		return errors.Wrap(err, "failed to begin render pass")
	}

	r.deviceDriver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, r.pipeline.pipeline)
	r.deviceDriver.CmdSetViewport(buffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	r.deviceDriver.CmdSetScissor(buffer, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
	r.deviceDriver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{r.vertexBuffer.buffer}, []int{0})
	r.deviceDriver.CmdBindIndexBuffer(buffer, r.indexBuffer.buffer, 0, core1_0.IndexTypeUInt32)
	r.deviceDriver.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, r.pipeline.layout, 0, []core1_0.DescriptorSet{
		r.descriptorSets[slot],
	}, nil)
	r.deviceDriver.CmdDrawIndexed(buffer, r.indexCount, 1, 0, 0, 0)
	r.deviceDriver.CmdEndRenderPass(buffer)

	_, err = r.deviceDriver.EndCommandBuffer(buffer)
	return errors.Wrap(err, "failed to record command buffer")
}

func (o *frameOps) Submit(slot int, imageIndex int) error {
	r := o.r
	_, err := r.deviceDriver.QueueSubmit(r.graphicsQueue, &r.sync[slot].inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{r.sync[slot].imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{r.commandBuffers[slot]},
			SignalSemaphores: []core1_0.Semaphore{r.sync[slot].renderFinished},
		},
	)
	return errors.Wrap(err, "failed to submit draw command buffer")
}

func (o *frameOps) Present(slot int, imageIndex int) (bool, error) {
	r := o.r
	res, err := r.swapchainExtension.QueuePresent(r.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{r.sync[slot].renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{r.swapchain.handle},
		ImageIndices:   []int{imageIndex},
	})
	if isStale(res) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to present swapchain image")
	}

	return false, nil
}

func (o *frameOps) RecreateSwapchain() error {
	return o.r.recreateSwapchain()
}
