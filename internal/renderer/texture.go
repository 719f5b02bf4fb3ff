package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkan_tutorial/internal/assets"
)

const textureFormat = core1_0.FormatR8G8B8A8SRGB

type texture struct {
	image     core1_0.Image
	view      core1_0.ImageView
	sampler   core1_0.Sampler
	mipLevels int
}

func (r *Renderer) createTexture(tex *assets.Texture) error {
	r.texture.mipLevels = tex.MipLevels()

	var staging releaseStack
	defer staging.release()

	stagingBuffer, err := r.createBuffer(&staging, len(tex.Pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}

	err = writeData(r.deviceDriver, stagingBuffer.memory, 0, tex.Pixels)
	if err != nil {
		return err
	}

	// Mip levels are blitted from level 0, so the image is also a transfer source
	r.texture.image, err = r.createImage(&r.lifetime, imageOptions{
		width:      tex.Width,
		height:     tex.Height,
		mipLevels:  r.texture.mipLevels,
		samples:    core1_0.Samples1,
		format:     textureFormat,
		usage:      core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		properties: core1_0.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return err
	}

	err = r.transitionImageLayout(r.texture.image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, r.texture.mipLevels)
	if err != nil {
		return err
	}

	err = r.copyBufferToImage(stagingBuffer.buffer, r.texture.image, tex.Width, tex.Height)
	if err != nil {
		return err
	}

	err = r.generateMipmaps(r.texture.image, textureFormat, tex.Width, tex.Height, r.texture.mipLevels)
	if err != nil {
		return err
	}

	r.texture.view, err = r.createImageView(&r.lifetime, r.texture.image, textureFormat, core1_0.ImageAspectColor, r.texture.mipLevels)
	if err != nil {
		return err
	}

	return r.createSampler()
}

type layoutTransition struct {
	srcAccess, dstAccess core1_0.AccessFlags
	srcStage, dstStage   core1_0.PipelineStageFlags
}

// transitionFor knows the two transitions a texture upload needs.
func transitionFor(oldLayout, newLayout core1_0.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: core1_0.AccessTransferWrite,
			srcStage:  core1_0.PipelineStageTopOfPipe,
			dstStage:  core1_0.PipelineStageTransfer,
		}, nil
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: core1_0.AccessTransferWrite,
			dstAccess: core1_0.AccessShaderRead,
			srcStage:  core1_0.PipelineStageTransfer,
			dstStage:  core1_0.PipelineStageFragmentShader,
		}, nil
	}

	return layoutTransition{}, errors.Wrapf(ErrUnsupportedLayoutTransition, "%s -> %s", oldLayout, newLayout)
}

func (r *Renderer) transitionImageLayout(image core1_0.Image, oldLayout core1_0.ImageLayout, newLayout core1_0.ImageLayout, mipLevels int) error {
	transition, err := transitionFor(oldLayout, newLayout)
	if err != nil {
		return err
	}

	return r.singleTimeCommands(func(buffer core1_0.CommandBuffer) error {
		err := r.deviceDriver.CmdPipelineBarrier(buffer, transition.srcStage, transition.dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     core1_0.ImageAspectColor,
					BaseMipLevel:   0,
					LevelCount:     mipLevels,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: transition.srcAccess,
				DstAccessMask: transition.dstAccess,
			},
		})
		return errors.Wrap(err, "failed to record layout transition")
	})
}

func (r *Renderer) copyBufferToImage(buffer core1_0.Buffer, image core1_0.Image, width, height int) error {
	return r.singleTimeCommands(func(cmdBuffer core1_0.CommandBuffer) error {
		err := r.deviceDriver.CmdCopyBufferToImage(cmdBuffer, buffer, image, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		)
		return errors.Wrap(err, "failed to record buffer to image copy")
	})
}

// generateMipmaps fills levels 1..mipLevels-1 by repeatedly blitting the previous level
// at half size. Every level ends up SHADER_READ_ONLY_OPTIMAL.
func (r *Renderer) generateMipmaps(image core1_0.Image, imageFormat core1_0.Format, width, height int, mipLevels int) error {
	properties := r.instanceDriver.GetPhysicalDeviceFormatProperties(r.physicalDevice, imageFormat)

	if (properties.OptimalTilingFeatures & core1_0.FormatFeatureSampledImageFilterLinear) == 0 {
		return errors.Wrapf(ErrLinearBlitUnsupported, "format %s", imageFormat)
	}

	return r.singleTimeCommands(func(commandBuffer core1_0.CommandBuffer) error {
		barrier := core1_0.ImageMemoryBarrier{
			Image:               image,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseArrayLayer: 0,
				LayerCount:     1,
				LevelCount:     1,
			},
		}

		mipWidth := width
		mipHeight := height
		for i := 1; i < mipLevels; i++ {
			barrier.SubresourceRange.BaseMipLevel = i - 1
			barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
			barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferWrite
			barrier.DstAccessMask = core1_0.AccessTransferRead

			err := r.deviceDriver.CmdPipelineBarrier(commandBuffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return errors.Wrap(err, "failed to record mip barrier")
			}

			nextMipWidth, nextMipHeight := assets.NextMipExtent(mipWidth, mipHeight)
			err = r.deviceDriver.CmdBlitImage(commandBuffer, image, core1_0.ImageLayoutTransferSrcOptimal, image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{
				{
					SrcSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       i - 1,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					SrcOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: mipWidth, Y: mipHeight, Z: 1},
					},

					DstSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     core1_0.ImageAspectColor,
						MipLevel:       i,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
					DstOffsets: [2]core1_0.Offset3D{
						{X: 0, Y: 0, Z: 0},
						{X: nextMipWidth, Y: nextMipHeight, Z: 1},
					},
				},
			}, core1_0.FilterLinear)
			if err != nil {
				return errors.Wrap(err, "failed to record mip blit")
			}

			barrier.OldLayout = core1_0.ImageLayoutTransferSrcOptimal
			barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
			barrier.SrcAccessMask = core1_0.AccessTransferRead
			barrier.DstAccessMask = core1_0.AccessShaderRead
			err = r.deviceDriver.CmdPipelineBarrier(commandBuffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
			if err != nil {
				return errors.Wrap(err, "failed to record mip barrier")
			}

			mipWidth = nextMipWidth
			mipHeight = nextMipHeight
		}

		// The last level was only ever written to
		barrier.SubresourceRange.BaseMipLevel = mipLevels - 1
		barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
		barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessShaderRead

		err := r.deviceDriver.CmdPipelineBarrier(
			commandBuffer,
			core1_0.PipelineStageTransfer,
			core1_0.PipelineStageFragmentShader,
			0, nil, nil,
			[]core1_0.ImageMemoryBarrier{barrier})
		return errors.Wrap(err, "failed to record mip barrier")
	})
}

func (r *Renderer) createSampler() error {
	properties, err := r.instanceDriver.GetPhysicalDeviceProperties(r.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "failed to read device properties")
	}

	r.texture.sampler, _, err = r.deviceDriver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    properties.Limits.MaxSamplerAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(r.texture.mipLevels),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create texture sampler")
	}
	r.lifetime.push(func() { r.deviceDriver.DestroySampler(r.texture.sampler, nil) })

	return nil
}

var depthFormatCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

func (r *Renderer) findSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := r.instanceDriver.GetPhysicalDeviceFormatProperties(r.physicalDevice, format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}

	return 0, errors.Wrapf(ErrUnsupportedFormat, "tiling %s, features %s", tiling, features)
}

func (r *Renderer) findDepthFormat() error {
	var err error
	r.depthFormat, err = r.findSupportedFormat(depthFormatCandidates,
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
	return err
}
