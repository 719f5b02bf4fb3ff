package renderer

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type gpuBuffer struct {
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

// findMemoryType returns the lowest memory type index that is allowed by typeFilter and
// has at least the requested property flags.
func findMemoryType(memoryTypes []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range memoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrNoSuitableMemoryType, "filter %#b, properties %s", typeFilter, properties)
}

func (r *Renderer) allocateMemory(releases *releaseStack, requirements *core1_0.MemoryRequirements, properties core1_0.MemoryPropertyFlags) (core1_0.DeviceMemory, error) {
	memProperties := r.instanceDriver.GetPhysicalDeviceMemoryProperties(r.physicalDevice)
	memoryTypeIndex, err := findMemoryType(memProperties.MemoryTypes, requirements.MemoryTypeBits, properties)
	if err != nil {
		return core1_0.DeviceMemory{}, err
	}

	memory, _, err := r.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return core1_0.DeviceMemory{}, errors.Wrap(err, "failed to allocate memory")
	}
	releases.push(func() { r.deviceDriver.FreeMemory(memory, nil) })

	return memory, nil
}

// createBuffer creates a buffer with bound memory. Both are registered on releases.
func (r *Renderer) createBuffer(releases *releaseStack, size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (gpuBuffer, error) {
	buffer, _, err := r.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return gpuBuffer{}, errors.Wrap(err, "failed to create buffer")
	}
	releases.push(func() { r.deviceDriver.DestroyBuffer(buffer, nil) })

	memory, err := r.allocateMemory(releases, r.deviceDriver.GetBufferMemoryRequirements(buffer), properties)
	if err != nil {
		return gpuBuffer{}, err
	}

	_, err = r.deviceDriver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		return gpuBuffer{}, errors.Wrap(err, "failed to bind buffer memory")
	}

	return gpuBuffer{buffer: buffer, memory: memory, size: size}, nil
}

type imageOptions struct {
	width, height int
	mipLevels     int
	samples       core1_0.SampleCountFlags
	format        core1_0.Format
	usage         core1_0.ImageUsageFlags
	properties    core1_0.MemoryPropertyFlags
}

// createImage creates an optimally tiled 2D image with bound memory.
func (r *Renderer) createImage(releases *releaseStack, opts imageOptions) (core1_0.Image, error) {
	image, _, err := r.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  opts.width,
			Height: opts.height,
			Depth:  1,
		},
		MipLevels:     opts.mipLevels,
		ArrayLayers:   1,
		Format:        opts.format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         opts.usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       opts.samples,
	})
	if err != nil {
		return core1_0.Image{}, errors.Wrap(err, "failed to create image")
	}
	releases.push(func() { r.deviceDriver.DestroyImage(image, nil) })

	memory, err := r.allocateMemory(releases, r.deviceDriver.GetImageMemoryRequirements(image), opts.properties)
	if err != nil {
		return core1_0.Image{}, err
	}

	_, err = r.deviceDriver.BindImageMemory(image, memory, 0)
	if err != nil {
		return core1_0.Image{}, errors.Wrap(err, "failed to bind image memory")
	}

	return image, nil
}

func (r *Renderer) createImageView(releases *releaseStack, image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (core1_0.ImageView, error) {
	imageView, _, err := r.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return core1_0.ImageView{}, errors.Wrap(err, "failed to create image view")
	}
	releases.push(func() { r.deviceDriver.DestroyImageView(imageView, nil) })

	return imageView, nil
}

func (r *Renderer) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := r.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, errors.Wrap(err, "failed to allocate command buffer")
	}

	buffer := buffers[0]
	_, err = r.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		r.deviceDriver.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, errors.Wrap(err, "failed to begin command buffer")
	}
	return buffer, nil
}

// endSingleTimeCommands submits buffer and blocks until the graphics queue is idle.
func (r *Renderer) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	defer r.deviceDriver.FreeCommandBuffers(buffer)

	_, err := r.deviceDriver.EndCommandBuffer(buffer)
	if err != nil {
		return errors.Wrap(err, "failed to end command buffer")
	}

	_, err = r.deviceDriver.QueueSubmit(r.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to submit one-time commands")
	}

	_, err = r.deviceDriver.QueueWaitIdle(r.graphicsQueue)
	return errors.Wrap(err, "failed to wait for graphics queue")
}

// singleTimeCommands records with record and runs the result to completion.
func (r *Renderer) singleTimeCommands(record func(buffer core1_0.CommandBuffer) error) error {
	buffer, err := r.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = record(buffer)
	if err != nil {
		r.deviceDriver.FreeCommandBuffers(buffer)
		return err
	}

	return r.endSingleTimeCommands(buffer)
}

func (r *Renderer) copyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	return r.singleTimeCommands(func(buffer core1_0.CommandBuffer) error {
		err := r.deviceDriver.CmdCopyBuffer(buffer, srcBuffer, dstBuffer,
			core1_0.BufferCopy{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		)
		return errors.Wrap(err, "failed to record buffer copy")
	})
}

// uploadBuffer copies data into a new device-local buffer through a host-visible
// staging buffer, which is released before returning.
func (r *Renderer) uploadBuffer(data any, usage core1_0.BufferUsageFlags) (gpuBuffer, error) {
	bufferSize := binary.Size(data)
	if bufferSize <= 0 {
		return gpuBuffer{}, errors.Newf("cannot upload %T as a buffer", data)
	}

	var staging releaseStack
	defer staging.release()

	stagingBuffer, err := r.createBuffer(&staging, bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return gpuBuffer{}, err
	}

	err = writeData(r.deviceDriver, stagingBuffer.memory, 0, data)
	if err != nil {
		return gpuBuffer{}, err
	}

	buffer, err := r.createBuffer(&r.lifetime, bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return gpuBuffer{}, err
	}

	return buffer, r.copyBuffer(stagingBuffer.buffer, buffer.buffer, bufferSize)
}

func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return errors.Wrap(err, "failed to map memory")
	}
	defer driver.UnmapMemory(memory)

	return encodeInto(unsafe.Slice((*byte)(memoryPtr), bufferSize), data)
}

// encodeInto writes data's fixed-size binary encoding into dst.
func encodeInto(dst []byte, data any) error {
	buf := bytes.NewBuffer(make([]byte, 0, len(dst)))
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return errors.Wrap(err, "failed to encode buffer data")
	}

	copy(dst, buf.Bytes())
	return nil
}
