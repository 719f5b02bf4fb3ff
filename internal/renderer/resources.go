package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/vulkan_tutorial/internal/frame"
	"github.com/vkngwrapper/vulkan_tutorial/internal/model"
)

type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// uniformBuffer stays mapped for the renderer's lifetime.
type uniformBuffer struct {
	gpuBuffer
	mapped []byte
}

type frameSync struct {
	imageAvailable core1_0.Semaphore
	renderFinished core1_0.Semaphore
	inFlight       core1_0.Fence
}

func (r *Renderer) createCommandPool() error {
	pool, _, err := r.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: *r.queueFamilies.GraphicsFamily,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}
	r.commandPool = pool
	r.lifetime.push(func() { r.deviceDriver.DestroyCommandPool(r.commandPool, nil) })

	return nil
}

func (r *Renderer) createVertexBuffer(vertices []model.Vertex) error {
	var err error
	r.vertexBuffer, err = r.uploadBuffer(vertices, core1_0.BufferUsageVertexBuffer)
	return err
}

func (r *Renderer) createIndexBuffer(indices []uint32) error {
	var err error
	r.indexBuffer, err = r.uploadBuffer(indices, core1_0.BufferUsageIndexBuffer)
	r.indexCount = len(indices)
	return err
}

func (r *Renderer) createUniformBuffers() error {
	bufferSize := int(unsafe.Sizeof(UniformBufferObject{}))

	for i := range r.uniformBuffers {
		buffer, err := r.createBuffer(&r.lifetime, bufferSize, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}

		memoryPtr, _, err := r.deviceDriver.MapMemory(buffer.memory, 0, bufferSize, 0)
		if err != nil {
			return errors.Wrap(err, "failed to map uniform buffer")
		}
		memory := buffer.memory
		r.lifetime.push(func() { r.deviceDriver.UnmapMemory(memory) })

		r.uniformBuffers[i] = uniformBuffer{
			gpuBuffer: buffer,
			mapped:    unsafe.Slice((*byte)(memoryPtr), bufferSize),
		}
	}

	return nil
}

func (r *Renderer) createDescriptorPool() error {
	var err error
	r.descriptorPool, _, err = r.deviceDriver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: frame.MaxFramesInFlight,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: frame.MaxFramesInFlight,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: frame.MaxFramesInFlight,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create descriptor pool")
	}
	r.lifetime.push(func() { r.deviceDriver.DestroyDescriptorPool(r.descriptorPool, nil) })

	return nil
}

// createDescriptorSets allocates one set per frame slot pointing at that slot's uniform
// buffer and the shared texture. The sets are freed with the pool.
func (r *Renderer) createDescriptorSets() error {
	allocLayouts := make([]core1_0.DescriptorSetLayout, frame.MaxFramesInFlight)
	for i := range allocLayouts {
		allocLayouts[i] = r.descriptorSetLayout
	}

	sets, _, err := r.deviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: r.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return errors.Wrap(err, "failed to allocate descriptor sets")
	}
	copy(r.descriptorSets[:], sets)

	for i, set := range r.descriptorSets {
		err = r.deviceDriver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: r.uniformBuffers[i].buffer,
						Offset: 0,
						Range:  r.uniformBuffers[i].size,
					},
				},
			},
			{
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   r.texture.view,
						Sampler:     r.texture.sampler,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return errors.Wrap(err, "failed to update descriptor sets")
		}
	}

	return nil
}

func (r *Renderer) createCommandBuffers() error {
	buffers, _, err := r.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: frame.MaxFramesInFlight,
	})
	if err != nil {
		return errors.Wrap(err, "failed to allocate command buffers")
	}
	copy(r.commandBuffers[:], buffers)
	r.lifetime.push(func() { r.deviceDriver.FreeCommandBuffers(buffers...) })

	return nil
}

// createSyncObjects creates the fences signaled so the first wait on each slot returns
// immediately.
func (r *Renderer) createSyncObjects() error {
	for i := range r.sync {
		sync := &r.sync[i]

		var err error
		sync.imageAvailable, err = r.createSemaphore()
		if err != nil {
			return err
		}
		r.lifetime.push(func() { r.deviceDriver.DestroySemaphore(sync.imageAvailable, nil) })

		sync.renderFinished, err = r.createSemaphore()
		if err != nil {
			return err
		}
		r.lifetime.push(func() { r.deviceDriver.DestroySemaphore(sync.renderFinished, nil) })

		sync.inFlight, _, err = r.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create fence")
		}
		r.lifetime.push(func() { r.deviceDriver.DestroyFence(sync.inFlight, nil) })
	}

	return nil
}

func (r *Renderer) createSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, errors.Wrap(err, "failed to create semaphore")
}
