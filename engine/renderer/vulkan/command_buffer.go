package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
	Pool  vk.CommandPool
}

func NewVulkanCommandBuffer(driver CommandDriver, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              level,
		CommandBufferCount: 1,
	}
	handles, res := driver.AllocateCommandBuffers(&info)
	if err := check("vkAllocateCommandBuffers", res); err != nil {
		return nil, err
	}

	return &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
		Pool:   pool,
	}, nil
}

func (v *VulkanCommandBuffer) Free(driver CommandDriver) {
	if v.Handle != nil {
		driver.FreeCommandBuffers(v.Pool, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// Begin starts recording. Secondary buffers that continue a render pass pass
// the inheritance info of that pass.
func (v *VulkanCommandBuffer) Begin(driver CommandDriver, isSingleUse, isRenderpassContinue, isSimultaneousUse bool, inheritance *vk.CommandBufferInheritanceInfo) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if inheritance != nil {
		info.PInheritanceInfo = []vk.CommandBufferInheritanceInfo{*inheritance}
	}

	if err := check("vkBeginCommandBuffer", driver.BeginCommandBuffer(v.Handle, &info)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(driver CommandDriver) error {
	if err := check("vkEndCommandBuffer", driver.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

// AllocateAndBeginSingleUse allocates a primary buffer from pool and begins it
// for one submission.
func AllocateAndBeginSingleUse(driver CommandDriver, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(driver, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(driver, true, false, false, nil); err != nil {
		cb.Free(driver)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to the graphics queue, waits for the
// queue to drain and frees the buffer.
func (v *VulkanCommandBuffer) EndSingleUse(ctx *DeviceContext) error {
	defer v.Free(ctx.Driver)

	if err := v.End(ctx.Driver); err != nil {
		return err
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if err := ctx.SubmitGraphics([]vk.SubmitInfo{submit}, vk.Fence(vk.NullHandle)); err != nil {
		return err
	}
	v.UpdateSubmitted()

	return ctx.WaitGraphicsIdle()
}
