package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// MemoryDriver covers device memory, buffers, images and views.
type MemoryDriver interface {
	MemoryTypes() []vk.MemoryPropertyFlags
	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result
	CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result)
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(view vk.ImageView)
	AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result)
	FreeMemory(memory vk.DeviceMemory)
	// MapMemory returns a view over the mapped range, valid until UnmapMemory.
	MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)
}

// CommandDriver covers command pools, buffers and the commands recorded into them.
type CommandDriver interface {
	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result)
	DestroyCommandPool(pool vk.CommandPool)
	ResetCommandPool(pool vk.CommandPool) vk.Result
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(buffer vk.CommandBuffer) vk.Result

	CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(buffer vk.CommandBuffer)
	CmdExecuteCommands(buffer vk.CommandBuffer, secondaries []vk.CommandBuffer)
	CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindVertexBuffers(buffer vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(buffer vk.CommandBuffer, index vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdBindDescriptorSets(buffer vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet)
	CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdCopyBuffer(buffer vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
}

type DescriptorDriver interface {
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
}

// PresentationDriver covers the surface, swapchain and the render targets built on it.
type PresentationDriver interface {
	SurfaceCapabilities(surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	SurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, vk.Result)
	SurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, vk.Result)
	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(swapchain vk.Swapchain)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, signal vk.Semaphore) (uint32, vk.Result)
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(framebuffer vk.Framebuffer)
}

type SyncDriver interface {
	CreateSemaphore() (vk.Semaphore, vk.Result)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, vk.Result)
	DestroyFence(fence vk.Fence)
	WaitForFences(fences []vk.Fence, timeout uint64) vk.Result
	ResetFences(fences []vk.Fence) vk.Result
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result
	DeviceWaitIdle() vk.Result
}

// Driver is every device-level call the render core makes.
type Driver interface {
	MemoryDriver
	CommandDriver
	DescriptorDriver
	PresentationDriver
	SyncDriver
}

// vkDriver forwards to the goki/vulkan bindings for one logical device.
type vkDriver struct {
	physical  vk.PhysicalDevice
	device    vk.Device
	allocator *vk.AllocationCallbacks
}

func NewDriver(physical vk.PhysicalDevice, device vk.Device) Driver {
	return &vkDriver{physical: physical, device: device}
}

func (d *vkDriver) MemoryTypes() []vk.MemoryPropertyFlags {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.physical, &props)
	props.Deref()

	out := make([]vk.MemoryPropertyFlags, props.MemoryTypeCount)
	for i := range out {
		props.MemoryTypes[i].Deref()
		out[i] = props.MemoryTypes[i].PropertyFlags
	}
	return out
}

func (d *vkDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(d.device, info, d.allocator, &buffer)
	return buffer, res
}

func (d *vkDriver) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.device, buffer, d.allocator)
}

func (d *vkDriver) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buffer, &req)
	req.Deref()
	return req
}

func (d *vkDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result {
	return vk.BindBufferMemory(d.device, buffer, memory, 0)
}

func (d *vkDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	var image vk.Image
	res := vk.CreateImage(d.device, info, d.allocator, &image)
	return image, res
}

func (d *vkDriver) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.device, image, d.allocator)
}

func (d *vkDriver) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, image, &req)
	req.Deref()
	return req
}

func (d *vkDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result {
	return vk.BindImageMemory(d.device, image, memory, 0)
}

func (d *vkDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(d.device, info, d.allocator, &view)
	return view, res
}

func (d *vkDriver) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.device, view, d.allocator)
}

func (d *vkDriver) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(d.device, info, d.allocator, &memory)
	return memory, res
}

func (d *vkDriver) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.device, memory, d.allocator)
}

func (d *vkDriver) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result) {
	var pData unsafe.Pointer
	if res := vk.MapMemory(d.device, memory, offset, size, 0, &pData); res != vk.Success {
		return nil, res
	}
	return unsafe.Slice((*byte)(pData), int(size)), vk.Success
}

func (d *vkDriver) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.device, memory)
}

func (d *vkDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.device, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDriver) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.device, pool, d.allocator)
}

func (d *vkDriver) ResetCommandPool(pool vk.CommandPool) vk.Result {
	return vk.ResetCommandPool(d.device, pool, 0)
}

func (d *vkDriver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(d.device, info, buffers)
	return buffers, res
}

func (d *vkDriver) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(d.device, pool, uint32(len(buffers)), buffers)
}

func (d *vkDriver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(buffer, info)
}

func (d *vkDriver) EndCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(buffer)
}

func (d *vkDriver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(buffer, info, contents)
}

func (d *vkDriver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(buffer)
}

func (d *vkDriver) CmdExecuteCommands(buffer vk.CommandBuffer, secondaries []vk.CommandBuffer) {
	if len(secondaries) == 0 {
		return
	}
	vk.CmdExecuteCommands(buffer, uint32(len(secondaries)), secondaries)
}

func (d *vkDriver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(buffer, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDriver) CmdBindVertexBuffers(buffer vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(buffer, 0, uint32(len(buffers)), buffers, offsets)
}

func (d *vkDriver) CmdBindIndexBuffer(buffer vk.CommandBuffer, index vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(buffer, index, offset, indexType)
}

func (d *vkDriver) CmdBindDescriptorSets(buffer vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(buffer, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
}

func (d *vkDriver) CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(buffer, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *vkDriver) CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(buffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *vkDriver) CmdCopyBuffer(buffer vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(buffer, src, dst, uint32(len(regions)), regions)
}

func (d *vkDriver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.device, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDriver) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.device, pool, d.allocator)
}

func (d *vkDriver) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	if len(sets) == 0 {
		return sets, vk.Success
	}
	res := vk.AllocateDescriptorSets(d.device, info, &sets[0])
	return sets, res
}

func (d *vkDriver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
}

func (d *vkDriver) SurfaceCapabilities(surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physical, surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (d *vkDriver) SurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	formats := make([]vk.SurfaceFormat, count)
	res := vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	return formats, res
}

func (d *vkDriver) SurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.physical, surface, &count, nil); res != vk.Success {
		return nil, res
	}
	modes := make([]vk.PresentMode, count)
	res := vk.GetPhysicalDeviceSurfacePresentModes(d.physical, surface, &count, modes)
	return modes, res
}

func (d *vkDriver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(d.device, info, d.allocator, &swapchain)
	return swapchain, res
}

func (d *vkDriver) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.device, swapchain, d.allocator)
}

func (d *vkDriver) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	var count uint32
	if res := vk.GetSwapchainImages(d.device, swapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, count)
	res := vk.GetSwapchainImages(d.device, swapchain, &count, images)
	return images, res
}

func (d *vkDriver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, signal vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(d.device, swapchain, timeout, signal, vk.Fence(vk.NullHandle), &index)
	return index, res
}

func (d *vkDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *vkDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(d.device, info, d.allocator, &renderPass)
	return renderPass, res
}

func (d *vkDriver) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.device, renderPass, d.allocator)
}

func (d *vkDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	var framebuffer vk.Framebuffer
	res := vk.CreateFramebuffer(d.device, info, d.allocator, &framebuffer)
	return framebuffer, res
}

func (d *vkDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.device, framebuffer, d.allocator)
}

func (d *vkDriver) CreateSemaphore() (vk.Semaphore, vk.Result) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(d.device, &info, d.allocator, &semaphore)
	return semaphore, res
}

func (d *vkDriver) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.device, semaphore, d.allocator)
}

func (d *vkDriver) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	res := vk.CreateFence(d.device, &info, d.allocator, &fence)
	return fence, res
}

func (d *vkDriver) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.device, fence, d.allocator)
}

func (d *vkDriver) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.device, uint32(len(fences)), fences, vk.True, timeout)
}

func (d *vkDriver) ResetFences(fences []vk.Fence) vk.Result {
	return vk.ResetFences(d.device, uint32(len(fences)), fences)
}

func (d *vkDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDriver) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *vkDriver) DeviceWaitIdle() vk.Result {
	return vk.DeviceWaitIdle(d.device)
}
