package vulkan

import (
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

const (
	memDeviceLocal  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	memHostVisible  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	memHostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
)

type call struct {
	name   string
	handle unsafe.Pointer
}

type submitRecord struct {
	buffers []vk.CommandBuffer
	fence   vk.Fence
	index   int // position in the call log
}

// fakeDriver is an in-memory device. Handles are unique fake pointers that
// are never dereferenced. The GPU completes work the moment it is waited on.
type fakeDriver struct {
	arena []*[8]byte
	calls []call
	live  map[unsafe.Pointer]string

	memoryTypes []vk.MemoryPropertyFlags
	typeBits    uint32
	sizes       map[unsafe.Pointer]vk.DeviceSize
	memory      map[vk.DeviceMemory][]byte
	bound       map[vk.Buffer]vk.DeviceMemory

	caps         vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
	imageCount   int
	swapchains   []vk.SwapchainCreateInfo

	acquireResults []vk.Result
	acquireImages  []uint32
	nextImage      uint32
	presentResults []vk.Result
	waitResult     vk.Result

	fences      map[vk.Fence]bool
	submits     []submitRecord
	waits       []waitRecord
	beginInfos  map[vk.CommandBuffer]vk.CommandBufferBeginInfo
	levels      map[vk.CommandBuffer]vk.CommandBufferLevel
	executed    [][]vk.CommandBuffer
	pushes      []pushRecord
	framebuffer []vk.FramebufferCreateInfo
	violations  []string
}

type waitRecord struct {
	fence vk.Fence
	index int
}

type pushRecord struct {
	buffer vk.CommandBuffer
	stages vk.ShaderStageFlags
	offset uint32
	size   int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		live:        make(map[unsafe.Pointer]string),
		memoryTypes: []vk.MemoryPropertyFlags{memDeviceLocal, memHostVisible | memHostCoherent},
		typeBits:    0b11,
		sizes:       make(map[unsafe.Pointer]vk.DeviceSize),
		memory:      make(map[vk.DeviceMemory][]byte),
		bound:       make(map[vk.Buffer]vk.DeviceMemory),
		caps: vk.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		presentModes: []vk.PresentMode{vk.PresentModeFifo},
		imageCount:   3,
		waitResult:   vk.Success,
		fences:       make(map[vk.Fence]bool),
		beginInfos:   make(map[vk.CommandBuffer]vk.CommandBufferBeginInfo),
		levels:       make(map[vk.CommandBuffer]vk.CommandBufferLevel),
	}
}

// ptr hands out a fresh handle backed by memory the fake owns, so every
// handle is distinct and never reused.
func (d *fakeDriver) ptr() unsafe.Pointer {
	cell := new([8]byte)
	d.arena = append(d.arena, cell)
	return unsafe.Pointer(cell)
}

func (d *fakeDriver) create(kind string) unsafe.Pointer {
	p := d.ptr()
	d.live[p] = kind
	d.calls = append(d.calls, call{"Create" + kind, p})
	return p
}

func (d *fakeDriver) destroy(kind string, p unsafe.Pointer) {
	if _, ok := d.live[p]; !ok {
		d.violations = append(d.violations, "destroy of unknown or released "+kind)
	}
	delete(d.live, p)
	d.calls = append(d.calls, call{"Destroy" + kind, p})
}

func (d *fakeDriver) record(name string, p unsafe.Pointer) {
	d.calls = append(d.calls, call{name, p})
}

// indexOf returns the position of the first call matching name and handle
// at or after from, or -1. A nil handle matches any.
func (d *fakeDriver) indexOf(name string, p unsafe.Pointer, from int) int {
	for i := from; i < len(d.calls); i++ {
		if d.calls[i].name == name && (p == nil || d.calls[i].handle == p) {
			return i
		}
	}
	return -1
}

func (d *fakeDriver) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func (d *fakeDriver) liveOf(kind string) int {
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (d *fakeDriver) MemoryTypes() []vk.MemoryPropertyFlags { return d.memoryTypes }

func (d *fakeDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	p := d.create("Buffer")
	d.sizes[p] = info.Size
	return vk.Buffer(p), vk.Success
}

func (d *fakeDriver) DestroyBuffer(buffer vk.Buffer) {
	d.destroy("Buffer", unsafe.Pointer(buffer))
	delete(d.bound, buffer)
}

func (d *fakeDriver) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: d.sizes[unsafe.Pointer(buffer)], MemoryTypeBits: d.typeBits}
}

func (d *fakeDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) vk.Result {
	d.bound[buffer] = memory
	d.record("BindBufferMemory", unsafe.Pointer(buffer))
	return vk.Success
}

func (d *fakeDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	p := d.create("Image")
	d.sizes[p] = vk.DeviceSize(info.Extent.Width * info.Extent.Height * 4)
	return vk.Image(p), vk.Success
}

func (d *fakeDriver) DestroyImage(image vk.Image) { d.destroy("Image", unsafe.Pointer(image)) }

func (d *fakeDriver) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: d.sizes[unsafe.Pointer(image)], MemoryTypeBits: d.typeBits}
}

func (d *fakeDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) vk.Result {
	return vk.Success
}

func (d *fakeDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	return vk.ImageView(d.create("ImageView")), vk.Success
}

func (d *fakeDriver) DestroyImageView(view vk.ImageView) {
	d.destroy("ImageView", unsafe.Pointer(view))
}

func (d *fakeDriver) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	p := d.create("Memory")
	memory := vk.DeviceMemory(p)
	d.memory[memory] = make([]byte, info.AllocationSize)
	return memory, vk.Success
}

func (d *fakeDriver) FreeMemory(memory vk.DeviceMemory) {
	d.destroy("Memory", unsafe.Pointer(memory))
	delete(d.memory, memory)
}

func (d *fakeDriver) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result) {
	d.record("MapMemory", unsafe.Pointer(memory))
	data, ok := d.memory[memory]
	if !ok {
		return nil, vk.ErrorMemoryMapFailed
	}
	return data[offset : offset+size], vk.Success
}

func (d *fakeDriver) UnmapMemory(memory vk.DeviceMemory) {
	d.record("UnmapMemory", unsafe.Pointer(memory))
}

func (d *fakeDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	return vk.CommandPool(d.create("CommandPool")), vk.Success
}

func (d *fakeDriver) DestroyCommandPool(pool vk.CommandPool) {
	d.destroy("CommandPool", unsafe.Pointer(pool))
}

func (d *fakeDriver) ResetCommandPool(pool vk.CommandPool) vk.Result {
	d.record("ResetCommandPool", unsafe.Pointer(pool))
	return vk.Success
}

func (d *fakeDriver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	out := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range out {
		out[i] = vk.CommandBuffer(d.create("CommandBuffer"))
		d.levels[out[i]] = info.Level
	}
	return out, vk.Success
}

func (d *fakeDriver) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, b := range buffers {
		d.destroy("CommandBuffer", unsafe.Pointer(b))
	}
}

func (d *fakeDriver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	d.beginInfos[buffer] = *info
	d.record("BeginCommandBuffer", unsafe.Pointer(buffer))
	return vk.Success
}

func (d *fakeDriver) EndCommandBuffer(buffer vk.CommandBuffer) vk.Result {
	d.record("EndCommandBuffer", unsafe.Pointer(buffer))
	return vk.Success
}

func (d *fakeDriver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	if contents != vk.SubpassContentsSecondaryCommandBuffers {
		d.violations = append(d.violations, "render pass not begun for secondary buffers")
	}
	d.record("CmdBeginRenderPass", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	d.record("CmdEndRenderPass", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdExecuteCommands(buffer vk.CommandBuffer, secondaries []vk.CommandBuffer) {
	d.executed = append(d.executed, append([]vk.CommandBuffer(nil), secondaries...))
	d.record("CmdExecuteCommands", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	d.record("CmdBindPipeline", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdBindVertexBuffers(buffer vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	d.record("CmdBindVertexBuffers", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdBindIndexBuffer(buffer vk.CommandBuffer, index vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	d.record("CmdBindIndexBuffer", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdBindDescriptorSets(buffer vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	d.record("CmdBindDescriptorSets", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	d.pushes = append(d.pushes, pushRecord{buffer: buffer, stages: stages, offset: offset, size: len(data)})
	d.record("CmdPushConstants", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record("CmdDrawIndexed", unsafe.Pointer(buffer))
}

// CmdCopyBuffer copies immediately; the fake has no deferred execution.
func (d *fakeDriver) CmdCopyBuffer(buffer vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	for _, r := range regions {
		from := d.memory[d.bound[src]]
		to := d.memory[d.bound[dst]]
		copy(to[r.DstOffset:r.DstOffset+r.Size], from[r.SrcOffset:r.SrcOffset+r.Size])
	}
	d.record("CmdCopyBuffer", unsafe.Pointer(buffer))
}

func (d *fakeDriver) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	return vk.DescriptorPool(d.create("DescriptorPool")), vk.Success
}

func (d *fakeDriver) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.destroy("DescriptorPool", unsafe.Pointer(pool))
}

func (d *fakeDriver) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	out := make([]vk.DescriptorSet, info.DescriptorSetCount)
	for i := range out {
		out[i] = vk.DescriptorSet(d.ptr())
	}
	return out, vk.Success
}

func (d *fakeDriver) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.record("UpdateDescriptorSets", nil)
}

func (d *fakeDriver) SurfaceCapabilities(surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	return d.caps, vk.Success
}

func (d *fakeDriver) SurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	return d.formats, vk.Success
}

func (d *fakeDriver) SurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	return d.presentModes, vk.Success
}

func (d *fakeDriver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	d.swapchains = append(d.swapchains, *info)
	return vk.Swapchain(d.create("Swapchain")), vk.Success
}

func (d *fakeDriver) DestroySwapchain(swapchain vk.Swapchain) {
	d.destroy("Swapchain", unsafe.Pointer(swapchain))
}

func (d *fakeDriver) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	images := make([]vk.Image, d.imageCount)
	for i := range images {
		images[i] = vk.Image(d.ptr())
	}
	d.nextImage = 0
	return images, vk.Success
}

func (d *fakeDriver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, signal vk.Semaphore) (uint32, vk.Result) {
	d.record("AcquireNextImage", unsafe.Pointer(swapchain))
	res := vk.Success
	if len(d.acquireResults) > 0 {
		res = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			return 0, res
		}
	}
	if len(d.acquireImages) > 0 {
		index := d.acquireImages[0]
		d.acquireImages = d.acquireImages[1:]
		return index, res
	}
	index := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(d.imageCount)
	return index, res
}

func (d *fakeDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	d.record("QueuePresent", unsafe.Pointer(queue))
	if len(d.presentResults) > 0 {
		res := d.presentResults[0]
		d.presentResults = d.presentResults[1:]
		return res
	}
	return vk.Success
}

func (d *fakeDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	return vk.RenderPass(d.create("RenderPass")), vk.Success
}

func (d *fakeDriver) DestroyRenderPass(renderPass vk.RenderPass) {
	d.destroy("RenderPass", unsafe.Pointer(renderPass))
}

func (d *fakeDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	d.framebuffer = append(d.framebuffer, *info)
	return vk.Framebuffer(d.create("Framebuffer")), vk.Success
}

func (d *fakeDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	d.destroy("Framebuffer", unsafe.Pointer(framebuffer))
}

func (d *fakeDriver) CreateSemaphore() (vk.Semaphore, vk.Result) {
	return vk.Semaphore(d.create("Semaphore")), vk.Success
}

func (d *fakeDriver) DestroySemaphore(semaphore vk.Semaphore) {
	d.destroy("Semaphore", unsafe.Pointer(semaphore))
}

func (d *fakeDriver) CreateFence(signaled bool) (vk.Fence, vk.Result) {
	fence := vk.Fence(d.create("Fence"))
	d.fences[fence] = signaled
	return fence, vk.Success
}

func (d *fakeDriver) DestroyFence(fence vk.Fence) {
	d.destroy("Fence", unsafe.Pointer(fence))
	delete(d.fences, fence)
}

func (d *fakeDriver) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	for _, f := range fences {
		d.waits = append(d.waits, waitRecord{fence: f, index: len(d.calls)})
		d.record("WaitForFences", unsafe.Pointer(f))
	}
	if d.waitResult != vk.Success {
		return d.waitResult
	}
	for _, f := range fences {
		d.fences[f] = true
	}
	return vk.Success
}

func (d *fakeDriver) ResetFences(fences []vk.Fence) vk.Result {
	for _, f := range fences {
		d.fences[f] = false
		d.record("ResetFences", unsafe.Pointer(f))
	}
	return vk.Success
}

func (d *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if fence != nil && d.fences[fence] {
		d.violations = append(d.violations, "submit with a signaled fence")
	}
	var buffers []vk.CommandBuffer
	for _, s := range submits {
		buffers = append(buffers, s.PCommandBuffers...)
	}
	d.submits = append(d.submits, submitRecord{buffers: buffers, fence: fence, index: len(d.calls)})
	d.record("QueueSubmit", unsafe.Pointer(fence))
	return vk.Success
}

func (d *fakeDriver) QueueWaitIdle(queue vk.Queue) vk.Result {
	d.record("QueueWaitIdle", unsafe.Pointer(queue))
	return vk.Success
}

func (d *fakeDriver) DeviceWaitIdle() vk.Result {
	d.record("DeviceWaitIdle", nil)
	return vk.Success
}

type fakeSurface struct {
	handle        vk.Surface
	width, height uint32
}

func (s *fakeSurface) Handle() vk.Surface                { return s.handle }
func (s *fakeSurface) FramebufferSize() (uint32, uint32) { return s.width, s.height }

type fakePipelines struct {
	d       *fakeDriver
	created int
	live    int
	fail    bool
	samples []vk.SampleCountFlagBits
}

func (p *fakePipelines) Create(renderpass *VulkanRenderpass, extent vk.Extent2D, samples vk.SampleCountFlagBits) (*VulkanPipeline, error) {
	if p.fail {
		return nil, &ResultError{Op: "vkCreateGraphicsPipelines", Result: vk.ErrorInitializationFailed}
	}
	p.created++
	p.live++
	p.samples = append(p.samples, samples)
	return &VulkanPipeline{
		Handle:         vk.Pipeline(p.d.ptr()),
		PipelineLayout: vk.PipelineLayout(p.d.ptr()),
	}, nil
}

func (p *fakePipelines) Destroy(pipeline *VulkanPipeline) {
	p.live--
	p.d.record("DestroyPipeline", unsafe.Pointer(pipeline.Handle))
}

func newTestContext(d *fakeDriver) *DeviceContext {
	return &DeviceContext{
		Driver:              d,
		GraphicsQueue:       vk.Queue(d.ptr()),
		PresentQueue:        vk.Queue(d.ptr()),
		DepthFormat:         vk.FormatD32Sfloat,
		MsaaSamples:         vk.SampleCount1Bit,
		DescriptorSetLayout: vk.DescriptorSetLayout(d.ptr()),
		Locks:               NewQueueLocks(),
	}
}

func newTestSurface(d *fakeDriver) *fakeSurface {
	return &fakeSurface{handle: vk.Surface(d.ptr()), width: 800, height: 600}
}

func assertNoViolations(t *testing.T, d *fakeDriver) {
	t.Helper()
	for _, v := range d.violations {
		t.Errorf("driver misuse: %s", v)
	}
}
