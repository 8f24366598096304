package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/rendercore/engine/core"
	rmath "github.com/spaghettifunk/rendercore/engine/math"
)

// Surface is the presentation target the swapchain is built against.
type Surface interface {
	Handle() vk.Surface
	// FramebufferSize is the drawable size in pixels. Zero while minimized.
	FramebufferSize() (uint32, uint32)
}

// PerImageResources is everything recorded or bound for one swapchain image.
type PerImageResources struct {
	Framebuffer   *VulkanFramebuffer
	CommandPool   vk.CommandPool
	Primary       *VulkanCommandBuffer
	Secondaries   *SecondaryArena
	Uniform       *VulkanBuffer
	DescriptorSet vk.DescriptorSet
	// InFlight is borrowed from the frame slot whose submission last targeted
	// this image. Nil until the image is first used.
	InFlight *VulkanFence
}

// VulkanSwapchain is the swapchain-dependent tier. It is always built and
// released as a whole.
type VulkanSwapchain struct {
	Generation  uuid.UUID
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	// Images are owned by the swapchain, Views are ours.
	Images []vk.Image
	Views  []vk.ImageView

	Renderpass      *VulkanRenderpass
	Pipeline        *VulkanPipeline
	ColorAttachment *VulkanImage
	DepthAttachment *VulkanImage
	DescriptorPool  vk.DescriptorPool

	PerImage []*PerImageResources

	release releaseStack
}

type SwapchainManager struct {
	ctx        *DeviceContext
	surface    Surface
	factory    *Factory
	pipelines  PipelineFactory
	clearColor [4]float32

	current *VulkanSwapchain
}

func NewSwapchainManager(ctx *DeviceContext, surface Surface, factory *Factory, pipelines PipelineFactory, clearColor [4]float32) *SwapchainManager {
	return &SwapchainManager{
		ctx:        ctx,
		surface:    surface,
		factory:    factory,
		pipelines:  pipelines,
		clearColor: clearColor,
	}
}

// Current is the live swapchain, or nil while none could be built.
func (m *SwapchainManager) Current() *VulkanSwapchain {
	return m.current
}

// Create builds a swapchain group. It returns core.ErrSwapchainBooting when
// the surface has no area; nothing is built in that case.
func (m *SwapchainManager) Create() error {
	if m.current != nil {
		return errors.New("swapchain already exists")
	}
	sc, err := m.build()
	if err != nil {
		return err
	}
	m.current = sc
	core.LogInfo("Swapchain created: %dx%d, %d images, generation %s.", sc.Extent.Width, sc.Extent.Height, sc.ImageCount, sc.Generation)
	return nil
}

// Recreate waits for the device to go idle, releases the current group and
// builds a new one against the current surface extent.
func (m *SwapchainManager) Recreate() error {
	if err := m.ctx.WaitIdle(); err != nil {
		return err
	}
	m.Destroy()
	return m.Create()
}

func (m *SwapchainManager) Destroy() {
	if m.current == nil {
		return
	}
	m.current.release.release()
	m.current = nil
}

func (m *SwapchainManager) build() (*VulkanSwapchain, error) {
	driver := m.ctx.Driver
	surface := m.surface.Handle()

	capabilities, res := driver.SurfaceCapabilities(surface)
	if err := check("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res); err != nil {
		return nil, err
	}
	formats, res := driver.SurfaceFormats(surface)
	if err := check("vkGetPhysicalDeviceSurfaceFormatsKHR", res); err != nil {
		return nil, err
	}
	presentModes, res := driver.SurfacePresentModes(surface)
	if err := check("vkGetPhysicalDeviceSurfacePresentModesKHR", res); err != nil {
		return nil, err
	}
	if len(formats) == 0 || len(presentModes) == 0 {
		return nil, errors.New("surface reports no formats or present modes")
	}

	width, height := m.surface.FramebufferSize()
	extent := ChooseExtent(capabilities, width, height)
	if width == 0 || height == 0 || extent.Width == 0 || extent.Height == 0 {
		core.LogDebug("Surface has no area, deferring swapchain creation.")
		return nil, core.ErrSwapchainBooting
	}

	sc := &VulkanSwapchain{
		Generation:  uuid.New(),
		ImageFormat: ChooseSurfaceFormat(formats),
		PresentMode: ChoosePresentMode(presentModes),
		Extent:      extent,
	}
	if err := m.populate(sc, capabilities); err != nil {
		sc.release.release()
		return nil, err
	}
	return sc, nil
}

func (m *SwapchainManager) populate(sc *VulkanSwapchain, capabilities vk.SurfaceCapabilities) error {
	ctx := m.ctx
	driver := ctx.Driver
	allocator := m.factory.Allocator()

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          m.surface.Handle(),
		MinImageCount:    ChooseImageCount(capabilities),
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      sc.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.PresentMode,
		Clipped:          vk.True,
	}
	if ctx.GraphicsQueueIndex != ctx.PresentQueueIndex {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{ctx.GraphicsQueueIndex, ctx.PresentQueueIndex}
	}

	handle, res := driver.CreateSwapchain(&info)
	if err := check("vkCreateSwapchainKHR", res); err != nil {
		return err
	}
	sc.Handle = handle
	sc.release.push(func() { driver.DestroySwapchain(handle) })

	images, res := driver.SwapchainImages(handle)
	if err := check("vkGetSwapchainImagesKHR", res); err != nil {
		return err
	}
	sc.Images = images
	sc.ImageCount = uint32(len(images))

	sc.Views = make([]vk.ImageView, 0, len(images))
	for _, image := range images {
		view, err := allocator.CreateImageView(image, sc.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		sc.Views = append(sc.Views, view)
		sc.release.push(func() { driver.DestroyImageView(view) })
	}

	samples := ctx.MsaaSamples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	renderpass, err := RenderpassCreate(driver, sc.ImageFormat.Format, ctx.DepthFormat, samples, sc.Extent, m.clearColor)
	if err != nil {
		return err
	}
	sc.Renderpass = renderpass
	sc.release.push(func() { renderpass.Destroy(driver) })

	pipeline, err := m.pipelines.Create(renderpass, sc.Extent, samples)
	if err != nil {
		return errors.Wrap(err, "graphics pipeline")
	}
	sc.Pipeline = pipeline
	sc.release.push(func() { m.pipelines.Destroy(pipeline) })

	if samples != vk.SampleCount1Bit {
		color, err := allocator.CreateImage(ImageConfig{
			Width:      sc.Extent.Width,
			Height:     sc.Extent.Height,
			Format:     sc.ImageFormat.Format,
			Samples:    samples,
			Tiling:     vk.ImageTilingOptimal,
			Usage:      vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit),
			Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			CreateView: true,
			Aspect:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		})
		if err != nil {
			return errors.Wrap(err, "color attachment")
		}
		sc.ColorAttachment = color
		sc.release.push(func() { allocator.DestroyImage(color) })
	}

	depth, err := allocator.CreateImage(ImageConfig{
		Width:      sc.Extent.Width,
		Height:     sc.Extent.Height,
		Format:     ctx.DepthFormat,
		Samples:    samples,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView: true,
		Aspect:     vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		return errors.Wrap(err, "depth attachment")
	}
	sc.DepthAttachment = depth
	sc.release.push(func() { allocator.DestroyImage(depth) })

	sc.PerImage = make([]*PerImageResources, len(images))
	for i := range sc.PerImage {
		sc.PerImage[i] = &PerImageResources{}
	}

	for i, view := range sc.Views {
		attachments := []vk.ImageView{view, depth.View}
		if sc.ColorAttachment != nil {
			attachments = []vk.ImageView{sc.ColorAttachment.View, depth.View, view}
		}
		fb, err := FramebufferCreate(driver, renderpass, sc.Extent.Width, sc.Extent.Height, attachments)
		if err != nil {
			return err
		}
		sc.PerImage[i].Framebuffer = fb
		sc.release.push(func() { fb.Destroy(driver) })
	}

	for _, image := range sc.PerImage {
		if err := m.createCommandResources(sc, image); err != nil {
			return err
		}
	}

	uniforms, err := m.factory.CreateUniformBuffers(len(images))
	if err != nil {
		return err
	}
	for i, ub := range uniforms {
		sc.PerImage[i].Uniform = ub
		sc.release.push(func() { m.factory.DestroyBuffer(ub) })
	}

	return m.createDescriptors(sc)
}

func (m *SwapchainManager) createCommandResources(sc *VulkanSwapchain, image *PerImageResources) error {
	driver := m.ctx.Driver
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: m.ctx.GraphicsQueueIndex,
	}
	pool, res := driver.CreateCommandPool(&poolInfo)
	if err := check("vkCreateCommandPool", res); err != nil {
		return err
	}
	image.CommandPool = pool
	image.Secondaries = NewSecondaryArena(pool)
	// Destroying the pool frees every buffer allocated from it.
	sc.release.push(func() {
		image.Secondaries.Free(driver)
		if image.Primary != nil {
			image.Primary.Free(driver)
		}
		driver.DestroyCommandPool(pool)
	})

	primary, err := NewVulkanCommandBuffer(driver, pool, true)
	if err != nil {
		return err
	}
	image.Primary = primary
	return nil
}

func (m *SwapchainManager) createDescriptors(sc *VulkanSwapchain) error {
	driver := m.ctx.Driver
	count := uint32(len(sc.PerImage))

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: count,
		}},
	}
	pool, res := driver.CreateDescriptorPool(&poolInfo)
	if err := check("vkCreateDescriptorPool", res); err != nil {
		return err
	}
	sc.DescriptorPool = pool
	sc.release.push(func() { driver.DestroyDescriptorPool(pool) })

	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = m.ctx.DescriptorSetLayout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}
	sets, res := driver.AllocateDescriptorSets(&allocInfo)
	if err := check("vkAllocateDescriptorSets", res); err != nil {
		return err
	}

	writes := make([]vk.WriteDescriptorSet, 0, count)
	for i, image := range sc.PerImage {
		image.DescriptorSet = sets[i]
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[i],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: image.Uniform.Handle,
				Offset: 0,
				Range:  UniformBufferSize,
			}},
		})
	}
	driver.UpdateDescriptorSets(writes)
	return nil
}

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB and falls back to the first
// reported format.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless the window system
// leaves it to us, in which case the framebuffer size is clamped to the limits.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	lo := capabilities.MinImageExtent
	hi := capabilities.MaxImageExtent
	w, h := rmath.ClampPair(width, height, lo.Width, lo.Height, hi.Width, hi.Height)
	return vk.Extent2D{Width: w, Height: h}
}

func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}
