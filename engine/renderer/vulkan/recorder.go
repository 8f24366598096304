package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	rmath "github.com/spaghettifunk/rendercore/engine/math"
)

// SecondaryArena holds one secondary command buffer per drawable index. It
// only grows; resetting the owning pool resets the buffers in place.
type SecondaryArena struct {
	pool    vk.CommandPool
	buffers []*VulkanCommandBuffer
}

func NewSecondaryArena(pool vk.CommandPool) *SecondaryArena {
	return &SecondaryArena{pool: pool}
}

// Get returns the buffer for index, allocating any missing ones up to it.
func (a *SecondaryArena) Get(driver CommandDriver, index int) (*VulkanCommandBuffer, error) {
	for len(a.buffers) <= index {
		cb, err := NewVulkanCommandBuffer(driver, a.pool, false)
		if err != nil {
			return nil, err
		}
		a.buffers = append(a.buffers, cb)
	}
	return a.buffers[index], nil
}

func (a *SecondaryArena) Len() int {
	return len(a.buffers)
}

func (a *SecondaryArena) Handles(n int) []vk.CommandBuffer {
	handles := make([]vk.CommandBuffer, n)
	for i := range handles {
		handles[i] = a.buffers[i].Handle
	}
	return handles
}

func (a *SecondaryArena) Free(driver CommandDriver) {
	for _, cb := range a.buffers {
		cb.Free(driver)
	}
	a.buffers = nil
}

// Recorder re-records the commands for one swapchain image each frame.
type Recorder struct {
	driver       CommandDriver
	vertexBuffer *VulkanBuffer
	indexBuffer  *VulkanBuffer
	indexCount   uint32
	drawables    []rmath.Drawable
}

func NewRecorder(driver CommandDriver, vertexBuffer, indexBuffer *VulkanBuffer, indexCount uint32, drawables []rmath.Drawable) *Recorder {
	return &Recorder{
		driver:       driver,
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		indexCount:   indexCount,
		drawables:    drawables,
	}
}

func (r *Recorder) Drawables() []rmath.Drawable {
	return r.drawables
}

// Record resets the image's pool and rebuilds its primary buffer: one
// secondary buffer per drawable, executed in drawable order inside the pass.
func (r *Recorder) Record(sc *VulkanSwapchain, image *PerImageResources, elapsed float32) error {
	driver := r.driver

	if err := check("vkResetCommandPool", driver.ResetCommandPool(image.CommandPool)); err != nil {
		return err
	}
	image.Primary.Reset()

	if err := image.Primary.Begin(driver, false, false, false, nil); err != nil {
		return err
	}
	sc.Renderpass.Begin(driver, image.Primary, image.Framebuffer.Handle)

	for i, drawable := range r.drawables {
		secondary, err := image.Secondaries.Get(driver, i)
		if err != nil {
			return errors.Wrapf(err, "secondary command buffer %d", i)
		}
		if err := r.recordSecondary(sc, image, secondary, drawable, elapsed); err != nil {
			return errors.Wrapf(err, "drawable %d", i)
		}
	}
	driver.CmdExecuteCommands(image.Primary.Handle, image.Secondaries.Handles(len(r.drawables)))

	sc.Renderpass.End(driver, image.Primary)
	return image.Primary.End(driver)
}

func (r *Recorder) recordSecondary(sc *VulkanSwapchain, image *PerImageResources, cb *VulkanCommandBuffer, drawable rmath.Drawable, elapsed float32) error {
	driver := r.driver
	layout := sc.Pipeline.PipelineLayout

	inheritance := vk.CommandBufferInheritanceInfo{
		SType:       vk.StructureTypeCommandBufferInheritanceInfo,
		RenderPass:  sc.Renderpass.Handle,
		Subpass:     0,
		Framebuffer: image.Framebuffer.Handle,
	}
	cb.Reset()
	if err := cb.Begin(driver, false, true, false, &inheritance); err != nil {
		return err
	}

	driver.CmdBindPipeline(cb.Handle, sc.Pipeline.Handle)
	driver.CmdBindVertexBuffers(cb.Handle, []vk.Buffer{r.vertexBuffer.Handle}, []vk.DeviceSize{0})
	driver.CmdBindIndexBuffer(cb.Handle, r.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	driver.CmdBindDescriptorSets(cb.Handle, layout, []vk.DescriptorSet{image.DescriptorSet})

	driver.CmdPushConstants(cb.Handle, layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), ModelMatrixOffset, EncodeModelMatrix(drawable.Model(elapsed)))
	driver.CmdPushConstants(cb.Handle, layout, vk.ShaderStageFlags(vk.ShaderStageFragmentBit), OpacityOffset, EncodeOpacity(drawable.Opacity))

	driver.CmdDrawIndexed(cb.Handle, r.indexCount, 1, 0, 0, 0)

	return cb.End(driver)
}
