package vulkan

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/rendercore/engine/assets"
	"github.com/spaghettifunk/rendercore/engine/core"
	rmath "github.com/spaghettifunk/rendercore/engine/math"
)

type options struct {
	framesInFlight  int
	drawables       uint32
	presentWaitIdle bool
	clearColor      [4]float32
	mesh            *assets.Mesh
	pipelines       PipelineFactory
	elapsed         func() float32
}

type Option func(*options)

func WithFramesInFlight(n int) Option {
	return func(o *options) { o.framesInFlight = n }
}

func WithDrawables(n uint32) Option {
	return func(o *options) { o.drawables = n }
}

// WithPresentWaitIdle drains the present queue after every present.
func WithPresentWaitIdle(wait bool) Option {
	return func(o *options) { o.presentWaitIdle = wait }
}

func WithClearColor(color [4]float32) Option {
	return func(o *options) { o.clearColor = color }
}

func WithMesh(mesh *assets.Mesh) Option {
	return func(o *options) { o.mesh = mesh }
}

func WithPipelineFactory(factory PipelineFactory) Option {
	return func(o *options) { o.pipelines = factory }
}

// WithTimeSource replaces the clock driving drawable animation. It returns
// seconds since the core was created.
func WithTimeSource(elapsed func() float32) Option {
	return func(o *options) { o.elapsed = elapsed }
}

// RenderCore drives the frame loop: it owns the frame slots, the geometry
// buffers and the swapchain manager built on a device context.
type RenderCore struct {
	ID uuid.UUID

	ctx        *DeviceContext
	opts       options
	allocator  *Allocator
	factory    *Factory
	swapchains *SwapchainManager
	recorder   *Recorder
	frames     []*FrameSlot

	vertexBuffer *VulkanBuffer
	indexBuffer  *VulkanBuffer

	counter     uint64
	resized     atomic.Bool
	initialized bool
	destroyed   bool

	release releaseStack
}

// Create builds the render core on ctx and surface. On failure everything
// created so far is released.
func Create(ctx *DeviceContext, surface Surface, opts ...Option) (*RenderCore, error) {
	o := options{
		framesInFlight:  MaxFramesInFlight,
		drawables:       4,
		presentWaitIdle: true,
		clearColor:      [4]float32{0, 0, 0, 1},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pipelines == nil {
		return nil, errors.New("render core needs a pipeline factory")
	}
	if o.framesInFlight < 1 {
		return nil, errors.Newf("frames in flight must be positive, got %d", o.framesInFlight)
	}
	if o.mesh == nil {
		o.mesh = assets.QuadMesh()
	}
	if o.elapsed == nil {
		clock := core.NewClock()
		clock.Start()
		o.elapsed = func() float32 {
			clock.Update()
			return float32(clock.Elapsed())
		}
	}

	rc := &RenderCore{
		ID:   uuid.New(),
		ctx:  ctx,
		opts: o,
	}
	if err := rc.init(surface); err != nil {
		if rc.swapchains != nil {
			rc.swapchains.Destroy()
		}
		rc.release.release()
		return nil, err
	}
	rc.initialized = true

	core.LogInfo("Render core %s created: %d frames in flight, %d drawables.", rc.ID, o.framesInFlight, o.drawables)
	return rc, nil
}

func (rc *RenderCore) init(surface Surface) error {
	ctx := rc.ctx
	driver := ctx.Driver

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: ctx.GraphicsQueueIndex,
	}
	pool, res := driver.CreateCommandPool(&poolInfo)
	if err := check("vkCreateCommandPool", res); err != nil {
		return err
	}
	ctx.CommandPool = pool
	rc.release.push(func() {
		driver.DestroyCommandPool(pool)
		ctx.CommandPool = nil
	})

	rc.allocator = NewAllocator(driver)
	rc.factory = NewFactory(ctx, rc.allocator)

	vertexBuffer, err := rc.factory.CreateVertexBuffer(rc.opts.mesh)
	if err != nil {
		return err
	}
	rc.vertexBuffer = vertexBuffer
	rc.release.push(func() { rc.factory.DestroyBuffer(vertexBuffer) })

	indexBuffer, err := rc.factory.CreateIndexBuffer(rc.opts.mesh)
	if err != nil {
		return err
	}
	rc.indexBuffer = indexBuffer
	rc.release.push(func() { rc.factory.DestroyBuffer(indexBuffer) })

	frames, err := NewFrameSlots(driver, rc.opts.framesInFlight)
	if err != nil {
		return err
	}
	rc.frames = frames
	rc.release.push(func() { DestroyFrameSlots(driver, frames) })

	rc.recorder = NewRecorder(driver, vertexBuffer, indexBuffer, rc.opts.mesh.IndexCount(), rmath.Drawables(rc.opts.drawables))

	rc.swapchains = NewSwapchainManager(ctx, surface, rc.factory, rc.opts.pipelines, rc.opts.clearColor)
	if err := rc.swapchains.Create(); err != nil && !errors.Is(err, core.ErrSwapchainBooting) {
		return err
	}
	return nil
}

// NotifyResized requests a swapchain rebuild at the next present.
func (rc *RenderCore) NotifyResized() {
	rc.resized.Store(true)
}

// Frame is the number of frames presented so far.
func (rc *RenderCore) Frame() uint64 {
	return rc.counter
}

// Swapchain is the live swapchain, nil while the surface has no area.
func (rc *RenderCore) Swapchain() *VulkanSwapchain {
	if rc.swapchains == nil {
		return nil
	}
	return rc.swapchains.Current()
}

// ImagesInFlight is the fence last bound to each swapchain image.
func (rc *RenderCore) ImagesInFlight() []*VulkanFence {
	sc := rc.Swapchain()
	if sc == nil {
		return nil
	}
	out := make([]*VulkanFence, len(sc.PerImage))
	for i, image := range sc.PerImage {
		out[i] = image.InFlight
	}
	return out
}

// RenderFrame records, submits and presents one frame. Out-of-date and
// suboptimal swapchains are rebuilt here; any error returned is fatal.
func (rc *RenderCore) RenderFrame(resizeRequested bool) error {
	if !rc.initialized || rc.destroyed {
		return core.ErrNotInitialized
	}
	if resizeRequested {
		rc.resized.Store(true)
	}

	sc := rc.swapchains.Current()
	if sc == nil {
		// Minimized. Try again now that there may be area to draw to.
		if err := rc.rebuild(); err != nil {
			return err
		}
		if sc = rc.swapchains.Current(); sc == nil {
			return nil
		}
		rc.resized.Store(false)
	}

	ctx := rc.ctx
	driver := ctx.Driver
	slot := rc.frames[rc.counter%uint64(len(rc.frames))]

	if err := slot.InFlight.Wait(driver, vk.MaxUint64); err != nil {
		return core.Fatal(errors.Wrap(err, "frame slot fence"))
	}

	imageIndex, res := driver.AcquireNextImage(sc.Handle, vk.MaxUint64, slot.ImageAvailable)
	// A suboptimal image is still presentable. The rebuild waits until after present.
	suboptimal := res == vk.Suboptimal
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		core.LogDebug("Swapchain out of date on acquire, rebuilding.")
		return rc.rebuild()
	default:
		return core.Fatal(check("vkAcquireNextImageKHR", res))
	}
	image := sc.PerImage[imageIndex]

	// A previous frame may still be rendering to this image.
	if image.InFlight != nil {
		if err := image.InFlight.Wait(driver, vk.MaxUint64); err != nil {
			return core.Fatal(errors.Wrap(err, "image fence"))
		}
	}
	image.InFlight = slot.InFlight

	if err := rc.recorder.Record(sc, image, rc.opts.elapsed()); err != nil {
		return core.Fatal(errors.Wrap(err, "record"))
	}
	ubo := UniformBufferObject{
		View: rmath.View(),
		Proj: rmath.Projection(sc.Extent.Width, sc.Extent.Height),
	}
	if err := rc.factory.WriteUniform(image.Uniform, ubo); err != nil {
		return core.Fatal(errors.Wrap(err, "uniform"))
	}

	if err := slot.InFlight.Reset(driver); err != nil {
		return core.Fatal(err)
	}
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{image.Primary.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderFinished},
	}
	if err := ctx.SubmitGraphics([]vk.SubmitInfo{submit}, slot.InFlight.Handle); err != nil {
		return core.Fatal(err)
	}
	image.Primary.UpdateSubmitted()

	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	res = ctx.Present(&present)
	resized := rc.resized.Swap(false)
	switch {
	case res != vk.Success && res != vk.Suboptimal && res != vk.ErrorOutOfDate:
		return core.Fatal(check("vkQueuePresentKHR", res))
	case res != vk.Success || resized || suboptimal:
		if err := rc.rebuild(); err != nil {
			return err
		}
	}

	if rc.opts.presentWaitIdle {
		if err := ctx.WaitPresentIdle(); err != nil {
			return core.Fatal(err)
		}
	}
	rc.counter++
	return nil
}

// rebuild recreates the swapchain tier. A surface without area is not an
// error; the next frame tries again.
func (rc *RenderCore) rebuild() error {
	err := rc.swapchains.Recreate()
	if errors.Is(err, core.ErrSwapchainBooting) {
		return nil
	}
	if err != nil {
		return core.Fatal(errors.Wrap(err, "swapchain rebuild"))
	}
	sc := rc.swapchains.Current()
	core.LogInfo("Swapchain rebuilt: %dx%d, %d images, generation %s.", sc.Extent.Width, sc.Extent.Height, sc.ImageCount, sc.Generation)
	return nil
}

// Destroy waits for the device to go idle and releases everything the core
// owns. Calling it again does nothing.
func (rc *RenderCore) Destroy() {
	if !rc.initialized || rc.destroyed {
		return
	}
	rc.destroyed = true

	if err := rc.ctx.WaitIdle(); err != nil {
		core.LogWarn("device wait idle before teardown: %s", err)
	}
	rc.swapchains.Destroy()
	rc.release.release()

	core.LogInfo("Render core %s destroyed after %d frames.", rc.ID, rc.counter)
}
