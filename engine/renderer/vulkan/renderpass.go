package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanRenderpass struct {
	Handle     vk.RenderPass
	X, Y, W, H float32
	ClearColor [4]float32
	Depth      float32
	Stencil    uint32
	// Samples of the color and depth attachments. With a single sample the
	// swapchain image is rendered to directly and no resolve is needed.
	Samples vk.SampleCountFlagBits
}

// AttachmentCount is the number of framebuffer attachments the pass expects.
func (vr *VulkanRenderpass) AttachmentCount() int {
	if vr.Samples == vk.SampleCount1Bit {
		return 2
	}
	return 3
}

func RenderpassCreate(driver PresentationDriver, colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits, extent vk.Extent2D, clearColor [4]float32) (*VulkanRenderpass, error) {
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	outRenderpass := &VulkanRenderpass{
		W:          float32(extent.Width),
		H:          float32(extent.Height),
		ClearColor: clearColor,
		Depth:      1.0,
		Stencil:    0,
		Samples:    samples,
	}
	resolve := samples != vk.SampleCount1Bit

	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if resolve {
		// The multisampled image is resolved into the swapchain image.
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachments := []vk.AttachmentDescription{colorAttachment, depthAttachment}

	colorReference := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorReference,
		PDepthStencilAttachment: &depthReference,
	}

	if resolve {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	handle, res := driver.CreateRenderPass(&info)
	if err := check("vkCreateRenderPass", res); err != nil {
		return nil, err
	}
	outRenderpass.Handle = handle
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) Destroy(driver PresentationDriver) {
	if vr.Handle != nil {
		driver.DestroyRenderPass(vr.Handle)
		vr.Handle = nil
	}
}

// Begin starts the pass on commandBuffer. Draws are expected to arrive through
// secondary command buffers.
func (vr *VulkanRenderpass) Begin(driver CommandDriver, commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(vr.ClearColor[:])
	clearValues[1].SetDepthStencil(vr.Depth, vr.Stencil)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(vr.X), Y: int32(vr.Y)},
			Extent: vk.Extent2D{Width: uint32(vr.W), Height: uint32(vr.H)},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	driver.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsSecondaryCommandBuffers)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(driver CommandDriver, commandBuffer *VulkanCommandBuffer) {
	driver.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
