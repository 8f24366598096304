package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(driver PresentationDriver, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	// Keep a copy, the caller's slice may be reused.
	views := append([]vk.ImageView(nil), attachments...)

	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	handle, res := driver.CreateFramebuffer(&info)
	if err := check("vkCreateFramebuffer", res); err != nil {
		return nil, err
	}
	return &VulkanFramebuffer{
		Handle:      handle,
		Attachments: views,
		Renderpass:  renderpass,
	}, nil
}

func (vfb *VulkanFramebuffer) Destroy(driver PresentationDriver) {
	if vfb.Handle != nil {
		driver.DestroyFramebuffer(vfb.Handle)
	}
	vfb.Handle = nil
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
