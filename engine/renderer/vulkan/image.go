package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

type ImageConfig struct {
	Width      uint32
	Height     uint32
	Format     vk.Format
	Samples    vk.SampleCountFlagBits
	Tiling     vk.ImageTiling
	Usage      vk.ImageUsageFlags
	Properties vk.MemoryPropertyFlags
	// CreateView adds a 2D view covering the first mip level with Aspect.
	CreateView bool
	Aspect     vk.ImageAspectFlags
}

// CreateImage creates a 2D image with bound device memory and an optional view.
func (a *Allocator) CreateImage(config ImageConfig) (*VulkanImage, error) {
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    config.Format,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       samples,
		Tiling:        config.Tiling,
		Usage:         config.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	handle, res := a.driver.CreateImage(&info)
	if err := check("vkCreateImage", res); err != nil {
		return nil, err
	}

	memory, err := a.allocate(a.driver.ImageMemoryRequirements(handle), config.Properties)
	if err != nil {
		a.driver.DestroyImage(handle)
		return nil, err
	}
	if err := check("vkBindImageMemory", a.driver.BindImageMemory(handle, memory)); err != nil {
		a.driver.DestroyImage(handle)
		a.driver.FreeMemory(memory)
		return nil, err
	}

	image := &VulkanImage{
		Handle: handle,
		Memory: memory,
		Width:  config.Width,
		Height: config.Height,
		Format: config.Format,
	}
	if config.CreateView {
		view, err := a.CreateImageView(handle, config.Format, config.Aspect)
		if err != nil {
			a.driver.DestroyImage(handle)
			a.driver.FreeMemory(memory)
			return nil, err
		}
		image.View = view
	}
	return image, nil
}

func (a *Allocator) CreateImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	view, res := a.driver.CreateImageView(&info)
	if err := check("vkCreateImageView", res); err != nil {
		return nil, err
	}
	return view, nil
}

// DestroyImage releases the view, then the image, then its memory.
func (a *Allocator) DestroyImage(image *VulkanImage) {
	if image == nil {
		return
	}
	if image.View != nil {
		a.driver.DestroyImageView(image.View)
		image.View = nil
	}
	if image.Handle != nil {
		a.driver.DestroyImage(image.Handle)
		a.driver.FreeMemory(image.Memory)
		image.Handle = nil
		image.Memory = nil
	}
}
