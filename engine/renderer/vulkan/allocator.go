package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/core"
)

// Allocator creates buffers and images backed by dedicated device memory.
type Allocator struct {
	driver      MemoryDriver
	memoryTypes []vk.MemoryPropertyFlags
}

func NewAllocator(driver MemoryDriver) *Allocator {
	return &Allocator{
		driver:      driver,
		memoryTypes: driver.MemoryTypes(),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeBits whose
// flags include every requested property.
func (a *Allocator) FindMemoryIndex(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range a.memoryTypes {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && flags&properties == properties {
			return uint32(i), nil
		}
	}
	err := errors.Wrapf(core.ErrNoSuitableMemoryType, "type bits %#x, properties %#x", typeBits, uint32(properties))
	core.LogWarn(err.Error())
	return 0, err
}

func (a *Allocator) allocate(req vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index, err := a.FindMemoryIndex(req.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: index,
	}
	memory, res := a.driver.AllocateMemory(&info)
	if err := check("vkAllocateMemory", res); err != nil {
		return nil, err
	}
	return memory, nil
}

// CreateBuffer creates an exclusive buffer and binds freshly allocated memory
// to it. Nothing is left behind on failure.
func (a *Allocator) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	handle, res := a.driver.CreateBuffer(&info)
	if err := check("vkCreateBuffer", res); err != nil {
		return nil, err
	}

	memory, err := a.allocate(a.driver.BufferMemoryRequirements(handle), properties)
	if err != nil {
		a.driver.DestroyBuffer(handle)
		return nil, err
	}
	if err := check("vkBindBufferMemory", a.driver.BindBufferMemory(handle, memory)); err != nil {
		a.driver.DestroyBuffer(handle)
		a.driver.FreeMemory(memory)
		return nil, err
	}

	return &VulkanBuffer{
		Handle:     handle,
		Memory:     memory,
		Size:       size,
		Usage:      usage,
		Properties: properties,
	}, nil
}

// DestroyBuffer destroys the buffer before freeing its memory.
func (a *Allocator) DestroyBuffer(buffer *VulkanBuffer) {
	if buffer == nil || buffer.Handle == nil {
		return
	}
	a.driver.DestroyBuffer(buffer.Handle)
	a.driver.FreeMemory(buffer.Memory)
	buffer.Handle = nil
	buffer.Memory = nil
}

// Map exposes the buffer memory to fn. The memory is unmapped when fn returns.
func (a *Allocator) Map(buffer *VulkanBuffer, fn func(data []byte)) error {
	data, res := a.driver.MapMemory(buffer.Memory, 0, buffer.Size)
	if err := check("vkMapMemory", res); err != nil {
		return err
	}
	defer a.driver.UnmapMemory(buffer.Memory)
	fn(data)
	return nil
}
