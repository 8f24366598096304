package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/assets"
	"github.com/spaghettifunk/rendercore/engine/core"
)

type VulkanBuffer struct {
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	Size       vk.DeviceSize
	Usage      vk.BufferUsageFlags
	Properties vk.MemoryPropertyFlags
}

const hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

// Factory builds the buffers that feed each draw: device-local geometry
// uploaded through a staging buffer, and host-visible uniforms.
type Factory struct {
	ctx       *DeviceContext
	allocator *Allocator
}

func NewFactory(ctx *DeviceContext, allocator *Allocator) *Factory {
	return &Factory{ctx: ctx, allocator: allocator}
}

func (f *Factory) Allocator() *Allocator {
	return f.allocator
}

// CreateDeviceLocalBuffer copies data into a new device-local buffer with the
// given usage. The staging buffer is gone by the time this returns.
func (f *Factory) CreateDeviceLocalBuffer(data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if len(data) == 0 {
		return nil, errors.New("cannot upload an empty buffer")
	}
	size := vk.DeviceSize(len(data))

	staging, err := f.allocator.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	defer f.allocator.DestroyBuffer(staging)

	if err := f.allocator.Map(staging, func(mapped []byte) {
		copy(mapped, data)
	}); err != nil {
		return nil, err
	}

	buffer, err := f.allocator.CreateBuffer(
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := f.CopyBuffer(staging, buffer, size); err != nil {
		f.allocator.DestroyBuffer(buffer)
		return nil, err
	}
	return buffer, nil
}

// CopyBuffer records a one-shot copy on the transient pool and blocks until
// the graphics queue has executed it.
func (f *Factory) CopyBuffer(src, dst *VulkanBuffer, size vk.DeviceSize) error {
	driver := f.ctx.Driver
	cb, err := AllocateAndBeginSingleUse(driver, f.ctx.CommandPool)
	if err != nil {
		return err
	}
	driver.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, []vk.BufferCopy{{Size: size}})
	return cb.EndSingleUse(f.ctx)
}

func (f *Factory) CreateVertexBuffer(mesh *assets.Mesh) (*VulkanBuffer, error) {
	buffer, err := f.CreateDeviceLocalBuffer(mesh.VertexBytes(), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}
	core.LogDebug("vertex buffer created: %d vertices, %d bytes", mesh.VertexCount(), buffer.Size)
	return buffer, nil
}

func (f *Factory) CreateIndexBuffer(mesh *assets.Mesh) (*VulkanBuffer, error) {
	buffer, err := f.CreateDeviceLocalBuffer(mesh.IndexBytes(), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return nil, errors.Wrap(err, "index buffer")
	}
	core.LogDebug("index buffer created: %d indices", mesh.IndexCount())
	return buffer, nil
}

// CreateUniformBuffers makes count host-coherent uniform buffers. On failure
// the ones already created are destroyed.
func (f *Factory) CreateUniformBuffers(count int) ([]*VulkanBuffer, error) {
	buffers := make([]*VulkanBuffer, 0, count)
	for i := 0; i < count; i++ {
		b, err := f.allocator.CreateBuffer(UniformBufferSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostCoherent)
		if err != nil {
			for j := len(buffers) - 1; j >= 0; j-- {
				f.allocator.DestroyBuffer(buffers[j])
			}
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
		buffers = append(buffers, b)
	}
	return buffers, nil
}

func (f *Factory) WriteUniform(buffer *VulkanBuffer, ubo UniformBufferObject) error {
	encoded := ubo.Encode()
	return f.allocator.Map(buffer, func(mapped []byte) {
		copy(mapped, encoded)
	})
}

func (f *Factory) ReadUniform(buffer *VulkanBuffer) (UniformBufferObject, error) {
	raw := make([]byte, UniformBufferSize)
	if err := f.allocator.Map(buffer, func(mapped []byte) {
		copy(raw, mapped)
	}); err != nil {
		return UniformBufferObject{}, err
	}
	return DecodeUniformBufferObject(raw)
}

func (f *Factory) DestroyBuffer(buffer *VulkanBuffer) {
	f.allocator.DestroyBuffer(buffer)
}
