package vulkan

import (
	vk "github.com/goki/vulkan"
)

// InstanceContext is the outermost tier: the instance, its debug callback and
// the presentation surface.
type InstanceContext struct {
	Instance vk.Instance
	Surface  vk.Surface

	debugCallback vk.DebugReportCallback
	release       releaseStack
}

// DeviceContext is the device tier shared by every render core component.
// It outlives any swapchain built on top of it.
type DeviceContext struct {
	Driver Driver

	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device
	Properties     vk.PhysicalDeviceProperties

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue

	DepthFormat vk.Format
	MsaaSamples vk.SampleCountFlagBits

	// CommandPool is transient and only used for one-shot transfers.
	CommandPool         vk.CommandPool
	DescriptorSetLayout vk.DescriptorSetLayout

	Locks *QueueLocks

	release releaseStack
}

func (c *DeviceContext) queueLocks() *QueueLocks {
	if c.Locks == nil {
		c.Locks = NewQueueLocks()
	}
	return c.Locks
}

// SubmitGraphics submits to the graphics queue under its family lock.
func (c *DeviceContext) SubmitGraphics(submits []vk.SubmitInfo, fence vk.Fence) error {
	res := c.queueLocks().Do(c.GraphicsQueueIndex, func() vk.Result {
		return c.Driver.QueueSubmit(c.GraphicsQueue, submits, fence)
	})
	return check("vkQueueSubmit", res)
}

func (c *DeviceContext) WaitGraphicsIdle() error {
	res := c.queueLocks().Do(c.GraphicsQueueIndex, func() vk.Result {
		return c.Driver.QueueWaitIdle(c.GraphicsQueue)
	})
	return check("vkQueueWaitIdle", res)
}

// Present hands the image back to the swapchain. The raw result is returned
// since out-of-date and suboptimal are not errors for the caller.
func (c *DeviceContext) Present(info *vk.PresentInfo) vk.Result {
	return c.queueLocks().Do(c.PresentQueueIndex, func() vk.Result {
		return c.Driver.QueuePresent(c.PresentQueue, info)
	})
}

func (c *DeviceContext) WaitPresentIdle() error {
	res := c.queueLocks().Do(c.PresentQueueIndex, func() vk.Result {
		return c.Driver.QueueWaitIdle(c.PresentQueue)
	})
	return check("vkQueueWaitIdle", res)
}

func (c *DeviceContext) WaitIdle() error {
	return check("vkDeviceWaitIdle", c.Driver.DeviceWaitIdle())
}
