package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(driver SyncDriver, createSignaled bool) (*VulkanFence, error) {
	handle, res := driver.CreateFence(createSignaled)
	if err := check("vkCreateFence", res); err != nil {
		return nil, err
	}
	return &VulkanFence{
		Handle:     handle,
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(driver SyncDriver) {
	if vf.Handle != nil {
		driver.DestroyFence(vf.Handle)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence signals. A fence already known to be signaled
// returns immediately.
func (vf *VulkanFence) Wait(driver SyncDriver, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	switch res := driver.WaitForFences([]vk.Fence{vf.Handle}, timeoutNs); res {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Wrapf(core.ErrFenceTimeout, "after %dns", timeoutNs)
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
		return errors.Mark(&ResultError{Op: "vkWaitForFences", Result: res}, core.ErrDeviceLost)
	default:
		return check("vkWaitForFences", res)
	}
}

// Reset returns a signaled fence to the unsignaled state.
func (vf *VulkanFence) Reset(driver SyncDriver) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := check("vkResetFences", driver.ResetFences([]vk.Fence{vf.Handle})); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
