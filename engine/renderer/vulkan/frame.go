package vulkan

import (
	vk "github.com/goki/vulkan"
)

// MaxFramesInFlight is the default number of frames the CPU may run ahead.
const MaxFramesInFlight = 2

// FrameSlot is the synchronization for one frame-in-flight index.
type FrameSlot struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

// NewFrameSlots creates count slots. Fences start signaled so the first wait
// on each slot does not block.
func NewFrameSlots(driver SyncDriver, count int) ([]*FrameSlot, error) {
	slots := make([]*FrameSlot, 0, count)
	for i := 0; i < count; i++ {
		slot, err := newFrameSlot(driver)
		if err != nil {
			DestroyFrameSlots(driver, slots)
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func newFrameSlot(driver SyncDriver) (*FrameSlot, error) {
	slot := &FrameSlot{}

	available, res := driver.CreateSemaphore()
	if err := check("vkCreateSemaphore", res); err != nil {
		return nil, err
	}
	slot.ImageAvailable = available

	finished, res := driver.CreateSemaphore()
	if err := check("vkCreateSemaphore", res); err != nil {
		slot.destroy(driver)
		return nil, err
	}
	slot.RenderFinished = finished

	fence, err := NewFence(driver, true)
	if err != nil {
		slot.destroy(driver)
		return nil, err
	}
	slot.InFlight = fence
	return slot, nil
}

func (s *FrameSlot) destroy(driver SyncDriver) {
	if s.InFlight != nil {
		s.InFlight.Destroy(driver)
		s.InFlight = nil
	}
	if s.RenderFinished != nil {
		driver.DestroySemaphore(s.RenderFinished)
		s.RenderFinished = nil
	}
	if s.ImageAvailable != nil {
		driver.DestroySemaphore(s.ImageAvailable)
		s.ImageAvailable = nil
	}
}

// DestroyFrameSlots releases the slots in reverse creation order.
func DestroyFrameSlots(driver SyncDriver, slots []*FrameSlot) {
	for i := len(slots) - 1; i >= 0; i-- {
		slots[i].destroy(driver)
	}
}
