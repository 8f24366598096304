package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/core"
)

func TestFenceWaitSkipsWhenSignaled(t *testing.T) {
	d := newFakeDriver()
	f, err := NewFence(d, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Wait(d, vk.MaxUint64); err != nil {
		t.Fatal(err)
	}
	if len(d.waits) != 0 {
		t.Errorf("waited %d times on a signaled fence", len(d.waits))
	}

	if err := f.Reset(d); err != nil {
		t.Fatal(err)
	}
	if f.IsSignaled || d.fences[f.Handle] {
		t.Fatal("fence still signaled after reset")
	}
	if err := f.Reset(d); err != nil {
		t.Fatal(err)
	}
	if n := d.count("ResetFences"); n != 1 {
		t.Errorf("reset an unsignaled fence: %d resets", n)
	}

	if err := f.Wait(d, vk.MaxUint64); err != nil {
		t.Fatal(err)
	}
	if !f.IsSignaled || len(d.waits) != 1 {
		t.Errorf("signaled=%v waits=%d", f.IsSignaled, len(d.waits))
	}

	f.Destroy(d)
	f.Destroy(d)
	if len(d.live) != 0 {
		t.Errorf("%d objects leaked", len(d.live))
	}
	assertNoViolations(t, d)
}

func TestFenceWaitErrors(t *testing.T) {
	tests := []struct {
		name   string
		result vk.Result
		want   error
	}{
		{"timeout", vk.Timeout, core.ErrFenceTimeout},
		{"device lost", vk.ErrorDeviceLost, core.ErrDeviceLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			f, _ := NewFence(d, false)
			d.waitResult = tt.result

			err := f.Wait(d, 1000)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if f.IsSignaled {
				t.Error("failed wait marked the fence signaled")
			}
		})
	}

	d := newFakeDriver()
	f, _ := NewFence(d, false)
	d.waitResult = vk.ErrorOutOfHostMemory
	res, ok := ResultOf(f.Wait(d, 1000))
	if !ok || res != vk.ErrorOutOfHostMemory {
		t.Errorf("result = %v, %v", res, ok)
	}
}
