package vulkan

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/assets"
)

func newTestFactory(d *fakeDriver) *Factory {
	ctx := newTestContext(d)
	return NewFactory(ctx, NewAllocator(d))
}

func TestDeviceLocalUploadUsesStaging(t *testing.T) {
	d := newFakeDriver()
	f := newTestFactory(d)

	data := []byte("0123456789abcdef")
	b, err := f.CreateDeviceLocalBuffer(data, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(d.memory[b.Memory], data) {
		t.Errorf("device memory = %q, want %q", d.memory[b.Memory], data)
	}
	if b.Properties != memDeviceLocal {
		t.Errorf("properties = %#x, want device local", b.Properties)
	}

	staging := d.calls[0].handle
	if d.calls[0].name != "CreateBuffer" {
		t.Fatalf("first call %s, want staging CreateBuffer", d.calls[0].name)
	}
	order := []string{"MapMemory", "UnmapMemory", "CreateBuffer", "BeginCommandBuffer",
		"CmdCopyBuffer", "EndCommandBuffer", "QueueSubmit", "QueueWaitIdle"}
	at := 0
	for _, name := range order {
		i := d.indexOf(name, nil, at)
		if i < 0 {
			t.Fatalf("%s missing after call %d", name, at)
		}
		at = i + 1
	}
	if i := d.indexOf("DestroyBuffer", staging, at); i < 0 {
		t.Error("staging buffer not destroyed after the copy completed")
	}
	if d.liveOf("Buffer") != 1 || d.liveOf("CommandBuffer") != 0 {
		t.Errorf("live buffers %d, live command buffers %d", d.liveOf("Buffer"), d.liveOf("CommandBuffer"))
	}

	f.DestroyBuffer(b)
	if len(d.live) != 0 {
		t.Errorf("%d objects leaked", len(d.live))
	}
	assertNoViolations(t, d)
}

func TestEmptyUploadRejected(t *testing.T) {
	d := newFakeDriver()
	f := newTestFactory(d)
	if _, err := f.CreateDeviceLocalBuffer(nil, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)); err == nil {
		t.Fatal("expected error")
	}
	if len(d.calls) != 0 {
		t.Errorf("driver touched %d times", len(d.calls))
	}
}

func TestMeshBuffers(t *testing.T) {
	d := newFakeDriver()
	f := newTestFactory(d)
	mesh := assets.QuadMesh()

	vb, err := f.CreateVertexBuffer(mesh)
	if err != nil {
		t.Fatal(err)
	}
	ib, err := f.CreateIndexBuffer(mesh)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d.memory[vb.Memory], mesh.VertexBytes()) {
		t.Error("vertex bytes differ")
	}
	if !bytes.Equal(d.memory[ib.Memory], mesh.IndexBytes()) {
		t.Error("index bytes differ")
	}
	f.DestroyBuffer(ib)
	f.DestroyBuffer(vb)
	if len(d.live) != 0 {
		t.Errorf("%d objects leaked", len(d.live))
	}
}

func TestUniformRoundTrip(t *testing.T) {
	d := newFakeDriver()
	f := newTestFactory(d)

	buffers, err := f.CreateUniformBuffers(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(buffers) != 3 {
		t.Fatalf("got %d buffers", len(buffers))
	}

	ubo := UniformBufferObject{
		View: mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}),
		Proj: mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 10),
	}
	if err := f.WriteUniform(buffers[1], ubo); err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadUniform(buffers[1])
	if err != nil {
		t.Fatal(err)
	}
	if got != ubo {
		t.Errorf("read back %v, want %v", got, ubo)
	}
	if !bytes.Equal(d.memory[buffers[1].Memory], ubo.Encode()) {
		t.Error("mapped bytes differ from the encoded block")
	}
	if other, _ := f.ReadUniform(buffers[0]); other == ubo {
		t.Error("write leaked into another image's buffer")
	}

	for _, b := range buffers {
		f.DestroyBuffer(b)
	}
	if len(d.live) != 0 {
		t.Errorf("%d objects leaked", len(d.live))
	}
}

func TestCopyBufferFreesCommandBuffer(t *testing.T) {
	d := newFakeDriver()
	f := newTestFactory(d)
	a := f.Allocator()

	src, _ := a.CreateBuffer(8, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), memHostVisible|memHostCoherent)
	dst, _ := a.CreateBuffer(8, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), memDeviceLocal)
	copy(d.memory[src.Memory], "abcdefgh")

	if err := f.CopyBuffer(src, dst, 8); err != nil {
		t.Fatal(err)
	}
	if string(d.memory[dst.Memory]) != "abcdefgh" {
		t.Errorf("dst = %q", d.memory[dst.Memory])
	}
	if len(d.submits) != 1 || d.submits[0].fence != nil {
		t.Fatalf("submits = %+v, want one unfenced submit", d.submits)
	}
	cb := unsafe.Pointer(d.submits[0].buffers[0])
	if info := d.beginInfos[d.submits[0].buffers[0]]; info.Flags&vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit) == 0 {
		t.Error("copy buffer not begun for one-time submit")
	}
	if d.indexOf("DestroyCommandBuffer", cb, 0) < d.indexOf("QueueWaitIdle", nil, 0) {
		t.Error("command buffer freed before the queue drained")
	}
}
