package vkcore

import vk "github.com/vulkan-go/vulkan"

// Fence is a host-visible completion flag. Created either signaled or
// unsignaled.
type Fence struct {
	ctx    *Context
	handle vk.Fence
}

func NewFence(ctx *Context, signaled bool) (*Fence, error) {
	flags := vk.FenceCreateFlags(0)
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: flags}
	var handle vk.Fence
	if err := check(vk.CreateFence(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &Fence{ctx: ctx, handle: handle}, nil
}

// WaitAndReset host-waits the fence then resets it to unsignaled — the
// pattern every one-shot transfer/build and every Frame Pacing cycle uses
//.
func (f *Fence) WaitAndReset() error {
	handles := []vk.Fence{f.handle}
	if err := check(vk.WaitForFences(f.ctx.Device, 1, handles, vk.True, vk.MaxUint64)); err != nil {
		return err
	}
	return check(vk.ResetFences(f.ctx.Device, 1, handles))
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.ctx.Device, f.handle, nil)
}

// Semaphore is a binary GPU-only ordering token.
type Semaphore struct {
	ctx    *Context
	handle vk.Semaphore
}

func NewSemaphore(ctx *Context) (*Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var handle vk.Semaphore
	if err := check(vk.CreateSemaphore(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &Semaphore{ctx: ctx, handle: handle}, nil
}

func (s *Semaphore) Destroy() {
	vk.DestroySemaphore(s.ctx.Device, s.handle, nil)
}

// RawHandle exposes the driver handle to packages that build vk structs of
// their own (display.Display's acquire/present calls).
func (s *Semaphore) RawHandle() vk.Semaphore {
	return s.handle
}
