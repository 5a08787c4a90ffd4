package display

import (
	"github.com/fahimhuh/nea/internal/vkcore"
)

// Frame is the per-in-flight-frame record: swapchain-ready semaphore,
// rendering-finished semaphore, in-flight fence (initially signaled), and a
// transient command pool.
type Frame struct {
	SwapchainReady    *vkcore.Semaphore
	RenderingFinished *vkcore.Semaphore
	InFlight          *vkcore.Fence
	Pool              *vkcore.CommandPool
}

// Frames is the fixed-size ring of ImageCount Frame records, indexed by a
// wrapping counter.
type Frames struct {
	ctx     *vkcore.Context
	display *Display
	frames  []Frame
	counter int
}

func NewFrames(ctx *vkcore.Context, d *Display, queueFamily uint32) (*Frames, error) {
	frames := make([]Frame, ImageCount)
	for i := range frames {
		ready, err := vkcore.NewSemaphore(ctx)
		if err != nil {
			return nil, err
		}
		finished, err := vkcore.NewSemaphore(ctx)
		if err != nil {
			return nil, err
		}
		fence, err := vkcore.NewFence(ctx, true)
		if err != nil {
			return nil, err
		}
		pool, err := vkcore.NewCommandPool(ctx, queueFamily)
		if err != nil {
			return nil, err
		}
		frames[i] = Frame{SwapchainReady: ready, RenderingFinished: finished, InFlight: fence, Pool: pool}
	}
	return &Frames{ctx: ctx, display: d, frames: frames, counter: -1}, nil
}

// FrameRef bundles a frame record with the swapchain index it acquired,
// returned by Next.
type FrameRef struct {
	frames  *Frames
	index   int
	Image   uint32
}

// Next advances the counter, host-waits and resets that slot's fence,
// resets its command pool, then acquires the next swapchain image using
// that slot's swapchain-ready semaphore. Invariant: because the
// fence is host-waited first, no command list from that pool is still
// executing when the pool is reset, and the first ImageCount calls do not
// deadlock because every fence starts signaled.
func (f *Frames) Next() (*FrameRef, error) {
	f.counter = (f.counter + 1) % len(f.frames)
	frame := &f.frames[f.counter]

	if err := frame.InFlight.WaitAndReset(); err != nil {
		return nil, err
	}
	if err := frame.Pool.Reset(); err != nil {
		return nil, err
	}

	index, err := f.display.AcquireNextImage(frame.SwapchainReady)
	if err != nil {
		return nil, err
	}

	return &FrameRef{frames: f, index: f.counter, Image: index}, nil
}

// Index returns the in-flight-frame slot this FrameRef acquired, for
// callers that keep their own per-slot resources (descriptor sets, uniform
// buffers) alongside the frame-pacing ring.
func (r *FrameRef) Index() int {
	return r.index
}

func (r *FrameRef) frame() *Frame {
	return &r.frames.frames[r.index]
}

func (r *FrameRef) AllocateCommandList() (*vkcore.CommandList, error) {
	return r.frame().Pool.Allocate()
}

func (r *FrameRef) ImageView() *vkcore.ImageView {
	return r.frames.display.Views[r.Image]
}

func (r *FrameRef) ImageHandle() *vkcore.Image {
	return r.frames.display.Images[r.Image]
}

// Submit submits cmds waiting on swapchain-ready, signaling
// rendering-finished, fencing on in-flight, then presents the acquired
// image waiting on rendering-finished.
func (r *FrameRef) Submit(cmds []*vkcore.CommandList) error {
	f := r.frame()
	if err := r.frames.ctx.Submit(cmds, f.SwapchainReady, f.RenderingFinished, f.InFlight); err != nil {
		return err
	}
	return r.frames.display.Present(r.Image, f.RenderingFinished)
}

func (f *Frames) Destroy() {
	for i := range f.frames {
		f.frames[i].SwapchainReady.Destroy()
		f.frames[i].RenderingFinished.Destroy()
		f.frames[i].InFlight.Destroy()
		f.frames[i].Pool.Destroy()
	}
}
