// Package display owns the surface, the swapchain, and the per-in-flight
// frame synchronization ring.
package display

import (
	"github.com/fahimhuh/nea/internal/vkcore"
	vk "github.com/vulkan-go/vulkan"
)

// ImageCount is the swapchain's fixed depth and the frame-pacing ring's
// fixed size.
const ImageCount = 3

// Display owns the surface and a 3-image swapchain: MAILBOX present, OPAQUE
// composite, EXCLUSIVE sharing, CLIPPED. It does not support resize; the
// window is locked non-resizable at startup and the swapchain is never
// recreated.
type Display struct {
	ctx      *vkcore.Context
	surface  vk.Surface
	loader   vk.Swapchain
	handle   vk.Swapchain
	Images   []*vkcore.Image
	Views    []*vkcore.ImageView
	Width    uint32
	Height   uint32
	Format   vk.Format
	DPI      float32
}

// New queries surface capabilities, picks the first reported surface
// format, and creates the swapchain.
func New(ctx *vkcore.Context, surface vk.Surface, dpi float32) (*Display, error) {
	var capabilities vk.SurfaceCapabilities
	if err := vkCheck(vk.GetPhysicalDeviceSurfaceCapabilities(ctx.Physical, surface, &capabilities)); err != nil {
		return nil, err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(ctx.Physical, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(ctx.Physical, surface, &formatCount, formats)
	formats[0].Deref()
	format := formats[0]

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    ImageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      capabilities.CurrentExtent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageStorageBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeMailbox,
		Clipped:          vk.True,
	}

	var handle vk.Swapchain
	if err := vkCheck(vk.CreateSwapchain(ctx.Device, &createInfo, nil, &handle)); err != nil {
		return nil, err
	}

	var imageCount uint32
	vk.GetSwapchainImages(ctx.Device, handle, &imageCount, nil)
	rawImages := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(ctx.Device, handle, &imageCount, rawImages)

	extent3D := vk.Extent3D{Width: capabilities.CurrentExtent.Width, Height: capabilities.CurrentExtent.Height, Depth: 1}

	images := make([]*vkcore.Image, imageCount)
	views := make([]*vkcore.ImageView, imageCount)
	for i, raw := range rawImages {
		images[i] = vkcore.ImageFromRaw(ctx, raw, extent3D, format.Format)
		view, err := vkcore.NewImageView(ctx, images[i], format.Format, vkcore.DefaultSubresource(vk.ImageAspectColorBit))
		if err != nil {
			return nil, err
		}
		views[i] = view
	}

	return &Display{
		ctx:     ctx,
		surface: surface,
		handle:  handle,
		Images:  images,
		Views:   views,
		Width:   capabilities.CurrentExtent.Width,
		Height:  capabilities.CurrentExtent.Height,
		Format:  format.Format,
		DPI:     dpi,
	}, nil
}

// AcquireNextImage blocks indefinitely (UINT64_MAX) and signals the
// caller-provided semaphore; the suboptimal flag is currently ignored
//.
func (d *Display) AcquireNextImage(signal *vkcore.Semaphore) (uint32, error) {
	var index uint32
	ret := vk.AcquireNextImage(d.ctx.Device, d.handle, vk.MaxUint64, signal.RawHandle(), vk.NullFence, &index)
	if ret != vk.Success && ret != vk.Suboptimal {
		return 0, vkCheck(ret)
	}
	return index, nil
}

func (d *Display) Present(index uint32, wait *vkcore.Semaphore) error {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.RawHandle()},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.handle},
		PImageIndices:      []uint32{index},
	}
	return vkCheck(vk.QueuePresent(d.ctx.Queue, &info))
}

func (d *Display) Destroy() {
	for _, v := range d.Views {
		v.Destroy()
	}
	vk.DestroySwapchain(d.ctx.Device, d.handle, nil)
	vk.DestroySurface(d.ctx.Instance, d.surface, nil)
}

func vkCheck(ret vk.Result) error {
	if ret != vk.Success {
		return vkcore.CheckResult(ret)
	}
	return nil
}
