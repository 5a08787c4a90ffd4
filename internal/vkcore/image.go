package vkcore

import vk "github.com/vulkan-go/vulkan"

// Image owns a driver handle plus an optional allocation — swapchain-owned
// images borrow only (allocation is nil) and skip both allocate and free on
// Destroy.
type Image struct {
	ctx     *Context
	Handle  vk.Image
	memory  vk.DeviceMemory
	Extent  vk.Extent3D
	Format  vk.Format
	owned   bool
}

// NewImage constructs a 2D or 3D (depth > 1) device-local image with
// initial layout UNDEFINED. Current layout is not tracked on the object;
// callers track it through recorded barriers.
func NewImage(ctx *Context, extent vk.Extent3D, format vk.Format, usage vk.ImageUsageFlagBits, debugName string) (*Image, error) {
	unlock := ctx.lockAllocator()
	defer unlock()

	imageType := vk.ImageType2d
	if extent.Depth > 1 {
		imageType = vk.ImageType3d
	}

	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     imageType,
		Format:        format,
		Extent:        extent,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if err := check(vk.CreateImage(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(ctx.Device, handle, &req)
	req.Deref()

	typeIndex, ok := findMemoryType(ctx, req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if !ok {
		vk.DestroyImage(ctx.Device, handle, nil)
		return nil, &Error{Caller: "NewImage: no suitable memory type for " + debugName}
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(ctx.Device, &allocInfo, nil, &memory)); err != nil {
		vk.DestroyImage(ctx.Device, handle, nil)
		return nil, err
	}
	if err := check(vk.BindImageMemory(ctx.Device, handle, memory, 0)); err != nil {
		vk.FreeMemory(ctx.Device, memory, nil)
		vk.DestroyImage(ctx.Device, handle, nil)
		return nil, err
	}

	return &Image{ctx: ctx, Handle: handle, memory: memory, Extent: extent, Format: format, owned: true}, nil
}

// ImageFromRaw wraps a swapchain-owned image handle; Destroy is then a
// no-op for the handle itself, since the swapchain owns the memory.
func ImageFromRaw(ctx *Context, handle vk.Image, extent vk.Extent3D, format vk.Format) *Image {
	return &Image{ctx: ctx, Handle: handle, Extent: extent, Format: format, owned: false}
}

func DefaultSubresource(aspect vk.ImageAspectFlagBits) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(aspect),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func DefaultSubresourceLayers(aspect vk.ImageAspectFlagBits) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(aspect),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func defaultComponentMapping() vk.ComponentMapping {
	return vk.ComponentMapping{
		R: vk.ComponentSwizzleIdentity,
		G: vk.ComponentSwizzleIdentity,
		B: vk.ComponentSwizzleIdentity,
		A: vk.ComponentSwizzleIdentity,
	}
}

func (i *Image) Destroy() {
	if i.owned {
		vk.FreeMemory(i.ctx.Device, i.memory, nil)
		vk.DestroyImage(i.ctx.Device, i.Handle, nil)
	}
}

// ImageView views an Image with a fixed 2D view type and identity component
// mapping (the core never needs cube/array views).
type ImageView struct {
	ctx    *Context
	Handle vk.ImageView
}

func NewImageView(ctx *Context, image *Image, format vk.Format, subresource vk.ImageSubresourceRange) (*ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            image.Handle,
		ViewType:         vk.ImageViewType2d,
		Format:           format,
		Components:       defaultComponentMapping(),
		SubresourceRange: subresource,
	}
	var handle vk.ImageView
	if err := check(vk.CreateImageView(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &ImageView{ctx: ctx, Handle: handle}, nil
}

func (v *ImageView) Destroy() {
	vk.DestroyImageView(v.ctx.Device, v.Handle, nil)
}

// Sampler holds a fixed filter + address-mode pair; anisotropy disabled,
// mip-mode linear, full LOD range.
type Sampler struct {
	ctx    *Context
	Handle vk.Sampler
}

func NewSampler(ctx *Context, addressMode vk.SamplerAddressMode, filter vk.Filter) (*Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vk.False,
		MinLod:                  0,
		MaxLod:                  vk.LodClampNone,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var handle vk.Sampler
	if err := check(vk.CreateSampler(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &Sampler{ctx: ctx, Handle: handle}, nil
}

func (s *Sampler) Destroy() {
	vk.DestroySampler(s.ctx.Device, s.Handle, nil)
}
