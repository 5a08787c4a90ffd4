package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Residency selects host-visible-mapped vs. GPU-only memory, using a
// classic allocation-by-property-flags pattern (FindMemoryTypeIndex) rather
// than a suballocator library — each resource allocates and binds its own
// VkDeviceMemory, guarded by the context's allocator mutex.
type Residency int

const (
	GPUOnly Residency = iota
	HostVisible
)

// Buffer owns a driver handle plus an allocation. If host-visible, the
// mapped pointer is non-nil for the whole lifetime.
type Buffer struct {
	ctx        *Context
	Handle     vk.Buffer
	memory     vk.DeviceMemory
	size       vk.DeviceSize
	mapped     unsafe.Pointer
	deviceAddr bool
}

func findMemoryType(ctx *Context, typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < ctx.MemProps.MemoryTypeCount; i++ {
		mt := ctx.MemProps.MemoryTypes[i]
		if typeBits&(1<<i) != 0 && mt.PropertyFlags&props == props {
			return i, true
		}
	}
	return 0, false
}

// NewBuffer constructs via the context: create the buffer, query memory
// requirements, allocate from the chosen memory type, bind, map if
// host-visible.
func NewBuffer(ctx *Context, size uint64, usage vk.BufferUsageFlagBits, residency Residency, debugName string) (*Buffer, error) {
	unlock := ctx.lockAllocator()
	defer unlock()

	usageFlags := vk.BufferUsageFlags(usage)
	wantsAddress := usageFlags&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usageFlags,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if err := check(vk.CreateBuffer(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.Device, handle, &req)
	req.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if residency == HostVisible {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	typeIndex, ok := findMemoryType(ctx, req.MemoryTypeBits, props)
	if !ok {
		return nil, &Error{Caller: "NewBuffer: no suitable memory type for " + debugName}
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var flagsInfo vk.MemoryAllocateFlagsInfo
	if wantsAddress {
		flagsInfo = vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocInfo.PNext = unsafe.Pointer(&flagsInfo)
	}

	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(ctx.Device, &allocInfo, nil, &memory)); err != nil {
		vk.DestroyBuffer(ctx.Device, handle, nil)
		return nil, err
	}
	if err := check(vk.BindBufferMemory(ctx.Device, handle, memory, 0)); err != nil {
		vk.FreeMemory(ctx.Device, memory, nil)
		vk.DestroyBuffer(ctx.Device, handle, nil)
		return nil, err
	}

	b := &Buffer{ctx: ctx, Handle: handle, memory: memory, size: req.Size, deviceAddr: wantsAddress}

	if residency == HostVisible {
		var data unsafe.Pointer
		if err := check(vk.MapMemory(ctx.Device, memory, 0, vk.WholeSize, 0, &data)); err != nil {
			b.Destroy()
			return nil, err
		}
		b.mapped = data
	}

	return b, nil
}

// GetPtr returns the mapped host pointer. Precondition: the buffer was
// created HostVisible.
func (b *Buffer) GetPtr() unsafe.Pointer {
	return b.mapped
}

// GetAddr returns the buffer's device address. Precondition: the buffer was
// created with the ShaderDeviceAddress usage bit.
func (b *Buffer) GetAddr() vk.DeviceAddress {
	info := vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: b.Handle,
	}
	return vk.GetBufferDeviceAddress(b.ctx.Device, &info)
}

func (b *Buffer) Size() uint64 { return uint64(b.size) }

// Destroy frees the allocation then destroys the driver object, in that
// order.
func (b *Buffer) Destroy() {
	if b.mapped != nil {
		vk.UnmapMemory(b.ctx.Device, b.memory)
	}
	vk.FreeMemory(b.ctx.Device, b.memory, nil)
	vk.DestroyBuffer(b.ctx.Device, b.Handle, nil)
}
