package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DescriptorPool is a process-long pool with a fixed budget: 100 of each of
// storage image, uniform buffer, combined image sampler, acceleration
// structure, capped at 100 sets total. Exceeding it is
// a fatal initialization error — there is no free-and-retry path.
type DescriptorPool struct {
	ctx    *Context
	Handle vk.DescriptorPool
}

func NewDescriptorPool(ctx *Context) (*DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 100},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 100},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 100},
		{Type: vk.DescriptorTypeAccelerationStructureKHR, DescriptorCount: 100},
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       100,
	}
	var handle vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &DescriptorPool{ctx: ctx, Handle: handle}, nil
}

func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout, count int) ([]*DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout.Handle
	}
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	handles := make([]vk.DescriptorSet, count)
	if err := check(vk.AllocateDescriptorSets(p.ctx.Device, &info, handles)); err != nil {
		return nil, err
	}
	out := make([]*DescriptorSet, count)
	for i, h := range handles {
		out[i] = &DescriptorSet{ctx: p.ctx, Handle: h}
	}
	return out, nil
}

func (p *DescriptorPool) Free(set *DescriptorSet) error {
	return check(vk.FreeDescriptorSets(p.ctx.Device, p.Handle, 1, []vk.DescriptorSet{set.Handle}))
}

func (p *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.ctx.Device, p.Handle, nil)
}

type DescriptorBinding struct {
	Binding uint32
	Count   uint32
	Kind    vk.DescriptorType
	Stage   vk.ShaderStageFlagBits
}

type DescriptorSetLayout struct {
	ctx    *Context
	Handle vk.DescriptorSetLayout
}

func NewDescriptorSetLayout(ctx *Context, bindings []DescriptorBinding) (*DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorCount: b.Count,
			DescriptorType:  b.Kind,
			StageFlags:      vk.ShaderStageFlags(b.Stage),
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var handle vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &DescriptorSetLayout{ctx: ctx, Handle: handle}, nil
}

func (l *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(l.ctx.Device, l.Handle, nil)
}

type ImageWrite struct {
	Binding   uint32
	Kind      vk.DescriptorType
	View      *ImageView
	Sampler   *Sampler // nil for STORAGE_IMAGE
	Layout    vk.ImageLayout
}

type BufferWrite struct {
	Binding uint32
	Kind    vk.DescriptorType
	Buffer  *Buffer
	Range   uint64
}

// DescriptorSet is a handle the caller writes image/buffer/AS references
// into. Image and buffer writes go through separate
// vkUpdateDescriptorSets calls, matching original_source's descriptor.rs.
type DescriptorSet struct {
	ctx    *Context
	Handle vk.DescriptorSet
}

func (s *DescriptorSet) Write(images []ImageWrite, buffers []BufferWrite) {
	for _, iw := range images {
		sampler := vk.Sampler(vk.NullHandle)
		if iw.Sampler != nil {
			sampler = iw.Sampler.Handle
		}
		imageInfo := vk.DescriptorImageInfo{
			Sampler:     sampler,
			ImageView:   iw.View.Handle,
			ImageLayout: iw.Layout,
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.Handle,
			DstBinding:      iw.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  iw.Kind,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		}
		vk.UpdateDescriptorSets(s.ctx.Device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	}

	for _, bw := range buffers {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: bw.Buffer.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(bw.Range),
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.Handle,
			DstBinding:      bw.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  bw.Kind,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		}
		vk.UpdateDescriptorSets(s.ctx.Device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	}
}

// WriteTLAS marshals the acceleration-structure write into the driver's
// pNext chain — vk.WriteDescriptorSet has no dedicated AS field, so the
// vk.WriteDescriptorSetAccelerationStructureKHR must be chained manually
//.
func (s *DescriptorSet) WriteTLAS(binding uint32, handle vk.AccelerationStructureKHR) {
	handles := []vk.AccelerationStructureKHR{handle}
	asWrite := vk.WriteDescriptorSetAccelerationStructureKHR{
		SType:                      vk.StructureTypeWriteDescriptorSetAccelerationStructureKhr,
		AccelerationStructureCount: 1,
		PAccelerationStructures:    handles,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		PNext:           unsafe.Pointer(&asWrite),
		DstSet:          s.Handle,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeAccelerationStructureKHR,
	}
	vk.UpdateDescriptorSets(s.ctx.Device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
