package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// CommandPool is always transient + reset-command-buffer flagged. Reset
// must only be called once every list the pool produced has completed on
// the GPU — the frame-pacing ring enforces this with the frame's fence.
type CommandPool struct {
	ctx    *Context
	Handle vk.CommandPool
}

func NewCommandPool(ctx *Context, queueFamily uint32) (*CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit) |
			vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queueFamily,
	}
	var handle vk.CommandPool
	if err := check(vk.CreateCommandPool(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &CommandPool{ctx: ctx, Handle: handle}, nil
}

func (p *CommandPool) Reset() error {
	return check(vk.ResetCommandPool(p.ctx.Device, p.Handle, 0))
}

// Allocate returns one primary CommandList.
func (p *CommandPool) Allocate() (*CommandList, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.Handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	bufs := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(p.ctx.Device, &info, bufs)); err != nil {
		return nil, err
	}
	return &CommandList{ctx: p.ctx, handle: bufs[0]}, nil
}

func (p *CommandPool) Destroy() {
	vk.DestroyCommandPool(p.ctx.Device, p.Handle, nil)
}

// CommandList records one primary command buffer. Every method is a thin
// mapping onto a single driver entry point.
type CommandList struct {
	ctx    *Context
	handle vk.CommandBuffer
}

func (c *CommandList) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return check(vk.BeginCommandBuffer(c.handle, &info))
}

func (c *CommandList) End() error {
	return check(vk.EndCommandBuffer(c.handle))
}

// PipelineBarrier batches image-memory and memory barriers under
// synchronization-2.
func (c *CommandList) PipelineBarrier(images []vk.ImageMemoryBarrier2KHR, buffers []vk.MemoryBarrier2KHR) {
	dep := vk.DependencyInfoKHR{
		SType:                   vk.StructureTypeDependencyInfoKHR,
		MemoryBarrierCount:      uint32(len(buffers)),
		PMemoryBarriers:         buffers,
		ImageMemoryBarrierCount: uint32(len(images)),
		PImageMemoryBarriers:    images,
	}
	vk.CmdPipelineBarrier2KHR(c.handle, &dep)
}

func (c *CommandList) BindComputePipeline(p *ComputePipeline) {
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointCompute, p.Handle)
}

func (c *CommandList) BindGraphicsPipeline(p *GraphicsPipeline) {
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, p.Handle)
}

func (c *CommandList) BindDescriptorSets(bindPoint vk.PipelineBindPoint, layout *PipelineLayout, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(c.handle, bindPoint, layout.Handle, 0, uint32(len(sets)), sets, 0, nil)
}

func (c *CommandList) PushConstants(layout *PipelineLayout, stage vk.ShaderStageFlagBits, data unsafe.Pointer, size uint32) {
	vk.CmdPushConstants(c.handle, layout.Handle, vk.ShaderStageFlags(stage), 0, size, data)
}

func (c *CommandList) SetViewport(x, y, w, h float32) {
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{{
		X: x, Y: y, Width: w, Height: h, MinDepth: 0, MaxDepth: 1,
	}})
}

func (c *CommandList) SetScissor(offset vk.Offset2D, extent vk.Extent2D) {
	vk.CmdSetScissor(c.handle, 0, 1, []vk.Rect2D{{Offset: offset, Extent: extent}})
}

func (c *CommandList) BindVertexBuffer(b *Buffer) {
	vk.CmdBindVertexBuffers(c.handle, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{0})
}

func (c *CommandList) BindIndexBuffer(b *Buffer) {
	vk.CmdBindIndexBuffer(c.handle, b.Handle, 0, vk.IndexTypeUint32)
}

func (c *CommandList) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(c.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (c *CommandList) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.handle, x, y, z)
}

func (c *CommandList) BeginRendering(info vk.RenderingInfoKHR) {
	vk.CmdBeginRenderingKHR(c.handle, &info)
}

func (c *CommandList) EndRendering() {
	vk.CmdEndRenderingKHR(c.handle)
}

func (c *CommandList) CopyBuffer(src, dst *Buffer, region vk.BufferCopy) {
	vk.CmdCopyBuffer(c.handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

func (c *CommandList) CopyToImage(src *Buffer, dst *Image, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(c.handle, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
}

// Blit always uses NEAREST filtering. Nothing in this module calls it; UI
// texture patches are written with CopyToImage.
func (c *CommandList) Blit(src, dst *Image, regions []vk.ImageBlit) {
	vk.CmdBlitImage(c.handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions, vk.FilterNearest)
}

func (c *CommandList) BuildAccelerationStructures(infos []vk.AccelerationStructureBuildGeometryInfoKHR, ranges [][]vk.AccelerationStructureBuildRangeInfoKHR) {
	rangePtrs := make([]*vk.AccelerationStructureBuildRangeInfoKHR, len(ranges))
	for i := range ranges {
		rangePtrs[i] = &ranges[i][0]
	}
	vk.CmdBuildAccelerationStructuresKHR(c.handle, uint32(len(infos)), infos, rangePtrs)
}
