// Package ui renders imgui-go's DrawData onto the swapchain, streaming
// per-frame vertex/index buffers and caching one GPU texture per texture id
//. It consumes only imgui-go's DrawData/TextureID surface — no
// layout widgets — since the engine's own layout is an external collaborator
// this package never constructs.
package ui

import (
	"unsafe"

	"github.com/fahimhuh/nea/internal/vkcore"
	imgui "github.com/inkyblackness/imgui-go/v4"
	vk "github.com/vulkan-go/vulkan"
)

const (
	vertexBufferSize = 4 * 1024 * 1024
	indexBufferSize  = 2 * 1024 * 1024

	// sizeOfVertex matches imgui's DrawVert: pos(vec2) + uv(vec2) +
	// color(rgba8) = 20 bytes.
	sizeOfVertex = 20
)

type texture struct {
	image   *vkcore.Image
	view    *vkcore.ImageView
	sampler *vkcore.Sampler
	set     *vkcore.DescriptorSet
}

// Painter owns the graphics pipeline, per-in-flight-frame streaming
// buffers, and the texture-id keyed GPU texture cache.
type Painter struct {
	ctx *vkcore.Context

	pool          *vkcore.DescriptorPool
	setLayout     *vkcore.DescriptorSetLayout
	layout        *vkcore.PipelineLayout
	pipeline      *vkcore.GraphicsPipeline
	transferPool  *vkcore.CommandPool

	vertexBuffers []*vkcore.Buffer
	indexBuffers  []*vkcore.Buffer

	textures map[imgui.TextureID]*texture
}

// pushConstants carries the vertex shader's one input: the display's
// logical size in DPI-independent units (display_dims / dpi), which it
// divides into each vertex's physical-pixel position to reach clip space.
type pushConstants struct {
	DisplayDims [2]float32
}

// New builds the graphics pipeline (20-byte vertex layout: pos R32G32,
// uv R32G32, color R8G8B8A8_UNORM) and per-frame streaming buffers.
func New(ctx *vkcore.Context, vertexCode, fragmentCode []byte, frameCount int, colorFormat vk.Format) (*Painter, error) {
	bindings := []vkcore.DescriptorBinding{
		{Binding: 0, Count: 1, Kind: vk.DescriptorTypeCombinedImageSampler, Stage: vk.ShaderStageFragmentBit},
	}
	setLayout, err := vkcore.NewDescriptorSetLayout(ctx, bindings)
	if err != nil {
		return nil, err
	}

	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(pushConstants{})),
	}
	layout, err := vkcore.NewPipelineLayout(ctx, &pushRange, []*vkcore.DescriptorSetLayout{setLayout})
	if err != nil {
		setLayout.Destroy()
		return nil, err
	}

	vshader, err := vkcore.NewShader(ctx, vertexCode)
	if err != nil {
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}
	defer vshader.Destroy()
	fshader, err := vkcore.NewShader(ctx, fragmentCode)
	if err != nil {
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}
	defer fshader.Destroy()

	vertexLayout := vkcore.VertexLayout{
		Stride: sizeOfVertex,
		Attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 8},
			{Location: 2, Binding: 0, Format: vk.FormatR8g8b8a8Unorm, Offset: 16},
		},
	}
	pipeline, err := vkcore.NewGraphicsPipeline(ctx, vshader, fshader, layout, vertexLayout, colorFormat)
	if err != nil {
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}

	pool, err := vkcore.NewDescriptorPool(ctx)
	if err != nil {
		pipeline.Destroy()
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}

	transferPool, err := vkcore.NewCommandPool(ctx, ctx.QueueFamily)
	if err != nil {
		pool.Destroy()
		pipeline.Destroy()
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}

	vertexBuffers := make([]*vkcore.Buffer, frameCount)
	indexBuffers := make([]*vkcore.Buffer, frameCount)
	for i := 0; i < frameCount; i++ {
		vb, err := vkcore.NewBuffer(ctx, vertexBufferSize, vk.BufferUsageVertexBufferBit, vkcore.HostVisible, "ui vertex stream")
		if err != nil {
			return nil, err
		}
		ib, err := vkcore.NewBuffer(ctx, indexBufferSize, vk.BufferUsageIndexBufferBit, vkcore.HostVisible, "ui index stream")
		if err != nil {
			return nil, err
		}
		vertexBuffers[i] = vb
		indexBuffers[i] = ib
	}

	return &Painter{
		ctx:           ctx,
		pool:          pool,
		setLayout:     setLayout,
		layout:        layout,
		pipeline:      pipeline,
		transferPool:  transferPool,
		vertexBuffers: vertexBuffers,
		indexBuffers:  indexBuffers,
		textures:      make(map[imgui.TextureID]*texture),
	}, nil
}

// UploadTextureDelta applies an imgui texture creation/patch: a brand new
// texture id allocates a GPU image; a known id re-uses its image and copies
// the patch pixels from a staging buffer straight into the rectangle at
// (x, y), matching imgui's partial-atlas-update contract. No staging image
// is created and no blit is recorded.
func (p *Painter) UploadTextureDelta(id imgui.TextureID, width, height int, rgba []byte, x, y int) error {
	if existing, ok := p.textures[id]; ok {
		return p.patchTexture(existing, width, height, rgba, x, y)
	}
	return p.createTexture(id, width, height, rgba)
}

func (p *Painter) createTexture(id imgui.TextureID, width, height int, rgba []byte) error {
	extent := vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1}
	image, err := vkcore.NewImage(p.ctx, extent, vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit, "ui texture")
	if err != nil {
		return err
	}
	if err := p.uploadPixels(image, extent, vk.Offset3D{}, rgba, vk.ImageLayoutUndefined); err != nil {
		image.Destroy()
		return err
	}

	view, err := vkcore.NewImageView(p.ctx, image, vk.FormatR8g8b8a8Unorm, vkcore.DefaultSubresource(vk.ImageAspectColorBit))
	if err != nil {
		image.Destroy()
		return err
	}
	sampler, err := vkcore.NewSampler(p.ctx, vk.SamplerAddressModeClampToEdge, vk.FilterLinear)
	if err != nil {
		view.Destroy()
		image.Destroy()
		return err
	}
	sets, err := p.pool.Allocate(p.setLayout, 1)
	if err != nil {
		sampler.Destroy()
		view.Destroy()
		image.Destroy()
		return err
	}
	sets[0].Write([]vkcore.ImageWrite{{
		Binding: 0, Kind: vk.DescriptorTypeCombinedImageSampler,
		View: view, Sampler: sampler, Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	}}, nil)

	p.textures[id] = &texture{image: image, view: view, sampler: sampler, set: sets[0]}
	return nil
}

func (p *Painter) patchTexture(tex *texture, width, height int, rgba []byte, x, y int) error {
	return p.uploadPixels(tex.image, vk.Extent3D{Width: uint32(width), Height: uint32(height), Depth: 1},
		vk.Offset3D{X: int32(x), Y: int32(y)}, rgba, vk.ImageLayoutShaderReadOnlyOptimal)
}

// uploadPixels stages rgba through a transient transfer buffer, copies it
// into the target region, and restores SHADER_READ_ONLY_OPTIMAL — the
// same barrier-copy-barrier shape for both a fresh texture and a patch,
// differing only in the starting layout.
func (p *Painter) uploadPixels(image *vkcore.Image, extent vk.Extent3D, offset vk.Offset3D, rgba []byte, fromLayout vk.ImageLayout) error {
	staging, err := vkcore.NewBuffer(p.ctx, uint64(len(rgba)), vk.BufferUsageTransferSrcBit, vkcore.HostVisible, "ui texture staging")
	if err != nil {
		return err
	}
	defer staging.Destroy()
	copy(unsafe.Slice((*byte)(staging.GetPtr()), len(rgba)), rgba)

	cmds, err := p.transferPool.Allocate()
	if err != nil {
		return err
	}
	if err := cmds.Begin(); err != nil {
		return err
	}
	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageFragmentShaderBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTransferBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessTransferWriteBit2KHR),
		OldLayout:        fromLayout,
		NewLayout:        vk.ImageLayoutTransferDstOptimal,
		Image:            image.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)
	cmds.CopyToImage(staging, image, []vk.BufferImageCopy{{
		ImageSubresource: vkcore.DefaultSubresourceLayers(vk.ImageAspectColorBit),
		ImageOffset:      offset,
		ImageExtent:      extent,
	}})
	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTransferBit2KHR),
		SrcAccessMask:    vk.AccessFlags2KHR(vk.AccessTransferWriteBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageFragmentShaderBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessShaderReadBit2KHR),
		OldLayout:        vk.ImageLayoutTransferDstOptimal,
		NewLayout:        vk.ImageLayoutShaderReadOnlyOptimal,
		Image:            image.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)
	if err := cmds.End(); err != nil {
		return err
	}

	fence, err := vkcore.NewFence(p.ctx, false)
	if err != nil {
		return err
	}
	defer fence.Destroy()
	if err := p.ctx.Submit([]*vkcore.CommandList{cmds}, nil, nil, fence); err != nil {
		return err
	}
	return fence.WaitAndReset()
}

// Draw streams DrawData's vertex/index buffers into this frame's slot and
// records one scissored indexed draw call per command list entry, inside
// a dynamic-rendering pass whose load-op the caller has already decided
// — CLEAR when the path-tracer didn't run this frame, LOAD
// otherwise).
func (p *Painter) Draw(cmds *vkcore.CommandList, frameIndex int, target *vkcore.ImageView, drawData imgui.DrawData, fbWidth, fbHeight, dpi float32, loadOp vk.AttachmentLoadOp, clearColor vk.ClearValue) {
	vb := p.vertexBuffers[frameIndex]
	ib := p.indexBuffers[frameIndex]

	var vertexOffset, indexOffset uint64
	lists := drawData.CommandLists()
	for _, list := range lists {
		vtxBytes := list.VertexBuffer().Size()
		idxBytes := list.IndexBuffer().Size()
		copyRaw(vb.GetPtr(), vertexOffset, list.VertexBuffer().Data(), vtxBytes)
		copyRaw(ib.GetPtr(), indexOffset, list.IndexBuffer().Data(), idxBytes)
		vertexOffset += uint64(vtxBytes)
		indexOffset += uint64(idxBytes)
	}

	attachment := vk.RenderingAttachmentInfoKHR{
		SType:       vk.StructureTypeRenderingAttachmentInfoKHR,
		ImageView:   target.Handle,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      loadOp,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  clearColor,
	}
	cmds.BeginRendering(vk.RenderingInfoKHR{
		SType:                vk.StructureTypeRenderingInfoKHR,
		RenderArea:           vk.Rect2D{Extent: vk.Extent2D{Width: uint32(fbWidth), Height: uint32(fbHeight)}},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.RenderingAttachmentInfoKHR{attachment},
	})

	cmds.BindGraphicsPipeline(p.pipeline)
	cmds.BindVertexBuffer(vb)
	cmds.BindIndexBuffer(ib)
	cmds.SetViewport(0, 0, fbWidth, fbHeight)

	push := pushConstants{DisplayDims: [2]float32{fbWidth / dpi, fbHeight / dpi}}
	cmds.PushConstants(p.layout, vk.ShaderStageVertexBit, unsafe.Pointer(&push), uint32(unsafe.Sizeof(push)))

	var vtxBase, idxBase uint32
	for _, list := range lists {
		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				continue
			}
			clip := cmd.ClipRect()
			cmds.SetScissor(
				vk.Offset2D{X: int32(clip.X * dpi), Y: int32(clip.Y * dpi)},
				vk.Extent2D{Width: uint32((clip.Z - clip.X) * dpi), Height: uint32((clip.W - clip.Y) * dpi)},
			)
			if tex, ok := p.textures[cmd.TextureID()]; ok {
				cmds.BindDescriptorSets(vk.PipelineBindPointGraphics, p.layout, []vk.DescriptorSet{tex.set.Handle})
			}
			cmds.DrawIndexed(cmd.ElementCount(), 1, idxBase, int32(vtxBase), 0)
			idxBase += cmd.ElementCount()
		}
		vtxBase += uint32(list.VertexBuffer().Size()) / sizeOfVertex
	}

	cmds.EndRendering()
}

func copyRaw(dst unsafe.Pointer, dstOffset uint64, src unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	d := unsafe.Add(dst, dstOffset)
	copy(unsafe.Slice((*byte)(d), size), unsafe.Slice((*byte)(src), size))
}

func (p *Painter) Destroy() {
	for _, t := range p.textures {
		t.sampler.Destroy()
		t.view.Destroy()
		t.image.Destroy()
	}
	for i := range p.vertexBuffers {
		p.vertexBuffers[i].Destroy()
		p.indexBuffers[i].Destroy()
	}
	p.transferPool.Destroy()
	p.pool.Destroy()
	p.pipeline.Destroy()
	p.layout.Destroy()
	p.setLayout.Destroy()
}
