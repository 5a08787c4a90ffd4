package raytracer

import (
	"unsafe"

	"github.com/fahimhuh/nea/internal/scene"
	"github.com/fahimhuh/nea/internal/vkcore"
	vk "github.com/vulkan-go/vulkan"
)

const (
	bindingOutputImage = 0
	bindingUniforms    = 1
	bindingTLAS        = 2
	bindingMaterials   = 3
)

// pushConstants carries the dispatch's true image extent, 8 bytes total —
// the workgroup count is rounded up to a multiple of workgroupSize, so the
// shader needs the exact width/height to guard against writing past the
// image on the last row/column of workgroups.
type pushConstants struct {
	Width  uint32
	Height uint32
}

// Driver is the path-tracer compute pass: one descriptor set and one
// uniform buffer per in-flight frame, a single compute pipeline, and the
// currently-loaded Scene it dispatches against.
type Driver struct {
	ctx *vkcore.Context

	pool       *vkcore.DescriptorPool
	setLayout  *vkcore.DescriptorSetLayout
	layout     *vkcore.PipelineLayout
	pipeline   *vkcore.ComputePipeline

	sets     []*vkcore.DescriptorSet
	uniforms []*vkcore.Buffer

	loader      *scene.Loader
	activeScene *scene.Scene

	seed uint32
}

// New builds the compute pipeline and per-frame descriptor/uniform
// resources. code is the embedded compute shader's raw SPIR-V.
func New(ctx *vkcore.Context, code []byte, frameCount int, loader *scene.Loader) (*Driver, error) {
	bindings := []vkcore.DescriptorBinding{
		{Binding: bindingOutputImage, Count: 1, Kind: vk.DescriptorTypeStorageImage, Stage: vk.ShaderStageComputeBit},
		{Binding: bindingUniforms, Count: 1, Kind: vk.DescriptorTypeUniformBuffer, Stage: vk.ShaderStageComputeBit},
		{Binding: bindingTLAS, Count: 1, Kind: vk.DescriptorTypeAccelerationStructureKHR, Stage: vk.ShaderStageComputeBit},
		{Binding: bindingMaterials, Count: 1, Kind: vk.DescriptorTypeStorageBuffer, Stage: vk.ShaderStageComputeBit},
	}

	setLayout, err := vkcore.NewDescriptorSetLayout(ctx, bindings)
	if err != nil {
		return nil, err
	}
	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(pushConstants{})),
	}
	layout, err := vkcore.NewPipelineLayout(ctx, &pushRange, []*vkcore.DescriptorSetLayout{setLayout})
	if err != nil {
		setLayout.Destroy()
		return nil, err
	}
	shader, err := vkcore.NewShader(ctx, code)
	if err != nil {
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}
	defer shader.Destroy()
	pipeline, err := vkcore.NewComputePipeline(ctx, shader, layout)
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
	sets, err := pool.Allocate(setLayout, frameCount)
	if err != nil {
		pool.Destroy()
		pipeline.Destroy()
		layout.Destroy()
		setLayout.Destroy()
		return nil, err
	}

	uniforms := make([]*vkcore.Buffer, frameCount)
	for i := range uniforms {
		buf, err := vkcore.NewBuffer(ctx, SizeOfUniforms, vk.BufferUsageUniformBufferBit, vkcore.HostVisible, "path-tracer uniforms")
		if err != nil {
			return nil, err
		}
		uniforms[i] = buf
	}

	return &Driver{
		ctx:       ctx,
		pool:      pool,
		setLayout: setLayout,
		layout:    layout,
		pipeline:  pipeline,
		sets:      sets,
		uniforms:  uniforms,
		loader:    loader,
	}, nil
}

// Dispatch polls the scene loader, swaps in a freshly-loaded scene if one
// finished, writes this frame's uniforms, rewrites the descriptor set, and
// records the dispatch with its surrounding layout-transition barriers. It
// returns whether a dispatch was actually recorded — false when no scene is
// loaded yet, which the caller (the UI pass) uses to decide between a CLEAR
// and a LOAD attachment load-op).
func (d *Driver) Dispatch(cmds *vkcore.CommandList, frameIndex int, target *vkcore.ImageView, targetImage *vkcore.Image, w *scene.World, extent vk.Extent2D, timeSeconds float32) (bool, error) {
	if data, err, ready := d.loader.Poll(); ready && err == nil && data != nil {
		if err := d.swapScene(data); err != nil {
			return false, err
		}
	}

	if d.activeScene == nil {
		return false, nil
	}

	d.seed++
	u := Compute(w, d.seed, float32(extent.Width)/float32(extent.Height), timeSeconds)
	u.WriteInto(d.uniforms[frameIndex].GetPtr())

	set := d.sets[frameIndex]
	set.Write(
		[]vkcore.ImageWrite{{Binding: bindingOutputImage, Kind: vk.DescriptorTypeStorageImage, View: target, Layout: vk.ImageLayoutGeneral}},
		[]vkcore.BufferWrite{
			{Binding: bindingUniforms, Kind: vk.DescriptorTypeUniformBuffer, Buffer: d.uniforms[frameIndex], Range: SizeOfUniforms},
			{Binding: bindingMaterials, Kind: vk.DescriptorTypeStorageBuffer, Buffer: d.activeScene.Materials, Range: scene.MaxMaterials * 48},
		},
	)
	set.WriteTLAS(bindingTLAS, d.activeScene.TLAS.Handle)

	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTopOfPipeBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageComputeShaderBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessShaderWriteBit2KHR),
		OldLayout:        vk.ImageLayoutUndefined,
		NewLayout:        vk.ImageLayoutGeneral,
		Image:            targetImage.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)

	cmds.BindComputePipeline(d.pipeline)
	cmds.BindDescriptorSets(vk.PipelineBindPointCompute, d.layout, []vk.DescriptorSet{set.Handle})
	push := pushConstants{Width: extent.Width, Height: extent.Height}
	cmds.PushConstants(d.layout, vk.ShaderStageComputeBit, unsafe.Pointer(&push), uint32(unsafe.Sizeof(push)))
	const workgroupSize = 8
	groupsX := (extent.Width + workgroupSize - 1) / workgroupSize
	groupsY := (extent.Height + workgroupSize - 1) / workgroupSize
	cmds.Dispatch(groupsX, groupsY, 1)

	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageComputeShaderBit2KHR),
		SrcAccessMask:    vk.AccessFlags2KHR(vk.AccessShaderWriteBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageColorAttachmentOutputBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessColorAttachmentWriteBit2KHR),
		OldLayout:        vk.ImageLayoutGeneral,
		NewLayout:        vk.ImageLayoutColorAttachmentOptimal,
		Image:            targetImage.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)

	return true, nil
}

// swapScene waits for all in-flight GPU work to finish before dropping the
// previous scene, per §9(c)'s decision: the loader thread never touches GPU
// state, so the unsafe window is only between "new scene decoded" and
// "previous scene's buffers freed" — WaitIdle closes it without needing
// per-resource refcounting.
func (d *Driver) swapScene(data *scene.SceneData) error {
	if err := d.ctx.WaitIdle(); err != nil {
		return err
	}
	next, err := scene.Build(d.ctx, data)
	if err != nil {
		return err
	}
	if d.activeScene != nil {
		d.activeScene.Destroy()
	}
	d.activeScene = next
	return nil
}

func (d *Driver) HasScene() bool { return d.activeScene != nil }

func (d *Driver) Destroy() {
	if d.activeScene != nil {
		d.activeScene.Destroy()
	}
	for _, u := range d.uniforms {
		u.Destroy()
	}
	d.pool.Destroy()
	d.pipeline.Destroy()
	d.layout.Destroy()
	d.setLayout.Destroy()
}
