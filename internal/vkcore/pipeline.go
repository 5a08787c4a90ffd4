package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

type PipelineLayout struct {
	ctx    *Context
	Handle vk.PipelineLayout
}

// NewPipelineLayout builds a layout from a push-constant range and a set of
// descriptor-set layouts.
func NewPipelineLayout(ctx *Context, pushConstant *vk.PushConstantRange, setLayouts []*DescriptorSetLayout) (*PipelineLayout, error) {
	handles := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		handles[i] = l.Handle
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(handles)),
		PSetLayouts:    handles,
	}
	if pushConstant != nil {
		info.PushConstantRangeCount = 1
		info.PPushConstantRanges = []vk.PushConstantRange{*pushConstant}
	}
	var handle vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &PipelineLayout{ctx: ctx, Handle: handle}, nil
}

func (l *PipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(l.ctx.Device, l.Handle, nil)
}

// Shader loads a raw SPIR-V module, embedded at build time and consumed
// here as a plain []byte.
type Shader struct {
	ctx    *Context
	Handle vk.ShaderModule
}

func NewShader(ctx *Context, code []byte) (*Shader, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var handle vk.ShaderModule
	if err := check(vk.CreateShaderModule(ctx.Device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &Shader{ctx: ctx, Handle: handle}, nil
}

func (s *Shader) Destroy() {
	vk.DestroyShaderModule(s.ctx.Device, s.Handle, nil)
}

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words the
// driver expects.
func sliceUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out
}

type ComputePipeline struct {
	ctx    *Context
	Handle vk.Pipeline
}

func NewComputePipeline(ctx *Context, shader *Shader, layout *PipelineLayout) (*ComputePipeline, error) {
	stage := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageComputeBit,
		Module: shader.Handle,
		PName:  "main\x00",
	}
	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout.Handle,
	}
	handles := make([]vk.Pipeline, 1)
	if err := check(vk.CreateComputePipelines(ctx.Device, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, handles)); err != nil {
		return nil, err
	}
	return &ComputePipeline{ctx: ctx, Handle: handles[0]}, nil
}

func (p *ComputePipeline) Destroy() {
	vk.DestroyPipeline(p.ctx.Device, p.Handle, nil)
}

// GraphicsPipeline bakes the fixed-function state the UI overlay needs:
// triangle list, counter-clockwise front face, no culling, no depth/stencil,
// premultiplied-alpha blend, dynamic viewport+scissor, single sample,
// dynamic rendering with one color attachment (no VkRenderPass object; see
// DESIGN.md for why dynamic rendering replaces a traditional render pass).
type GraphicsPipeline struct {
	ctx    *Context
	Handle vk.Pipeline
}

type VertexLayout struct {
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription
}

func NewGraphicsPipeline(ctx *Context, vertex, fragment *Shader, layout *PipelineLayout, vertexLayout VertexLayout, colorFormat vk.Format) (*GraphicsPipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageVertexBit, Module: vertex.Handle, PName: "main\x00"},
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageFragmentBit, Module: fragment.Handle, PName: "main\x00"},
	}

	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    vertexLayout.Stride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions:    []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(vertexLayout.Attributes)),
		PVertexAttributeDescriptions:    vertexLayout.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.False,
		DepthWriteEnable: vk.False,
		StencilTestEnable: vk.False,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderingInfo := vk.PipelineRenderingCreateInfoKHR{
		SType:                   vk.StructureTypePipelineRenderingCreateInfoKHR,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: []vk.Format{colorFormat},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(&renderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout.Handle,
	}

	handles := make([]vk.Pipeline, 1)
	if err := check(vk.CreateGraphicsPipelines(ctx.Device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, handles)); err != nil {
		return nil, err
	}
	return &GraphicsPipeline{ctx: ctx, Handle: handles[0]}, nil
}

func (p *GraphicsPipeline) Destroy() {
	vk.DestroyPipeline(p.ctx.Device, p.Handle, nil)
}
