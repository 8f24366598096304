package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/assets"
	"github.com/spaghettifunk/rendercore/engine/core"
)

// VulkanPipeline holds a graphics pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// PipelineFactory builds the graphics pipeline for a render pass. The
// viewport is baked in, so the pipeline is rebuilt with the swapchain.
type PipelineFactory interface {
	Create(renderpass *VulkanRenderpass, extent vk.Extent2D, samples vk.SampleCountFlagBits) (*VulkanPipeline, error)
	Destroy(pipeline *VulkanPipeline)
}

// GraphicsPipelineFactory owns the shader modules shared by every pipeline it
// creates.
type GraphicsPipelineFactory struct {
	device    vk.Device
	setLayout vk.DescriptorSetLayout
	vertex    *VulkanShaderStage
	fragment  *VulkanShaderStage
}

func NewPipelineFactory(ctx *DeviceContext, vertSPV, fragSPV []uint32) (*GraphicsPipelineFactory, error) {
	vertex, err := NewShaderStage(ctx.Device, vertSPV, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	fragment, err := NewShaderStage(ctx.Device, fragSPV, vk.ShaderStageFragmentBit)
	if err != nil {
		vertex.Destroy(ctx.Device)
		return nil, err
	}
	return &GraphicsPipelineFactory{
		device:    ctx.Device,
		setLayout: ctx.DescriptorSetLayout,
		vertex:    vertex,
		fragment:  fragment,
	}, nil
}

// Close destroys the shader modules. Pipelines must be destroyed first.
func (f *GraphicsPipelineFactory) Close() {
	f.fragment.Destroy(f.device)
	f.vertex.Destroy(f.device)
}

func (f *GraphicsPipelineFactory) Create(renderpass *VulkanRenderpass, extent vk.Extent2D, samples vk.SampleCountFlagBits) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    assets.VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: assets.PositionOffset},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: assets.ColorOffset},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: assets.TexCoordOffset},
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors:    []vk.Rect2D{{Extent: extent}},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: samples,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MaxDepthBounds:        1.0,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	ranges := make([]vk.PushConstantRange, 0, 2)
	for _, r := range PushConstantRanges() {
		ranges = append(ranges, vk.PushConstantRange{
			StageFlags: r.Stages,
			Offset:     r.Offset,
			Size:       r.Size,
		})
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{f.setLayout},
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var layout vk.PipelineLayout
	if err := check("vkCreatePipelineLayout", vk.CreatePipelineLayout(f.device, &layoutInfo, nil, &layout)); err != nil {
		return nil, err
	}
	outPipeline.PipelineLayout = layout

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          2,
		PStages:             []vk.PipelineShaderStageCreateInfo{f.vertex.ShaderStageCreateInfo, f.fragment.ShaderStageCreateInfo},
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		Layout:              layout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := check("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		f.device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines)); err != nil {
		vk.DestroyPipelineLayout(f.device, layout, nil)
		return nil, err
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created for %dx%d, %d samples.", extent.Width, extent.Height, samples)
	return outPipeline, nil
}

func (f *GraphicsPipelineFactory) Destroy(pipeline *VulkanPipeline) {
	if pipeline == nil {
		return
	}
	if pipeline.Handle != nil {
		vk.DestroyPipeline(f.device, pipeline.Handle, nil)
		pipeline.Handle = nil
	}
	if pipeline.PipelineLayout != nil {
		vk.DestroyPipelineLayout(f.device, pipeline.PipelineLayout, nil)
		pipeline.PipelineLayout = nil
	}
}
