// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// CreateShaderModule implements driver.Driver.
func (d *Driver) CreateShaderModule(device driver.Handle, code []byte) (driver.Handle, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if err := result(vk.CreateShaderModule(lookup[vk.Device](d, device), &smci, nil, &module)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(module), nil
}

// DestroyShaderModule implements driver.Driver.
func (d *Driver) DestroyShaderModule(device, module driver.Handle) {
	vk.DestroyShaderModule(lookup[vk.Device](d, device), lookup[vk.ShaderModule](d, module), nil)
	d.remove(module)
}

// CreateDescriptorSetLayout implements driver.Driver.
func (d *Driver) CreateDescriptorSetLayout(device driver.Handle, bindings []driver.DescriptorBinding) (driver.Handle, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings))
	for _, b := range bindings {
		vkBindings = append(vkBindings, vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(shaderStage(b.Stages)),
		})
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var layout vk.DescriptorSetLayout
	if err := result(vk.CreateDescriptorSetLayout(lookup[vk.Device](d, device), &dslci, nil, &layout)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(layout), nil
}

// DestroyDescriptorSetLayout implements driver.Driver.
func (d *Driver) DestroyDescriptorSetLayout(device, layout driver.Handle) {
	vk.DestroyDescriptorSetLayout(lookup[vk.Device](d, device), lookup[vk.DescriptorSetLayout](d, layout), nil)
	d.remove(layout)
}

// CreateDescriptorPool implements driver.Driver.
func (d *Driver) CreateDescriptorPool(device driver.Handle, uniformBuffers, maxSets uint32) (driver.Handle, error) {
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uniformBuffers,
		}},
	}
	var pool vk.DescriptorPool
	if err := result(vk.CreateDescriptorPool(lookup[vk.Device](d, device), &dpci, nil, &pool)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(pool), nil
}

// DestroyDescriptorPool implements driver.Driver. Sets allocated from the
// pool go with it.
func (d *Driver) DestroyDescriptorPool(device, pool driver.Handle) {
	vk.DestroyDescriptorPool(lookup[vk.Device](d, device), lookup[vk.DescriptorPool](d, pool), nil)
	d.remove(pool)
}

// AllocateDescriptorSet implements driver.Driver.
func (d *Driver) AllocateDescriptorSet(device, pool, layout driver.Handle) (driver.Handle, error) {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     lookup[vk.DescriptorPool](d, pool),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{lookup[vk.DescriptorSetLayout](d, layout)},
	}
	var set vk.DescriptorSet
	if err := result(vk.AllocateDescriptorSets(lookup[vk.Device](d, device), &dsai, &set)); err != nil {
		return driver.NullHandle, err
	}
	return d.putChild(pool, set), nil
}

// UpdateUniformDescriptor implements driver.Driver.
func (d *Driver) UpdateUniformDescriptor(device, set driver.Handle, binding uint32, buffer driver.Handle, size uint64) {
	wds := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          lookup[vk.DescriptorSet](d, set),
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: lookup[vk.Buffer](d, buffer),
			Offset: 0,
			Range:  vk.DeviceSize(size),
		}},
	}}
	vk.UpdateDescriptorSets(lookup[vk.Device](d, device), uint32(len(wds)), wds, 0, nil)
}

// CreatePipelineLayout implements driver.Driver.
func (d *Driver) CreatePipelineLayout(device driver.Handle, setLayouts []driver.Handle) (driver.Handle, error) {
	layouts := lookupAll[vk.DescriptorSetLayout](d, setLayouts)
	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var layout vk.PipelineLayout
	if err := result(vk.CreatePipelineLayout(lookup[vk.Device](d, device), &plci, nil, &layout)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(layout), nil
}

// DestroyPipelineLayout implements driver.Driver.
func (d *Driver) DestroyPipelineLayout(device, layout driver.Handle) {
	vk.DestroyPipelineLayout(lookup[vk.Device](d, device), lookup[vk.PipelineLayout](d, layout), nil)
	d.remove(layout)
}

// CreateGraphicsPipeline implements driver.Driver.
func (d *Driver) CreateGraphicsPipeline(device driver.Handle, info driver.GraphicsPipelineInfo) (driver.Handle, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(info.Stages))
	for _, s := range info.Stages {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStage(s.Stage),
			Module: lookup[vk.ShaderModule](d, s.Module),
			PName:  safeString(s.Entry),
		})
	}

	bindings := make([]vk.VertexInputBindingDescription, 0, len(info.VertexBindings))
	for _, b := range info.VertexBindings {
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
	}
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(info.VertexAttributes))
	for _, a := range info.VertexAttributes {
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Binding:  a.Binding,
			Location: a.Location,
			Format:   toFormat(a.Format),
			Offset:   a.Offset,
		})
	}

	dynamic := make([]vk.DynamicState, 0, len(info.DynamicStates))
	for _, s := range info.DynamicStates {
		dynamic = append(dynamic, dynamicState(s))
	}

	cullMode := vk.CullModeFlags(vk.CullModeNone)
	if info.CullBack {
		cullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	frontFace := vk.FrontFaceClockwise
	if info.FrontFaceCCW {
		frontFace = vk.FrontFaceCounterClockwise
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    cullMode,
			FrontFace:   frontFace,
			LineWidth:   info.LineWidth,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCountFlagBits(info.Samples),
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    boolean(info.BlendEnable),
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:     lookup[vk.PipelineLayout](d, info.Layout),
		RenderPass: lookup[vk.RenderPass](d, info.RenderPass),
		Subpass:    info.Subpass,
	}}

	// no pipeline cache
	var cache vk.PipelineCache
	pipelines := make([]vk.Pipeline, 1)
	if err := result(vk.CreateGraphicsPipelines(lookup[vk.Device](d, device), cache, 1, gpci, nil, pipelines)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(pipelines[0]), nil
}

// DestroyPipeline implements driver.Driver.
func (d *Driver) DestroyPipeline(device, pipeline driver.Handle) {
	vk.DestroyPipeline(lookup[vk.Device](d, device), lookup[vk.Pipeline](d, pipeline), nil)
	d.remove(pipeline)
}

// CreateRenderPass implements driver.Driver. The pass has one color
// attachment that is cleared on load and handed to presentation.
func (d *Driver) CreateRenderPass(device driver.Handle, format driver.Format) (driver.Handle, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         toFormat(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}
	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}
	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colorAttachmentRef)),
			PColorAttachments:    colorAttachmentRef,
		}},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}
	var renderPass vk.RenderPass
	if err := result(vk.CreateRenderPass(lookup[vk.Device](d, device), &rpci, nil, &renderPass)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(renderPass), nil
}

// DestroyRenderPass implements driver.Driver.
func (d *Driver) DestroyRenderPass(device, renderPass driver.Handle) {
	vk.DestroyRenderPass(lookup[vk.Device](d, device), lookup[vk.RenderPass](d, renderPass), nil)
	d.remove(renderPass)
}
