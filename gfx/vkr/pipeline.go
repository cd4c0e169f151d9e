// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/wind/assets"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/model"
	"github.com/gobuffalo/packd"
	log "github.com/sirupsen/logrus"
)

// DefaultEntry is the shader entry point used when none is configured.
const DefaultEntry = "main"

// PipelineConfig holds the parts of pipeline construction that vary.
// The zero value builds the standard pipeline over model.Vertex.
type PipelineConfig struct {
	// Entry is the entry point of both shaders.
	Entry string

	// VertexBindings and VertexAttributes replace the model.Vertex layout.
	VertexBindings   []driver.VertexBinding
	VertexAttributes []driver.VertexAttribute
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}
	if len(c.VertexBindings) == 0 {
		c.VertexBindings = model.VertexBindingDescriptions()
		c.VertexAttributes = model.VertexAttributeDescriptions()
	}
	return c
}

// Pipeline is a graphics pipeline together with its pipeline layout.
type Pipeline struct {
	ref    gfx.Ref
	device *Device
	drop   func()
	handle driver.Handle
	layout driver.Handle
}

// NewPipeline builds a graphics pipeline for subpass 0 of renderPass from
// the vertex and fragment shaders found in shaders under
// assets.VertexShaderPath and assets.FragmentShaderPath.
//
// The fixed function state is a filled triangle list with back faces
// culled, counter-clockwise front faces, line width 1, one sample per
// pixel, blending off and dynamic viewport and scissor.
//
// Every call builds a new pipeline; nothing is cached. The shader modules
// only live for the duration of the call.
func NewPipeline(device *Device, renderPass *RenderPass, layout *DescriptorLayout, shaders packd.Finder, cfg PipelineConfig) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	drop, err := acquire(&device.ref, &renderPass.ref, &layout.ref)
	if err != nil {
		return nil, err
	}

	pipeline, err := buildPipeline(device, renderPass, layout, shaders, cfg)
	if err != nil {
		drop()
		return nil, err
	}
	pipeline.drop = drop

	log.WithFields(log.Fields{
		"stages":     2,
		"attributes": len(cfg.VertexAttributes),
	}).Debug("Pipeline created")
	return pipeline, nil
}

func buildPipeline(device *Device, renderPass *RenderPass, layout *DescriptorLayout, shaders packd.Finder, cfg PipelineConfig) (*Pipeline, error) {
	vert, err := LoadShaderModule(device, shaders, assets.VertexShaderPath)
	if err != nil {
		return nil, err
	}
	defer vert.Release()

	frag, err := LoadShaderModule(device, shaders, assets.FragmentShaderPath)
	if err != nil {
		return nil, err
	}
	defer frag.Release()

	drv := device.drv
	pipelineLayout, err := drv.CreatePipelineLayout(device.handle, []driver.Handle{layout.handle})
	if err != nil {
		return nil, gfx.Bootstrap(err, "vk.CreatePipelineLayout()")
	}

	handle, err := drv.CreateGraphicsPipeline(device.handle, driver.GraphicsPipelineInfo{
		Stages: []driver.PipelineStage{
			{Stage: driver.ShaderStageVertex, Module: vert.handle, Entry: cfg.Entry},
			{Stage: driver.ShaderStageFragment, Module: frag.handle, Entry: cfg.Entry},
		},
		VertexBindings:   cfg.VertexBindings,
		VertexAttributes: cfg.VertexAttributes,
		CullBack:         true,
		FrontFaceCCW:     true,
		LineWidth:        1,
		Samples:          1,
		BlendEnable:      false,
		DynamicStates:    []driver.DynamicState{driver.DynamicViewport, driver.DynamicScissor},
		Layout:           pipelineLayout,
		RenderPass:       renderPass.handle,
		Subpass:          0,
	})
	if err != nil {
		drv.DestroyPipelineLayout(device.handle, pipelineLayout)
		return nil, gfx.Bootstrap(err, "vk.CreateGraphicsPipelines()")
	}

	return &Pipeline{
		ref:    gfx.NewRef("pipeline"),
		device: device,
		handle: handle,
		layout: pipelineLayout,
	}, nil
}

// Handle returns the pipeline handle.
func (p *Pipeline) Handle() driver.Handle {
	p.ref.MustBeLive()
	return p.handle
}

// Layout returns the pipeline layout handle. It lives exactly as long as
// the pipeline.
func (p *Pipeline) Layout() driver.Handle {
	p.ref.MustBeLive()
	return p.layout
}

// Release destroys the pipeline and then its layout.
func (p *Pipeline) Release() error {
	if p == nil {
		return nil
	}
	ok, err := p.ref.BeginRelease()
	if !ok {
		return err
	}
	p.device.drv.DestroyPipeline(p.device.handle, p.handle)
	p.device.drv.DestroyPipelineLayout(p.device.handle, p.layout)
	p.drop()
	return nil
}
