// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/assets"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/drivertest"
	"github.com/devblok/wind/gfx/vkr"
	"github.com/devblok/wind/model"
	"github.com/gobuffalo/packd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	*fixture
	renderPass *vkr.RenderPass
	layout     *vkr.DescriptorLayout
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := newFixture(t)
	rp, err := vkr.NewRenderPass(f.device, driver.FormatB8G8R8A8Unorm)
	require.NoError(t, err)
	layout, err := vkr.NewDescriptorLayout(f.device)
	require.NoError(t, err)
	return &pipelineFixture{fixture: f, renderPass: rp, layout: layout}
}

func (f *pipelineFixture) teardown(t *testing.T) {
	t.Helper()
	require.NoError(t, f.layout.Release())
	require.NoError(t, f.renderPass.Release())
	f.fixture.teardown(t)
}

func TestPipelineFixedState(t *testing.T) {
	f := newPipelineFixture(t)

	p, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, shaderBox(t), vkr.PipelineConfig{})
	require.NoError(t, err)

	info, ok := f.drv.Pipeline(p.Handle())
	require.True(t, ok)
	assert.True(t, info.CullBack)
	assert.True(t, info.FrontFaceCCW)
	assert.Equal(t, float32(1), info.LineWidth)
	assert.Equal(t, uint32(1), info.Samples)
	assert.False(t, info.BlendEnable)
	assert.Equal(t, []driver.DynamicState{driver.DynamicViewport, driver.DynamicScissor}, info.DynamicStates)
	assert.Equal(t, uint32(0), info.Subpass)
	assert.Equal(t, p.Layout(), info.Layout)
	assert.Equal(t, f.renderPass.Handle(), info.RenderPass)
	assert.Equal(t, model.VertexBindingDescriptions(), info.VertexBindings)
	assert.Equal(t, model.VertexAttributeDescriptions(), info.VertexAttributes)

	require.Len(t, info.Stages, 2)
	assert.Equal(t, driver.ShaderStageVertex, info.Stages[0].Stage)
	assert.Equal(t, driver.ShaderStageFragment, info.Stages[1].Stage)
	assert.Equal(t, vkr.DefaultEntry, info.Stages[0].Entry)

	// Shader modules are gone once the pipeline exists.
	assert.Equal(t, 0, f.drv.Live(drivertest.KindShaderModule))
	assert.Equal(t, 1, f.drv.Live(drivertest.KindPipelineLayout))

	require.NoError(t, p.Release())
	assert.Equal(t, 0, f.drv.Live(drivertest.KindPipeline))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindPipelineLayout))
	f.teardown(t)
}

func TestPipelineNotCached(t *testing.T) {
	f := newPipelineFixture(t)
	shaders := shaderBox(t)

	p1, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, shaders, vkr.PipelineConfig{})
	require.NoError(t, err)
	p2, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, shaders, vkr.PipelineConfig{Entry: "main"})
	require.NoError(t, err)

	assert.NotEqual(t, p1.Handle(), p2.Handle())
	assert.NotEqual(t, p1.Layout(), p2.Layout())
	assert.Equal(t, 2, f.drv.Live(drivertest.KindPipeline))

	require.NoError(t, gfx.ReleaseAll(p2, p1))
	f.teardown(t)
}

func TestPipelineCreationFailure(t *testing.T) {
	f := newPipelineFixture(t)
	boom := errors.New("pipeline compilation failed")
	f.drv.FailOn("CreateGraphicsPipeline", 0, boom)

	p, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, shaderBox(t), vkr.PipelineConfig{})
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindShaderModule))
	assert.Equal(t, 0, f.drv.Live(drivertest.KindPipelineLayout))

	// No reference is left behind on the collaborators.
	f.teardown(t)
}

func TestPipelineMissingShader(t *testing.T) {
	f := newPipelineFixture(t)
	box := packd.NewMemoryBox()
	require.NoError(t, box.AddBytes(assets.VertexShaderPath, vertexCode))

	_, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, box, vkr.PipelineConfig{})
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Contains(t, err.Error(), assets.FragmentShaderPath)
	assert.Equal(t, 0, f.drv.Live(drivertest.KindShaderModule))

	f.teardown(t)
}

func TestPipelineShaderCode(t *testing.T) {
	f := newPipelineFixture(t)
	box := packd.NewMemoryBox()
	require.NoError(t, box.AddBytes(assets.VertexShaderPath, vertexCode))
	require.NoError(t, box.AddBytes(assets.FragmentShaderPath, []byte{1, 2, 3}))

	_, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, box, vkr.PipelineConfig{})
	assert.True(t, errors.Is(err, gfx.ErrBootstrap))
	assert.Contains(t, err.Error(), "vk.CreateShaderModule()")
	assert.Equal(t, 0, f.drv.Live(drivertest.KindShaderModule))

	f.teardown(t)
}

func TestPipelineHoldsCollaborators(t *testing.T) {
	f := newPipelineFixture(t)
	p, err := vkr.NewPipeline(f.device, f.renderPass, f.layout, shaderBox(t), vkr.PipelineConfig{})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.renderPass.Release(), gfx.ErrInUse))
	assert.True(t, errors.Is(f.layout.Release(), gfx.ErrInUse))
	assert.True(t, errors.Is(f.device.Release(), gfx.ErrInUse))
	assert.NotPanics(t, func() { f.renderPass.Handle() })
	assert.Empty(t, f.drv.Problems())

	require.NoError(t, p.Release())
	assert.Panics(t, func() { p.Layout() })
	f.teardown(t)
}
