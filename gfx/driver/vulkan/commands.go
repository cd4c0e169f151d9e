// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// CreateCommandPool implements driver.Driver. Buffers of the pool can be
// reset one by one, since each frame rerecords its buffer.
func (d *Driver) CreateCommandPool(device driver.Handle, family uint32) (driver.Handle, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	var pool vk.CommandPool
	if err := result(vk.CreateCommandPool(lookup[vk.Device](d, device), &cpci, nil, &pool)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(pool), nil
}

// DestroyCommandPool implements driver.Driver.
func (d *Driver) DestroyCommandPool(device, pool driver.Handle) {
	vk.DestroyCommandPool(lookup[vk.Device](d, device), lookup[vk.CommandPool](d, pool), nil)
	d.remove(pool)
}

// AllocateCommandBuffers implements driver.Driver.
func (d *Driver) AllocateCommandBuffers(device, pool driver.Handle, count int) ([]driver.Handle, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        lookup[vk.CommandPool](d, pool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	buffers := make([]vk.CommandBuffer, count)
	if err := result(vk.AllocateCommandBuffers(lookup[vk.Device](d, device), &cbai, buffers)); err != nil {
		return nil, err
	}
	handles := make([]driver.Handle, 0, count)
	for _, cb := range buffers {
		handles = append(handles, d.putChild(pool, cb))
	}
	return handles, nil
}

// FreeCommandBuffers implements driver.Driver.
func (d *Driver) FreeCommandBuffers(device, pool driver.Handle, buffers []driver.Handle) {
	vkBuffers := lookupAll[vk.CommandBuffer](d, buffers)
	vk.FreeCommandBuffers(lookup[vk.Device](d, device), lookup[vk.CommandPool](d, pool), uint32(len(vkBuffers)), vkBuffers)
	d.forget(pool, buffers)
}

// CreateSemaphore implements driver.Driver.
func (d *Driver) CreateSemaphore(device driver.Handle) (driver.Handle, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := result(vk.CreateSemaphore(lookup[vk.Device](d, device), &sci, nil, &semaphore)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(semaphore), nil
}

// DestroySemaphore implements driver.Driver.
func (d *Driver) DestroySemaphore(device, semaphore driver.Handle) {
	vk.DestroySemaphore(lookup[vk.Device](d, device), lookup[vk.Semaphore](d, semaphore), nil)
	d.remove(semaphore)
}

// CreateFence implements driver.Driver.
func (d *Driver) CreateFence(device driver.Handle, signaled bool) (driver.Handle, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := result(vk.CreateFence(lookup[vk.Device](d, device), &fci, nil, &fence)); err != nil {
		return driver.NullHandle, err
	}
	return d.put(fence), nil
}

// DestroyFence implements driver.Driver.
func (d *Driver) DestroyFence(device, fence driver.Handle) {
	vk.DestroyFence(lookup[vk.Device](d, device), lookup[vk.Fence](d, fence), nil)
	d.remove(fence)
}

// WaitForFences implements driver.Driver.
func (d *Driver) WaitForFences(device driver.Handle, fences []driver.Handle) error {
	vkFences := lookupAll[vk.Fence](d, fences)
	return result(vk.WaitForFences(lookup[vk.Device](d, device), uint32(len(vkFences)), vkFences, vk.True, vk.MaxUint64))
}

// ResetFences implements driver.Driver.
func (d *Driver) ResetFences(device driver.Handle, fences []driver.Handle) error {
	vkFences := lookupAll[vk.Fence](d, fences)
	return result(vk.ResetFences(lookup[vk.Device](d, device), uint32(len(vkFences)), vkFences))
}

// FenceSignaled implements driver.Driver.
func (d *Driver) FenceSignaled(device, fence driver.Handle) (bool, error) {
	ret := vk.GetFenceStatus(lookup[vk.Device](d, device), lookup[vk.Fence](d, fence))
	if ret == vk.NotReady {
		return false, nil
	}
	if err := result(ret); err != nil {
		return false, err
	}
	return true, nil
}

// RecordDraw implements driver.Driver. The buffer is reset and recorded
// from scratch.
func (d *Driver) RecordDraw(commandBuffer driver.Handle, info driver.DrawInfo) error {
	cb := lookup[vk.CommandBuffer](d, commandBuffer)
	if err := result(vk.ResetCommandBuffer(cb, 0)); err != nil {
		return errors.Wrap(err, "vk.ResetCommandBuffer()")
	}
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := result(vk.BeginCommandBuffer(cb, &cbbi)); err != nil {
		return errors.Wrap(err, "vk.BeginCommandBuffer()")
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(info.ClearColor[:])
	extent := vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height}
	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  lookup[vk.RenderPass](d, info.RenderPass),
		Framebuffer: lookup[vk.Framebuffer](d, info.Framebuffer),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	viewport := vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{Extent: extent}

	vk.CmdBeginRenderPass(cb, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, lookup[vk.Pipeline](d, info.Pipeline))
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{scissor})
	if info.VertexBuffer != driver.NullHandle {
		vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{lookup[vk.Buffer](d, info.VertexBuffer)}, []vk.DeviceSize{0})
	}
	if info.DescriptorSet != driver.NullHandle {
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics,
			lookup[vk.PipelineLayout](d, info.PipelineLayout), 0, 1,
			[]vk.DescriptorSet{lookup[vk.DescriptorSet](d, info.DescriptorSet)}, 0, nil)
	}
	vk.CmdDraw(cb, info.VertexCount, 1, 0, 0)
	vk.CmdEndRenderPass(cb)

	if err := result(vk.EndCommandBuffer(cb)); err != nil {
		return errors.Wrap(err, "vk.EndCommandBuffer()")
	}
	return nil
}

// QueueSubmit implements driver.Driver. Every wait semaphore blocks the
// color attachment output stage.
func (d *Driver) QueueSubmit(queue driver.Handle, submit driver.SubmitInfo, fence driver.Handle) error {
	waitStages := make([]vk.PipelineStageFlags, len(submit.WaitSemaphores))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	si := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(submit.WaitSemaphores)),
		PWaitSemaphores:      lookupAll[vk.Semaphore](d, submit.WaitSemaphores),
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(submit.CommandBuffers)),
		PCommandBuffers:      lookupAll[vk.CommandBuffer](d, submit.CommandBuffers),
		SignalSemaphoreCount: uint32(len(submit.SignalSemaphores)),
		PSignalSemaphores:    lookupAll[vk.Semaphore](d, submit.SignalSemaphores),
	}}
	return result(vk.QueueSubmit(lookup[vk.Queue](d, queue), 1, si, lookup[vk.Fence](d, fence)))
}
