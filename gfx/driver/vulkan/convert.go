// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

var formatTable = map[driver.Format]vk.Format{
	driver.FormatB8G8R8A8Unorm:      vk.FormatB8g8r8a8Unorm,
	driver.FormatB8G8R8A8Srgb:       vk.FormatB8g8r8a8Srgb,
	driver.FormatR32G32Sfloat:       vk.FormatR32g32Sfloat,
	driver.FormatR32G32B32Sfloat:    vk.FormatR32g32b32Sfloat,
	driver.FormatR32G32B32A32Sfloat: vk.FormatR32g32b32a32Sfloat,
}

func toFormat(f driver.Format) vk.Format {
	if vf, ok := formatTable[f]; ok {
		return vf
	}
	return vk.FormatUndefined
}

func fromFormat(vf vk.Format) driver.Format {
	for f, candidate := range formatTable {
		if candidate == vf {
			return f
		}
	}
	return driver.FormatUndefined
}

func memoryProperty(flags vk.MemoryPropertyFlags) driver.MemoryProperty {
	var p driver.MemoryProperty
	if flags&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) != 0 {
		p |= driver.MemoryDeviceLocal
	}
	if flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		p |= driver.MemoryHostVisible
	}
	if flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0 {
		p |= driver.MemoryHostCoherent
	}
	if flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit) != 0 {
		p |= driver.MemoryHostCached
	}
	return p
}

func bufferUsage(u driver.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u&driver.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&driver.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	if u&driver.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u&driver.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u&driver.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func shaderStage(s driver.ShaderStage) vk.ShaderStageFlagBits {
	var flags vk.ShaderStageFlagBits
	if s&driver.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if s&driver.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	return flags
}

func descriptorType(t driver.DescriptorType) vk.DescriptorType {
	if t == driver.DescriptorCombinedImageSampler {
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

func dynamicState(s driver.DynamicState) vk.DynamicState {
	if s == driver.DynamicScissor {
		return vk.DynamicStateScissor
	}
	return vk.DynamicStateViewport
}

func boolean(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
