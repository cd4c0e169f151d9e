// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package driver declares the explicit graphics API surface consumed by the
// renderer core. Native objects are referred to by opaque handles issued by
// a Driver; the core never sees the underlying API types.
package driver

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Handle is an opaque native object identifier issued by a Driver.
type Handle uint64

// NullHandle refers to no object.
const NullHandle Handle = 0

// Errors a Driver reports for conditions the caller has to tell apart.
var (
	// ErrDeviceLost is returned by waits and submissions once the device
	// is no longer usable.
	ErrDeviceLost = errors.New("device lost")

	// ErrOutOfDate is returned by image acquisition and presentation when
	// the swapchain no longer matches the surface.
	ErrOutOfDate = errors.New("swapchain out of date")
)

// MemoryProperty describes memory type capabilities.
type MemoryProperty uint32

// Memory properties.
const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
)

// HostWritable is the set of properties required for mapped writes.
const HostWritable = MemoryHostVisible | MemoryHostCoherent

// Has reports whether all of want is present in p.
func (p MemoryProperty) Has(want MemoryProperty) bool {
	return p&want == want
}

// BufferUsage describes how a buffer is going to be used.
type BufferUsage uint32

// Buffer usages.
const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniform
	BufferUsageIndex
	BufferUsageVertex
)

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage uint32

// Shader stages.
const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

// DescriptorType identifies a kind of descriptor binding.
type DescriptorType uint32

// Descriptor types.
const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorCombinedImageSampler
)

// Format is a pixel or vertex attribute format.
type Format uint32

// Formats the core knows by name.
const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR32G32Sfloat
	FormatR32G32B32Sfloat
	FormatR32G32B32A32Sfloat
)

// DynamicState is pipeline state supplied at record time.
type DynamicState uint32

// Dynamic states.
const (
	DynamicViewport DynamicState = iota
	DynamicScissor
)

// MemoryType is one memory type exposed by a physical device.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// MemoryRequirements describes what an object needs to be bound to memory.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// PhysicalDevice describes a device able to run the renderer.
type PhysicalDevice struct {
	Handle      Handle
	Name        string
	VendorID    int
	DeviceID    int
	Extensions  []string
	QueueFamily int // graphics capable family, -1 when none
	MemoryTypes []MemoryType
	Memory      uint64
}

// Extent2D is a size in pixels.
type Extent2D struct {
	Width, Height uint32
}

// InstanceInfo configures instance creation.
type InstanceInfo struct {
	ApplicationName string
	EngineName      string
	Extensions      []string
	Layers          []string

	// Debug installs a debug callback forwarding layer messages to Messages.
	Debug    bool
	Messages func(Message)
}

// Severity of a debug message.
type Severity int

// Severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityPerformance
	SeverityError
)

// Message is a validation layer report.
type Message struct {
	Severity Severity
	Layer    string
	Code     int32
	Text     string
}

// DeviceInfo configures logical device creation.
type DeviceInfo struct {
	QueueFamily uint32
	Extensions  []string
}

// DescriptorBinding is one binding in a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

// VertexBinding describes one vertex buffer binding.
type VertexBinding struct {
	Binding uint32
	Stride  uint32
}

// VertexAttribute describes one vertex shader input.
type VertexAttribute struct {
	Binding  uint32
	Location uint32
	Format   Format
	Offset   uint32
}

// PipelineStage is one programmable stage of a graphics pipeline.
type PipelineStage struct {
	Stage  ShaderStage
	Module Handle
	Entry  string
}

// GraphicsPipelineInfo is the complete fixed configuration of a pipeline.
type GraphicsPipelineInfo struct {
	Stages           []PipelineStage
	VertexBindings   []VertexBinding
	VertexAttributes []VertexAttribute
	CullBack         bool
	FrontFaceCCW     bool
	LineWidth        float32
	Samples          uint32
	BlendEnable      bool
	DynamicStates    []DynamicState
	Layout           Handle
	RenderPass       Handle
	Subpass          uint32
}

// SwapchainInfo configures swapchain creation.
type SwapchainInfo struct {
	Surface   Handle
	MinImages uint32
	Extent    Extent2D
	Old       Handle
}

// Swapchain describes a created swapchain.
type Swapchain struct {
	Handle Handle
	Format Format
	Extent Extent2D
	Images []Handle
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	WaitSemaphores   []Handle
	CommandBuffers   []Handle
	SignalSemaphores []Handle
}

// DrawInfo is the content recorded into a command buffer for one frame.
type DrawInfo struct {
	RenderPass     Handle
	Framebuffer    Handle
	Extent         Extent2D
	ClearColor     [4]float32
	Pipeline       Handle
	PipelineLayout Handle
	DescriptorSet  Handle
	VertexBuffer   Handle
	VertexCount    uint32
}

// Driver is the explicit graphics API. Implementations are not required to
// be safe for concurrent use; the renderer drives them from one goroutine.
type Driver interface {
	LayerAvailable(name string) bool
	CreateInstance(info InstanceInfo) (Handle, error)
	DestroyInstance(instance Handle)
	PhysicalDevices(instance Handle) ([]PhysicalDevice, error)

	// SurfaceFromPointer adopts a window surface created by the windowing system.
	SurfaceFromPointer(instance Handle, surface unsafe.Pointer) Handle
	DestroySurface(instance, surface Handle)

	CreateDevice(physical Handle, info DeviceInfo) (Handle, error)
	DestroyDevice(device Handle)
	DeviceQueue(device Handle, family uint32) Handle
	DeviceWaitIdle(device Handle) error

	CreateCommandPool(device Handle, family uint32) (Handle, error)
	DestroyCommandPool(device, pool Handle)
	AllocateCommandBuffers(device, pool Handle, count int) ([]Handle, error)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)

	CreateSemaphore(device Handle) (Handle, error)
	DestroySemaphore(device, semaphore Handle)
	CreateFence(device Handle, signaled bool) (Handle, error)
	DestroyFence(device, fence Handle)
	// WaitForFences blocks until every fence is signaled. There is no timeout.
	WaitForFences(device Handle, fences []Handle) error
	ResetFences(device Handle, fences []Handle) error
	FenceSignaled(device, fence Handle) (bool, error)

	CreateBuffer(device Handle, size uint64, usage BufferUsage) (Handle, error)
	BufferMemoryRequirements(device, buffer Handle) MemoryRequirements
	DestroyBuffer(device, buffer Handle)
	AllocateMemory(device Handle, size uint64, typeIndex uint32) (Handle, error)
	FreeMemory(device, memory Handle)
	BindBufferMemory(device, buffer, memory Handle, offset uint64) error
	// MapMemory returns a byte view of the mapped range, valid until UnmapMemory.
	MapMemory(device, memory Handle, offset, size uint64) ([]byte, error)
	UnmapMemory(device, memory Handle)

	CreateShaderModule(device Handle, code []byte) (Handle, error)
	DestroyShaderModule(device, module Handle)
	CreateDescriptorSetLayout(device Handle, bindings []DescriptorBinding) (Handle, error)
	DestroyDescriptorSetLayout(device, layout Handle)
	CreateDescriptorPool(device Handle, uniformBuffers, maxSets uint32) (Handle, error)
	DestroyDescriptorPool(device, pool Handle)
	AllocateDescriptorSet(device, pool, layout Handle) (Handle, error)
	UpdateUniformDescriptor(device, set Handle, binding uint32, buffer Handle, size uint64)
	CreatePipelineLayout(device Handle, setLayouts []Handle) (Handle, error)
	DestroyPipelineLayout(device, layout Handle)
	CreateGraphicsPipeline(device Handle, info GraphicsPipelineInfo) (Handle, error)
	DestroyPipeline(device, pipeline Handle)
	CreateRenderPass(device Handle, format Format) (Handle, error)
	DestroyRenderPass(device, renderPass Handle)

	CreateSwapchain(device, physical Handle, info SwapchainInfo) (Swapchain, error)
	DestroySwapchain(device, swapchain Handle)
	CreateImageView(device, image Handle, format Format) (Handle, error)
	DestroyImageView(device, view Handle)
	CreateFramebuffer(device, renderPass, view Handle, extent Extent2D) (Handle, error)
	DestroyFramebuffer(device, framebuffer Handle)
	AcquireNextImage(device, swapchain, semaphore Handle) (uint32, error)

	RecordDraw(commandBuffer Handle, info DrawInfo) error
	QueueSubmit(queue Handle, submit SubmitInfo, fence Handle) error
	QueuePresent(queue, swapchain Handle, imageIndex uint32, wait Handle) error
}
