// Package vkcore is the RAII layer over the Vulkan driver: device/queue/
// allocator lifecycle, the submission gateway, and the resource and command
// wrappers every other package in this module builds on.
package vkcore

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
	"github.com/rs/zerolog"
)

// Surface is satisfied by whatever owns the native window; cmd/nea wires a
// glfw.Window through it. Window creation and the event pump are external
// collaborators — Context only needs a raw VkSurfaceKHR.
type Surface interface {
	CreateWindowSurface(instance vk.Instance) (vk.Surface, error)
	RequiredInstanceExtensions() []string
}

// Context owns the driver entry, instance, chosen physical device, logical
// device, a single graphics-capable queue, and a mutex-guarded allocator.
// Lifetime is process-long; every resource in this module holds a pointer
// back to its owning Context and releases its own driver handle on Destroy.
type Context struct {
	Instance       vk.Instance
	Physical       vk.PhysicalDevice
	Device         vk.Device
	Queue          vk.Queue
	QueueFamily    uint32
	MemProps       vk.PhysicalDeviceMemoryProperties
	Log            zerolog.Logger
	allocatorMu    sync.Mutex
	debugCallback  vk.DebugReportCallback
	validation     bool
}

// requiredDeviceExtensions: dynamic rendering, synchronization-2,
// buffer-device-address (+capture-replay), acceleration structure
// (+capture-replay), ray query, ray-tracing-position-fetch.
var requiredDeviceExtensions = []string{
	"VK_KHR_swapchain",
	"VK_KHR_dynamic_rendering",
	"VK_KHR_synchronization2",
	"VK_KHR_buffer_device_address",
	"VK_KHR_acceleration_structure",
	"VK_KHR_deferred_host_operations",
	"VK_KHR_ray_query",
	"VK_KHR_ray_tracing_position_fetch",
}

var wantedValidationLayers = []string{
	"VK_LAYER_KHRONOS_validation",
}

// NewContext initializes the driver: creates an instance with the
// platform's surface extensions (plus the portability enumeration flag on
// macOS), picks the first enumerated physical device, chooses the first
// queue family advertising graphics, and enables the feature chain above.
// Queue priority is fixed at 1.0 — there is exactly one queue.
func NewContext(surface Surface, appName string, enableValidation bool, log zerolog.Logger) (ctx *Context, surf vk.Surface, err error) {
	defer checkErr(&err)

	instExt := NewInstanceExtensions(surface.RequiredInstanceExtensions(), nil)
	layers := []string{}
	if enableValidation {
		layerSet := NewLayerExtensions(wantedValidationLayers)
		layers = layerSet.GetExtensions()
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "nea\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion13,
	}

	instCreate := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(instExt.actual)),
		PpEnabledExtensionNames: instExt.actual,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		Flags:                   instanceCreateFlags(),
	}

	var instance vk.Instance
	orPanic(check(vk.CreateInstance(&instCreate, nil, &instance)))
	vk.InitInstance(instance)

	var gpuCount uint32
	orPanic(check(vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)))
	if gpuCount == 0 {
		orPanic(&Error{Caller: "NewContext: no physical devices enumerated"})
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	orPanic(check(vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)))
	physical := gpus[0]

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &memProps)
	memProps.Deref()

	var vkSurface vk.Surface
	vkSurface, err = surface.CreateWindowSurface(instance)
	orPanic(err)

	var famCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &famCount, nil)
	families := make([]vk.QueueFamilyProperties, famCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &famCount, families)

	queueFamily := uint32(0)
	found := false
	for i, fam := range families {
		fam.Deref()
		if fam.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			queueFamily = uint32(i)
			found = true
			break
		}
	}
	if !found {
		orPanic(&Error{Caller: "NewContext: no graphics-capable queue family"})
	}

	priority := float32(1.0)
	queueCreate := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}

	devExt := NewDeviceExtensions(requiredDeviceExtensions, nil, physical)

	vk12 := vk.PhysicalDeviceVulkan12Features{
		SType:                           vk.StructureTypePhysicalDeviceVulkan12Features,
		BufferDeviceAddress:             vk.True,
		BufferDeviceAddressCaptureReplay: vk.True,
	}
	vk13 := vk.PhysicalDeviceVulkan13Features{
		SType:             vk.StructureTypePhysicalDeviceVulkan13Features,
		PNext:             unsafePointer(&vk12),
		DynamicRendering:  vk.True,
		Synchronization2:  vk.True,
	}
	asFeatures := vk.PhysicalDeviceAccelerationStructureFeaturesKHR{
		SType:                                                 vk.StructureTypePhysicalDeviceAccelerationStructureFeaturesKHR,
		PNext:                                                 unsafePointer(&vk13),
		AccelerationStructure:                                 vk.True,
		AccelerationStructureCaptureReplay:                    vk.True,
	}
	rqFeatures := vk.PhysicalDeviceRayQueryFeaturesKHR{
		SType:    vk.StructureTypePhysicalDeviceRayQueryFeaturesKHR,
		PNext:    unsafePointer(&asFeatures),
		RayQuery: vk.True,
	}
	posFetch := vk.PhysicalDeviceRayTracingPositionFetchFeaturesKHR{
		SType:                     vk.StructureTypePhysicalDeviceRayTracingPositionFetchFeaturesKHR,
		PNext:                     unsafePointer(&rqFeatures),
		RayTracingPositionFetch:   vk.True,
	}

	devCreate := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafePointer(&posFetch),
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueCreate},
		EnabledExtensionCount:   uint32(len(devExt.GetExtensions())),
		PpEnabledExtensionNames: devExt.GetExtensions(),
	}

	var device vk.Device
	orPanic(check(vk.CreateDevice(physical, &devCreate, nil, &device)))
	vk.InitDevice(instance, physical, device, vk.DefaultGetInstanceProcAddr())

	var queue vk.Queue
	vk.GetDeviceQueue(device, queueFamily, 0, &queue)

	ctx = &Context{
		Instance:    instance,
		Physical:    physical,
		Device:      device,
		Queue:       queue,
		QueueFamily: queueFamily,
		MemProps:    memProps,
		Log:         log,
		validation:  enableValidation,
	}
	return ctx, vkSurface, nil
}

// Submit is the single submission gateway: an ordered list of command
// lists, an optional wait semaphore, an optional signal semaphore, and an
// optional completion fence. Single-queue single-batch, wait-mask =
// ALL_COMMANDS.
func (c *Context) Submit(cmds []*CommandList, wait, signal *Semaphore, fence *Fence) error {
	handles := make([]vk.CommandBuffer, len(cmds))
	for i, cl := range cmds {
		handles[i] = cl.handle
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(handles)),
		PCommandBuffers:    handles,
	}

	waitStage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	if wait != nil {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{wait.handle}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{waitStage}
	}
	if signal != nil {
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{signal.handle}
	}

	fenceHandle := vk.Fence(vk.NullHandle)
	if fence != nil {
		fenceHandle = fence.handle
	}

	return check(vk.QueueSubmit(c.Queue, 1, []vk.SubmitInfo{submit}, fenceHandle))
}

// WaitIdle blocks until all work on the device's queues has completed. At
// teardown cmd/nea calls it before any resource releases its driver handle,
// and Destroy calls it once more; it is also called (per DESIGN.md's
// decision on §9(c)) before a scene swap.
func (c *Context) WaitIdle() error {
	return check(vk.DeviceWaitIdle(c.Device))
}

// Destroy tears the context down in order: wait idle, drop allocator
// (no-op here — the allocator is a thin mutex, not a suballocator with its
// own driver resources), destroy device, destroy instance.
func (c *Context) Destroy() {
	_ = c.WaitIdle()
	vk.DestroyDevice(c.Device, nil)
	vk.DestroyInstance(c.Instance, nil)
}

// lockAllocator serializes allocations through the context: NewBuffer and
// NewImage hold it while they create, allocate and bind. Buffer.Destroy and
// Image.Destroy free their memory without taking it.
func (c *Context) lockAllocator() func() {
	c.allocatorMu.Lock()
	return c.allocatorMu.Unlock
}
