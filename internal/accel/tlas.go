package accel

import (
	"github.com/fahimhuh/nea/internal/vkcore"
	vk "github.com/vulkan-go/vulkan"
)

// Instance is one TLAS entry: a row-major 3x4 transform (the caller passes
// the column-major node transform already transposed and truncated), the
// owning BLAS's device address, and the custom index that the path-tracer
// shader reads back to index the material SSBO. Invariant: instance
// indices in the TLAS are contiguous 0..N-1 and agree with material-buffer
// row indices.
type Instance struct {
	Transform  [12]float32 // row-major 3x4
	BLASAddr   vk.DeviceAddress
	CustomIndex uint32
}

// packInstance lays out the driver's VkAccelerationStructureInstanceKHR:
// mask 0xFF, SBT record offset 0, flags 0.
func packInstance(inst Instance) vk.AccelerationStructureInstanceKHR {
	var out vk.AccelerationStructureInstanceKHR
	for i := 0; i < 12; i++ {
		out.Transform.Matrix[i/4][i%4] = inst.Transform[i]
	}
	out.InstanceCustomIndex = inst.CustomIndex
	out.Mask = 0xFF
	out.InstanceShaderBindingTableRecordOffset = 0
	out.Flags = 0
	out.AccelerationStructureReference = uint64(inst.BLASAddr)
	return out
}

// BuildTopLevel uploads the instance buffer via a host-visible staging
// buffer, describes an INSTANCES geometry over it, and builds one TLAS
//.
func BuildTopLevel(ctx *vkcore.Context, instances []Instance) (*AccelerationStructure, error) {
	packed := make([]vk.AccelerationStructureInstanceKHR, len(instances))
	for i, inst := range instances {
		packed[i] = packInstance(inst)
	}

	instanceBytes := uint64(len(packed)) * sizeOfInstance
	instanceBuffer, err := vkcore.NewBuffer(ctx, instanceBytes,
		vk.BufferUsageShaderDeviceAddressBit|vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR,
		vkcore.HostVisible, "TLAS instance buffer")
	if err != nil {
		return nil, err
	}
	defer instanceBuffer.Destroy()
	copyInstances(instanceBuffer.GetPtr(), packed)

	geometryData := vk.AccelerationStructureGeometryInstancesDataKHR{
		SType:       vk.StructureTypeAccelerationStructureGeometryInstancesDataKHR,
		ArrayOfPointers: vk.False,
		Data:        vk.DeviceOrHostAddressConstKHR{DeviceAddress: instanceBuffer.GetAddr()},
	}
	geometry := vk.AccelerationStructureGeometryKHR{
		SType:        vk.StructureTypeAccelerationStructureGeometryKHR,
		GeometryType: vk.GeometryTypeInstancesKHR,
	}
	geometry.Geometry.SetInstances(geometryData)

	buildInfo := vk.AccelerationStructureBuildGeometryInfoKHR{
		SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfoKHR,
		Type:          vk.AccelerationStructureTypeTopLevelKHR,
		Mode:          vk.BuildAccelerationStructureModeBuildKHR,
		Flags:         vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastTraceBitKHR),
		GeometryCount: 1,
		PGeometries:   []vk.AccelerationStructureGeometryKHR{geometry},
	}

	count := uint32(len(packed))
	var sizeInfo vk.AccelerationStructureBuildSizesInfoKHR
	sizeInfo.SType = vk.StructureTypeAccelerationStructureBuildSizesInfoKHR
	vk.GetAccelerationStructureBuildSizesKHR(ctx.Device, vk.AccelerationStructureBuildTypeHostKHR, &buildInfo, []uint32{count}, &sizeInfo)
	sizeInfo.Deref()

	storage, err := vkcore.NewBuffer(ctx, uint64(sizeInfo.AccelerationStructureSize),
		vk.BufferUsageAccelerationStructureStorageBitKHR|vk.BufferUsageShaderDeviceAddressBit,
		vkcore.GPUOnly, "TLAS storage")
	if err != nil {
		return nil, err
	}

	scratch, err := vkcore.NewBuffer(ctx, uint64(sizeInfo.BuildScratchSize),
		vk.BufferUsageShaderDeviceAddressBit|vk.BufferUsageStorageBufferBit,
		vkcore.GPUOnly, "TLAS build scratch buffer")
	if err != nil {
		storage.Destroy()
		return nil, err
	}
	defer scratch.Destroy()

	createInfo := vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKHR,
		Buffer: storage.Handle,
		Offset: 0,
		Size:   sizeInfo.AccelerationStructureSize,
		Type:   vk.AccelerationStructureTypeTopLevelKHR,
	}
	var handle vk.AccelerationStructureKHR
	if err := vkcore.CheckResult(vk.CreateAccelerationStructureKHR(ctx.Device, &createInfo, nil, &handle)); err != nil {
		storage.Destroy()
		return nil, err
	}

	buildInfo.DstAccelerationStructure = handle
	buildInfo.ScratchData = vk.DeviceOrHostAddressKHR{DeviceAddress: scratch.GetAddr()}

	pool, err := vkcore.NewCommandPool(ctx, ctx.QueueFamily)
	if err != nil {
		storage.Destroy()
		return nil, err
	}
	defer pool.Destroy()

	fence, err := vkcore.NewFence(ctx, false)
	if err != nil {
		storage.Destroy()
		return nil, err
	}
	defer fence.Destroy()

	cmds, err := pool.Allocate()
	if err != nil {
		storage.Destroy()
		return nil, err
	}
	if err := cmds.Begin(); err != nil {
		storage.Destroy()
		return nil, err
	}
	cmds.BuildAccelerationStructures(
		[]vk.AccelerationStructureBuildGeometryInfoKHR{buildInfo},
		[][]vk.AccelerationStructureBuildRangeInfoKHR{{{PrimitiveCount: count}}},
	)
	if err := cmds.End(); err != nil {
		storage.Destroy()
		return nil, err
	}
	if err := ctx.Submit([]*vkcore.CommandList{cmds}, nil, nil, fence); err != nil {
		storage.Destroy()
		return nil, err
	}
	if err := fence.WaitAndReset(); err != nil {
		storage.Destroy()
		return nil, err
	}

	return &AccelerationStructure{ctx: ctx, Handle: handle, Buffer: storage}, nil
}
