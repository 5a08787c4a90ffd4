// Package accel builds bottom- and top-level acceleration structures
//, grounded on original_source's vulkan/rt.rs and the scene
// package's TLAS instance packing (render/raytracer/scene.rs).
package accel

import (
	"github.com/fahimhuh/nea/internal/vkcore"
	vk "github.com/vulkan-go/vulkan"
)

// GeometryDescription is one mesh's triangle geometry by device address.
type GeometryDescription struct {
	Vertices   vk.DeviceAddress
	Indices    vk.DeviceAddress
	MaxVertex  uint32
	Primitives uint32
}

// AccelerationStructure owns a driver handle plus its backing buffer
//.
type AccelerationStructure struct {
	ctx    *vkcore.Context
	Handle vk.AccelerationStructureKHR
	Buffer *vkcore.Buffer
}

func (a *AccelerationStructure) Destroy() {
	vk.DestroyAccelerationStructureKHR(a.ctx.Device, a.Handle, nil)
	a.Buffer.Destroy()
}

// Addr returns the acceleration structure's device address, used to fill
// TLAS instance records.
func (a *AccelerationStructure) Addr() vk.DeviceAddress {
	info := vk.AccelerationStructureDeviceAddressInfoKHR{
		SType:                  vk.StructureTypeAccelerationStructureDeviceAddressInfoKHR,
		AccelerationStructure:  a.Handle,
	}
	return vk.GetAccelerationStructureDeviceAddressKHR(a.ctx.Device, &info)
}

type blasBuild struct {
	sizeInfo  vk.AccelerationStructureBuildSizesInfoKHR
	buildInfo vk.AccelerationStructureBuildGeometryInfoKHR
	rangeInfo vk.AccelerationStructureBuildRangeInfoKHR
}

// BuildBottomLevels builds one BLAS per geometry description, sharing a
// single scratch buffer sized to the max build-scratch size across the
// batch — serial host-wait per build; pipelining is out
// of scope).
func BuildBottomLevels(ctx *vkcore.Context, descs []GeometryDescription) ([]*AccelerationStructure, error) {
	builds := make([]blasBuild, len(descs))
	var scratchSize vk.DeviceSize

	for i, desc := range descs {
		triangles := vk.AccelerationStructureGeometryTrianglesDataKHR{
			SType:        vk.StructureTypeAccelerationStructureGeometryTrianglesDataKHR,
			VertexFormat: vk.FormatR32g32b32Sfloat,
			VertexData:   vk.DeviceOrHostAddressConstKHR{DeviceAddress: desc.Vertices},
			VertexStride: vk.DeviceSize(4 * 3),
			MaxVertex:    desc.MaxVertex,
			IndexType:    vk.IndexTypeUint32,
			IndexData:    vk.DeviceOrHostAddressConstKHR{DeviceAddress: desc.Indices},
		}

		geometry := vk.AccelerationStructureGeometryKHR{
			SType:       vk.StructureTypeAccelerationStructureGeometryKHR,
			GeometryType: vk.GeometryTypeTrianglesKHR,
			Flags:       vk.GeometryFlagsKHR(vk.GeometryOpaqueBitKHR),
		}
		geometry.Geometry.SetTriangles(triangles)

		rangeInfo := vk.AccelerationStructureBuildRangeInfoKHR{
			PrimitiveCount:  desc.Primitives,
			PrimitiveOffset: 0,
			FirstVertex:     0,
			TransformOffset: 0,
		}

		buildInfo := vk.AccelerationStructureBuildGeometryInfoKHR{
			SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfoKHR,
			Type:          vk.AccelerationStructureTypeBottomLevelKHR,
			Mode:          vk.BuildAccelerationStructureModeBuildKHR,
			Flags:         vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastTraceBitKHR) | vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructureAllowDataAccessBitKHR),
			GeometryCount: 1,
			PGeometries:   []vk.AccelerationStructureGeometryKHR{geometry},
		}

		var sizeInfo vk.AccelerationStructureBuildSizesInfoKHR
		sizeInfo.SType = vk.StructureTypeAccelerationStructureBuildSizesInfoKHR
		vk.GetAccelerationStructureBuildSizesKHR(ctx.Device, vk.AccelerationStructureBuildTypeHostKHR, &buildInfo, []uint32{desc.Primitives}, &sizeInfo)
		sizeInfo.Deref()

		builds[i] = blasBuild{sizeInfo: sizeInfo, buildInfo: buildInfo, rangeInfo: rangeInfo}
		if sizeInfo.BuildScratchSize > scratchSize {
			scratchSize = sizeInfo.BuildScratchSize
		}
	}

	scratch, err := vkcore.NewBuffer(ctx, uint64(scratchSize),
		vk.BufferUsageShaderDeviceAddressBit|vk.BufferUsageStorageBufferBit,
		vkcore.GPUOnly, "BLAS build scratch buffer")
	if err != nil {
		return nil, err
	}
	defer scratch.Destroy()

	pool, err := vkcore.NewCommandPool(ctx, ctx.QueueFamily)
	if err != nil {
		return nil, err
	}
	defer pool.Destroy()

	fence, err := vkcore.NewFence(ctx, false)
	if err != nil {
		return nil, err
	}
	defer fence.Destroy()

	out := make([]*AccelerationStructure, len(builds))

	for i := range builds {
		build := &builds[i]

		storage, err := vkcore.NewBuffer(ctx, uint64(build.sizeInfo.AccelerationStructureSize),
			vk.BufferUsageAccelerationStructureStorageBitKHR|vk.BufferUsageShaderDeviceAddressBit,
			vkcore.GPUOnly, "BLAS storage")
		if err != nil {
			return nil, err
		}

		createInfo := vk.AccelerationStructureCreateInfoKHR{
			SType:  vk.StructureTypeAccelerationStructureCreateInfoKHR,
			Buffer: storage.Handle,
			Offset: 0,
			Size:   build.sizeInfo.AccelerationStructureSize,
			Type:   vk.AccelerationStructureTypeBottomLevelKHR,
		}
		var handle vk.AccelerationStructureKHR
		if err := vkcore.CheckResult(vk.CreateAccelerationStructureKHR(ctx.Device, &createInfo, nil, &handle)); err != nil {
			return nil, err
		}

		build.buildInfo.DstAccelerationStructure = handle
		build.buildInfo.ScratchData = vk.DeviceOrHostAddressKHR{DeviceAddress: scratch.GetAddr()}

		cmds, err := pool.Allocate()
		if err != nil {
			return nil, err
		}
		if err := cmds.Begin(); err != nil {
			return nil, err
		}
		cmds.BuildAccelerationStructures(
			[]vk.AccelerationStructureBuildGeometryInfoKHR{build.buildInfo},
			[][]vk.AccelerationStructureBuildRangeInfoKHR{{build.rangeInfo}},
		)
		cmds.PipelineBarrier(nil, []vk.MemoryBarrier2KHR{{
			SType:           vk.StructureTypeMemoryBarrier2KHR,
			SrcStageMask:    vk.PipelineStageFlags2KHR(vk.PipelineStageAccelerationStructureBuildBit2KHR),
			SrcAccessMask:   vk.AccessFlags2KHR(vk.AccessAccelerationStructureWriteBit2KHR),
			DstStageMask:    vk.PipelineStageFlags2KHR(vk.PipelineStageAccelerationStructureBuildBit2KHR),
			DstAccessMask:   vk.AccessFlags2KHR(vk.AccessAccelerationStructureReadBit2KHR),
		}})
		if err := cmds.End(); err != nil {
			return nil, err
		}
		if err := ctx.Submit([]*vkcore.CommandList{cmds}, nil, nil, fence); err != nil {
			return nil, err
		}
		if err := fence.WaitAndReset(); err != nil {
			return nil, err
		}

		out[i] = &AccelerationStructure{ctx: ctx, Handle: handle, Buffer: storage}
	}

	return out, nil
}
