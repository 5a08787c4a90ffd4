package scene

import (
	"fmt"
	"unsafe"

	"github.com/fahimhuh/nea/internal/accel"
	"github.com/fahimhuh/nea/internal/vkcore"
	vk "github.com/vulkan-go/vulkan"
)

// MaxMaterials is the fixed capacity of the material storage buffer
//"). original_source/src/render/raytracer/
// scene.rs allocates this buffer once at a fixed size rather than growing
// it, so a scene with more materials than this is a load-time error.
const MaxMaterials = 4096

// sizeOfMaterial matches the uniform-style std140 material record
// (base_color vec4, emissive vec3+pad, roughness, metallic, pad[2]) =
// 48 bytes, mirroring shaders.rs's Material struct.
const sizeOfMaterial = 48

// Mesh is one GPU-resident mesh: its vertex/index buffers plus the BLAS
// built over them.
type Mesh struct {
	Vertices   *vkcore.Buffer
	Indices    *vkcore.Buffer
	IndexCount uint32
	BLAS       *accel.AccelerationStructure
}

// Texture is one GPU-resident decoded image.
type Texture struct {
	Image   *vkcore.Image
	View    *vkcore.ImageView
	Sampler *vkcore.Sampler
}

// Scene is the GPU-resident scene the path-tracer driver reads each frame:
// a mesh per glTF primitive, a fixed-capacity material buffer, the decoded
// textures, and a single TLAS spanning every mesh instance.
type Scene struct {
	ctx *vkcore.Context

	Meshes    []*Mesh
	Textures  []*Texture
	Materials *vkcore.Buffer
	TLAS      *accel.AccelerationStructure
}

// materialRecord is the std140 layout copied byte-for-byte into the
// material buffer; field order matches sizeOfMaterial's comment.
type materialRecord struct {
	BaseColor [4]float32
	Emissive  [3]float32
	_pad0     float32
	Roughness float32
	Metallic  float32
	_pad1     [2]float32
}

// Build uploads a decoded SceneData onto the GPU: one mesh per object (with
// its own BLAS), the material buffer, and the TLAS spanning every instance.
// Mirrors original_source/src/render/raytracer/scene.rs's build_meshes,
// which uses separate staging buffers for vertices and indices — NOT the
// raytracer.rs revision's copy-paste bug that stages both through the same
// buffer and corrupts the index data.
func Build(ctx *vkcore.Context, data *SceneData) (*Scene, error) {
	if len(data.Objects) > MaxMaterials {
		return nil, fmt.Errorf("scene: %d materials exceeds fixed capacity %d", len(data.Objects), MaxMaterials)
	}

	meshes, err := buildMeshes(ctx, data.Objects)
	if err != nil {
		return nil, err
	}

	materials, err := uploadMaterials(ctx, data.Objects)
	if err != nil {
		return nil, err
	}

	tlas, err := buildTLAS(ctx, data.Objects, meshes)
	if err != nil {
		return nil, err
	}

	textures, err := uploadTextures(ctx, data.Images)
	if err != nil {
		return nil, err
	}

	return &Scene{ctx: ctx, Meshes: meshes, Textures: textures, Materials: materials, TLAS: tlas}, nil
}

func buildMeshes(ctx *vkcore.Context, objects []ObjectData) ([]*Mesh, error) {
	meshes := make([]*Mesh, len(objects))
	descs := make([]accel.GeometryDescription, len(objects))

	for i, obj := range objects {
		vertexBytes := uint64(len(obj.Vertices)) * 4
		indexBytes := uint64(len(obj.Indices)) * 4

		vertexStaging, err := vkcore.NewBuffer(ctx, vertexBytes, vk.BufferUsageTransferSrcBit, vkcore.HostVisible, "mesh vertex staging")
		if err != nil {
			return nil, err
		}
		copyFloat32s(vertexStaging.GetPtr(), obj.Vertices)

		indexStaging, err := vkcore.NewBuffer(ctx, indexBytes, vk.BufferUsageTransferSrcBit, vkcore.HostVisible, "mesh index staging")
		if err != nil {
			vertexStaging.Destroy()
			return nil, err
		}
		copyUint32s(indexStaging.GetPtr(), obj.Indices)

		vertexBuf, err := vkcore.NewBuffer(ctx, vertexBytes,
			vk.BufferUsageTransferDstBit|vk.BufferUsageStorageBufferBit|
				vk.BufferUsageShaderDeviceAddressBit|
				vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR,
			vkcore.GPUOnly, "mesh vertices")
		if err != nil {
			vertexStaging.Destroy()
			indexStaging.Destroy()
			return nil, err
		}

		indexBuf, err := vkcore.NewBuffer(ctx, indexBytes,
			vk.BufferUsageTransferDstBit|vk.BufferUsageStorageBufferBit|
				vk.BufferUsageShaderDeviceAddressBit|
				vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKHR,
			vkcore.GPUOnly, "mesh indices")
		if err != nil {
			vertexStaging.Destroy()
			indexStaging.Destroy()
			vertexBuf.Destroy()
			return nil, err
		}

		pool, err := vkcore.NewCommandPool(ctx, ctx.QueueFamily)
		if err != nil {
			return nil, err
		}
		cmds, err := pool.Allocate()
		if err != nil {
			pool.Destroy()
			return nil, err
		}
		if err := cmds.Begin(); err != nil {
			pool.Destroy()
			return nil, err
		}
		cmds.CopyBuffer(vertexStaging, vertexBuf, vk.BufferCopy{Size: vk.DeviceSize(vertexBytes)})
		cmds.CopyBuffer(indexStaging, indexBuf, vk.BufferCopy{Size: vk.DeviceSize(indexBytes)})
		if err := cmds.End(); err != nil {
			pool.Destroy()
			return nil, err
		}

		fence, err := vkcore.NewFence(ctx, false)
		if err != nil {
			pool.Destroy()
			return nil, err
		}
		if err := ctx.Submit([]*vkcore.CommandList{cmds}, nil, nil, fence); err != nil {
			pool.Destroy()
			fence.Destroy()
			return nil, err
		}
		if err := fence.WaitAndReset(); err != nil {
			pool.Destroy()
			fence.Destroy()
			return nil, err
		}
		fence.Destroy()
		pool.Destroy()
		vertexStaging.Destroy()
		indexStaging.Destroy()

		meshes[i] = &Mesh{Vertices: vertexBuf, Indices: indexBuf, IndexCount: uint32(len(obj.Indices))}
		descs[i] = accel.GeometryDescription{
			Vertices:   vertexBuf.GetAddr(),
			Indices:    indexBuf.GetAddr(),
			MaxVertex:  uint32(len(obj.Vertices)/3) - 1,
			Primitives: uint32(len(obj.Indices)) / 3,
		}
	}

	blases, err := accel.BuildBottomLevels(ctx, descs)
	if err != nil {
		return nil, err
	}
	for i, b := range blases {
		meshes[i].BLAS = b
	}

	return meshes, nil
}

// uploadMaterials writes every object's material fields into a single
// fixed-capacity host-visible buffer sized for MaxMaterials records, even
// when fewer are used.
func uploadMaterials(ctx *vkcore.Context, objects []ObjectData) (*vkcore.Buffer, error) {
	buf, err := vkcore.NewBuffer(ctx, sizeOfMaterial*MaxMaterials,
		vk.BufferUsageStorageBufferBit, vkcore.HostVisible, "material buffer")
	if err != nil {
		return nil, err
	}

	records := make([]materialRecord, len(objects))
	for i, obj := range objects {
		records[i] = materialRecord{
			BaseColor: obj.BaseColor,
			Emissive:  obj.Emissive,
			Roughness: obj.Roughness,
			Metallic:  obj.Metallic,
		}
	}
	if len(records) > 0 {
		size := uint64(len(records)) * sizeOfMaterial
		src := unsafe.Pointer(&records[0])
		copy(unsafe.Slice((*byte)(buf.GetPtr()), size), unsafe.Slice((*byte)(src), size))
	}

	return buf, nil
}

// buildTLAS assigns each instance a custom index equal to its position in
// the object list, which is also its row in the material buffer — the
// shader reads gl_InstanceCustomIndexEXT to index materials directly
//.
func buildTLAS(ctx *vkcore.Context, objects []ObjectData, meshes []*Mesh) (*accel.AccelerationStructure, error) {
	instances := make([]accel.Instance, len(objects))
	for i, obj := range objects {
		instances[i] = accel.Instance{
			Transform:   transposeToRow3x4(obj.Transform),
			BLASAddr:    meshes[i].BLAS.Addr(),
			CustomIndex: uint32(i),
		}
	}
	return accel.BuildTopLevel(ctx, instances)
}

// transposeToRow3x4 drops glTF's column-major 4x4 into the row-major 3x4
// VkTransformMatrixKHR the acceleration-structure API expects.
func transposeToRow3x4(m [16]float32) [12]float32 {
	var out [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

func uploadTextures(ctx *vkcore.Context, images []ImageData) ([]*Texture, error) {
	textures := make([]*Texture, 0, len(images))
	for _, img := range images {
		gpu, err := RemapImage(img.Format, img.Width, img.Height, img.Bytes)
		if err != nil {
			return nil, err
		}
		tex, err := uploadTexture(ctx, gpu)
		if err != nil {
			return nil, err
		}
		textures = append(textures, tex)
	}
	return textures, nil
}

func uploadTexture(ctx *vkcore.Context, gpu GPUImage) (*Texture, error) {
	staging, err := vkcore.NewBuffer(ctx, uint64(len(gpu.Bytes)), vk.BufferUsageTransferSrcBit, vkcore.HostVisible, "texture staging")
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	copy(unsafe.Slice((*byte)(staging.GetPtr()), len(gpu.Bytes)), gpu.Bytes)

	extent := vk.Extent3D{Width: gpu.Width, Height: gpu.Height, Depth: 1}
	image, err := vkcore.NewImage(ctx, extent, gpu.Format,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit, "scene texture")
	if err != nil {
		return nil, err
	}

	pool, err := vkcore.NewCommandPool(ctx, ctx.QueueFamily)
	if err != nil {
		image.Destroy()
		return nil, err
	}
	defer pool.Destroy()
	cmds, err := pool.Allocate()
	if err != nil {
		image.Destroy()
		return nil, err
	}
	if err := cmds.Begin(); err != nil {
		image.Destroy()
		return nil, err
	}
	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTopOfPipeBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTransferBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessTransferWriteBit2KHR),
		OldLayout:        vk.ImageLayoutUndefined,
		NewLayout:        vk.ImageLayoutTransferDstOptimal,
		Image:            image.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)
	cmds.CopyToImage(staging, image, []vk.BufferImageCopy{{
		ImageSubresource: vkcore.DefaultSubresourceLayers(vk.ImageAspectColorBit),
		ImageExtent:      extent,
	}})
	cmds.PipelineBarrier([]vk.ImageMemoryBarrier2KHR{{
		SType:            vk.StructureTypeImageMemoryBarrier2KHR,
		SrcStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageTransferBit2KHR),
		SrcAccessMask:    vk.AccessFlags2KHR(vk.AccessTransferWriteBit2KHR),
		DstStageMask:     vk.PipelineStageFlags2KHR(vk.PipelineStageFragmentShaderBit2KHR),
		DstAccessMask:    vk.AccessFlags2KHR(vk.AccessShaderReadBit2KHR),
		OldLayout:        vk.ImageLayoutTransferDstOptimal,
		NewLayout:        vk.ImageLayoutShaderReadOnlyOptimal,
		Image:            image.Handle,
		SubresourceRange: vkcore.DefaultSubresource(vk.ImageAspectColorBit),
	}}, nil)
	if err := cmds.End(); err != nil {
		image.Destroy()
		return nil, err
	}

	fence, err := vkcore.NewFence(ctx, false)
	if err != nil {
		image.Destroy()
		return nil, err
	}
	defer fence.Destroy()
	if err := ctx.Submit([]*vkcore.CommandList{cmds}, nil, nil, fence); err != nil {
		image.Destroy()
		return nil, err
	}
	if err := fence.WaitAndReset(); err != nil {
		image.Destroy()
		return nil, err
	}

	view, err := vkcore.NewImageView(ctx, image, gpu.Format, vkcore.DefaultSubresource(vk.ImageAspectColorBit))
	if err != nil {
		image.Destroy()
		return nil, err
	}
	sampler, err := vkcore.NewSampler(ctx, vk.SamplerAddressModeRepeat, vk.FilterLinear)
	if err != nil {
		view.Destroy()
		image.Destroy()
		return nil, err
	}

	return &Texture{Image: image, View: view, Sampler: sampler}, nil
}

func copyFloat32s(dst unsafe.Pointer, src []float32) {
	if len(src) == 0 {
		return
	}
	size := uint64(len(src)) * 4
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), size))
}

func copyUint32s(dst unsafe.Pointer, src []uint32) {
	if len(src) == 0 {
		return
	}
	size := uint64(len(src)) * 4
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), size))
}

// Destroy tears down every GPU resource the scene owns, in dependency
// order: TLAS first (references the BLASes), then meshes (BLAS + buffers),
// then textures, then the material buffer.
func (s *Scene) Destroy() {
	if s.TLAS != nil {
		s.TLAS.Destroy()
	}
	for _, m := range s.Meshes {
		m.BLAS.Destroy()
		m.Vertices.Destroy()
		m.Indices.Destroy()
	}
	for _, t := range s.Textures {
		t.Sampler.Destroy()
		t.View.Destroy()
		t.Image.Destroy()
	}
	if s.Materials != nil {
		s.Materials.Destroy()
	}
}
