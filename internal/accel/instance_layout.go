package accel

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

const sizeOfInstance = uint64(unsafe.Sizeof(vk.AccelerationStructureInstanceKHR{}))

// copyInstances writes the packed instance records into the mapped
// host-visible staging buffer, matching the raw-pointer memcpy pattern
// original_source uses for every staging upload.
func copyInstances(dst unsafe.Pointer, instances []vk.AccelerationStructureInstanceKHR) {
	if len(instances) == 0 {
		return
	}
	size := sizeOfInstance * uint64(len(instances))
	src := unsafe.Pointer(&instances[0])
	copy(
		unsafe.Slice((*byte)(dst), size),
		unsafe.Slice((*byte)(src), size),
	)
}
