package accel

import (
	"testing"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func TestPackInstanceFields(t *testing.T) {
	inst := Instance{
		Transform:   [12]float32{1, 0, 0, 1, 0, 1, 0, 2, 0, 0, 1, 3},
		BLASAddr:    0xDEADBEEF,
		CustomIndex: 7,
	}
	packed := packInstance(inst)

	if packed.InstanceCustomIndex != 7 {
		t.Fatalf("expected custom index 7, got %d", packed.InstanceCustomIndex)
	}
	if packed.Mask != 0xFF {
		t.Fatalf("expected mask 0xFF, got %#x", packed.Mask)
	}
	if packed.AccelerationStructureReference != 0xDEADBEEF {
		t.Fatalf("expected AS reference 0xDEADBEEF, got %#x", packed.AccelerationStructureReference)
	}
	if packed.Transform.Matrix[2][3] != 3 {
		t.Fatalf("expected row 2 translation column to be 3, got %v", packed.Transform.Matrix[2][3])
	}
}

func TestCopyInstancesRoundTrip(t *testing.T) {
	instances := []vk.AccelerationStructureInstanceKHR{
		packInstance(Instance{CustomIndex: 1, BLASAddr: 10}),
		packInstance(Instance{CustomIndex: 2, BLASAddr: 20}),
	}

	buf := make([]byte, sizeOfInstance*uint64(len(instances)))
	copyInstances(unsafe.Pointer(&buf[0]), instances)

	roundTripped := unsafe.Slice((*vk.AccelerationStructureInstanceKHR)(unsafe.Pointer(&buf[0])), len(instances))
	if roundTripped[0].InstanceCustomIndex != 1 || roundTripped[1].InstanceCustomIndex != 2 {
		t.Fatalf("copyInstances did not round-trip the custom indices: %+v", roundTripped)
	}
}

func TestCopyInstancesEmptyIsNoop(t *testing.T) {
	// must not panic on a nil slice
	copyInstances(unsafe.Pointer(&[1]byte{}[0]), nil)
}
