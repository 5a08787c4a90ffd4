package vkcore

import (
	"runtime"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// instanceExtensions enumerates the instance extensions the driver actually
// offers, via the classic two-call count-then-fill pattern.
func instanceExtensions() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func deviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func validationLayers() ([]string, error) {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].LayerName[:]))
	}
	return names, nil
}

// extensionSet negotiates a wanted/required extension list against what the
// driver actually reports (HasRequired/HasWanted/GetExtensions), shared by
// instance extensions, device extensions, and validation layers instead of
// three near-identical copies.
type extensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

func (e *extensionSet) HasRequired() (bool, []string) {
	return e.has(e.required)
}

func (e *extensionSet) HasWanted() (bool, []string) {
	return e.has(e.wanted)
}

func (e *extensionSet) has(list []string) (bool, []string) {
	missing := []string{}
	for _, want := range list {
		found := false
		for _, got := range e.actual {
			if want == got {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return len(missing) == 0, missing
}

// GetExtensions returns the extensions to actually enable: every required
// one, plus every wanted one the driver supports that isn't already
// required.
func (e *extensionSet) GetExtensions() []string {
	out := append([]string{}, e.required...)
	for _, want := range e.wanted {
		already := false
		for _, req := range e.required {
			if want == req {
				already = true
				break
			}
		}
		if already {
			continue
		}
		for _, got := range e.actual {
			if want == got {
				out = append(out, want)
				break
			}
		}
	}
	return out
}

func NewInstanceExtensions(wanted, required []string) *extensionSet {
	actual, _ := instanceExtensions()
	return &extensionSet{wanted: wanted, required: required, actual: actual}
}

func NewDeviceExtensions(wanted, required []string, gpu vk.PhysicalDevice) *extensionSet {
	actual, _ := deviceExtensions(gpu)
	return &extensionSet{wanted: wanted, required: required, actual: actual}
}

func NewLayerExtensions(wanted []string) *extensionSet {
	actual, _ := validationLayers()
	return &extensionSet{wanted: wanted, actual: actual}
}

// instanceCreateFlags sets the portability-enumeration bit on macOS, where
// MoltenVK exposes Vulkan only through the portability subset (core.go's
// PlatformOS == "Darwin" branch).
func instanceCreateFlags() vk.InstanceCreateFlags {
	if runtime.GOOS == "darwin" {
		return vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}
	return 0
}

func unsafePointer(p interface{}) unsafe.Pointer {
	switch v := p.(type) {
	case *vk.PhysicalDeviceVulkan12Features:
		return unsafe.Pointer(v)
	case *vk.PhysicalDeviceVulkan13Features:
		return unsafe.Pointer(v)
	case *vk.PhysicalDeviceAccelerationStructureFeaturesKHR:
		return unsafe.Pointer(v)
	case *vk.PhysicalDeviceRayQueryFeaturesKHR:
		return unsafe.Pointer(v)
	case *vk.PhysicalDeviceRayTracingPositionFetchFeaturesKHR:
		return unsafe.Pointer(v)
	default:
		return nil
	}
}
