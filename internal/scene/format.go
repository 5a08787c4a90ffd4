package scene

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// DecodedFormat enumerates the pixel layouts a glTF image decoder can hand
// back.
type DecodedFormat int

const (
	FormatR8 DecodedFormat = iota
	FormatR8G8
	FormatR8G8B8
	FormatR8G8B8A8
	FormatR16
	FormatR16G16
	FormatR16G16B16
	FormatR16G16B16A16
	FormatR32G32B32Float
	FormatR32G32B32A32Float
)

// ErrUnsupportedFormat is a recoverable error; scene loading logs it and
// leaves the previous scene current.
var ErrUnsupportedFormat = fmt.Errorf("scene: unsupported decoded image format")

// GPUImage is the remapped, GPU-ready image payload.
type GPUImage struct {
	Bytes  []byte
	Width  uint32
	Height uint32
	Format vk.Format
}

// RemapImage maps a decoder's pixel layout to a GPU format: pass-through
// formats keep their bytes; 3-channel formats gain a 4th channel padded to
// the format's maximum representable value (0xFF, 0xFFFF, or +Inf-adjacent
// math.MaxFloat32), matching original_source's parse_image.
func RemapImage(format DecodedFormat, width, height uint32, data []byte) (GPUImage, error) {
	switch format {
	case FormatR8:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR8Unorm}, nil
	case FormatR8G8:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR8g8Unorm}, nil
	case FormatR8G8B8:
		return GPUImage{Bytes: pad8(data, 3, 0xFF), Width: width, Height: height, Format: vk.FormatR8g8b8a8Unorm}, nil
	case FormatR8G8B8A8:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR8g8b8a8Unorm}, nil
	case FormatR16:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR16Unorm}, nil
	case FormatR16G16:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR16g16Unorm}, nil
	case FormatR16G16B16:
		return GPUImage{Bytes: pad16(data, 3, 0xFFFF), Width: width, Height: height, Format: vk.FormatR16g16b16a16Unorm}, nil
	case FormatR16G16B16A16:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR16g16b16a16Unorm}, nil
	case FormatR32G32B32Float:
		return GPUImage{Bytes: pad32f(data, 3, math.MaxFloat32), Width: width, Height: height, Format: vk.FormatR32g32b32a32Sfloat}, nil
	case FormatR32G32B32A32Float:
		return GPUImage{Bytes: data, Width: width, Height: height, Format: vk.FormatR32g32b32a32Sfloat}, nil
	default:
		return GPUImage{}, ErrUnsupportedFormat
	}
}

func pad8(src []byte, channels int, fill byte) []byte {
	pixels := len(src) / channels
	out := make([]byte, 0, pixels*(channels+1))
	for i := 0; i < pixels; i++ {
		out = append(out, src[i*channels:(i+1)*channels]...)
		out = append(out, fill)
	}
	return out
}

func pad16(src []byte, channels int, fill uint16) []byte {
	const wordSize = 2
	pixels := len(src) / (channels * wordSize)
	out := make([]byte, 0, pixels*(channels+1)*wordSize)
	for i := 0; i < pixels; i++ {
		out = append(out, src[i*channels*wordSize:(i+1)*channels*wordSize]...)
		out = append(out, byte(fill), byte(fill>>8))
	}
	return out
}

func pad32f(src []byte, channels int, fill float32) []byte {
	const wordSize = 4
	bits := math.Float32bits(fill)
	fillBytes := []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
	pixels := len(src) / (channels * wordSize)
	out := make([]byte, 0, pixels*(channels+1)*wordSize)
	for i := 0; i < pixels; i++ {
		out = append(out, src[i*channels*wordSize:(i+1)*channels*wordSize]...)
		out = append(out, fillBytes...)
	}
	return out
}
