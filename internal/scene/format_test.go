package scene

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestRemapImagePassthrough(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	gpu, err := RemapImage(FormatR8G8B8A8, 1, 1, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gpu.Format != vk.FormatR8g8b8a8Unorm {
		t.Fatalf("expected R8G8B8A8_UNORM, got %v", gpu.Format)
	}
	if len(gpu.Bytes) != len(data) {
		t.Fatalf("passthrough format must not resize the byte slice")
	}
}

func TestRemapImagePads3Channel(t *testing.T) {
	// two pixels, 3 bytes each
	data := []byte{10, 20, 30, 40, 50, 60}
	gpu, err := RemapImage(FormatR8G8B8, 2, 1, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gpu.Format != vk.FormatR8g8b8a8Unorm {
		t.Fatalf("expected padded format to be R8G8B8A8_UNORM")
	}
	want := []byte{10, 20, 30, 0xFF, 40, 50, 60, 0xFF}
	if len(gpu.Bytes) != len(want) {
		t.Fatalf("expected %d padded bytes, got %d", len(want), len(gpu.Bytes))
	}
	for i := range want {
		if gpu.Bytes[i] != want[i] {
			t.Fatalf("byte %d: want %#x got %#x", i, want[i], gpu.Bytes[i])
		}
	}
}

func TestRemapImageUnsupportedFormat(t *testing.T) {
	if _, err := RemapImage(DecodedFormat(99), 1, 1, nil); err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestChannelsToFormat(t *testing.T) {
	cases := map[int]DecodedFormat{1: FormatR8, 2: FormatR8G8, 3: FormatR8G8B8, 4: FormatR8G8B8A8}
	for channels, want := range cases {
		got, ok := channelsToFormat(channels)
		if !ok || got != want {
			t.Fatalf("channelsToFormat(%d) = %v, %v; want %v, true", channels, got, ok, want)
		}
	}
	if _, ok := channelsToFormat(5); ok {
		t.Fatalf("5 channels should be unsupported")
	}
}
