package raytracer

import (
	"math"
	"testing"
	"unsafe"

	"github.com/fahimhuh/nea/internal/scene"
	lin "github.com/xlab/linmath"
)

func TestUniformsSizeMatchesWireLayout(t *testing.T) {
	if got := unsafe.Sizeof(Uniforms{}); got != SizeOfUniforms {
		t.Fatalf("Uniforms struct is %d bytes, want %d", got, SizeOfUniforms)
	}
}

// TestComputeInvViewComposesTranslateThenRotate pins inv_view to
// translate(pos) * rot with a 90-degree rotation, where rot differs from
// its own transpose/inverse — a regression guard against composing
// rot's inverse (or rot * translate(-pos)) instead, which a previous
// version of this function did and which only an identity rotation fails
// to expose.
func TestComputeInvViewComposesTranslateThenRotate(t *testing.T) {
	w := scene.NewWorld()
	w.Camera.Position = lin.Vec3{1, 2, 3}
	half := float32(math.Sqrt2 / 2)
	w.Camera.Rotation = lin.Quat{0, half, 0, half} // 90 degrees about +Y

	u := Compute(w, 1, 1.0, 0)

	var want, rot lin.Mat4x4
	rot.FromQuat(w.Camera.Rotation)
	want.Identity()
	want.Translate(w.Camera.Position[0], w.Camera.Position[1], w.Camera.Position[2])
	want.Mult(&want, &rot)

	if u.InvView != want {
		t.Fatalf("inv_view must be translate(pos) composed with rot (camera-to-world), got %+v, want %+v", u.InvView, want)
	}
}

func TestUniformsSupplementedBlockOffset(t *testing.T) {
	var u Uniforms
	base := unsafe.Pointer(&u)
	got := uintptr(unsafe.Pointer(&u.FocalLength)) - uintptr(base)
	if got != 160 {
		t.Fatalf("FocalLength must start at byte 160 (the supplemented block), got %d", got)
	}
}
