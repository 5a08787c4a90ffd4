// Package raytracer drives the compute path-tracer: per-frame uniforms,
// descriptor wiring against the current Scene, and the dispatch + barrier
// sequence.
package raytracer

import (
	"unsafe"

	"github.com/fahimhuh/nea/internal/scene"
	lin "github.com/xlab/linmath"
)

// Uniforms is the std140 buffer the compute shader reads every dispatch.
// SPEC_FULL.md §6 resolves the layout: the core block's field offsets
// (0, 16, 32, 96) sum to 160 bytes — authoritative over the summary prose's
// stated 144 — with a second, supplemented 16-byte block appended at
// offset 160 for focal_length/aperture/exposure/time (original_source's
// shaders.rs carries these but the distilled layout dropped them), for a
// total of 176 bytes.
type Uniforms struct {
	Seed    uint32
	Samples uint32
	Bounces uint32
	_pad0   uint32

	CameraPosition lin.Vec3
	_pad1          float32

	InvView lin.Mat4x4
	InvProj lin.Mat4x4

	FocalLength float32
	Aperture    float32
	Exposure    float32
	Time        float32
}

const SizeOfUniforms = 176

// Compute builds one frame's Uniforms from the current World state. seed is
// caller-supplied (a per-frame counter) since the shader's RNG is reseeded
// every dispatch rather than persisted.
func Compute(w *scene.World, seed uint32, aspectRatio, timeSeconds float32) Uniforms {
	// inv_view is the camera-to-world transform directly: rotate by the
	// camera's own orientation, then translate to its position. This is
	// already the inverse of look_to_lh(pos, rot*+Z, rot*+Y) — composing
	// translate(pos) with rot (not rot's transpose/inverse).
	var invView, rot lin.Mat4x4
	rot.FromQuat(w.Camera.Rotation)
	invView.Identity()
	invView.Translate(w.Camera.Position[0], w.Camera.Position[1], w.Camera.Position[2])
	invView.Mult(&invView, &rot)

	var proj, invProj lin.Mat4x4
	proj.Perspective(degToRad(w.Settings.FOV), aspectRatio, w.Settings.Near, w.Settings.Far)
	invProj.Invert(&proj)

	return Uniforms{
		Seed:           seed,
		Samples:        w.Settings.Samples,
		Bounces:        w.Settings.Bounces,
		CameraPosition: w.Camera.Position,
		InvView:        invView,
		InvProj:        invProj,
		FocalLength:    w.Settings.FocalLength,
		Aperture:       w.Settings.Aperture,
		Exposure:       w.Settings.Exposure,
		Time:           timeSeconds,
	}
}

func degToRad(deg float32) float32 {
	const pi = 3.14159265358979323846
	return deg * pi / 180
}

// WriteInto copies u into a mapped host-visible uniform buffer's pointer.
func (u Uniforms) WriteInto(dst unsafe.Pointer) {
	*(*Uniforms)(dst) = u
}
