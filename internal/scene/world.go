// Package scene holds the CPU-resident World (camera + render settings),
// the concurrent glTF scene loader, and the GPU-resident Scene the
// path-tracer driver reads each frame.
package scene

import lin "github.com/xlab/linmath"

// Camera is the CPU-resident camera pose: position and rotation quaternion
//.
type Camera struct {
	Position lin.Vec3
	Rotation lin.Quat
}

// RenderSettings mirrors original_source's World::new defaults (fov/near/
// far/focal_length/aperture/exposure/samples/bounces), supplemented into
// the uniform layout per SPEC_FULL.md §6.
type RenderSettings struct {
	FOV         float32
	Near        float32
	Far         float32
	FocalLength float32
	Aperture    float32
	Exposure    float32
	Samples     uint32
	Bounces     uint32
}

// World is the CPU-resident camera pose and render settings, mutated by
// input handling and read by the path-tracer each frame.
type World struct {
	Camera   Camera
	Settings RenderSettings
}

// NewWorld mirrors original_source/src/world.rs's World::new defaults.
func NewWorld() *World {
	return &World{
		Camera: Camera{
			Position: lin.Vec3{0, 0, -4},
			Rotation: lin.Quat{0, 0, 0, 1},
		},
		Settings: RenderSettings{
			FOV:         60.0,
			Near:        0.01,
			Far:         100.0,
			FocalLength: 16.0,
			Aperture:    1.0,
			Exposure:    1.0,
			Samples:     8,
			Bounces:     3,
		},
	}
}

// Inputs is the minimal key/mouse-delta snapshot the render loop's input
// handler (external collaborator) hands World.Update each frame.
type Inputs struct {
	Forward, Back, Left, Right, Up, Down bool
	MouseDeltaX, MouseDeltaY             float32
	DeltaSeconds                         float32
}

const (
	camSpeed = 0.5
	camSens  = 0.1
)

// Update applies WASD+space/shift movement and mouse-look, mirroring
// original_source/src/world.rs's World::update. linmath's API mutates
// through the receiver (it is a direct Go port of linmath.h's
// out-parameter style), so every op below writes its result into the
// receiver rather than returning one.
func (w *World) Update(in Inputs) {
	speed := camSpeed * in.DeltaSeconds

	var forward, up, right lin.Vec3
	forward.MulQuat(lin.Vec3{0, 0, 1}, w.Camera.Rotation)
	up.MulQuat(lin.Vec3{0, 1, 0}, w.Camera.Rotation)
	right.MulCross(forward, up)

	var move, scratch lin.Vec3
	applyAxis := func(active bool, axis lin.Vec3, sign float32) {
		if !active {
			return
		}
		scratch.Scale(axis, speed*sign)
		move.Add(move, scratch)
	}
	applyAxis(in.Forward, forward, 1)
	applyAxis(in.Back, forward, -1)
	applyAxis(in.Right, right, 1)
	applyAxis(in.Left, right, -1)
	applyAxis(in.Up, up, 1)
	applyAxis(in.Down, up, -1)
	w.Camera.Position.Add(w.Camera.Position, move)

	var pitch, yaw, combined lin.Quat
	pitch.RotateAxisAngle(lin.Vec3{1, 0, 0}, -in.MouseDeltaY*camSens)
	yaw.RotateAxisAngle(lin.Vec3{0, 1, 0}, -in.MouseDeltaX*camSens)
	combined.Mul(pitch, w.Camera.Rotation)
	w.Camera.Rotation.Mul(combined, yaw)
}
