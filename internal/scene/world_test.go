package scene

import "testing"

func TestNewWorldDefaults(t *testing.T) {
	w := NewWorld()
	if w.Settings.Samples != 8 || w.Settings.Bounces != 3 {
		t.Fatalf("unexpected default samples/bounces: %+v", w.Settings)
	}
	if w.Camera.Rotation != [4]float32{0, 0, 0, 1} {
		t.Fatalf("expected identity rotation quaternion, got %v", w.Camera.Rotation)
	}
}

func TestWorldUpdateMovesForwardAlongFacing(t *testing.T) {
	w := NewWorld()
	start := w.Camera.Position

	w.Update(Inputs{Forward: true, DeltaSeconds: 1.0})

	if w.Camera.Position == start {
		t.Fatalf("expected camera position to change when moving forward")
	}
}

func TestWorldUpdateNoInputIsStationary(t *testing.T) {
	w := NewWorld()
	start := w.Camera.Position
	startRot := w.Camera.Rotation

	w.Update(Inputs{DeltaSeconds: 1.0})

	if w.Camera.Position != start {
		t.Fatalf("position must not change with no movement keys held")
	}
	if w.Camera.Rotation != startRot {
		t.Fatalf("rotation must not change with zero mouse delta")
	}
}
