package scene

import "testing"

func TestTransposeToRow3x4Identity(t *testing.T) {
	identity := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	got := transposeToRow3x4(identity)
	want := [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
	if got != want {
		t.Fatalf("identity transform mismatch: got %v want %v", got, want)
	}
}

func TestTransposeToRow3x4Translation(t *testing.T) {
	// glTF column-major translation by (5, 6, 7)
	m := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		5, 6, 7, 1,
	}
	got := transposeToRow3x4(m)
	want := [12]float32{
		1, 0, 0, 5,
		0, 1, 0, 6,
		0, 0, 1, 7,
	}
	if got != want {
		t.Fatalf("translation mismatch: got %v want %v", got, want)
	}
}

func TestMaxMaterialsCapacityRejected(t *testing.T) {
	objects := make([]ObjectData, MaxMaterials+1)
	if _, err := Build(nil, &SceneData{Objects: objects}); err == nil {
		t.Fatalf("expected an error when object count exceeds MaxMaterials")
	}
}
