package scene

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLoaderDiscardsStaleGeneration(t *testing.T) {
	l := &Loader{log: zerolog.Nop()}

	ch := make(chan loadResult, 1)
	l.mu.Lock()
	l.generation = 2
	l.result = ch
	l.mu.Unlock()

	// A result tagged with an older generation (as if a detached worker from
	// a superseded RequestLoad call finally finished) must be discarded.
	ch <- loadResult{generation: 1, data: &SceneData{}}

	data, err, ready := l.Poll()
	if ready || len(ch) != 0 {
		t.Fatalf("expected Poll to consume the stale result and report not-ready, got ready=%v pending=%d", ready, len(ch))
	}
	if data != nil || err != nil {
		t.Fatalf("stale-generation result must be discarded, got data=%v err=%v", data, err)
	}
}

func TestLoaderSurfacesCurrentGeneration(t *testing.T) {
	l := &Loader{log: zerolog.Nop()}

	ch := make(chan loadResult, 1)
	l.mu.Lock()
	l.generation = 1
	l.result = ch
	l.mu.Unlock()

	want := &SceneData{Objects: []ObjectData{{}}}
	ch <- loadResult{generation: 1, data: want}

	data, err, ready := l.Poll()
	if !ready || err != nil {
		t.Fatalf("expected a ready, error-free result")
	}
	if data != want {
		t.Fatalf("expected the current generation's data to surface unchanged")
	}
}

func TestLoaderPollNotReadyBeforeAnyRequest(t *testing.T) {
	l := &Loader{log: zerolog.Nop()}
	if _, _, ready := l.Poll(); ready {
		t.Fatalf("Poll on a never-requested loader must report not-ready")
	}
}
