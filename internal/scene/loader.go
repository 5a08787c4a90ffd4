package scene

import (
	"fmt"
	"sync"

	"github.com/qmuntal/gltf"
	"github.com/rs/zerolog"
	"github.com/sqweek/dialog"
)

// SceneData is the CPU-side result of a completed load: decoded objects
// plus their source images, ready for the GPU-resident Scene to be built
// from.
type SceneData struct {
	Objects []ObjectData
	Images  []ImageData
}

// Loader is the process-wide, mutex-protected scene-loading singleton
//. Go has no OnceLock, and no
// JoinHandle to drop-to-detach, so cancellation is modeled with a
// generation counter: RequestLoad bumps the generation and starts a new
// worker; Poll only honors results tagged with the current generation,
// silently discarding a stale worker's result when it eventually finishes
// (mirrors original_source/src/loader.rs's "drop the prior JoinHandle").
type Loader struct {
	mu         sync.Mutex
	generation uint64
	result     chan loadResult
	log        zerolog.Logger
}

type loadResult struct {
	generation uint64
	data       *SceneData
	err        error
}

var (
	globalLoaderOnce sync.Once
	globalLoader     *Loader
)

// Global returns the process-wide loader singleton, initialized on first
// use and never torn down.
func Global(log zerolog.Logger) *Loader {
	globalLoaderOnce.Do(func() {
		globalLoader = &Loader{log: log}
	})
	return globalLoader
}

// RequestLoad detaches any in-flight load (its eventual result is discarded
// by Poll's generation check) and spawns a new one on its own goroutine.
// The loader thread never touches a GPU object.
func (l *Loader) RequestLoad() {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	results := make(chan loadResult, 1)
	l.result = results
	l.mu.Unlock()

	go func() {
		data, err := loadTask()
		results <- loadResult{generation: gen, data: data, err: err}
	}()
}

// Poll non-destructively checks whether the most recently requested load
// has finished. A result from a superseded generation (a prior, detached
// worker that finished late) is consumed and discarded rather than
// surfaced — request-load cancellation is "last request wins".
func (l *Loader) Poll() (*SceneData, error, bool) {
	l.mu.Lock()
	ch := l.result
	gen := l.generation
	l.mu.Unlock()

	if ch == nil {
		return nil, nil, false
	}

	select {
	case r := <-ch:
		if r.generation != gen {
			return nil, nil, false
		}
		if r.err != nil {
			l.log.Warn().Err(r.err).Msg("scene load failed")
		}
		return r.data, r.err, true
	default:
		return nil, nil, false
	}
}

// loadTask blocks on a native file dialog, parses the chosen glTF document,
// and decodes it into SceneData. Any failure here is recoverable per spec
// §7: logged, no GPU state mutated, previous scene stays current.
func loadTask() (*SceneData, error) {
	path, err := dialog.File().Filter("glTF scene", "gltf", "glb").Load()
	if err != nil {
		return nil, fmt.Errorf("scene: file dialog: %w", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: parse glTF: %w", err)
	}

	decoded, err := decodeDocument(doc)
	if err != nil {
		return nil, err
	}

	return &SceneData{Objects: decoded.Objects, Images: decoded.Images}, nil
}
