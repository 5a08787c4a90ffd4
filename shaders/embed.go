// Package shaders embeds the engine's pre-compiled SPIR-V modules. The core
// never invokes a shader compiler — these bytes are checked into the repo
// and embedded directly rather than loaded from an on-disk runtime path.
package shaders

import _ "embed"

//go:embed raytracer.comp.spv
var RaytracerCompute []byte

//go:embed ui.vert.spv
var UIVertex []byte

//go:embed ui.frag.spv
var UIFragment []byte
