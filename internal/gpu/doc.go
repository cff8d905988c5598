// Package gpu implements the shapeview render pipeline on top of the
// gogpu/wgpu HAL (Pure Go WebGPU, zero CGO).
//
// The package is internal to shapeview. It owns every GPU object the
// renderer touches and exposes them in creation order:
//
//	Context         instance, surface, adapter, device, queue
//	VertexBuffer    parsed x,y,z float32 vertices in GPU memory
//	Pipeline        WGSL shader module + triangle-strip render pipeline
//	FrameRenderer   acquire -> record -> submit -> present, once per frame
//
// # Startup order
//
// NewContext must succeed before BuildVertexBuffer, which must succeed
// before BuildPipeline. Every constructor either returns a fully built
// object or an error wrapping one of the package sentinels (ErrUnsupported,
// ErrAcquisition, ErrAdapter, ErrDevice, ErrParse, ErrCompile). Nothing is
// left half-allocated on failure.
//
// # Frames
//
// FrameRenderer.RenderFrame walks Idle -> Recording -> Submitted -> Idle.
// Submission does not wait on a fence. Per-frame objects are retired once
// the queue reports their submission index complete, and the number of
// frames in flight is bounded (see NewFrameRenderer).
//
// # Testing
//
// All components run against the hal/noop backend, which backs buffers with
// real memory and reports submission indices, so the whole pipeline can be
// exercised without a GPU or a window.
package gpu
