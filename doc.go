// Package shapeview renders a single shape as a triangle strip on a GPU
// surface and keeps presenting it, frame after frame.
//
// # Overview
//
// shapeview is a Pure Go WebGPU renderer built on the gogpu/wgpu HAL. A
// RenderSession loads comma-separated x,y,z vertex data and a WGSL shader
// from named sources, uploads the vertices once, builds one triangle-strip
// pipeline and then draws the whole vertex buffer over a cleared background
// every frame.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/shapeview"
//	    _ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	s := shapeview.New(window) // window implements shapeview.Target
//	defer s.Destroy()
//
//	if err := s.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Without options the session reads the embedded shape.vertices and
// shaders.wgsl (package assets), clears to opaque blue and paces frames with
// a 60 Hz ticker.
//
// # Startup
//
// Init runs strictly in order: GPU context, vertex data, shader, pipeline.
// Every startup failure is fatal and matches one of ErrUnsupported,
// ErrAcquisition, ErrAdapter, ErrDevice, ErrFetch, ErrParse or ErrCompile
// with errors.Is. Nothing is left allocated after a failed Init.
//
// # Frame loop
//
// Run presents the first frame immediately, then asks the Scheduler for the
// next frame signal before each further frame. A failed frame stops the loop
// and Run returns an error matching ErrFrame. A scheduler reporting
// ErrStopped (for example, the window was closed) ends Run without error.
//
// # Logging
//
// shapeview is silent by default. Use SetLogger to route lifecycle and
// diagnostic records through log/slog.
package shapeview
