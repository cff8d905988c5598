package shapeview

import (
	"errors"

	"github.com/gogpu/shapeview/internal/gpu"
	"github.com/gogpu/shapeview/loader"
)

// Startup errors. Init returns errors that match exactly one of these with
// errors.Is; all of them are fatal.
var (
	// ErrUnsupported: no GPU backend is available.
	ErrUnsupported = gpu.ErrUnsupported
	// ErrAcquisition: the drawable surface cannot be obtained from the target.
	ErrAcquisition = gpu.ErrAcquisition
	// ErrAdapter: no adapter can present to the surface.
	ErrAdapter = gpu.ErrAdapter
	// ErrDevice: the logical device could not be created.
	ErrDevice = gpu.ErrDevice
	// ErrFetch: a vertex or shader source could not be read, or is empty.
	ErrFetch = loader.ErrFetch
	// ErrParse: the vertex text is malformed.
	ErrParse = gpu.ErrParse
	// ErrCompile: the shader failed to compile or the pipeline was rejected.
	ErrCompile = gpu.ErrCompile
)

// ErrFrame is returned by Run and RenderFrame when a frame could not be
// acquired, recorded, submitted or presented. The session stops rendering
// after it.
var ErrFrame = gpu.ErrFrame

// Session state errors.
var (
	ErrNotInitialized     = errors.New("shapeview: session not initialized")
	ErrAlreadyInitialized = errors.New("shapeview: session already initialized")
	ErrDestroyed          = errors.New("shapeview: session destroyed")
)
