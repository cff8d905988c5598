package gpu

import "errors"

// Startup errors. All of them are fatal to initialization.
var (
	// ErrUnsupported is returned when no GPU backend is registered or the
	// backend cannot create an instance.
	ErrUnsupported = errors.New("gpu: GPU API is not supported")

	// ErrAcquisition is returned when the drawable surface cannot be obtained
	// from the presentation target.
	ErrAcquisition = errors.New("gpu: failed to acquire drawable surface")

	// ErrAdapter is returned when no adapter can present to the surface.
	ErrAdapter = errors.New("gpu: no suitable adapter found")

	// ErrDevice is returned when logical device creation fails.
	ErrDevice = errors.New("gpu: device creation failed")

	// ErrParse is returned for malformed vertex text.
	ErrParse = errors.New("gpu: malformed vertex data")

	// ErrCompile is returned when shader compilation or pipeline creation fails.
	ErrCompile = errors.New("gpu: shader compilation failed")
)

// ErrFrame is returned when a frame cannot be acquired, recorded, submitted
// or presented. The frame loop stops on it.
var ErrFrame = errors.New("gpu: frame failed")

// ErrNilDevice is returned when a constructor is called without a device.
var ErrNilDevice = errors.New("gpu: device is nil")
