package shapeview

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/shapeview/assets"
	"github.com/gogpu/shapeview/loader"
	"github.com/gogpu/wgpu/hal"
)

// Option configures a RenderSession during creation.
//
// Example:
//
//	s := shapeview.New(win,
//	    shapeview.WithLoader(loader.Dir("testdata")),
//	    shapeview.WithClearColor(gputypes.Color{A: 1}),
//	)
type Option func(*options)

// options holds optional configuration for RenderSession creation.
type options struct {
	loader       loader.Loader
	vertexSource string
	shaderSource string

	backend     hal.Backend
	preference  []gputypes.Backend
	presentMode gputypes.PresentMode

	scheduler         Scheduler
	clearColor        *gputypes.Color
	maxFramesInFlight int
}

// defaultOptions returns the default session options: embedded sources,
// automatic backend selection, FIFO presentation, a 60 Hz ticker.
func defaultOptions() options {
	return options{
		loader:       loader.NewFS(assets.FS),
		vertexSource: assets.Vertices,
		shaderSource: assets.Shader,
	}
}

// WithLoader sets the loader used to fetch the vertex and shader sources.
func WithLoader(l loader.Loader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithVertexSource sets the vertex data source identifier.
// The default is "shape.vertices".
func WithVertexSource(source string) Option {
	return func(o *options) {
		o.vertexSource = source
	}
}

// WithShaderSource sets the WGSL shader source identifier.
// The default is "shaders.wgsl".
func WithShaderSource(source string) Option {
	return func(o *options) {
		o.shaderSource = source
	}
}

// WithBackend forces a specific HAL backend, bypassing the registry.
// Mostly useful with hal/noop in tests.
func WithBackend(b hal.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackendPreference sets the order in which registered HAL backends are
// tried. Ignored when WithBackend is also given.
func WithBackendPreference(pref ...gputypes.Backend) Option {
	return func(o *options) {
		o.preference = pref
	}
}

// WithPresentMode requests a surface present mode. Unsupported modes fall
// back to FIFO.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithScheduler sets the frame scheduler used by Run.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithClearColor sets the color each frame is cleared to.
// The default is opaque blue.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = &c
	}
}

// WithMaxFramesInFlight bounds how many submitted frames may still be
// executing on the GPU. Values below one select the default of two.
func WithMaxFramesInFlight(n int) Option {
	return func(o *options) {
		o.maxFramesInFlight = n
	}
}
