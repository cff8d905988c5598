package shapeview

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/shapeview/internal/gpu"
)

// Target is the presentation target a session draws into: a single
// drawable area able to hand out the native handles for a GPU surface.
type Target = gpu.Target

// FrameStats reports frame loop progress.
type FrameStats = gpu.FrameStats

// RenderSession owns every GPU object of one renderer: context, vertex
// buffer, pipeline and frame renderer. It is created by New, built by Init,
// driven by Run and released by Destroy.
//
// A RenderSession is not safe for concurrent use. Run and RenderFrame must
// be called from the goroutine that created the presentation target when
// the platform requires it (GLFW does).
type RenderSession struct {
	target Target
	opts   options

	gpuCtx   *gpu.Context
	vertices *gpu.VertexBuffer
	pipeline *gpu.Pipeline
	renderer *gpu.FrameRenderer

	// halted holds the frame error that stopped the loop.
	halted    error
	destroyed bool
}

// New creates a session for target. No GPU work happens until Init.
func New(target Target, opts ...Option) *RenderSession {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RenderSession{target: target, opts: o}
}

// Init acquires the GPU context, loads and uploads the vertex data, loads
// the shader and builds the pipeline, in that order. Each step starts only
// after the previous one succeeded. On failure everything created so far is
// released and the session can be initialized again.
func (s *RenderSession) Init(ctx context.Context) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if s.renderer != nil {
		return ErrAlreadyInitialized
	}
	if err := s.init(ctx); err != nil {
		s.release()
		return err
	}
	Logger().Info("shapeview: session initialized",
		"vertices", s.vertices.VertexCount(),
		"bytes", s.vertices.Size(),
		"format", s.gpuCtx.Format().String())
	return nil
}

func (s *RenderSession) init(ctx context.Context) error {
	gpuCtx, err := gpu.NewContext(s.target, gpu.ContextConfig{
		Backend:     s.opts.backend,
		Preference:  s.opts.preference,
		PresentMode: s.opts.presentMode,
	})
	if err != nil {
		return err
	}
	s.gpuCtx = gpuCtx
	device := gpuCtx.HALDevice()

	vertexText, err := s.opts.loader.LoadText(ctx, s.opts.vertexSource)
	if err != nil {
		return fmt.Errorf("vertices: %w", err)
	}
	s.vertices, err = gpu.BuildVertexBuffer(device, vertexText)
	if err != nil {
		return fmt.Errorf("vertices %s: %w", s.opts.vertexSource, err)
	}

	shaderText, err := s.opts.loader.LoadText(ctx, s.opts.shaderSource)
	if err != nil {
		return fmt.Errorf("shader: %w", err)
	}
	s.pipeline, err = gpu.BuildPipeline(device, shaderText, gpuCtx.Format())
	if err != nil {
		return fmt.Errorf("shader %s: %w", s.opts.shaderSource, err)
	}

	s.renderer, err = gpu.NewFrameRenderer(device, gpuCtx.HALQueue(), gpuCtx.Surface(),
		s.vertices, s.pipeline, gpu.FrameConfig{
			ClearColor:        s.opts.clearColor,
			MaxFramesInFlight: s.opts.maxFramesInFlight,
		})
	return err
}

// Run presents the first frame, then renders one frame per scheduler signal
// until the scheduler stops, ctx is done or a frame fails.
//
// A scheduler reporting ErrStopped ends Run with nil. A cancelled ctx ends
// it with ctx.Err(). A failed frame halts the loop for good: Run returns the
// error (matching ErrFrame) and so does every later Run or RenderFrame call.
func (s *RenderSession) Run(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	sched := s.opts.scheduler
	if sched == nil {
		ticker := NewTickerScheduler(DefaultFrameInterval)
		defer ticker.Stop()
		sched = ticker
	}

	Logger().Info("shapeview: frame loop started")
	for {
		if err := ctx.Err(); err != nil {
			s.logStop("cancelled")
			return err
		}
		if err := s.RenderFrame(); err != nil {
			s.logStop("frame failed")
			return err
		}

		err := sched.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrStopped):
			s.logStop("scheduler stopped")
			return nil
		case ctx.Err() != nil:
			s.logStop("cancelled")
			return ctx.Err()
		default:
			s.logStop("scheduler failed")
			return fmt.Errorf("shapeview: scheduler: %w", err)
		}
	}
}

func (s *RenderSession) logStop(reason string) {
	st := s.Stats()
	Logger().Info("shapeview: frame loop stopped",
		"reason", reason,
		"frames", st.Frames,
		"last_submission", st.LastSubmission)
}

// RenderFrame renders and presents a single frame. After a frame error the
// session is halted and RenderFrame keeps returning that error.
func (s *RenderSession) RenderFrame() error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.renderer.RenderFrame(); err != nil {
		s.halted = err
		return err
	}
	return nil
}

func (s *RenderSession) ready() error {
	switch {
	case s.destroyed:
		return ErrDestroyed
	case s.halted != nil:
		return s.halted
	case s.renderer == nil:
		return ErrNotInitialized
	}
	return nil
}

// Stats returns frame loop counters. It is zero before Init.
func (s *RenderSession) Stats() FrameStats {
	if s.renderer == nil {
		return FrameStats{}
	}
	return s.renderer.Stats()
}

// VertexCount returns the number of vertices drawn per frame, or 0 before
// Init.
func (s *RenderSession) VertexCount() uint32 {
	if s.vertices == nil {
		return 0
	}
	return s.vertices.VertexCount()
}

// Format returns the surface pixel format chosen during Init.
func (s *RenderSession) Format() gputypes.TextureFormat {
	if s.gpuCtx == nil {
		return gputypes.TextureFormatUndefined
	}
	return s.gpuCtx.Format()
}

// DeviceProvider exposes the session's device and queue to other gogpu
// libraries. It returns nil before Init.
func (s *RenderSession) DeviceProvider() gpucontext.DeviceProvider {
	if s.gpuCtx == nil {
		return nil
	}
	return s.gpuCtx
}

// Destroy waits for outstanding GPU work and releases the frame renderer,
// pipeline, vertex buffer and context in reverse creation order. Safe to
// call multiple times.
func (s *RenderSession) Destroy() {
	if s.destroyed {
		return
	}
	s.release()
	s.destroyed = true
}

func (s *RenderSession) release() {
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.pipeline != nil {
		s.pipeline.Destroy()
		s.pipeline = nil
	}
	if s.vertices != nil {
		s.vertices.Destroy()
		s.vertices = nil
	}
	if s.gpuCtx != nil {
		s.gpuCtx.Destroy()
		s.gpuCtx = nil
	}
}
