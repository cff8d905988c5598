package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultMaxFramesInFlight bounds how many submitted frames may still be
// executing on the GPU before RenderFrame waits for the device to drain.
const DefaultMaxFramesInFlight = 2

// DefaultClearColor is opaque blue.
var DefaultClearColor = gputypes.Color{R: 0, G: 0, B: 1, A: 1}

// FrameState is the per-frame lifecycle: Idle -> Recording -> Submitted -> Idle.
type FrameState int

const (
	// FrameIdle means no frame is being recorded.
	FrameIdle FrameState = iota
	// FrameRecording means a surface texture is acquired and commands are
	// being encoded.
	FrameRecording
	// FrameSubmitted means the command buffer was handed to the queue.
	FrameSubmitted
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameRecording:
		return "Recording"
	case FrameSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// FrameConfig holds optional FrameRenderer settings. The zero value selects
// DefaultClearColor and DefaultMaxFramesInFlight.
type FrameConfig struct {
	ClearColor        *gputypes.Color
	MaxFramesInFlight int
}

// FrameStats reports renderer progress.
type FrameStats struct {
	// Frames is the number of frames submitted and presented.
	Frames uint64
	// LastSubmission is the queue submission index of the latest frame.
	LastSubmission uint64
	// InFlight is the number of frames whose GPU work is not yet known
	// to be complete.
	InFlight int
}

// inFlightFrame holds the per-frame objects the GPU may still be reading.
type inFlightFrame struct {
	submission uint64
	view       hal.TextureView
	encoder    hal.CommandEncoder
	cmdBuf     hal.CommandBuffer
}

// FrameRenderer records, submits and presents one frame per RenderFrame
// call. Every frame clears the surface texture to the clear color and draws
// the whole vertex buffer as a triangle strip with the same pipeline.
//
// The vertex buffer and pipeline are borrowed: FrameRenderer never destroys
// them. It is not safe for concurrent use.
type FrameRenderer struct {
	device  hal.Device
	queue   hal.Queue
	surface hal.Surface

	vertices *VertexBuffer
	pipeline *Pipeline

	clear       gputypes.Color
	maxInFlight int

	state    FrameState
	inFlight []inFlightFrame
	stats    FrameStats
}

// NewFrameRenderer creates a renderer that draws vertices with pipeline into
// textures acquired from surface.
func NewFrameRenderer(
	device hal.Device,
	queue hal.Queue,
	surface hal.Surface,
	vertices *VertexBuffer,
	pipeline *Pipeline,
	cfg FrameConfig,
) (*FrameRenderer, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if surface == nil {
		return nil, fmt.Errorf("%w: no surface", ErrAcquisition)
	}
	if vertices == nil || vertices.Buffer() == nil {
		return nil, errors.New("gpu: vertex buffer is nil or destroyed")
	}
	if pipeline == nil || pipeline.RenderPipeline() == nil {
		return nil, errors.New("gpu: pipeline is nil or destroyed")
	}

	clearColor := DefaultClearColor
	if cfg.ClearColor != nil {
		clearColor = *cfg.ClearColor
	}
	maxInFlight := cfg.MaxFramesInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxFramesInFlight
	}

	return &FrameRenderer{
		device:      device,
		queue:       queue,
		surface:     surface,
		vertices:    vertices,
		pipeline:    pipeline,
		clear:       clearColor,
		maxInFlight: maxInFlight,
	}, nil
}

// RenderFrame renders and presents a single frame:
//
//  1. acquire the current surface texture and create a view of it
//  2. begin a render pass that clears the view to the clear color
//  3. bind the vertex buffer at slot 0, set the pipeline, draw
//     VertexCount vertices with one instance
//  4. end the pass, submit the command buffer, present the texture
//
// Any failure is returned wrapped in ErrFrame. A texture that was acquired
// but not presented is discarded before returning, including when Present
// itself fails.
func (r *FrameRenderer) RenderFrame() error {
	if r.device == nil {
		return fmt.Errorf("%w: renderer destroyed", ErrFrame)
	}
	if r.state != FrameIdle {
		return fmt.Errorf("%w: previous frame still %s", ErrFrame, r.state)
	}

	r.reclaim()
	if len(r.inFlight) >= r.maxInFlight {
		slogger().Debug("gpu: in-flight limit reached, waiting for device", "in_flight", len(r.inFlight))
		if err := r.device.WaitIdle(); err != nil {
			return fmt.Errorf("%w: wait for in-flight frames: %w", ErrFrame, err)
		}
		r.reclaim()
	}

	acquired, err := r.surface.AcquireTexture(nil)
	if err != nil {
		return fmt.Errorf("%w: acquire surface texture: %w", ErrFrame, err)
	}
	if acquired == nil || acquired.Texture == nil {
		return fmt.Errorf("%w: acquire surface texture: no texture", ErrFrame)
	}
	if acquired.Suboptimal {
		slogger().Warn("gpu: surface texture is suboptimal")
	}
	texture := acquired.Texture
	r.state = FrameRecording

	frame, err := r.record(texture)
	if err != nil {
		r.surface.DiscardTexture(texture)
		r.state = FrameIdle
		return fmt.Errorf("%w: %w", ErrFrame, err)
	}

	index, err := r.queue.Submit([]hal.CommandBuffer{frame.cmdBuf})
	if err != nil {
		r.release(frame)
		r.surface.DiscardTexture(texture)
		r.state = FrameIdle
		return fmt.Errorf("%w: submit: %w", ErrFrame, err)
	}
	frame.submission = index
	r.inFlight = append(r.inFlight, frame)
	r.state = FrameSubmitted

	if err := r.queue.Present(r.surface, texture, nil); err != nil {
		r.surface.DiscardTexture(texture)
		r.state = FrameIdle
		return fmt.Errorf("%w: present: %w", ErrFrame, err)
	}

	r.stats.Frames++
	r.stats.LastSubmission = index
	r.state = FrameIdle

	slogger().Debug("gpu: frame presented",
		"frame", r.stats.Frames,
		"submission", index,
		"vertices", r.vertices.VertexCount())
	return nil
}

// record encodes the clear-and-draw pass into a fresh command buffer.
func (r *FrameRenderer) record(texture hal.SurfaceTexture) (inFlightFrame, error) {
	var frame inFlightFrame

	view, err := r.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label:           "frame_view",
		Format:          r.pipeline.Format(),
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return frame, fmt.Errorf("create texture view: %w", err)
	}
	frame.view = view

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame_encoder"})
	if err != nil {
		r.release(frame)
		return frame, fmt.Errorf("create command encoder: %w", err)
	}
	frame.encoder = encoder

	if err := encoder.BeginEncoding("frame"); err != nil {
		r.release(frame)
		return frame, fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: r.clear,
			},
		},
	})
	pass.SetVertexBuffer(0, r.vertices.Buffer(), 0)
	pass.SetPipeline(r.pipeline.RenderPipeline())
	pass.Draw(r.vertices.VertexCount(), 1, 0, 0)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		r.release(frame)
		return frame, fmt.Errorf("end encoding: %w", err)
	}
	frame.cmdBuf = cmdBuf
	return frame, nil
}

// reclaim releases the objects of every frame the queue reports complete.
func (r *FrameRenderer) reclaim() {
	if len(r.inFlight) == 0 {
		return
	}
	completed := r.queue.PollCompleted()
	kept := r.inFlight[:0]
	for _, f := range r.inFlight {
		if f.submission <= completed {
			r.release(f)
			continue
		}
		kept = append(kept, f)
	}
	clear(r.inFlight[len(kept):])
	r.inFlight = kept
}

func (r *FrameRenderer) release(f inFlightFrame) {
	if f.cmdBuf != nil {
		r.device.FreeCommandBuffer(f.cmdBuf)
	}
	if f.encoder != nil {
		f.encoder.Destroy()
	}
	if f.view != nil {
		r.device.DestroyTextureView(f.view)
	}
}

// State returns the current frame state.
func (r *FrameRenderer) State() FrameState { return r.state }

// ClearColor returns the color every frame is cleared to.
func (r *FrameRenderer) ClearColor() gputypes.Color { return r.clear }

// Stats returns a snapshot of the renderer counters.
func (r *FrameRenderer) Stats() FrameStats {
	s := r.stats
	s.InFlight = len(r.inFlight)
	return s
}

// Destroy waits for outstanding GPU work and releases per-frame objects.
// Safe to call multiple times.
func (r *FrameRenderer) Destroy() {
	if r.device == nil {
		return
	}
	if len(r.inFlight) > 0 {
		if err := r.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle on destroy", "err", err)
		}
		for _, f := range r.inFlight {
			r.release(f)
		}
		r.inFlight = nil
	}
	r.device = nil
	r.queue = nil
	r.surface = nil
	r.state = FrameIdle
}
