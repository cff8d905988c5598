package gpu

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// triangleText is one triangle in the z=0 plane.
const triangleText = "0,0,0, 1,0,0, 0,1,0"

// testShader is the smallest WGSL that satisfies the fixed pipeline.
const testShader = `
@vertex
fn vertexMain(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}

@fragment
fn fragmentMain() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 0.0, 1.0);
}
`

var errInjected = errors.New("injected failure")

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// fakeTarget is a presentation target with fixed handles.
type fakeTarget struct {
	w, h int
	err  error
}

func (f fakeTarget) SurfaceHandles() (uintptr, uintptr, error) { return 1, 2, f.err }
func (f fakeTarget) Size() (int, int)                         { return f.w, f.h }

// recordingDevice wraps a hal.Device, counts the calls the renderer cares
// about and can be told to fail specific ones.
type recordingDevice struct {
	hal.Device

	failShader   error
	failPipeline error
	failMap      error
	failView     error
	failEncoder  error
	failBegin    error
	failEnd      error

	buffersCreated   int
	lastBufferDesc   *hal.BufferDescriptor
	buffersDestroyed int
	viewsCreated     int
	viewsDestroyed   int
	cmdBufsFreed     int
	encodersCreated  int
	waitIdle         int

	onWaitIdle func()

	encoders []*recordingEncoder
}

func (d *recordingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.buffersCreated++
	d.lastBufferDesc = desc
	return d.Device.CreateBuffer(desc)
}

func (d *recordingDevice) DestroyBuffer(b hal.Buffer) {
	d.buffersDestroyed++
	d.Device.DestroyBuffer(b)
}

func (d *recordingDevice) MapBuffer(b hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	if d.failMap != nil {
		return hal.BufferMapping{}, d.failMap
	}
	return d.Device.MapBuffer(b, offset, size)
}

func (d *recordingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.failShader != nil {
		return nil, d.failShader
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *recordingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if d.failPipeline != nil {
		return nil, d.failPipeline
	}
	return d.Device.CreateRenderPipeline(desc)
}

func (d *recordingDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if d.failView != nil {
		return nil, d.failView
	}
	d.viewsCreated++
	return d.Device.CreateTextureView(tex, desc)
}

func (d *recordingDevice) DestroyTextureView(v hal.TextureView) {
	d.viewsDestroyed++
	d.Device.DestroyTextureView(v)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if d.failEncoder != nil {
		return nil, d.failEncoder
	}
	inner, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.encodersCreated++
	enc := &recordingEncoder{CommandEncoder: inner, failBegin: d.failBegin, failEnd: d.failEnd}
	d.encoders = append(d.encoders, enc)
	return enc, nil
}

func (d *recordingDevice) FreeCommandBuffer(cb hal.CommandBuffer) {
	d.cmdBufsFreed++
	d.Device.FreeCommandBuffer(cb)
}

func (d *recordingDevice) WaitIdle() error {
	d.waitIdle++
	if d.onWaitIdle != nil {
		d.onWaitIdle()
	}
	return d.Device.WaitIdle()
}

// recordingEncoder captures the render passes begun on it.
type recordingEncoder struct {
	hal.CommandEncoder

	failBegin error
	failEnd   error

	passes    []*recordingPass
	discarded bool
	destroyed bool
}

func (e *recordingEncoder) BeginEncoding(label string) error {
	if e.failBegin != nil {
		return e.failBegin
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *recordingEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.failEnd != nil {
		return nil, e.failEnd
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *recordingEncoder) DiscardEncoding() {
	e.discarded = true
	e.CommandEncoder.DiscardEncoding()
}

func (e *recordingEncoder) Destroy() {
	e.destroyed = true
	e.CommandEncoder.Destroy()
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), desc: desc}
	e.passes = append(e.passes, p)
	return p
}

// drawCall records one Draw.
type drawCall struct {
	vertexCount, instanceCount, firstVertex, firstInstance uint32
}

// recordingPass records the command sequence of one render pass.
type recordingPass struct {
	hal.RenderPassEncoder

	desc *hal.RenderPassDescriptor

	calls        []string
	vertexSlot   uint32
	vertexBuffer hal.Buffer
	vertexOffset uint64
	pipeline     hal.RenderPipeline
	draws        []drawCall
	ended        bool
}

func (p *recordingPass) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	p.calls = append(p.calls, "SetVertexBuffer")
	p.vertexSlot, p.vertexBuffer, p.vertexOffset = slot, buf, offset
	p.RenderPassEncoder.SetVertexBuffer(slot, buf, offset)
}

func (p *recordingPass) SetPipeline(pl hal.RenderPipeline) {
	p.calls = append(p.calls, "SetPipeline")
	p.pipeline = pl
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.calls = append(p.calls, "Draw")
	p.draws = append(p.draws, drawCall{vertexCount, instanceCount, firstVertex, firstInstance})
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *recordingPass) End() {
	p.calls = append(p.calls, "End")
	p.ended = true
	p.RenderPassEncoder.End()
}

// recordingQueue counts submissions and presents. lag holds back
// PollCompleted by that many submissions to simulate GPU latency.
type recordingQueue struct {
	hal.Queue

	failSubmit  error
	failPresent error
	lag         uint64

	submits  int
	presents int
	lastIdx  uint64
}

func (q *recordingQueue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	if q.failSubmit != nil {
		return 0, q.failSubmit
	}
	idx, err := q.Queue.Submit(cbs)
	if err == nil {
		q.submits++
		q.lastIdx = idx
	}
	return idx, err
}

func (q *recordingQueue) PollCompleted() uint64 {
	done := q.Queue.PollCompleted()
	if done < q.lag {
		return 0
	}
	return done - q.lag
}

func (q *recordingQueue) Present(s hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	if q.failPresent != nil {
		return q.failPresent
	}
	q.presents++
	return q.Queue.Present(s, tex, damage)
}

// recordingSurface counts acquired and discarded textures.
type recordingSurface struct {
	hal.Surface

	failAcquire error
	suboptimal  bool

	acquired  int
	discarded int
}

func (s *recordingSurface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if s.failAcquire != nil {
		return nil, s.failAcquire
	}
	at, err := s.Surface.AcquireTexture(f)
	if err != nil {
		return nil, err
	}
	s.acquired++
	at.Suboptimal = s.suboptimal
	return at, nil
}

func (s *recordingSurface) DiscardTexture(tex hal.SurfaceTexture) {
	s.discarded++
	s.Surface.DiscardTexture(tex)
}

// newNoopSurface returns a configured noop surface.
func newNoopSurface(t *testing.T, device hal.Device) hal.Surface {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	if err := surface.Configure(device, &hal.SurfaceConfiguration{
		Width:  64,
		Height: 64,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return surface
}
