package shapeview

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shapeview/loader"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

const (
	triangleText = "0,0,0, 1,0,0, 0,1,0"

	testShader = `
@vertex
fn vertexMain(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}

@fragment
fn fragmentMain() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 0.0, 1.0);
}
`
)

var errInjected = errors.New("injected failure")

// unregisteredBackend is a backend variant no package registers.
const unregisteredBackend = gputypes.Backend(200)

// fakeTarget is a presentation target with fixed handles.
type fakeTarget struct {
	w, h int
	err  error
}

func (f fakeTarget) SurfaceHandles() (uintptr, uintptr, error) { return 1, 2, f.err }
func (f fakeTarget) Size() (int, int)                         { return f.w, f.h }

func testTarget() fakeTarget { return fakeTarget{w: 320, h: 240} }

// countingBackend is the noop backend with a queue that counts submissions
// and presentations and can fail the Nth present.
type countingBackend struct {
	noop.API

	submits  int
	presents int
	// failPresentAt fails the present with this 1-based index; 0 never fails.
	failPresentAt int
	instances     int
}

func (b *countingBackend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	inner, err := b.API.CreateInstance(desc)
	if err != nil {
		return nil, err
	}
	b.instances++
	return &countingInstance{Instance: inner, b: b}, nil
}

type countingInstance struct {
	hal.Instance
	b *countingBackend
}

func (i *countingInstance) EnumerateAdapters(s hal.Surface) []hal.ExposedAdapter {
	adapters := i.Instance.EnumerateAdapters(s)
	for k := range adapters {
		adapters[k].Adapter = &countingAdapter{Adapter: adapters[k].Adapter, b: i.b}
	}
	return adapters
}

type countingAdapter struct {
	hal.Adapter
	b *countingBackend
}

func (a *countingAdapter) Open(features gputypes.Features, limits gputypes.Limits) (hal.OpenDevice, error) {
	open, err := a.Adapter.Open(features, limits)
	if err != nil {
		return open, err
	}
	open.Queue = &countingQueue{Queue: open.Queue, b: a.b}
	return open, nil
}

type countingQueue struct {
	hal.Queue
	b *countingBackend
}

func (q *countingQueue) Submit(bufs []hal.CommandBuffer) (uint64, error) {
	q.b.submits++
	return q.Queue.Submit(bufs)
}

func (q *countingQueue) Present(s hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	q.b.presents++
	if q.b.presents == q.b.failPresentAt {
		return errInjected
	}
	return q.Queue.Present(s, tex, damage)
}

// recordingLoader serves sources from memory and logs every request.
type recordingLoader struct {
	sources loader.Static
	calls   []string
}

func (l *recordingLoader) LoadText(ctx context.Context, source string) (string, error) {
	l.calls = append(l.calls, source)
	return l.sources.LoadText(ctx, source)
}

func triangleLoader() *recordingLoader {
	return &recordingLoader{sources: loader.Static{
		"shape.vertices": triangleText,
		"shaders.wgsl":   testShader,
	}}
}

func newTestSession(t *testing.T, b *countingBackend, l loader.Loader, opts ...Option) *RenderSession {
	t.Helper()
	all := append([]Option{WithBackend(b), WithLoader(l)}, opts...)
	s := New(testTarget(), all...)
	t.Cleanup(s.Destroy)
	return s
}

func TestSessionRunsFixedFrames(t *testing.T) {
	b := &countingBackend{}
	l := triangleLoader()
	s := newTestSession(t, b, l, WithScheduler(FixedFrames(5)))

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.VertexCount() != 3 {
		t.Errorf("VertexCount = %d, want 3", s.VertexCount())
	}
	if s.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want BGRA8Unorm", s.Format())
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if b.submits != 5 || b.presents != 5 {
		t.Errorf("submits/presents = %d/%d, want 5/5", b.submits, b.presents)
	}
	st := s.Stats()
	if st.Frames != 5 {
		t.Errorf("Frames = %d, want 5", st.Frames)
	}
	if st.LastSubmission != 5 {
		t.Errorf("LastSubmission = %d, want 5", st.LastSubmission)
	}
}

func TestSessionLoadOrder(t *testing.T) {
	l := triangleLoader()
	s := newTestSession(t, &countingBackend{}, l)

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(l.calls) != 2 || l.calls[0] != "shape.vertices" || l.calls[1] != "shaders.wgsl" {
		t.Errorf("load order = %v, want [shape.vertices shaders.wgsl]", l.calls)
	}
}

func TestSessionCustomSources(t *testing.T) {
	l := &recordingLoader{sources: loader.Static{
		"quad.txt":  "0,0,0, 1,0,0, 0,1,0, 1,1,0",
		"flat.wgsl": testShader,
	}}
	s := newTestSession(t, &countingBackend{}, l,
		WithVertexSource("quad.txt"),
		WithShaderSource("flat.wgsl"))

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.VertexCount() != 4 {
		t.Errorf("VertexCount = %d, want 4", s.VertexCount())
	}
}

func TestSessionEmbeddedAssets(t *testing.T) {
	b := &countingBackend{}
	s := New(testTarget(), WithBackend(b), WithScheduler(FixedFrames(1)))
	defer s.Destroy()

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.VertexCount() != 5 {
		t.Errorf("VertexCount = %d, want 5", s.VertexCount())
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if b.presents != 1 {
		t.Errorf("presents = %d, want 1", b.presents)
	}
}

func TestSessionMissingTarget(t *testing.T) {
	b := &countingBackend{}
	l := triangleLoader()
	s := New(nil, WithBackend(b), WithLoader(l))
	defer s.Destroy()

	err := s.Init(context.Background())
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if len(l.calls) != 0 {
		t.Errorf("loader called %v before the surface existed", l.calls)
	}
	if b.instances != 0 {
		t.Errorf("instances = %d, want 0", b.instances)
	}
}

func TestSessionInitErrors(t *testing.T) {
	tests := []struct {
		name    string
		sources loader.Static
		want    error
		calls   int
	}{
		{
			name:    "missing vertices",
			sources: loader.Static{"shaders.wgsl": testShader},
			want:    ErrFetch,
			calls:   1,
		},
		{
			name:    "empty vertices",
			sources: loader.Static{"shape.vertices": " \n", "shaders.wgsl": testShader},
			want:    ErrFetch,
			calls:   1,
		},
		{
			name:    "bad vertices",
			sources: loader.Static{"shape.vertices": "0,0,nope", "shaders.wgsl": testShader},
			want:    ErrParse,
			calls:   1,
		},
		{
			name:    "missing shader",
			sources: loader.Static{"shape.vertices": triangleText},
			want:    ErrFetch,
			calls:   2,
		},
		{
			name:    "bad shader",
			sources: loader.Static{"shape.vertices": triangleText, "shaders.wgsl": "fn broken("},
			want:    ErrCompile,
			calls:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &recordingLoader{sources: tt.sources}
			s := newTestSession(t, &countingBackend{}, l)

			err := s.Init(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(l.calls) != tt.calls {
				t.Errorf("loader calls = %v, want %d", l.calls, tt.calls)
			}
			if s.VertexCount() != 0 || s.DeviceProvider() != nil {
				t.Error("failed Init should release everything it created")
			}
			if err := s.Run(context.Background()); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("Run after failed Init = %v, want ErrNotInitialized", err)
			}
		})
	}
}

func TestSessionRetryAfterFailedInit(t *testing.T) {
	l := &recordingLoader{sources: loader.Static{"shape.vertices": triangleText}}
	s := newTestSession(t, &countingBackend{}, l)

	if err := s.Init(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	l.sources["shaders.wgsl"] = testShader
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestSessionStateErrors(t *testing.T) {
	s := newTestSession(t, &countingBackend{}, triangleLoader())

	if err := s.RenderFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RenderFrame before Init = %v, want ErrNotInitialized", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run before Init = %v, want ErrNotInitialized", err)
	}
	if s.Format() != gputypes.TextureFormatUndefined {
		t.Errorf("Format before Init = %v, want undefined", s.Format())
	}
	if s.DeviceProvider() != nil {
		t.Error("DeviceProvider before Init should be nil")
	}
	if s.Stats() != (FrameStats{}) {
		t.Errorf("Stats before Init = %+v, want zero", s.Stats())
	}

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Init(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init = %v, want ErrAlreadyInitialized", err)
	}
	if s.DeviceProvider() == nil {
		t.Error("DeviceProvider after Init should not be nil")
	}

	s.Destroy()
	if err := s.RenderFrame(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("RenderFrame after Destroy = %v, want ErrDestroyed", err)
	}
	if err := s.Init(context.Background()); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Init after Destroy = %v, want ErrDestroyed", err)
	}
	if s.VertexCount() != 0 {
		t.Errorf("VertexCount after Destroy = %d, want 0", s.VertexCount())
	}

	// Double-destroy should be safe.
	s.Destroy()
}

func TestSessionRunCancelled(t *testing.T) {
	b := &countingBackend{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := 0
	sched := SchedulerFunc(func(ctx context.Context) error {
		frames++
		if frames == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	})
	s := newTestSession(t, b, triangleLoader(), WithScheduler(sched))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if b.presents != 3 {
		t.Errorf("presents = %d, want 3", b.presents)
	}
}

func TestSessionRunAlreadyCancelled(t *testing.T) {
	b := &countingBackend{}
	s := newTestSession(t, b, triangleLoader(), WithScheduler(FixedFrames(10)))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if b.presents != 0 {
		t.Errorf("presents = %d, want 0", b.presents)
	}
}

func TestSessionFrameFailureHalts(t *testing.T) {
	b := &countingBackend{failPresentAt: 3}
	s := newTestSession(t, b, triangleLoader(), WithScheduler(FixedFrames(10)))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	err := s.Run(context.Background())
	if !errors.Is(err, ErrFrame) || !errors.Is(err, errInjected) {
		t.Fatalf("Run = %v, want ErrFrame wrapping the present error", err)
	}
	if b.presents != 3 {
		t.Errorf("presents = %d, want 3", b.presents)
	}

	// The session stays halted.
	if again := s.RenderFrame(); again != err {
		t.Errorf("RenderFrame after failure = %v, want %v", again, err)
	}
	if again := s.Run(context.Background()); again != err {
		t.Errorf("Run after failure = %v, want %v", again, err)
	}
	if b.presents != 3 {
		t.Errorf("halted session presented again: %d", b.presents)
	}
}

func TestSessionSchedulerError(t *testing.T) {
	sched := SchedulerFunc(func(context.Context) error { return errInjected })
	s := newTestSession(t, &countingBackend{}, triangleLoader(), WithScheduler(sched))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	err := s.Run(context.Background())
	if !errors.Is(err, errInjected) {
		t.Fatalf("Run = %v, want wrapped scheduler error", err)
	}
	if errors.Is(err, ErrFrame) {
		t.Error("scheduler error should not match ErrFrame")
	}
}

func TestSessionRenderFrameDirect(t *testing.T) {
	b := &countingBackend{}
	s := newTestSession(t, b, triangleLoader())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for range 4 {
		if err := s.RenderFrame(); err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
	}
	if s.Stats().Frames != 4 || b.presents != 4 {
		t.Errorf("frames/presents = %d/%d, want 4/4", s.Stats().Frames, b.presents)
	}
}

func TestSessionUnsupportedBackend(t *testing.T) {
	s := New(testTarget(), WithLoader(triangleLoader()), WithBackendPreference(unregisteredBackend))
	defer s.Destroy()

	if err := s.Init(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
