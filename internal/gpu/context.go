package gpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target is a presentation target: a single drawable area that can hand out
// the native handles a HAL instance needs to create a surface.
//
// displayHandle and windowHandle follow hal.Instance.CreateSurface: Display*
// and Window on X11, HINSTANCE (or 0) and HWND on Windows, CAMetalLayer* on
// macOS.
type Target interface {
	SurfaceHandles() (displayHandle, windowHandle uintptr, err error)
	Size() (width, height int)
}

// DefaultBackendPreference is the order in which registered HAL backends are
// tried when no explicit backend is configured. BackendEmpty covers the
// software rasterizer (and the noop backend in tests).
var DefaultBackendPreference = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// ContextConfig holds optional settings for NewContext.
type ContextConfig struct {
	// Backend, when non-nil, is used directly and Preference is ignored.
	Backend hal.Backend

	// Preference lists backend variants in the order they are tried.
	// Nil means DefaultBackendPreference.
	Preference []gputypes.Backend

	// PresentMode requested for the surface. Undefined or unsupported modes
	// fall back to FIFO, which every surface supports.
	PresentMode gputypes.PresentMode
}

// Context owns the GPU device and the presentation surface. All other GPU
// objects are created from it and must be destroyed before it.
type Context struct {
	instance hal.Instance
	surface  hal.Surface
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue

	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	width       uint32
	height      uint32
}

// Compile-time check that Context satisfies gpucontext.DeviceProvider.
var _ gpucontext.DeviceProvider = (*Context)(nil)

// SelectBackend returns the first registered HAL backend in preference
// order. It fails with ErrUnsupported when none of them is registered.
func SelectBackend(preference []gputypes.Backend) (hal.Backend, error) {
	if preference == nil {
		preference = DefaultBackendPreference
	}
	for _, variant := range preference {
		if b, ok := hal.GetBackend(variant); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no registered backend among %v (available: %v)",
		ErrUnsupported, preference, hal.AvailableBackends())
}

// NewContext acquires the drawable surface from target, picks an adapter that
// can present to it, opens a device and configures the surface with the
// adapter's preferred presentable format.
//
// The target is queried before any GPU object exists, so a missing target
// fails with ErrAcquisition without touching the GPU. Every later failure
// releases whatever was created so far.
func NewContext(target Target, cfg ContextConfig) (*Context, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: no presentation target", ErrAcquisition)
	}
	display, window, err := target.SurfaceHandles()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", ErrAcquisition, w, h)
	}

	backend := cfg.Backend
	if backend == nil {
		backend, err = SelectBackend(cfg.Preference)
		if err != nil {
			return nil, err
		}
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s instance: %w", ErrUnsupported, backend.Variant(), err)
	}
	slogger().Info("gpu: instance created", "backend", backend.Variant().String())

	c := &Context{
		instance:    instance,
		width:       uint32(w), //nolint:gosec // checked positive above
		height:      uint32(h), //nolint:gosec // checked positive above
		presentMode: cfg.PresentMode,
	}

	if err := c.init(display, window); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

// init runs the surface -> adapter -> device -> configure sequence.
func (c *Context) init(display, window uintptr) error {
	surface, err := c.instance.CreateSurface(display, window)
	if err != nil {
		return fmt.Errorf("%w: create surface: %w", ErrAcquisition, err)
	}
	c.surface = surface

	exposed, caps, ok := pickAdapter(c.instance.EnumerateAdapters(surface), surface)
	if !ok {
		return fmt.Errorf("%w: none of the adapters can present to the surface", ErrAdapter)
	}
	c.adapter = exposed.Adapter
	c.info = exposed.Info
	slogger().Info("gpu: adapter selected",
		"name", c.info.Name,
		"vendor", c.info.Vendor,
		"backend", c.info.Backend.String())

	open, err := c.adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}
	c.device = open.Device
	c.queue = open.Queue

	c.format = preferredFormat(caps.Formats)
	if !slices.Contains(caps.PresentModes, c.presentMode) {
		if c.presentMode != gputypes.PresentModeUndefined {
			slogger().Warn("gpu: present mode unsupported, using FIFO", "requested", c.presentMode.String())
		}
		c.presentMode = gputypes.PresentModeFifo
	}

	err = c.surface.Configure(c.device, &hal.SurfaceConfiguration{
		Width:       c.width,
		Height:      c.height,
		Format:      c.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: c.presentMode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("%w: configure surface: %w", ErrAcquisition, err)
	}
	slogger().Info("gpu: surface configured",
		"format", c.format.String(),
		"present_mode", c.presentMode.String(),
		"width", c.width,
		"height", c.height)
	return nil
}

// pickAdapter returns the first adapter that reports at least one
// presentable format for the surface.
func pickAdapter(adapters []hal.ExposedAdapter, surface hal.Surface) (hal.ExposedAdapter, *hal.SurfaceCapabilities, bool) {
	for _, a := range adapters {
		if a.Adapter == nil {
			continue
		}
		caps := a.Adapter.SurfaceCapabilities(surface)
		if caps == nil || len(caps.Formats) == 0 {
			continue
		}
		return a, caps, true
	}
	return hal.ExposedAdapter{}, nil, false
}

// preferredFormat picks the presentable format a browser canvas would
// report: plain 8-bit BGRA, then RGBA, then whatever the surface lists first.
func preferredFormat(formats []gputypes.TextureFormat) gputypes.TextureFormat {
	for _, want := range []gputypes.TextureFormat{
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA8Unorm,
	} {
		if slices.Contains(formats, want) {
			return want
		}
	}
	return formats[0]
}

// HALDevice returns the logical device.
func (c *Context) HALDevice() hal.Device { return c.device }

// HALQueue returns the device queue.
func (c *Context) HALQueue() hal.Queue { return c.queue }

// Surface returns the configured presentation surface.
func (c *Context) Surface() hal.Surface { return c.surface }

// Format returns the surface pixel format.
func (c *Context) Format() gputypes.TextureFormat { return c.format }

// PresentMode returns the negotiated present mode.
func (c *Context) PresentMode() gputypes.PresentMode { return c.presentMode }

// Size returns the configured surface size in pixels.
func (c *Context) Size() (uint32, uint32) { return c.width, c.height }

// Info returns the selected adapter's description.
func (c *Context) Info() gputypes.AdapterInfo { return c.info }

// Device implements gpucontext.DeviceProvider.
func (c *Context) Device() gpucontext.Device { return c.device }

// Queue implements gpucontext.DeviceProvider.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// SurfaceFormat implements gpucontext.DeviceProvider.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.format }

// Adapter implements gpucontext.DeviceProvider.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter }

// AdapterInfo implements gpucontext.DeviceProvider.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: c.info.Name,
		Type: adapterType(c.info.DeviceType),
	}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// Destroy releases the surface, device, adapter and instance in reverse
// creation order. Safe to call multiple times.
func (c *Context) Destroy() {
	if c.surface != nil {
		if c.device != nil {
			c.surface.Unconfigure(c.device)
		}
		c.surface.Destroy()
		c.surface = nil
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
	}
	if c.adapter != nil {
		c.adapter.Destroy()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}
