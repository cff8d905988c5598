// Package window opens the GLFW window shapeview draws into and drives the
// frame loop from its event queue.
//
// GLFW must be used from the main OS thread. Callers lock it in an init
// function (runtime.LockOSThread) and call Open, Next and Close from main.
package window

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/shapeview"
)

// ErrUnsupportedPlatform is returned by SurfaceHandles on platforms whose
// native window cannot be handed to a HAL surface.
var ErrUnsupportedPlatform = errors.New("window: native surface handles unsupported on this platform")

// Config describes the window to open.
type Config struct {
	Width  int
	Height int
	Title  string
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Title == "" {
		c.Title = "shapeview"
	}
	return c
}

// Window is a fixed-size GLFW window with no client API attached. It is a
// shapeview.Target and a shapeview.Scheduler.
type Window struct {
	glw    *glfw.Window
	ticker *shapeview.TickerScheduler
	redraw atomic.Bool
}

var _ shapeview.Target = (*Window)(nil)
var _ shapeview.Scheduler = (*Window)(nil)

// Open initializes GLFW and creates the window.
func Open(cfg Config) (*Window, error) {
	cfg = cfg.withDefaults()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glw, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: create %dx%d: %w", cfg.Width, cfg.Height, err)
	}

	w := &Window{
		glw:    glw,
		ticker: shapeview.NewTickerScheduler(shapeview.DefaultFrameInterval),
	}
	fw, fh := w.Size()
	shapeview.Logger().Info("window: opened",
		"title", cfg.Title,
		"width", fw,
		"height", fh,
		"scale", w.ScaleFactor())
	return w, nil
}

// SurfaceHandles returns the native display and window handles.
func (w *Window) SurfaceHandles() (displayHandle, windowHandle uintptr, err error) {
	if w.glw == nil {
		return 0, 0, errors.New("window: closed")
	}
	return nativeHandles(w.glw)
}

// Size returns the framebuffer size in pixels, the size the surface is
// configured with.
func (w *Window) Size() (width, height int) {
	if w.glw == nil {
		return 0, 0
	}
	return w.glw.GetFramebufferSize()
}

// ScaleFactor returns the horizontal content scale of the window.
func (w *Window) ScaleFactor() float64 {
	if w.glw == nil {
		return 1
	}
	sx, _ := w.glw.GetContentScale()
	if sx <= 0 {
		return 1
	}
	return float64(sx)
}

// RequestRedraw wakes Next early. Safe to call from any goroutine.
func (w *Window) RequestRedraw() {
	w.redraw.Store(true)
	glfw.PostEmptyEvent()
}

// Next processes pending window events and waits for the next frame tick.
// It returns shapeview.ErrStopped once the user closes the window.
func (w *Window) Next(ctx context.Context) error {
	if w.glw == nil {
		return shapeview.ErrStopped
	}
	glfw.PollEvents()
	if w.glw.ShouldClose() {
		shapeview.Logger().Info("window: close requested")
		return shapeview.ErrStopped
	}
	if w.redraw.Swap(false) {
		return ctx.Err()
	}
	return w.ticker.Next(ctx)
}

// Provider reports the window geometry in logical points for gogpu
// libraries that lay out against a gpucontext.WindowProvider.
func (w *Window) Provider() gpucontext.WindowProvider {
	return provider{w}
}

type provider struct{ w *Window }

func (p provider) Size() (int, int) {
	if p.w.glw == nil {
		return 0, 0
	}
	return p.w.glw.GetSize()
}

func (p provider) ScaleFactor() float64 { return p.w.ScaleFactor() }
func (p provider) RequestRedraw()       { p.w.RequestRedraw() }

// Close destroys the window and terminates GLFW. Destroy the render
// session first. Safe to call multiple times.
func (w *Window) Close() {
	if w.glw == nil {
		return
	}
	w.ticker.Stop()
	w.glw.Destroy()
	w.glw = nil
	glfw.Terminate()
}
