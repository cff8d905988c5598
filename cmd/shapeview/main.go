// Command shapeview draws a triangle-strip shape into a window.
//
// Vertex data and the WGSL shader come from files next to the optional
// YAML configuration, or from http(s) URLs:
//
//	shapeview -config examples/shapeview.yaml
//	shapeview -vertices https://example.com/star.vertices -v
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gogpu/shapeview"
	"github.com/gogpu/shapeview/assets"
	"github.com/gogpu/shapeview/config"
	"github.com/gogpu/shapeview/internal/window"
	"github.com/gogpu/shapeview/loader"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	// GLFW and most GPU drivers require the main thread.
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		vertices   = flag.String("vertices", "", "vertex data source (path or URL)")
		shader     = flag.String("shader", "", "WGSL shader source (path or URL)")
		width      = flag.Int("width", 0, "window width")
		height     = flag.Int("height", 0, "window height")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shapeview:", err)
		os.Exit(2)
	}
	if *vertices != "" {
		cfg.Vertices = *vertices
	}
	if *shader != "" {
		cfg.Shader = *shader
	}
	if *width > 0 {
		cfg.Window.Width = *width
	}
	if *height > 0 {
		cfg.Window.Height = *height
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	// With nothing on the command line the embedded house shape is drawn.
	embedded := *configPath == "" && *vertices == "" && *shader == ""

	if err := run(cfg, embedded); err != nil {
		fmt.Fprintln(os.Stderr, "shapeview:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg config.Config, embedded bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	shapeview.SetLogger(logger)

	opts, err := sessionOptions(cfg, logger, embedded)
	if err != nil {
		return err
	}

	win, err := window.Open(window.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		Title:  cfg.Window.Title,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	s := shapeview.New(win, append(opts, shapeview.WithScheduler(win))...)
	defer s.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Init(ctx); err != nil {
		return err
	}
	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if level <= slog.LevelDebug {
		hal.SetLogger(logger)
	}
	return logger, nil
}

func sessionOptions(cfg config.Config, logger *slog.Logger, embedded bool) ([]shapeview.Option, error) {
	clearColor, err := cfg.Color()
	if err != nil {
		return nil, err
	}
	pref, err := cfg.BackendPreference()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.Present()
	if err != nil {
		return nil, err
	}

	httpOpts := []loader.HTTPOption{loader.WithLogger(logger)}
	if cfg.Progress {
		httpOpts = append(httpOpts, loader.WithProgress(os.Stderr))
	}
	var local loader.Loader = loader.Dir(cfg.Dir)
	if embedded {
		local = loader.NewFS(assets.FS)
	}
	src := loader.NewMux(local, loader.NewHTTP(httpOpts...))

	return []shapeview.Option{
		shapeview.WithLoader(src),
		shapeview.WithVertexSource(cfg.Vertices),
		shapeview.WithShaderSource(cfg.Shader),
		shapeview.WithBackendPreference(pref...),
		shapeview.WithPresentMode(mode),
		shapeview.WithClearColor(clearColor),
		shapeview.WithMaxFramesInFlight(cfg.MaxFramesInFlight),
	}, nil
}
