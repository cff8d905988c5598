// Package config reads the YAML configuration of the shapeview command.
//
// A minimal file only names the two sources:
//
//	vertices: shape.vertices
//	shader: shaders.wgsl
//
// Every other field has a default that reproduces the classic look: an
// 800x600 window cleared to opaque blue, FIFO presentation, info logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for configuration values that cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// maxConfigSize bounds the size of a configuration file.
const maxConfigSize = 1 << 20

// Config is the shapeview command configuration.
type Config struct {
	// Vertices and Shader are source identifiers: paths relative to the
	// configuration file, or http(s) URLs.
	Vertices string `yaml:"vertices"`
	Shader   string `yaml:"shader"`

	Window Window `yaml:"window"`

	// ClearColor is a CSS color name ("blue") or "r,g,b[,a]" in [0,1].
	ClearColor string `yaml:"clear_color"`

	// Backends lists GPU backends in preference order: vulkan, metal,
	// dx12, gl, software. Empty means the built-in order.
	Backends []string `yaml:"backends"`

	// PresentMode is fifo, fifo-relaxed, mailbox or immediate.
	PresentMode string `yaml:"present_mode"`

	MaxFramesInFlight int `yaml:"max_frames_in_flight"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Progress shows a progress bar while HTTP sources download.
	Progress bool `yaml:"progress"`

	// Dir is the directory relative sources resolve against. Load sets it
	// to the directory of the file.
	Dir string `yaml:"-"`
}

// Window describes the presentation window.
type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Vertices: "shape.vertices",
		Shader:   "shaders.wgsl",
		Window: Window{
			Width:  800,
			Height: 600,
			Title:  "shapeview",
		},
		ClearColor:        "blue",
		PresentMode:       "fifo",
		MaxFramesInFlight: 2,
		LogLevel:          "info",
		Dir:               ".",
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalid, path, maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every field that has a restricted value set.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Vertices) == "" {
		errs = append(errs, fmt.Errorf("%w: vertices source is empty", ErrInvalid))
	}
	if strings.TrimSpace(c.Shader) == "" {
		errs = append(errs, fmt.Errorf("%w: shader source is empty", ErrInvalid))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height))
	}
	if c.MaxFramesInFlight < 0 {
		errs = append(errs, fmt.Errorf("%w: max_frames_in_flight %d is negative", ErrInvalid, c.MaxFramesInFlight))
	}
	if _, err := c.Color(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BackendPreference(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Present(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Color resolves ClearColor. An empty value is opaque blue.
func (c Config) Color() (gputypes.Color, error) {
	s := strings.TrimSpace(strings.ToLower(c.ClearColor))
	if s == "" {
		s = "blue"
	}
	if rgba, ok := colornames.Map[s]; ok {
		return gputypes.Color{
			R: float64(rgba.R) / 255,
			G: float64(rgba.G) / 255,
			B: float64(rgba.B) / 255,
			A: float64(rgba.A) / 255,
		}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return gputypes.Color{}, fmt.Errorf("%w: clear_color %q is neither a color name nor r,g,b[,a]", ErrInvalid, c.ClearColor)
	}
	comps := [4]float64{0, 0, 0, 1}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v < 0 || v > 1 {
			return gputypes.Color{}, fmt.Errorf("%w: clear_color component %q is not in [0,1]", ErrInvalid, strings.TrimSpace(p))
		}
		comps[i] = v
	}
	return gputypes.Color{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}, nil
}

// backendNames maps configuration names to HAL backend variants.
var backendNames = map[string]gputypes.Backend{
	"vulkan":   gputypes.BackendVulkan,
	"metal":    gputypes.BackendMetal,
	"dx12":     gputypes.BackendDX12,
	"gl":       gputypes.BackendGL,
	"gles":     gputypes.BackendGL,
	"software": gputypes.BackendEmpty,
}

// BackendPreference resolves Backends. Nil means the built-in order.
func (c Config) BackendPreference() ([]gputypes.Backend, error) {
	if len(c.Backends) == 0 {
		return nil, nil
	}
	out := make([]gputypes.Backend, 0, len(c.Backends))
	for _, name := range c.Backends {
		b, ok := backendNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalid, name)
		}
		out = append(out, b)
	}
	return out, nil
}

// Present resolves PresentMode. An empty value leaves the choice to the
// renderer, which uses FIFO.
func (c Config) Present() (gputypes.PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(c.PresentMode)) {
	case "":
		return gputypes.PresentModeUndefined, nil
	case "fifo", "vsync":
		return gputypes.PresentModeFifo, nil
	case "fifo-relaxed", "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	default:
		return gputypes.PresentModeUndefined, fmt.Errorf("%w: unknown present_mode %q", ErrInvalid, c.PresentMode)
	}
}

// Level resolves LogLevel. An empty value is info.
func (c Config) Level() (slog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}
	return l, nil
}
