// Package loader fetches the text sources a shapeview session needs at
// startup: the comma-separated vertex data and the WGSL shader.
//
// A source is an identifier such as "shape.vertices" or
// "https://example.com/shaders.wgsl". FS resolves identifiers against an
// fs.FS (a directory or an embedded file set), HTTP fetches URLs, and Mux
// routes between the two by scheme.
//
// Every loader reports failures wrapped in ErrFetch, including sources that
// exist but are empty.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFetch is returned when a source cannot be retrieved or is empty.
var ErrFetch = errors.New("loader: fetch failed")

// Loader retrieves the full text of a named source.
type Loader interface {
	LoadText(ctx context.Context, source string) (string, error)
}

// Func adapts an ordinary function to the Loader interface.
type Func func(ctx context.Context, source string) (string, error)

// LoadText calls f(ctx, source).
func (f Func) LoadText(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// Static is a Loader backed by an in-memory map, keyed by source name.
type Static map[string]string

// LoadText returns the text stored under source.
func (s Static) LoadText(_ context.Context, source string) (string, error) {
	text, ok := s[source]
	if !ok {
		return "", fmt.Errorf("%w: %s: not found", ErrFetch, source)
	}
	return checkText(source, text)
}

// checkText rejects empty and whitespace-only content.
func checkText(source, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s: empty", ErrFetch, source)
	}
	return text, nil
}
