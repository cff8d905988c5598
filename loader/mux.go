package loader

import (
	"context"
	"fmt"
	"strings"
)

// Mux sends http:// and https:// sources to one loader and everything else
// to another.
type Mux struct {
	local  Loader
	remote Loader
}

// NewMux returns a Mux. A nil remote loader makes URL sources fail with
// ErrFetch.
func NewMux(local, remote Loader) *Mux {
	return &Mux{local: local, remote: remote}
}

// LoadText dispatches source by scheme.
func (m *Mux) LoadText(ctx context.Context, source string) (string, error) {
	if IsURL(source) {
		if m.remote == nil {
			return "", fmt.Errorf("%w: %s: remote sources are disabled", ErrFetch, source)
		}
		return m.remote.LoadText(ctx, source)
	}
	if m.local == nil {
		return "", fmt.Errorf("%w: %s: no local loader", ErrFetch, source)
	}
	return m.local.LoadText(ctx, source)
}

// IsURL reports whether source names an HTTP(S) resource.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
