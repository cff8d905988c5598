//go:build !windows && !(linux && !wayland)

package window

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandles fails: Wayland and macOS need a platform layer (wl_surface
// or CAMetalLayer) this package does not create.
func nativeHandles(*glfw.Window) (uintptr, uintptr, error) {
	return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
}
