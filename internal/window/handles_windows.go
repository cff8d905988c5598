//go:build windows

package window

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandles returns a zero HINSTANCE (the HAL uses the current module)
// and the HWND.
func nativeHandles(w *glfw.Window) (uintptr, uintptr, error) {
	return 0, uintptr(unsafe.Pointer(w.GetWin32Window())), nil
}
