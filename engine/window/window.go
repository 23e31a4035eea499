package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the animation viewer's on-screen surface. It drives the engine's render step from
// its message loop, forwards the viewer's key bindings and owns the clock the scene runs on.
type Window interface {
	// SetUpdateCallback sets the per-frame hook, normally the engine's render step.
	//
	// Parameters:
	//   - callback: the frame hook, nil to disable
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the hook told about new framebuffer sizes.
	//
	// Parameters:
	//   - callback: receives the framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the hook for viewer key bindings. Only presses are reported, not repeats.
	//
	// Parameters:
	//   - callback: receives the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetTitle replaces the title bar text, used for the live frame and entity counters.
	//
	// Parameters:
	//   - title: the window title
	SetTitle(title string)

	// Time returns the seconds since the window opened. The engine's scene clock reads it.
	//
	// Returns:
	//   - float64: seconds since the window opened
	Time() float64

	// SurfaceDescriptor describes the window as a WebGPU surface for the bone buffer's device.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, nil before the window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the viewer is still open.
	//
	// Returns:
	//   - bool: false once the user closed the window
	IsRunning() bool

	// Close tears down the viewer window.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error

	// ProcessMessages runs the viewer loop until the window closes, calling the frame hook
	// after each batch of events.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the framebuffer height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// resize limits
	maxWidth, maxHeight int
	minWidth, minHeight int

	// framebuffer size in pixels
	width, height int

	// *glfwWindow once opened
	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow opens the viewer window. Defaults to a 1280x720 window titled "oxy-anim".
//
// Parameters:
//   - options: window options
//
// Returns:
//   - Window: the configured window
//   - error: error if the platform window cannot be created, for example without a display
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-anim",
		maxWidth:  1600,
		maxHeight: 1200,
		minWidth:  600,
		minHeight: 200,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *engineWindow) Time() float64 {
	return platformTime()
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
