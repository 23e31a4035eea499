package window

// WindowBuilderOption configures the viewer window before it opens.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the initial title, usually the scene name.
//
// Parameters:
//   - title: the title text
//
// Returns:
//   - WindowBuilderOption: the option
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area size. The framebuffer may be larger on high-DPI displays.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: the option
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}
