package bone_buffer

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPU holds the WebGPU objects bone buffers are allocated on and uploaded through.
type GPU struct {
	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

// NewGPU acquires an adapter and device. With a nil surface descriptor the device is headless.
// The calling goroutine is locked to its OS thread, as the window and device must share it.
//
// Parameters:
//   - surfaceDescriptor: the window surface to stay compatible with, or nil
//   - forceFallbackAdapter: true to request the software adapter
//
// Returns:
//   - *GPU: the acquired objects
//   - error: error if no adapter or device is available
func NewGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*GPU, error) {
	runtime.LockOSThread()
	g := &GPU{Instance: wgpu.CreateInstance(nil)}
	if surfaceDescriptor != nil {
		g.Surface = g.Instance.CreateSurface(surfaceDescriptor)
	}

	a, err := g.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    g.Surface,
	})
	if err != nil {
		g.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	g.Adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Bone Buffer Device",
	})
	if err != nil {
		g.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	g.Device = d
	g.Queue = d.GetQueue()
	return g, nil
}

// Release releases every acquired object in reverse order of creation.
func (g *GPU) Release() {
	if g.Queue != nil {
		g.Queue.Release()
	}
	if g.Device != nil {
		g.Device.Release()
	}
	if g.Adapter != nil {
		g.Adapter.Release()
	}
	if g.Surface != nil {
		g.Surface.Release()
	}
	if g.Instance != nil {
		g.Instance.Release()
	}
}
