package clip

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// proxyClipBackend interpolates the configured end position linearly over the clip.
type proxyClipBackend struct{}

var _ clipBackend = &proxyClipBackend{}

func newProxyClipBackend() *proxyClipBackend {
	return &proxyClipBackend{}
}

func (b *proxyClipBackend) skeleton() skeleton.Skeleton {
	return nil
}

func (b *proxyClipBackend) track(int) (Track, bool) {
	return Track{}, false
}

func (b *proxyClipBackend) tracks() map[string]Track {
	return map[string]Track{}
}

func (b *proxyClipBackend) rootOffset(frame int, cfg *Config) mgl32.Vec3 {
	return cfg.EndPosition.Mul(Progress(frame, cfg.FrameCount))
}

func (b *proxyClipBackend) endOffset(_ int, cfg *Config) mgl32.Vec3 {
	return cfg.EndPosition
}

func (b *proxyClipBackend) endRotation(cfg *Config) float32 {
	return cfg.EndRotation
}

// Progress returns frame/frameCount as the fraction of a proxy clip that has played.
//
// Parameters:
//   - frame: the frame index
//   - frameCount: the number of frames in the clip
//
// Returns:
//   - float32: the completed fraction, zero when frameCount is not positive
func Progress(frame, frameCount int) float32 {
	if frameCount <= 0 {
		return 0
	}
	return float32(frame) / float32(frameCount)
}
