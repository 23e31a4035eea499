package action

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Phase is the lifecycle state of a controller.
type Phase string

const (
	// PhaseIdle is the state before the first Update.
	PhaseIdle Phase = "idle"

	// PhaseRunning means the current action is playing.
	PhaseRunning Phase = "running"

	// PhaseFinished is entered when the current action completes, just before the next one is selected.
	PhaseFinished Phase = "finished"
)

const (
	eventStart  = "start"
	eventFinish = "finish"
)

// Owner receives the results of a controller update. An animated entity implements it.
type Owner interface {
	// Scale returns the uniform scale applied to root motion.
	Scale() float32

	// SetPosition moves the owner to the world position derived from root motion.
	SetPosition(p mgl32.Vec3)

	// SetBoneTransforms hands the evaluated pose to the owner.
	SetBoneTransforms(p skeleton.Pose)
}

// WeightFunc scores candidate actions during selection. Higher weights win; equal weights
// are broken uniformly at random.
type WeightFunc interface {
	// Weight returns a nonnegative score for the candidate clip.
	//
	// Parameters:
	//   - c: the candidate clip
	//
	// Returns:
	//   - float64: the clip's weight
	Weight(c clip.Clip) float64
}

// WeightFuncOf adapts a plain function to the WeightFunc interface.
type WeightFuncOf func(c clip.Clip) float64

// Weight calls f(c).
func (f WeightFuncOf) Weight(c clip.Clip) float64 {
	return f(c)
}

// UniformWeight gives every action weight 1.
type UniformWeight struct{}

// Weight returns 1.
func (UniformWeight) Weight(clip.Clip) float64 {
	return 1
}

// WeightTable weighs actions by clip name. Clips missing from the table use Default.
type WeightTable struct {
	Weights map[string]float64
	Default float64
}

// Weight returns the table entry for the clip's name or the default.
func (w WeightTable) Weight(c clip.Clip) float64 {
	if v, ok := w.Weights[c.Name()]; ok {
		return v
	}
	return w.Default
}
