package distortion

import "math"

// Distortion is spec.md §4.4's stateless drive/mix stage:
// `lerp(x, tanh(x*drive), mix)`. Grounded on the teacher's Waveshaper,
// whose CurveSoftClip branch is exactly `tanh(x)`; the rest of that
// type's curve gallery (hard clip, saturate, foldback, asymmetric, sine,
// exponential) and its per-instance drive/mix/DCOffset/asymmetry state
// aren't named by the spec's single fixed distortion stage, so they're
// dropped (see DESIGN.md) in favor of this one pure function.
type Distortion struct {
	drive float32
	mix   float32
}

// NewDistortion creates a distortion stage at unity drive and zero mix
// (fully dry).
func NewDistortion() *Distortion {
	return &Distortion{drive: 1.0, mix: 0.0}
}

// SetDrive sets the pre-tanh gain.
func (d *Distortion) SetDrive(drive float32) {
	d.drive = drive
}

// SetMix sets the dry/wet blend in [0, 1].
func (d *Distortion) SetMix(mix float32) {
	if mix < 0 {
		mix = 0
	} else if mix > 1 {
		mix = 1
	}
	d.mix = mix
}

// Next applies `lerp(x, tanh(x*drive), mix)`.
func (d *Distortion) Next(x float32) float32 {
	wet := float32(math.Tanh(float64(x * d.drive)))
	return x + (wet-x)*d.mix
}
