package dynamics

import (
	"math"

	"barelymusician/pkg/dsp/envelope"
	"barelymusician/pkg/dsp/gain"
)

// Duck implements the mix-bus sidechain ducking stage of spec.md §4.9 step
// 2: a peak follower on the sidechain bus produces an envelope in dB;
// above threshold, gain reduction `gr = (env_db - threshold_db) *
// (1 - 1/ratio)`, scaled by `mix`, is subtracted from the main signal in
// dB. Grounded on the same envelope.Detector the teacher's Compressor
// uses, and on Compressor.ProcessSidechain's detect-then-apply shape, but
// kept separate from Compressor since the duck stage has no knee or
// lookahead and runs on a different bus (sidechain, not main) than the
// compressor that follows it.
type Duck struct {
	detector  *envelope.Detector
	threshold float64
	ratio     float64
	mix       float64
}

// NewDuck creates a sidechain ducker.
func NewDuck(sampleRate float64) *Duck {
	return &Duck{
		detector:  envelope.NewDetector(sampleRate, envelope.ModePeak),
		threshold: -20.0,
		ratio:     4.0,
		mix:       1.0,
	}
}

func (d *Duck) SetThreshold(dB float64) { d.threshold = dB }
func (d *Duck) SetRatio(ratio float64)  { d.ratio = math.Max(1.0, ratio) }
func (d *Duck) SetMix(mix float64)      { d.mix = math.Max(0.0, math.Min(1.0, mix)) }
func (d *Duck) SetAttack(seconds float64) { d.detector.SetAttack(seconds) }
func (d *Duck) SetRelease(seconds float64) { d.detector.SetRelease(seconds) }

// Next feeds one sidechain sample and returns the linear gain to apply to
// the main bus for this frame.
func (d *Duck) Next(sidechain float32) float32 {
	d.detector.Detect(sidechain)
	envDB := float64(d.detector.GetEnvelopeDB())

	if envDB <= d.threshold {
		return 1.0
	}
	grDB := (envDB - d.threshold) * (1.0 - 1.0/d.ratio) * d.mix
	return gain.DbToLinear32(float32(-grDB))
}

// Reset clears detector state.
func (d *Duck) Reset() {
	d.detector.Reset()
}
