// Package voice implements spec.md §4.5: a single polyphonic voice —
// one oscillator phase, one slice cursor, one biquad, one bit-crusher,
// one distortion stage, one envelope, combined every sample and panned
// to a stereo frame. There's no single teacher file this is ported
// from; it composes the already-adapted pkg/dsp/* primitives the way
// the teacher's plugin examples wire a processing graph together
// (construct-then-call-Next-in-series), generalized from "one VST
// plugin instance" to "one voice of many inside an instrument".
package voice

import (
	"math"

	"barelymusician/pkg/dsp/distortion"
	"barelymusician/pkg/dsp/envelope"
	"barelymusician/pkg/dsp/filter"
	"barelymusician/pkg/dsp/interpolation"
	"barelymusician/pkg/dsp/oscillator"
	"barelymusician/pkg/dsp/pan"
	"barelymusician/pkg/dsp/utility"
	"barelymusician/pkg/slicedata"
)

// OscMode selects how the oscillator and slice signals combine, per
// spec.md §4.5 step 3.
type OscMode int

const (
	OscMix OscMode = iota
	OscAm
	OscRing
	OscFm
	OscMf
	OscEnvelopeFollower
)

// SliceMode governs slice-cursor behavior once playback reaches the
// end of the bound slice, per spec.md §4.5 step 5.
type SliceMode int

const (
	SliceSustain SliceMode = iota
	SliceLoop
	SliceOnce
)

const noSlice = -1

// smoothBlockFrames is the "N≈one audio block" spec.md §4.5 step 7
// uses to derive the fixed voice-param smoothing coefficient.
const smoothBlockFrames = 64.0

// Params is one voice's private smoothed copy of the instrument-wide
// controls that shape its processing (spec.md: "one voice-params block
// (smoothed)"). Every voice owns its own Params so a newly-started
// voice doesn't inherit another voice's in-flight smoothing state.
type Params struct {
	Gain            *utility.SmoothParameter
	StereoPan       *utility.SmoothParameter
	OscMix          *utility.SmoothParameter
	OscNoiseMix     *utility.SmoothParameter
	OscShape        *utility.SmoothParameter
	OscSkew         *utility.SmoothParameter
	OscPitchShift   *utility.SmoothParameter
	FilterFrequency *utility.SmoothParameter
	FilterQ         *utility.SmoothParameter
	BitCrusherRange *utility.SmoothParameter
	BitCrusherRate  *utility.SmoothParameter
	DistortionMix   *utility.SmoothParameter
	DistortionDrive *utility.SmoothParameter
	DelaySend       *utility.SmoothParameter
	SidechainSend   *utility.SmoothParameter
}

// NewParams creates a voice-params block smoothing at the fixed
// one-block coefficient for sampleRate.
func NewParams(sampleRate float64) *Params {
	smoothTime := smoothBlockFrames / sampleRate
	mk := func(value float64) *utility.SmoothParameter {
		sp := utility.NewSmoothParameter(smoothTime, sampleRate)
		sp.SetImmediate(value)
		return sp
	}
	return &Params{
		Gain:            mk(1.0),
		StereoPan:       mk(0.0),
		OscMix:          mk(1.0),
		OscNoiseMix:     mk(0.0),
		OscShape:        mk(0.0),
		OscSkew:         mk(0.5),
		OscPitchShift:   mk(0.0),
		FilterFrequency: mk(20000.0),
		FilterQ:         mk(0.707),
		BitCrusherRange: mk(0.0),
		BitCrusherRate:  mk(1.0),
		DistortionMix:   mk(0.0),
		DistortionDrive: mk(1.0),
		DelaySend:       mk(0.0),
		SidechainSend:   mk(0.0),
	}
}

// Voice is one polyphonic voice (spec.md §4.5).
type Voice struct {
	sampleRate float64

	osc     *oscillator.Oscillator
	noise   *utility.Noise
	biquad  *filter.Biquad
	crusher *distortion.BitCrusher
	dist    *distortion.Distortion
	env     *envelope.ADSR

	params *Params

	filterType filter.Type
	oscMode    OscMode
	sliceMode  SliceMode

	pitch          float32
	notePitchShift float32
	noteGain       float32
	oscIncrement   float64
	sliceIncrement float64

	pool         *slicedata.Pool
	sliceIndex   int32
	sliceOffset  float64
	slicePastEnd bool

	timestamp int64
}

// New creates an idle voice bound to pool for slice playback.
func New(sampleRate float64, pool *slicedata.Pool) *Voice {
	return &Voice{
		sampleRate: sampleRate,
		osc:        oscillator.New(),
		noise:      utility.NewNoise(1),
		biquad:     filter.NewBiquad(),
		crusher:    distortion.NewBitCrusher(),
		dist:       distortion.NewDistortion(),
		env:        envelope.New(sampleRate),
		params:     NewParams(sampleRate),
		pool:       pool,
		sliceIndex: noSlice,
	}
}

// IsActive reports whether the voice's envelope is generating output.
func (v *Voice) IsActive() bool {
	return v.env.IsActive()
}

// GetStage returns the voice's current envelope stage.
func (v *Voice) GetStage() envelope.Stage {
	return v.env.GetStage()
}

// Timestamp returns the voice's stealing age.
func (v *Voice) Timestamp() int64 {
	return v.timestamp
}

// SetTimestamp sets the voice's stealing age.
func (v *Voice) SetTimestamp(t int64) {
	v.timestamp = t
}

// Pitch returns the pitch the voice is currently (or was last) playing.
func (v *Voice) Pitch() float32 {
	return v.pitch
}

// SetNoteGain updates the per-note gain factor applied every sample,
// without touching any other DSP state (spec.md's per-note `gain`
// control may change while a note is still sounding).
func (v *Voice) SetNoteGain(gain float32) {
	v.noteGain = gain
}

// SetNotePitchShift re-derives the voice's oscillator/slice increments
// for a changed per-note pitch shift, without resetting phase or
// envelope state.
func (v *Voice) SetNotePitchShift(pitchShift float32) {
	v.pitch += pitchShift - v.notePitchShift
	v.notePitchShift = pitchShift
	v.recomputeIncrements()
}

// Params returns the voice's smoothed instrument-control targets, so an
// owning processor can push instrument-wide control values into them.
func (v *Voice) Params() *Params {
	return v.params
}

// pitchToFrequency converts a pitch (in semitones, A4=69=440Hz) to Hz.
func pitchToFrequency(pitch float32) float64 {
	return 440.0 * math.Pow(2.0, (float64(pitch)-69.0)/12.0)
}

// Start resets all DSP state and begins a brand new note (spec.md
// §4.5: "start(instr_params, note_params) resets DSP state and calls
// envelope.start"). sliceHead is the SampleData chain head to select
// a slice from (noSlice if the instrument has none bound).
func (v *Voice) Start(pitch, gain float32, attack, decay, sustain, release float64, sliceHead int32) {
	v.pitch = pitch
	v.notePitchShift = 0
	v.noteGain = gain
	v.timestamp = 0

	v.osc.Reset()
	v.biquad.Reset()
	v.crusher.Reset()

	v.sliceOffset = 0
	v.slicePastEnd = false
	v.sliceIndex = noSlice
	if v.pool != nil && sliceHead != noSlice {
		v.sliceIndex = v.pool.Select(sliceHead, pitch)
	}
	v.recomputeIncrements()

	v.env.Start(attack, decay, sustain, release)
}

// Retrigger reuses an already-active voice for a new note-on at the
// same pitch (spec.md §4.6 step 1): only the envelope resets.
func (v *Voice) Retrigger(attack, decay, sustain, release float64) {
	v.env.Start(attack, decay, sustain, release)
}

// Stop begins the release stage. Ignored while in SliceMode::Once
// (the voice stops itself at sample end).
func (v *Voice) Stop() {
	if v.sliceMode == SliceOnce {
		return
	}
	v.env.Stop()
}

// SetFilterType, SetOscMode, SetSliceMode set the voice's discrete
// (non-smoothed) mode controls.
func (v *Voice) SetFilterType(t filter.Type)   { v.filterType = t }
func (v *Voice) SetOscMode(m OscMode)          { v.oscMode = m }
func (v *Voice) SetSliceMode(m SliceMode)      { v.sliceMode = m }

func (v *Voice) recomputeIncrements() {
	freq := pitchToFrequency(v.pitch + float32(v.params.OscPitchShift.GetCurrent()))
	v.oscIncrement = freq / v.sampleRate

	v.sliceIncrement = 0
	if s := v.currentSlice(); s != nil && s.SampleRate > 0 {
		rootPitch := s.RootPitch
		ratio := math.Pow(2.0, float64(v.pitch-rootPitch)/12.0)
		v.sliceIncrement = ratio * float64(s.SampleRate) / v.sampleRate
	}
}

// oscSampleFor reads the oscillator for combine step 3. Fm/Mf read the
// waveform at the current phase without advancing it (oscillator.Sample),
// since their phase increment is itself modulated by the slice sample in
// advance; every other mode reads via oscillator.Next, which samples and
// advances the phase by the plain increment in one step.
func (v *Voice) oscSampleFor(shape, skew float64) float32 {
	if v.oscMode == OscFm || v.oscMode == OscMf {
		return oscillator.Sample(v.osc.Phase(), shape, skew)
	}
	return v.osc.Next(v.oscIncrement, shape, skew)
}

func (v *Voice) currentSlice() *slicedata.Slice {
	if v.pool == nil || v.sliceIndex == noSlice {
		return nil
	}
	return v.pool.SliceAt(v.sliceIndex)
}

// Next advances one sample and returns the panned stereo output along
// with its delay-send and sidechain-send contributions (spec.md §4.5
// steps 1-7). Every voice-param smooths by one step toward its current
// target before it's used, per step 7.
func (v *Voice) Next() (outL, outR, delayL, delayR, sidechainL, sidechainR float32) {
	gain := v.params.Gain.Process()
	stereoPan := v.params.StereoPan.Process()
	oscMix := v.params.OscMix.Process()
	oscNoiseMix := v.params.OscNoiseMix.Process()
	oscShape := v.params.OscShape.Process()
	oscSkew := v.params.OscSkew.Process()
	filterFreq := v.params.FilterFrequency.Process()
	filterQ := v.params.FilterQ.Process()
	bitRange := v.params.BitCrusherRange.Process()
	bitRate := v.params.BitCrusherRate.Process()
	distMix := v.params.DistortionMix.Process()
	distDrive := v.params.DistortionDrive.Process()
	delaySend := v.params.DelaySend.Process()
	sidechainSend := v.params.SidechainSend.Process()
	v.params.OscPitchShift.Process()

	v.applyFilter(filterFreq, filterQ)
	v.crusher.SetRange(float32(bitRange))
	v.crusher.SetIncrement(float32(bitRate))
	v.dist.SetDrive(float32(distDrive))
	v.dist.SetMix(float32(distMix))

	oscSample := v.oscSampleFor(oscShape, oscSkew)
	noiseSample := v.noise.Next()
	oscCombined := oscSample*float32(1-oscNoiseMix) + noiseSample*float32(oscNoiseMix)
	oscCombined *= float32(oscMix)

	sliceSample := v.sliceSample()

	var combined float32
	switch v.oscMode {
	case OscAm:
		combined = absf(oscCombined)*sliceSample + sliceSample
	case OscRing:
		combined = oscCombined*sliceSample + sliceSample
	case OscFm:
		combined = sliceSample
	case OscMf:
		combined = oscCombined + sliceSample
	case OscEnvelopeFollower:
		combined = oscCombined * absf(sliceSample)
	default: // OscMix
		combined = oscCombined + sliceSample
	}

	envValue := v.env.Next()
	sample := combined * envValue * v.noteGain * float32(gain)

	sample = v.biquad.Next(sample)
	sample = v.crusher.Next(sample)
	sample = v.dist.Next(sample)

	v.advance(oscMix, sliceSample)

	left, right := pan.MonoToStereo(float32(stereoPan), pan.ConstantPower)
	outL, outR = sample*left, sample*right

	dSend, scSend := float32(delaySend), float32(sidechainSend)
	delayL, delayR = outL*dSend, outR*dSend
	sidechainL, sidechainR = outL*scSend, outR*scSend

	return
}

// applyFilter recomputes the voice's biquad coefficients from the
// current smoothed cutoff/Q for the voice's selected filter type.
func (v *Voice) applyFilter(frequency, q float64) {
	switch v.filterType {
	case filter.TypeLowPass:
		v.biquad.SetLowPass(v.sampleRate, frequency, q)
	case filter.TypeHighPass:
		v.biquad.SetHighPass(v.sampleRate, frequency, q)
	default:
		v.biquad.SetBypass()
	}
}

func (v *Voice) sliceSample() float32 {
	s := v.currentSlice()
	if s == nil || v.slicePastEnd || len(s.Samples) == 0 {
		return 0
	}
	if v.sliceOffset < 0 {
		return 0
	}
	i0 := int(v.sliceOffset)
	if i0 >= len(s.Samples) {
		return 0
	}
	frac := float32(v.sliceOffset - float64(i0))
	var y1 float32
	if i0+1 < len(s.Samples) {
		y1 = s.Samples[i0+1]
	}
	return interpolation.Linear(s.Samples[i0], y1, frac)
}

// advance steps the slice cursor by one sample, and — for OscFm/OscMf,
// where oscSampleFor left the oscillator phase untouched — advances the
// oscillator phase by its increment modulated by the slice sample, scaled
// by oscMix as the modulation index. Every other mode already had its
// phase advanced by oscillator.Next inside oscSampleFor.
func (v *Voice) advance(oscMix float64, sliceSample float32) {
	if v.oscMode == OscFm || v.oscMode == OscMf {
		increment := v.oscIncrement + float64(sliceSample)*oscMix*v.oscIncrement
		v.osc.SetPhase(v.osc.Phase() + increment - math.Floor(v.osc.Phase()+increment))
	}

	s := v.currentSlice()
	if s == nil || len(s.Samples) == 0 {
		return
	}
	v.sliceOffset += v.sliceIncrement
	length := float64(len(s.Samples))
	switch v.sliceMode {
	case SliceLoop:
		for v.sliceOffset >= length {
			v.sliceOffset -= length
		}
	case SliceOnce:
		if v.sliceOffset >= length {
			v.slicePastEnd = true
			v.env.Reset()
		}
	default: // SliceSustain
		if v.sliceOffset >= length-1 {
			v.sliceOffset = length - 1
		}
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
