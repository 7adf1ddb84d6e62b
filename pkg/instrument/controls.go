package instrument

import (
	"barelymusician/pkg/control"
	"barelymusician/pkg/message"
)

const maxVoiceCount = 16

// NewControlRegistry builds the fixed set of per-instrument controls
// spec.md §3 lists ("Typical control types per instrument include: gain,
// pitch_shift, stereo_pan, retrigger, voice_count, attack, decay, sustain,
// release, osc_mix, osc_mode, osc_noise_mix, osc_pitch_shift, osc_shape,
// osc_skew, slice_mode, bit_crusher_depth, bit_crusher_rate,
// distortion_mix, distortion_drive, filter_type, filter_frequency,
// filter_q, arp_mode, arp_gate_ratio, arp_rate, delay_send,
// sidechain_send"), each a control.Control with the (min, max, default)
// triple spec.md's clamp-on-set model requires.
func NewControlRegistry() *control.Registry {
	r := control.NewRegistry()
	add := func(id message.ControlID, min, max, def float64) {
		r.Add(id, control.New(min, max, def))
	}

	add(message.ControlGain, 0, 4, 1)
	add(message.ControlPitchShift, -24, 24, 0)
	add(message.ControlStereoPan, -1, 1, 0)
	add(message.ControlRetrigger, 0, 1, 0)
	add(message.ControlVoiceCount, 1, maxVoiceCount, 8)
	add(message.ControlAttack, 0, 10, 0.01)
	add(message.ControlDecay, 0, 10, 0.1)
	add(message.ControlSustain, 0, 1, 0.8)
	add(message.ControlRelease, 0, 10, 0.2)
	add(message.ControlOscMix, 0, 1, 1)
	add(message.ControlOscMode, 0, 5, 0)
	add(message.ControlOscNoiseMix, 0, 1, 0)
	add(message.ControlOscPitchShift, -24, 24, 0)
	add(message.ControlOscShape, 0, 1, 0)
	add(message.ControlOscSkew, 0, 1, 0.5)
	add(message.ControlSliceMode, 0, 2, 0)
	add(message.ControlBitCrusherDepth, 0, 1, 0)
	add(message.ControlBitCrusherRate, 0, 1, 1)
	add(message.ControlDistortionMix, 0, 1, 0)
	add(message.ControlDistortionDrive, 1, 10, 1)
	add(message.ControlFilterType, 0, 2, 0)
	add(message.ControlFilterFrequency, 20, 20000, 20000)
	add(message.ControlFilterQ, 0.1, 10, 0.707)
	add(message.ControlArpMode, 0, 2, 0)
	add(message.ControlArpGateRatio, 0, 1, 0.5)
	add(message.ControlArpRate, 0, 32, 0)
	add(message.ControlDelaySend, 0, 1, 0)
	add(message.ControlSidechainSend, 0, 1, 0)

	return r
}

// NoteControls is the per-note control set spec.md §3 names: "Per-note
// controls: gain, pitch_shift." Each sounding pitch gets its own copy,
// built fresh by the controller at note-on.
type NoteControls struct {
	Gain       *control.Control
	PitchShift *control.Control
}

// NewNoteControls creates a note-control block with spec.md's defaults.
func NewNoteControls() *NoteControls {
	return &NoteControls{
		Gain:       control.New(0, 4, 1),
		PitchShift: control.New(-24, 24, 0),
	}
}
