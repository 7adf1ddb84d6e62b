package instrument

import (
	"barelymusician/pkg/assert"
	"barelymusician/pkg/control"
	"barelymusician/pkg/dsp/filter"
	"barelymusician/pkg/logging"
	"barelymusician/pkg/message"
	"barelymusician/pkg/queue"
	"barelymusician/pkg/slicedata"
	"barelymusician/pkg/voice"
)

func defaultDropLogger(instrumentID uint32, kind message.Kind) {
	logging.Default().Warn("instrument %d: queue full, dropped message kind %d", instrumentID, kind)
}

// bitCrusherSteps is the step count spanned by bit_crusher_depth=1, an
// implementation choice: spec.md names the control but not its mapping
// onto pkg/dsp/distortion.BitCrusher's (range, increment) pair. depth=0
// bypasses entirely (range<=0), matching the control's own default.
const bitCrusherSteps = 256.0

// Processor is one instrument's audio-side voice pool: spec.md §4.6's
// fixed array of max_voice_count voices, retrigger/steal acquisition, and
// per-sample parameter ramping pulled from the shared control.Registry.
type Processor struct {
	instrumentID uint32
	sampleRate   float64

	registry *control.Registry
	ring     *queue.Ring
	pool     *slicedata.Pool

	voices     []*voice.Voice
	pitchVoice map[float32]int

	sliceHead int32
}

// NewProcessor creates a processor with maxVoices pre-allocated voices,
// sharing registry and ring with the matching Controller, and pool for
// slice playback.
func NewProcessor(instrumentID uint32, sampleRate float64, maxVoices int, registry *control.Registry, ring *queue.Ring, pool *slicedata.Pool) *Processor {
	voices := make([]*voice.Voice, maxVoices)
	for i := range voices {
		voices[i] = voice.New(sampleRate, pool)
	}
	return &Processor{
		instrumentID: instrumentID,
		sampleRate:   sampleRate,
		registry:     registry,
		ring:         ring,
		pool:         pool,
		voices:       voices,
		pitchVoice:   make(map[float32]int, maxVoices),
		sliceHead:    noSliceHead,
	}
}

func (p *Processor) voiceCount() int {
	n := int(p.registry.Get(message.ControlVoiceCount).Get())
	if n < 1 {
		n = 1
	}
	if n > len(p.voices) {
		n = len(p.voices)
	}
	return n
}

func (p *Processor) bumpTimestamps(selected int) {
	for i, v := range p.voices {
		if i == selected {
			v.SetTimestamp(0)
		} else {
			v.SetTimestamp(v.Timestamp() + 1)
		}
	}
}

// acquireVoice implements spec.md §4.6's note-on voice acquisition: reuse
// a retriggered voice already on pitch, else the first inactive slot, else
// steal the oldest (largest timestamp) voice.
func (p *Processor) acquireVoice(pitch float32) (idx int, reused bool) {
	voiceCount := p.voiceCount()
	retrigger := p.registry.Get(message.ControlRetrigger).Get() != 0

	if retrigger {
		if i, ok := p.pitchVoice[pitch]; ok && p.voices[i].IsActive() && p.voices[i].Pitch() == pitch {
			p.bumpTimestamps(i)
			return i, true
		}
	}

	for i := 0; i < voiceCount; i++ {
		if !p.voices[i].IsActive() {
			p.bumpTimestamps(i)
			return i, false
		}
	}

	stealIdx := 0
	maxTs := int64(-1)
	for i := 0; i < voiceCount; i++ {
		if ts := p.voices[i].Timestamp(); ts > maxTs {
			maxTs = ts
			stealIdx = i
		}
	}
	assert.Check(stealIdx >= 0 && stealIdx < voiceCount, "acquireVoice: steal index %d out of range [0,%d)", stealIdx, voiceCount)
	p.bumpTimestamps(stealIdx)
	return stealIdx, false
}

func (p *Processor) noteOn(pitch float32, gain, pitchShift float32) {
	idx, reused := p.acquireVoice(pitch)
	v := p.voices[idx]

	attack := p.registry.Get(message.ControlAttack).Get()
	decay := p.registry.Get(message.ControlDecay).Get()
	sustain := p.registry.Get(message.ControlSustain).Get()
	release := p.registry.Get(message.ControlRelease).Get()

	if reused {
		v.Retrigger(attack, decay, sustain, release)
	} else {
		v.SetFilterType(p.currentFilterType())
		v.SetOscMode(voice.OscMode(int(p.registry.Get(message.ControlOscMode).Get())))
		v.SetSliceMode(voice.SliceMode(int(p.registry.Get(message.ControlSliceMode).Get())))
		v.Start(pitch+pitchShift, gain, attack, decay, sustain, release, p.sliceHead)
	}
	p.pitchVoice[pitch] = idx
}

func (p *Processor) noteOff(pitch float32) {
	if idx, ok := p.pitchVoice[pitch]; ok {
		p.voices[idx].Stop()
	}
}

func (p *Processor) currentFilterType() filter.Type {
	switch int(p.registry.Get(message.ControlFilterType).Get()) {
	case 1:
		return filter.TypeLowPass
	case 2:
		return filter.TypeHighPass
	default:
		return filter.TypeNone
	}
}

// ApplyMessage applies one drained control->audio message to processor
// state. Exported so Musician/engine test harnesses can drive it directly.
func (p *Processor) ApplyMessage(msg message.Message) {
	switch msg.Kind {
	case message.KindControl:
		p.registry.Set(msg.ControlID, float64(msg.Value))
	case message.KindNoteControl:
		if idx, ok := p.pitchVoice[msg.Pitch]; ok {
			switch msg.NoteControlID {
			case message.NoteControlGain:
				p.voices[idx].SetNoteGain(msg.Value)
			case message.NoteControlPitchShift:
				p.voices[idx].SetNotePitchShift(msg.Value)
			}
		}
	case message.KindNoteOn:
		p.noteOn(msg.Pitch, msg.NoteOn.Gain, msg.NoteOn.PitchShift)
	case message.KindNoteOff:
		p.noteOff(msg.Pitch)
	case message.KindSampleDataBind:
		p.sliceHead = int32(uint32(msg.SliceHandle))
	}
}

// Process renders frameCount frames starting at startFrame, draining and
// applying any due messages in between, and accumulates this instrument's
// contribution into the three stereo running sums (spec.md §4.9 step 1):
// outSum (voice output), delaySum (delay send), sidechainSum (sidechain
// send). Each sum buffer is interleaved L,R and must be at least
// 2*frameCount long; Process adds into it rather than overwriting.
func (p *Processor) Process(outSum, delaySum, sidechainSum []float32, frameCount int, startFrame int64) {
	assert.Check(len(outSum) >= frameCount*2 && len(delaySum) >= frameCount*2 && len(sidechainSum) >= frameCount*2,
		"Process: sum buffers shorter than frameCount*2=%d", frameCount*2)
	endFrame := startFrame + int64(frameCount)
	cursor := startFrame
	sampleIdx := 0

	for {
		msg, frame, ok := p.ring.PeekNext(endFrame)
		renderUntil := endFrame
		if ok {
			renderUntil = frame
		}
		for cursor < renderUntil {
			p.renderFrame(outSum, delaySum, sidechainSum, sampleIdx)
			sampleIdx++
			cursor++
		}
		if !ok {
			break
		}
		p.ApplyMessage(msg)
		p.ring.Pop()
	}

	p.pool.PublishSafeFrame(endFrame)
}

func (p *Processor) renderFrame(outSum, delaySum, sidechainSum []float32, sampleIdx int) {
	gain := p.registry.Get(message.ControlGain).Get()
	pan := p.registry.Get(message.ControlStereoPan).Get()
	oscMix := p.registry.Get(message.ControlOscMix).Get()
	oscNoiseMix := p.registry.Get(message.ControlOscNoiseMix).Get()
	oscShape := p.registry.Get(message.ControlOscShape).Get()
	oscSkew := p.registry.Get(message.ControlOscSkew).Get()
	oscPitchShift := p.registry.Get(message.ControlOscPitchShift).Get()
	filterFreq := p.registry.Get(message.ControlFilterFrequency).Get()
	filterQ := p.registry.Get(message.ControlFilterQ).Get()
	depth := p.registry.Get(message.ControlBitCrusherDepth).Get()
	bitRate := p.registry.Get(message.ControlBitCrusherRate).Get()
	distMix := p.registry.Get(message.ControlDistortionMix).Get()
	distDrive := p.registry.Get(message.ControlDistortionDrive).Get()
	delaySend := p.registry.Get(message.ControlDelaySend).Get()
	sidechainSend := p.registry.Get(message.ControlSidechainSend).Get()

	bitRange := 0.0
	if depth > 0 {
		bitRange = bitCrusherSteps * depth / 2.0
	}

	i := sampleIdx * 2
	for _, v := range p.voices {
		if !v.IsActive() {
			continue
		}
		params := v.Params()
		params.Gain.SetTarget(gain)
		params.StereoPan.SetTarget(pan)
		params.OscMix.SetTarget(oscMix)
		params.OscNoiseMix.SetTarget(oscNoiseMix)
		params.OscShape.SetTarget(oscShape)
		params.OscSkew.SetTarget(oscSkew)
		params.OscPitchShift.SetTarget(oscPitchShift)
		params.FilterFrequency.SetTarget(filterFreq)
		params.FilterQ.SetTarget(filterQ)
		params.BitCrusherRange.SetTarget(bitRange)
		params.BitCrusherRate.SetTarget(bitRate)
		params.DistortionMix.SetTarget(distMix)
		params.DistortionDrive.SetTarget(distDrive)
		params.DelaySend.SetTarget(delaySend)
		params.SidechainSend.SetTarget(sidechainSend)

		outL, outR, dL, dR, scL, scR := v.Next()
		outSum[i] += outL
		outSum[i+1] += outR
		delaySum[i] += dL
		delaySum[i+1] += dR
		sidechainSum[i] += scL
		sidechainSum[i+1] += scR
	}
}

// MaxVoiceCount is the number of voices each instrument processor allocates.
const MaxVoiceCount = maxVoiceCount
