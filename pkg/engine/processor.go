// Package engine implements spec.md §4.9 (the mix-bus processor) and
// §4.11 (the Musician driver that owns instrument/performer pools and
// steps the beat timeline). There is no single teacher file for a
// multi-instrument mix bus; the shared delay/compressor/duck chain is
// grounded on pkg/dsp/delay, pkg/dsp/dynamics directly, wired together in
// the per-sample order spec.md §4.9 lists, the same "read registry once
// per sample, push targets into smoothed params" discipline
// pkg/instrument.Processor.renderFrame already uses.
package engine

import (
	"barelymusician/pkg/dsp/delay"
	"barelymusician/pkg/dsp/dynamics"
	"barelymusician/pkg/dsp/utility"
	"barelymusician/pkg/logging"
	"barelymusician/pkg/message"
	"barelymusician/pkg/queue"
)

// mixBusSmoothBlockFrames mirrors voice.smoothBlockFrames: the "N≈one
// audio block" time constant spec.md §4.5 step 7 and §4.9's closing
// sentence ("All mix-bus parameters are ramped per-sample (same
// smoothing discipline as voice params)") both point at.
const mixBusSmoothBlockFrames = 64.0

// mixParams holds one smoothed copy of every mix-bus control, so the
// delay/duck/compressor stages ramp toward a changed control instead of
// jumping (spec.md §4.9: "All mix-bus parameters are ramped per-sample").
type mixParams struct {
	delayTime     *utility.SmoothParameter
	delayFeedback *utility.SmoothParameter
	delayMix      *utility.SmoothParameter
	delayLPFreq   *utility.SmoothParameter
	delayHPFreq   *utility.SmoothParameter

	duckThreshold *utility.SmoothParameter
	duckRatio     *utility.SmoothParameter
	duckMix       *utility.SmoothParameter

	compThreshold *utility.SmoothParameter
	compRatio     *utility.SmoothParameter
	compAttack    *utility.SmoothParameter
	compRelease   *utility.SmoothParameter
	compKnee      *utility.SmoothParameter
	compMix       *utility.SmoothParameter
}

func newMixParams(sampleRate float64) *mixParams {
	smoothTime := mixBusSmoothBlockFrames / sampleRate
	mk := func(value float64) *utility.SmoothParameter {
		sp := utility.NewSmoothParameter(smoothTime, sampleRate)
		sp.SetImmediate(value)
		return sp
	}
	return &mixParams{
		delayTime:     mk(0.3),
		delayFeedback: mk(0.3),
		delayMix:      mk(0),
		delayLPFreq:   mk(8000),
		delayHPFreq:   mk(80),
		duckThreshold: mk(-20),
		duckRatio:     mk(4),
		duckMix:       mk(0),
		compThreshold: mk(-20),
		compRatio:     mk(4),
		compAttack:    mk(0.005),
		compRelease:   mk(0.05),
		compKnee:      mk(2),
		compMix:       mk(1),
	}
}

// Processor is the engine's audio-thread mix bus: it reads the three
// per-instrument running sums (voice output, delay send, sidechain send)
// that every instrument.Processor.Process call accumulates into, and
// applies the shared sidechain duck, delay, and compressor stages in
// that order, per spec.md §4.9.
type Processor struct {
	sampleRate float64

	registry *EngineRegistry
	ring     *queue.Ring
	params   *mixParams

	duck       *dynamics.Duck
	delayLine  *delay.Stereo
	compressor *dynamics.Compressor
}

// NewProcessor creates a mix-bus processor sharing registry (the engine's
// control set) and ring (its engine-control/tempo queue) with the
// matching Musician driver.
func NewProcessor(sampleRate float64, registry *EngineRegistry, ring *queue.Ring) *Processor {
	return &Processor{
		sampleRate: sampleRate,
		registry:   registry,
		ring:       ring,
		params:     newMixParams(sampleRate),
		duck:       dynamics.NewDuck(sampleRate),
		delayLine:  delay.NewStereo(maxDelaySeconds, sampleRate),
		compressor: dynamics.NewCompressor(sampleRate),
	}
}

// ApplyMessage applies one drained engine-side message.
func (p *Processor) ApplyMessage(msg message.Message) {
	switch msg.Kind {
	case message.KindEngineControl:
		p.registry.Set(msg.EngineControlID, float64(msg.Value))
	case message.KindTempoChange:
		// Tempo doesn't feed the per-sample DSP chain (no tempo-synced mix-
		// bus parameter is named by spec.md); logged for audio-thread
		// observability only.
		logging.Default().Debug("engine: tempo changed to %.2f", msg.Tempo)
	}
}

// applyRegistry pushes the current raw control values into the mix-bus
// params' smoothing targets; it does not touch the DSP stages themselves.
// Called once per rendered frame, matching instrument.Processor.renderFrame's
// "read registry once per sample, push into smoothed params" discipline.
func (p *Processor) applyRegistry() {
	p.params.delayTime.SetTarget(p.registry.Get(message.EngineControlDelayTime).Get())
	p.params.delayFeedback.SetTarget(p.registry.Get(message.EngineControlDelayFeedback).Get())
	p.params.delayMix.SetTarget(p.registry.Get(message.EngineControlDelayMix).Get())
	p.params.delayLPFreq.SetTarget(p.registry.Get(message.EngineControlDelayLowPassFrequency).Get())
	p.params.delayHPFreq.SetTarget(p.registry.Get(message.EngineControlDelayHighPassFrequency).Get())

	p.params.duckThreshold.SetTarget(p.registry.Get(message.EngineControlSidechainThreshold).Get())
	p.params.duckRatio.SetTarget(p.registry.Get(message.EngineControlSidechainRatio).Get())
	p.params.duckMix.SetTarget(p.registry.Get(message.EngineControlSidechainMix).Get())

	p.params.compThreshold.SetTarget(p.registry.Get(message.EngineControlCompressorThreshold).Get())
	p.params.compRatio.SetTarget(p.registry.Get(message.EngineControlCompressorRatio).Get())
	p.params.compAttack.SetTarget(p.registry.Get(message.EngineControlCompressorAttack).Get())
	p.params.compRelease.SetTarget(p.registry.Get(message.EngineControlCompressorRelease).Get())
	p.params.compKnee.SetTarget(p.registry.Get(message.EngineControlCompressorKnee).Get())
	p.params.compMix.SetTarget(p.registry.Get(message.EngineControlCompressorMix).Get())
}

// applySmoothed advances every mix-bus param by one smoothing step and
// pushes the result into the delay/duck/compressor stages, per spec.md
// §4.9's closing sentence.
func (p *Processor) applySmoothed() {
	p.delayLine.SetDelayFrames(p.params.delayTime.Process() * p.sampleRate)
	p.delayLine.SetFeedback(float32(p.params.delayFeedback.Process()))
	p.delayLine.SetMix(float32(p.params.delayMix.Process()))
	p.delayLine.SetLowPassCutoff(p.sampleRate, p.params.delayLPFreq.Process())
	p.delayLine.SetHighPassCutoff(p.sampleRate, p.params.delayHPFreq.Process())

	p.duck.SetThreshold(p.params.duckThreshold.Process())
	p.duck.SetRatio(p.params.duckRatio.Process())
	p.duck.SetMix(p.params.duckMix.Process())

	p.compressor.SetThreshold(p.params.compThreshold.Process())
	p.compressor.SetRatio(p.params.compRatio.Process())
	p.compressor.SetAttack(p.params.compAttack.Process())
	p.compressor.SetRelease(p.params.compRelease.Process())
	p.compressor.SetKnee(dynamics.KneeSoft, p.params.compKnee.Process())
	p.compressor.SetMix(p.params.compMix.Process())
}

// Process drains and applies any due engine-level messages, then renders
// frameCount frames, reading registry values once per frame (matching the
// per-sample ramping discipline instrument.Processor uses). outSum,
// delaySum, and sidechainSum are the three interleaved-stereo running sums
// every instrument accumulated into for this block (each must be at least
// 2*frameCount long); output is the final interleaved mix, channelCount
// wide per frame (1 downmixes L+R, 2 passes both channels through).
func (p *Processor) Process(outSum, delaySum, sidechainSum []float32, frameCount int, startFrame int64, output []float32, channelCount int) {
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
			p.renderFrame(outSum, delaySum, sidechainSum, sampleIdx, output, channelCount)
			sampleIdx++
			cursor++
		}
		if !ok {
			break
		}
		p.ApplyMessage(msg)
		p.ring.Pop()
	}
}

func (p *Processor) renderFrame(outSum, delaySum, sidechainSum []float32, sampleIdx int, output []float32, channelCount int) {
	p.applyRegistry()
	p.applySmoothed()

	i := sampleIdx * 2
	mainL, mainR := outSum[i], outSum[i+1]
	scL, scR := sidechainSum[i], sidechainSum[i+1]
	dL, dR := delaySum[i], delaySum[i+1]

	scPeak := scL
	if scR > scPeak {
		scPeak = scR
	}
	if -scR > scPeak {
		scPeak = -scR
	}
	if -scL > scPeak {
		scPeak = -scL
	}
	duckGain := p.duck.Next(scPeak)
	mainL *= duckGain
	mainR *= duckGain

	wetL, wetR := p.delayLine.Process(dL, dR)
	mainL += wetL
	mainR += wetR

	mainL, mainR = p.compressor.ProcessStereoSample(mainL, mainR)

	o := sampleIdx * channelCount
	switch channelCount {
	case 1:
		output[o] = (mainL + mainR) * 0.5
	default:
		output[o] = mainL
		if channelCount > 1 {
			output[o+1] = mainR
		}
		for c := 2; c < channelCount; c++ {
			output[o+c] = 0
		}
	}
}

// Reset clears all mix-bus DSP state (delay line, duck/compressor
// detectors), per spec.md §4.9's expectation that stopping and restarting
// the engine doesn't leave stale delay tails or gain-reduction state.
func (p *Processor) Reset() {
	p.delayLine.Reset()
	p.duck.Reset()
	p.compressor.Reset()
}
