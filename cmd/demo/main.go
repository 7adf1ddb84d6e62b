// Command demo drives a Musician through one control-thread/audio-thread
// cycle: it schedules a short performer-driven chord progression, steps the
// beat timeline, and renders the mixed output to stdout as a summary of the
// rendered blocks. It has no real audio I/O backend; a host embedding this
// engine would instead feed ProcessMix's output to its device callback.
package main

import (
	"fmt"

	"barelymusician/pkg/engine"
	"barelymusician/pkg/logging"
	"barelymusician/pkg/message"
)

const sampleRate = 48000.0

func main() {
	logging.SetLevel(logging.Info)

	m := engine.New(sampleRate)
	m.SetTempo(120)

	lead := m.AddInstrument()
	m.SetControl(lead, message.ControlGain, 0.6)
	m.SetControl(lead, message.ControlAttack, 0.005)
	m.SetControl(lead, message.ControlRelease, 0.2)
	m.SetControl(lead, message.ControlDelaySend, 0.4)

	m.SetEngineControl(message.EngineControlDelayTime, 0.25)
	m.SetEngineControl(message.EngineControlDelayFeedback, 0.35)
	m.SetEngineControl(message.EngineControlDelayMix, 0.3)

	m.SetNoteOnEvent(lead, func(pitch float32) {
		fmt.Printf("note on  pitch=%.2f timestamp=%.3fs\n", pitch, m.Timestamp())
	})
	m.SetNoteOffEvent(lead, func(pitch float32) {
		fmt.Printf("note off pitch=%.2f timestamp=%.3fs\n", pitch, m.Timestamp())
	})

	chord := m.AddPerformer()
	m.StartPerformer(chord)
	m.SetPerformerLooping(chord, true)
	m.SetPerformerLoopLength(chord, 4)

	pitches := []float32{60, 64, 67, 72}
	for i, pitch := range pitches {
		p := pitch
		beat := float64(i)
		m.AddTask(chord, beat, 0, func() { m.SetNoteOn(lead, p) })
		m.AddTask(chord, beat+0.9, 0, func() { m.SetNoteOff(lead, p) })
	}

	const blockFrames = 512
	out := make([]float32, blockFrames*2)
	var blocksRendered int
	var totalEnergy float32

	// Advance the timeline in 10ms steps, rendering one mixed audio block
	// per step, for eight seconds: 16 beats at 120 BPM, four full loops of
	// the four-beat progression.
	const stepSeconds = 0.01
	for elapsed := 0.0; elapsed < 8.0; elapsed += stepSeconds {
		m.Update(elapsed)
		m.ProcessMix(out, blockFrames, 2, elapsed)
		blocksRendered++

		for _, s := range out {
			if s < 0 {
				s = -s
			}
			totalEnergy += s
		}
	}

	fmt.Printf("rendered %d blocks (%d frames), total |sample| energy %.2f\n",
		blocksRendered, blocksRendered*blockFrames, totalEnergy)
}
