package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barelymusician/pkg/message"
)

const testSampleRate = 48000.0

// TestAddRemoveInstrumentInvalidatesHandle confirms a stale handle (one
// whose slot has been reused by a later AddInstrument) no longer reaches
// the removed instrument, per the generational-handle contract.
func TestAddRemoveInstrumentInvalidatesHandle(t *testing.T) {
	m := New(testSampleRate)
	h1 := m.AddInstrument()
	m.RemoveInstrument(h1)
	h2 := m.AddInstrument()

	assert.NotEqual(t, h1, h2)
	assert.False(t, m.IsNoteOn(h1, 60))
	m.SetNoteOn(h1, 60) // no-op: h1's slot now belongs to h2's generation
	assert.False(t, m.IsNoteOn(h2, 60))

	m.SetNoteOn(h2, 60)
	assert.True(t, m.IsNoteOn(h2, 60))
}

// TestProcessRendersAudibleOutput confirms a note-on followed by Process
// produces non-silent interleaved stereo output for a single instrument.
func TestProcessRendersAudibleOutput(t *testing.T) {
	m := New(testSampleRate)
	h := m.AddInstrument()
	m.SetNoteOn(h, 60)

	out := make([]float32, 256*2)
	ok := m.Process(h, out, 256, 2, 0)
	require.True(t, ok)

	var peak float32
	for _, s := range out {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	assert.Greater(t, peak, float32(0))
}

// TestProcessMonoDownmixesStereo confirms channelCount=1 averages L and R.
func TestProcessMonoDownmixesStereo(t *testing.T) {
	m := New(testSampleRate)
	h := m.AddInstrument()
	m.SetControl(h, message.ControlStereoPan, 0)
	m.SetNoteOn(h, 60)

	stereo := make([]float32, 32*2)
	m.Process(h, stereo, 32, 2, 0)

	m2 := New(testSampleRate)
	h2 := m2.AddInstrument()
	m2.SetControl(h2, message.ControlStereoPan, 0)
	m2.SetNoteOn(h2, 60)
	mono := make([]float32, 32)
	m2.Process(h2, mono, 32, 1, 0)

	for i := 0; i < 32; i++ {
		expected := (stereo[i*2] + stereo[i*2+1]) * 0.5
		assert.InDelta(t, expected, mono[i], 1e-6)
	}
}

// TestProcessMixAppliesEngineEffects confirms ProcessMix runs the shared
// delay chain: after the dry note releases, the delay's feedback loop
// still carries audible energy fed by the sustained portion rendered
// just before note-off.
func TestProcessMixAppliesEngineEffects(t *testing.T) {
	m := New(testSampleRate)
	h := m.AddInstrument()
	m.SetControl(h, message.ControlDelaySend, 1)
	m.SetControl(h, message.ControlRelease, 0.001)
	m.SetEngineControl(message.EngineControlDelayTime, 0.01)
	m.SetEngineControl(message.EngineControlDelayFeedback, 0.8)
	m.SetEngineControl(message.EngineControlDelayMix, 1.0)
	m.SetNoteOn(h, 60)

	sustained := make([]float32, 1000*2)
	m.ProcessMix(sustained, 1000, 2, 0)

	m.SetNoteOff(h, 60)
	tail := make([]float32, 2000*2)
	m.ProcessMix(tail, 2000, 2, float64(1000)/testSampleRate)

	var tailEnergy float32
	for _, s := range tail {
		if s < 0 {
			s = -s
		}
		tailEnergy += s
	}
	assert.Greater(t, tailEnergy, float32(0), "delayed feedback should still carry energy after the dry note has released")
}

// TestUpdateFiresPerformerTasks confirms Musician.Update steps a
// performer's timeline and fires its due tasks.
func TestUpdateFiresPerformerTasks(t *testing.T) {
	m := New(testSampleRate)
	m.SetTempo(120) // 2 beats/second
	ph := m.AddPerformer()
	m.StartPerformer(ph)

	var fired int
	m.AddTask(ph, 1.0, 0, func() { fired++ })

	m.Update(0.4) // absolute timestamp 0.4s == 0.8 beats: task not yet reached
	assert.Equal(t, 0, fired)

	m.Update(1.0) // absolute timestamp 1.0s == 2.0 beats: crossed position 1.0
	assert.Equal(t, 1, fired)
}

// TestUpdateStepsArpeggiator confirms Update also advances each
// instrument's arpeggiator.
func TestUpdateStepsArpeggiator(t *testing.T) {
	m := New(testSampleRate)
	m.SetTempo(120)
	h := m.AddInstrument()

	var onCount int
	m.SetNoteOnEvent(h, func(float32) { onCount++ })
	m.SetControl(h, message.ControlArpRate, 4)
	m.SetNoteOn(h, 60)
	m.SetNoteOn(h, 64)
	require.Equal(t, 0, onCount)

	m.Update(2.0)
	assert.Greater(t, onCount, 0)
}

// TestRemovedInstrumentStopsRenderingInMix confirms ProcessMix skips a
// removed instrument's slot.
func TestRemovedInstrumentStopsRenderingInMix(t *testing.T) {
	m := New(testSampleRate)
	h := m.AddInstrument()
	m.SetNoteOn(h, 60)
	m.RemoveInstrument(h)

	out := make([]float32, 64*2)
	m.ProcessMix(out, 64, 2, 0)
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}
