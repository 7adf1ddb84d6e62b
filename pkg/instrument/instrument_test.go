package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barelymusician/pkg/message"
	"barelymusician/pkg/queue"
	"barelymusician/pkg/slicedata"
)

const testSampleRate = 48000.0

// harness pairs a Controller and Processor sharing one registry, ring,
// and pool, and tracks the cumulative audio-thread frame cursor so
// successive render calls advance the same frame stamps the control
// thread's enqueue calls use.
type harness struct {
	c      *Controller
	p      *Processor
	pool   *slicedata.Pool
	cursor int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	registry := NewControlRegistry()
	ring := queue.NewRing(queue.DefaultCapacity)
	pool := slicedata.NewPool(8)
	return &harness{
		c:    NewController(1, registry, ring, pool),
		p:    NewProcessor(1, testSampleRate, MaxVoiceCount, registry, ring, pool),
		pool: pool,
	}
}

// render advances n frames from the harness's current cursor and returns
// the interleaved stereo voice-output sum.
func (h *harness) render(n int) []float32 {
	outSum := make([]float32, n*2)
	delaySum := make([]float32, n*2)
	sidechainSum := make([]float32, n*2)
	h.p.Process(outSum, delaySum, sidechainSum, n, h.cursor)
	h.cursor += int64(n)
	return outSum
}

func (h *harness) activeVoiceCount() int {
	n := 0
	for _, v := range h.p.voices {
		if v.IsActive() {
			n++
		}
	}
	return n
}

// TestNoteOnProducesSound confirms a note-on routed through the ring
// makes a voice active and Process renders non-silent output.
func TestNoteOnProducesSound(t *testing.T) {
	h := newHarness(t)
	h.c.SetNoteOn(h.cursor, 60)

	out := h.render(256)
	var peak float32
	for _, s := range out {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	assert.Greater(t, peak, float32(0), "note-on should produce audible output")
}

// TestDuplicateNoteOnIsNoOp confirms a second note-on for an already-held
// pitch does not retrigger or steal a second voice.
func TestDuplicateNoteOnIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.c.SetNoteOn(h.cursor, 60)
	h.c.SetNoteOn(h.cursor, 60)
	require.True(t, h.c.IsNoteOn(60))

	h.render(16)
	assert.Equal(t, 1, h.activeVoiceCount())
}

// TestNoteOffReleasesVoice confirms note-off moves the voice into release
// and it eventually goes silent.
func TestNoteOffReleasesVoice(t *testing.T) {
	h := newHarness(t)
	h.c.SetControl(h.cursor, message.ControlRelease, 0.001)
	h.c.SetControl(h.cursor, message.ControlAttack, 0.0001)
	h.c.SetControl(h.cursor, message.ControlDecay, 0.0001)
	h.c.SetNoteOn(h.cursor, 60)
	h.render(64)

	h.c.SetNoteOff(h.cursor, 60)
	h.render(int(testSampleRate)) // long enough for release to finish
	assert.False(t, h.p.voices[0].IsActive())
}

// TestVoiceStealingPrefersInactiveThenOldest exercises spec.md §4.6's
// acquisition order: with voice_count=2 and two notes already sounding, a
// third note-on steals the oldest voice rather than denying the note.
func TestVoiceStealingPrefersInactiveThenOldest(t *testing.T) {
	h := newHarness(t)
	h.c.SetControl(h.cursor, message.ControlVoiceCount, 2)
	h.c.SetNoteOn(h.cursor, 60)
	h.render(8)
	h.c.SetNoteOn(h.cursor, 64)
	h.render(8)
	h.c.SetNoteOn(h.cursor, 67)
	h.render(8)

	assert.Equal(t, float32(67), h.p.voices[h.p.pitchVoice[67]].Pitch(),
		"the oldest of the two active voices should have been stolen for the new note")
}

// TestRetriggerReusesVoice confirms retrigger=1 reuses the same voice slot
// for a repeated note-on at the same pitch instead of stealing another.
func TestRetriggerReusesVoice(t *testing.T) {
	h := newHarness(t)
	h.c.SetControl(h.cursor, message.ControlRetrigger, 1)
	h.c.SetNoteOn(h.cursor, 60)
	h.render(8)
	firstIdx := h.p.pitchVoice[60]

	h.c.SetNoteOff(h.cursor, 60)
	h.c.SetNoteOn(h.cursor, 60)
	h.render(8)
	assert.Equal(t, firstIdx, h.p.pitchVoice[60])
}

// TestArpeggiatorCyclesHeldNotes confirms enabling the arpeggiator (rate >
// 0) defers note-on events to step boundaries instead of firing all held
// notes at once.
func TestArpeggiatorCyclesHeldNotes(t *testing.T) {
	h := newHarness(t)
	var onPitches []float32
	h.c.SetNoteOnEvent(func(p float32) { onPitches = append(onPitches, p) })

	h.c.SetControl(h.cursor, message.ControlArpRate, 4)
	h.c.SetControl(h.cursor, message.ControlArpGateRatio, 0.5)
	h.c.SetNoteOn(h.cursor, 60)
	h.c.SetNoteOn(h.cursor, 64)
	h.c.SetNoteOn(h.cursor, 67)
	require.Empty(t, onPitches, "notes held under an active arp don't sound immediately")

	for i := 0; i < 8; i++ {
		h.c.StepArp(h.cursor, 0.25)
	}
	assert.GreaterOrEqual(t, len(onPitches), 2)
}

// TestArpOffFiresNotesImmediately confirms rate<=0 (off) behaves like no
// arpeggiator at all: note-on fires right away.
func TestArpOffFiresNotesImmediately(t *testing.T) {
	h := newHarness(t)
	var fired bool
	h.c.SetNoteOnEvent(func(float32) { fired = true })
	h.c.SetNoteOn(h.cursor, 60)
	assert.True(t, fired)
}

// TestResetAllControlsRestoresDefaults confirms ResetAllControls applies
// every (id, default) pair given.
func TestResetAllControlsRestoresDefaults(t *testing.T) {
	h := newHarness(t)
	h.c.SetControl(h.cursor, message.ControlGain, 2.5)
	h.c.ResetAllControls(h.cursor, map[message.ControlID]float64{message.ControlGain: 1.0})
	assert.Equal(t, 1.0, h.c.GetControl(message.ControlGain))
}

// TestSampleDataBindSelectsNearestRootPitch confirms a bound sample-data
// chain is picked up by subsequent notes via the slice pool.
func TestSampleDataBindSelectsNearestRootPitch(t *testing.T) {
	h := newHarness(t)
	head, ok := h.pool.Acquire([]slicedata.Slice{
		{Samples: make([]float32, 256), SampleRate: int32(testSampleRate), RootPitch: 60},
	})
	require.True(t, ok)
	h.c.SetSampleData(h.cursor, head)
	h.c.SetNoteOn(h.cursor, 60)

	out := h.render(8)
	assert.Len(t, out, 16)
}
