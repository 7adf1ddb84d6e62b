package voice

import (
	"testing"

	"barelymusician/pkg/dsp/envelope"
	"barelymusician/pkg/dsp/filter"
	"barelymusician/pkg/slicedata"
)

const testSampleRate = 48000.0

func TestStartThenActiveUntilReleased(t *testing.T) {
	v := New(testSampleRate, nil)
	v.SetFilterType(filter.TypeLowPass)
	if v.IsActive() {
		t.Fatal("fresh voice should be inactive before Start")
	}
	v.Start(69, 1.0, 0.001, 0.05, 0.8, 0.1, noSlice)
	if !v.IsActive() {
		t.Fatal("voice should be active right after Start")
	}
	for i := 0; i < int(testSampleRate); i++ {
		v.Next()
	}
	if !v.IsActive() {
		t.Fatal("sustain stage should keep the voice active")
	}
	v.Stop()
	for i := 0; i < int(testSampleRate); i++ {
		v.Next()
	}
	if v.IsActive() {
		t.Error("voice should go inactive once release completes")
	}
}

func TestNextProducesFiniteStereoOutput(t *testing.T) {
	v := New(testSampleRate, nil)
	v.SetFilterType(filter.TypeLowPass)
	v.Start(60, 1.0, 0.001, 0.01, 0.7, 0.05, noSlice)
	for i := 0; i < 1000; i++ {
		l, r, _, _, _, _ := v.Next()
		if l != l || r != r { // NaN check
			t.Fatalf("sample %d produced NaN output", i)
		}
	}
}

func TestRetriggerOnlyResetsEnvelope(t *testing.T) {
	v := New(testSampleRate, nil)
	v.Start(64, 1.0, 0.001, 0.01, 0.7, 0.05, noSlice)
	for i := 0; i < 100; i++ {
		v.Next()
	}
	phaseBefore := v.osc.Phase()
	v.Retrigger(0.001, 0.01, 0.7, 0.05)
	if v.osc.Phase() != phaseBefore {
		t.Error("Retrigger should not reset oscillator phase")
	}
	if v.GetStage() != envelope.StageAttack {
		t.Error("Retrigger should restart the envelope at its attack stage")
	}
}

func TestSelectsNearestSliceOnStart(t *testing.T) {
	pool := slicedata.NewPool(4)
	head, ok := pool.Acquire([]slicedata.Slice{
		{Samples: []float32{0, 1, 0, -1}, SampleRate: int32(testSampleRate), RootPitch: 60},
		{Samples: []float32{1, 1, 1, 1}, SampleRate: int32(testSampleRate), RootPitch: 72},
	})
	if !ok {
		t.Fatal("Acquire failed")
	}

	v := New(testSampleRate, pool)
	v.SetSliceMode(SliceSustain)
	v.Start(61, 1.0, 0.001, 0.01, 0.7, 0.05, head)

	s := v.currentSlice()
	if s == nil || s.RootPitch != 60 {
		t.Fatalf("expected nearest root pitch 60, got %+v", s)
	}
}

func TestSliceOnceStopsVoiceAtEnd(t *testing.T) {
	pool := slicedata.NewPool(4)
	head, ok := pool.Acquire([]slicedata.Slice{
		{Samples: []float32{1, 1, 1, 1}, SampleRate: int32(testSampleRate), RootPitch: 60},
	})
	if !ok {
		t.Fatal("Acquire failed")
	}

	v := New(testSampleRate, pool)
	v.SetSliceMode(SliceOnce)
	v.Start(60, 1.0, 0.0, 0.0, 1.0, 0.0, head)

	for i := 0; i < 10 && v.IsActive(); i++ {
		v.Next()
	}
	if v.IsActive() {
		t.Error("SliceOnce playback should self-terminate once the slice is exhausted")
	}
}

// TestSliceOnceEmitsLastSampleBeforeTerminating matches spec.md §8
// scenario 4: a 4-sample slice in SliceOnce mode, played for 5 frames,
// must emit all 4 real samples and only go silent on the 5th. Attack and
// decay are requested at 0 but the envelope's own floor clamps them to
// 1ms (far longer than these 4 frames), so the envelope stays in its
// Attack stage throughout — the only way it can go idle inside this
// window is advance() flagging the slice exhausted one frame too early,
// which is exactly the bug this test targets. A uniform (all-1s) slice,
// as TestSliceOnceStopsVoiceAtEnd uses, can't tell "sample held" from
// "sample dropped"; this one can, since every sample here is distinct
// from zero and from its neighbors.
func TestSliceOnceEmitsLastSampleBeforeTerminating(t *testing.T) {
	samples := []float32{2, -3, 5, -7}
	pool := slicedata.NewPool(4)
	head, ok := pool.Acquire([]slicedata.Slice{
		{Samples: samples, SampleRate: int32(testSampleRate), RootPitch: 60},
	})
	if !ok {
		t.Fatal("Acquire failed")
	}

	v := New(testSampleRate, pool)
	v.SetSliceMode(SliceOnce)
	v.Params().OscMix.SetImmediate(0)
	v.Start(60, 1.0, 0.0, 0.0, 1.0, 0.0, head)

	for i := 0; i < 3; i++ {
		v.Next()
	}
	if !v.IsActive() {
		t.Fatal("voice went idle before emitting its last real sample (sample index 3)")
	}

	outL, outR, _, _, _, _ := v.Next()
	if outL == 0 && outR == 0 {
		t.Error("last real sample was silenced instead of emitted")
	}
	if v.IsActive() {
		t.Error("voice should terminate immediately after its last real sample")
	}

	outL, outR, _, _, _, _ = v.Next()
	if outL != 0 || outR != 0 {
		t.Errorf("frame after slice exhaustion should be silent, got (%f, %f)", outL, outR)
	}
}

func TestStopIgnoredDuringSliceOnce(t *testing.T) {
	pool := slicedata.NewPool(4)
	head, _ := pool.Acquire([]slicedata.Slice{
		{Samples: make([]float32, 1000), SampleRate: int32(testSampleRate), RootPitch: 60},
	})
	v := New(testSampleRate, pool)
	v.SetSliceMode(SliceOnce)
	v.Start(60, 1.0, 0.0, 0.0, 1.0, 0.0, head)
	v.Stop()
	if !v.IsActive() {
		t.Error("Stop should be ignored while SliceMode is Once")
	}
}
