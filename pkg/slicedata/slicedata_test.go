package slicedata

import "testing"

func sliceOf(rootPitch float32) Slice {
	return Slice{Samples: []float32{0, 1, 2, 3}, SampleRate: 48000, RootPitch: rootPitch}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool(8)

	idx, ok := p.Acquire([]Slice{sliceOf(60), sliceOf(62)})
	if !ok {
		t.Fatal("Acquire failed with room available")
	}
	if p.SliceAt(idx).RootPitch != 60 {
		t.Errorf("first slot root pitch = %v, want 60", p.SliceAt(idx).RootPitch)
	}
	next := p.Next(idx)
	if p.SliceAt(next).RootPitch != 62 {
		t.Errorf("second slot root pitch = %v, want 62", p.SliceAt(next).RootPitch)
	}

	p.ReleaseAt(idx, 100)
	p.PublishSafeFrame(50)
	p.Poll()
	if _, ok := p.Acquire(make([]Slice, 7)); ok {
		t.Error("Acquire should fail: released chain not yet safe, only 6 slots free")
	}

	p.PublishSafeFrame(101)
	p.Poll()
	if _, ok := p.Acquire(make([]Slice, 7)); !ok {
		t.Error("Acquire should succeed once safe_frame passes retire_frame")
	}
}

func TestAcquireFailsWhenPoolExhausted(t *testing.T) {
	p := NewPool(2)
	if _, ok := p.Acquire(make([]Slice, 3)); ok {
		t.Error("Acquire with too many slots should fail")
	}
}

func TestSelectNearestRootPitch(t *testing.T) {
	p := NewPool(8)
	head, ok := p.Acquire([]Slice{sliceOf(5), sliceOf(15), sliceOf(35)})
	if !ok {
		t.Fatal("Acquire failed")
	}

	selected := p.Select(head, 20)
	if p.SliceAt(selected).RootPitch != 15 {
		t.Errorf("pitch 20 selected root=%v, want 15", p.SliceAt(selected).RootPitch)
	}

	selected = p.Select(head, 25)
	if p.SliceAt(selected).RootPitch != 35 {
		t.Errorf("pitch 25 (tie at distance 10) selected root=%v, want 35 (upper neighbor)", p.SliceAt(selected).RootPitch)
	}
}

func TestSelectRoundRobinOnSharedRootPitch(t *testing.T) {
	p := NewPool(8)
	head, ok := p.Acquire([]Slice{sliceOf(60), sliceOf(60), sliceOf(60)})
	if !ok {
		t.Fatal("Acquire failed")
	}

	seen := map[int32]bool{}
	for i := 0; i < 50; i++ {
		seen[p.Select(head, 60)] = true
	}
	if len(seen) < 2 {
		t.Error("Select should spread picks across slices sharing a root pitch")
	}
}
