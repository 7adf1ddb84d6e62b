package control

import (
	"sync"
	"testing"

	"barelymusician/pkg/message"
)

func TestControlClampsOnSet(t *testing.T) {
	c := New(0, 1, 0.5)
	c.Set(2.0)
	if got := c.Get(); got != 1.0 {
		t.Errorf("Set(2.0) clamped to %v, want 1.0", got)
	}
	c.Set(-5.0)
	if got := c.Get(); got != 0.0 {
		t.Errorf("Set(-5.0) clamped to %v, want 0.0", got)
	}
}

func TestControlDefaultIsClamped(t *testing.T) {
	c := New(0, 10, 20)
	if got := c.Get(); got != 10 {
		t.Errorf("out-of-range default = %v, want clamped to max 10", got)
	}
}

func TestControlConcurrentReadWrite(t *testing.T) {
	c := New(0, 1000, 0)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Set(float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Get()
		}
	}()
	wg.Wait()
}

func TestRegistrySetIgnoresUnknownID(t *testing.T) {
	r := NewRegistry()
	r.Add(message.ControlGain, New(0, 1, 1))
	r.Set(message.ControlPitchShift, 5) // not registered, should be a no-op
	if r.Get(message.ControlPitchShift) != nil {
		t.Error("Set on unregistered id should not create a control")
	}
}

func TestRegistryAllPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(message.ControlGain, New(0, 1, 1))
	r.Add(message.ControlPitchShift, New(-24, 24, 0))
	r.Add(message.ControlStereoPan, New(-1, 1, 0))

	got := r.All()
	want := []message.ControlID{message.ControlGain, message.ControlPitchShift, message.ControlStereoPan}
	if len(got) != len(want) {
		t.Fatalf("All() returned %d ids, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("All()[%d] = %v, want %v", i, got[i], id)
		}
	}
}
