package engine

import (
	"barelymusician/pkg/control"
	"barelymusician/pkg/message"
)

// EngineRegistry holds the mix-bus-wide set of Controls, keyed by
// message.EngineControlID. It is the engine-level twin of
// control.Registry (which is keyed by the per-instrument message.ControlID
// type); Go's lack of a shared key-type parameter on the teacher's
// original map+slice shape is why this is a separate type rather than a
// generic control.Registry[K].
type EngineRegistry struct {
	controls map[message.EngineControlID]*control.Control
	order    []message.EngineControlID
}

// NewEngineRegistry creates an empty engine-control registry.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{controls: make(map[message.EngineControlID]*control.Control)}
}

// Add registers a control under id.
func (r *EngineRegistry) Add(id message.EngineControlID, c *control.Control) {
	if _, exists := r.controls[id]; !exists {
		r.order = append(r.order, id)
	}
	r.controls[id] = c
}

// Get returns the control for id, or nil if it isn't registered.
func (r *EngineRegistry) Get(id message.EngineControlID) *control.Control {
	return r.controls[id]
}

// Set clamps and stores value on the control for id. A message targeting
// an unregistered id is silently ignored.
func (r *EngineRegistry) Set(id message.EngineControlID, value float64) {
	if c, ok := r.controls[id]; ok {
		c.Set(value)
	}
}

// All returns every registered id in insertion order.
func (r *EngineRegistry) All() []message.EngineControlID {
	return r.order
}

const (
	maxDelaySeconds = 2.0
)

// NewEngineControlRegistry builds the fixed set of mix-bus controls
// spec.md §4.9 names: the shared delay line (time, feedback, mix, feedback
// low-pass/high-pass cutoffs), the compressor (threshold, ratio, attack,
// release, knee, mix) and the sidechain duck (threshold, ratio, mix).
func NewEngineControlRegistry() *EngineRegistry {
	r := NewEngineRegistry()
	add := func(id message.EngineControlID, min, max, def float64) {
		r.Add(id, control.New(min, max, def))
	}

	add(message.EngineControlDelayTime, 0, maxDelaySeconds, 0.3)
	add(message.EngineControlDelayFeedback, 0, 0.98, 0.3)
	add(message.EngineControlDelayMix, 0, 1, 0)
	add(message.EngineControlDelayLowPassFrequency, 20, 20000, 8000)
	add(message.EngineControlDelayHighPassFrequency, 20, 20000, 80)
	add(message.EngineControlCompressorThreshold, -60, 0, -20)
	add(message.EngineControlCompressorRatio, 1, 20, 4)
	add(message.EngineControlCompressorAttack, 0.0001, 1, 0.005)
	add(message.EngineControlCompressorRelease, 0.001, 2, 0.05)
	add(message.EngineControlCompressorKnee, 0, 24, 2)
	add(message.EngineControlCompressorMix, 0, 1, 1)
	add(message.EngineControlSidechainThreshold, -60, 0, -20)
	add(message.EngineControlSidechainRatio, 1, 20, 4)
	add(message.EngineControlSidechainMix, 0, 1, 0)

	return r
}
