// Package instrument implements spec.md §4.6 (audio-side voice pool,
// stealing, ramping) and §4.7 (control-side symbolic notes/controls,
// arpeggiator) as two cooperating types: Controller runs on the control
// thread, Processor runs on the audio thread. They never share mutable
// state directly — only through the enqueued pkg/message traffic and the
// shared, atomically-guarded pkg/control registry and pkg/slicedata pool.
package instrument

import (
	"math"
	"math/rand"
	"sort"

	"barelymusician/pkg/control"
	"barelymusician/pkg/message"
	"barelymusician/pkg/queue"
	"barelymusician/pkg/slicedata"
)

// ArpMode selects how the arpeggiator cycles through held notes, per
// spec.md §4.7: "ArpMode ∈ {Up, Down, Random}".
type ArpMode int

const (
	ArpUp ArpMode = iota
	ArpDown
	ArpRandom
)

type heldNote struct {
	controls       *NoteControls
	pendingRemoval bool
}

// Controller owns one instrument's symbolic state: the sounding-note
// table, the arpeggiator, and the control registry it shares with the
// audio-side Processor. Every mutator enqueues a timestamped message onto
// ring, stamped with the frame the caller supplies (Musician computes that
// frame from its own timestamp, per spec.md §4.11).
type Controller struct {
	instrumentID uint32
	registry     *control.Registry
	ring         *queue.Ring
	pool         *slicedata.Pool

	notes     map[float32]*heldNote
	heldOrder []float32 // sorted ascending, arp traversal only
	arpIndex  int
	rng       *rand.Rand

	arpStepPos         float64
	currentArpPitch    float32
	hasCurrentArpPitch bool
	isGateOpen         bool

	sliceHead    int32
	pendingSlice int32 // chain queued for release once swapped out

	noteOnEvent  func(pitch float32)
	noteOffEvent func(pitch float32)
}

const noSliceHead = -1

// NewController creates a controller for instrumentID, sharing registry
// (the instrument's control set) and ring (its control->audio queue).
func NewController(instrumentID uint32, registry *control.Registry, ring *queue.Ring, pool *slicedata.Pool) *Controller {
	return &Controller{
		instrumentID: instrumentID,
		registry:     registry,
		ring:         ring,
		pool:         pool,
		notes:        make(map[float32]*heldNote),
		rng:          rand.New(rand.NewSource(int64(instrumentID) + 1)),
		sliceHead:    noSliceHead,
		pendingSlice: noSliceHead,
	}
}

// SetNoteOnEvent and SetNoteOffEvent register the control-thread
// callbacks spec.md §4.10 describes: they fire at the moment a note is
// symbolically started/stopped, arp routing respected, and never on the
// audio thread.
func (c *Controller) SetNoteOnEvent(cb func(pitch float32))  { c.noteOnEvent = cb }
func (c *Controller) SetNoteOffEvent(cb func(pitch float32)) { c.noteOffEvent = cb }

func (c *Controller) enqueue(frame int64, msg message.Message) {
	if !c.ring.Push(frame, msg) {
		// Capacity failure: advisory drop, per spec.md §7.2.
		logQueueDrop(c.instrumentID, msg.Kind)
	}
}

// SetControl clamps and stores value on the named control, then enqueues
// it for the audio side.
func (c *Controller) SetControl(frame int64, id message.ControlID, value float64) {
	c.registry.Set(id, value)
	c.enqueue(frame, message.Control(c.instrumentID, id, float32(value)))
}

// GetControl returns the control's current clamped value.
func (c *Controller) GetControl(id message.ControlID) float64 {
	if ctrl := c.registry.Get(id); ctrl != nil {
		return ctrl.Get()
	}
	return 0
}

// ResetControl sets a single control back to defaultValue, the default the
// caller supplies (original_source's Control::Reset, supplemented per
// SPEC_FULL.md §4).
func (c *Controller) ResetControl(frame int64, id message.ControlID, defaultValue float64) {
	c.SetControl(frame, id, defaultValue)
}

// ResetAllControls resets every control in defaults to its paired value.
func (c *Controller) ResetAllControls(frame int64, defaults map[message.ControlID]float64) {
	for id, v := range defaults {
		c.SetControl(frame, id, v)
	}
}

// SetNoteControl updates a per-note control (gain or pitch shift) for an
// already-sounding note. A pitch with no held note is a no-op.
func (c *Controller) SetNoteControl(frame int64, pitch float32, id message.NoteControlID, value float64) {
	n, ok := c.notes[pitch]
	if !ok {
		return
	}
	switch id {
	case message.NoteControlGain:
		n.controls.Gain.Set(value)
	case message.NoteControlPitchShift:
		n.controls.PitchShift.Set(value)
	}
	c.enqueue(frame, message.NoteControl(c.instrumentID, pitch, id, float32(value)))
}

// IsNoteOn reports whether pitch currently has a held note, regardless of
// whether the arpeggiator has actually sounded it yet.
func (c *Controller) IsNoteOn(pitch float32) bool {
	_, ok := c.notes[pitch]
	return ok
}

func (c *Controller) arpEnabled() bool {
	return c.GetControl(message.ControlArpRate) > 0
}

// SetNoteOn inserts pitch into the held-note table. With the arpeggiator
// off (rate <= 0, per spec.md §9 open question (b)) it fires immediately;
// with the arpeggiator on it waits for the arp phase to pick it.
func (c *Controller) SetNoteOn(frame int64, pitch float32) {
	if _, exists := c.notes[pitch]; exists {
		return // spec.md §3: a second note_on for an already-on pitch is a no-op.
	}
	n := &heldNote{controls: NewNoteControls()}
	c.notes[pitch] = n
	c.insertHeld(pitch)

	if !c.arpEnabled() {
		if c.noteOnEvent != nil {
			c.noteOnEvent(pitch)
		}
		c.enqueue(frame, message.NoteOn(c.instrumentID, pitch, message.NoteOnParams{
			Gain:       float32(n.controls.Gain.Get()),
			PitchShift: float32(n.controls.PitchShift.Get()),
		}))
	}
}

// SetNoteOff removes pitch from the held-note table. With the arpeggiator
// off it fires immediately; with it on, if pitch is the currently-sounding
// arp note, removal is deferred to the gate close and the arp rotates to
// its next held pitch now, per spec.md §4.7.
func (c *Controller) SetNoteOff(frame int64, pitch float32) {
	n, ok := c.notes[pitch]
	if !ok {
		return
	}

	if !c.arpEnabled() {
		delete(c.notes, pitch)
		c.removeHeld(pitch)
		if c.noteOffEvent != nil {
			c.noteOffEvent(pitch)
		}
		c.enqueue(frame, message.NoteOff(c.instrumentID, pitch))
		return
	}

	if c.hasCurrentArpPitch && c.currentArpPitch == pitch {
		n.pendingRemoval = true
		c.enqueue(frame, message.NoteOff(c.instrumentID, pitch))
		c.removeHeld(pitch) // rotate past it; final table removal waits for gate close.
		return
	}

	delete(c.notes, pitch)
	c.removeHeld(pitch)
	if c.noteOffEvent != nil {
		c.noteOffEvent(pitch)
	}
}

// SetAllNotesOff flushes every held note, firing each note-off event
// exactly once.
func (c *Controller) SetAllNotesOff(frame int64) {
	for pitch := range c.notes {
		if c.hasCurrentArpPitch && c.currentArpPitch == pitch {
			c.enqueue(frame, message.NoteOff(c.instrumentID, pitch))
		} else if !c.arpEnabled() {
			c.enqueue(frame, message.NoteOff(c.instrumentID, pitch))
		}
		if c.noteOffEvent != nil {
			c.noteOffEvent(pitch)
		}
	}
	c.notes = make(map[float32]*heldNote)
	c.heldOrder = nil
	c.hasCurrentArpPitch = false
	c.isGateOpen = false
}

// SetSampleData binds a new sample-data chain (already acquired in pool)
// and queues the previously-bound chain for deferred release once the
// audio thread has advanced past frame, per spec.md §4.3.
func (c *Controller) SetSampleData(frame int64, head int32) {
	if c.sliceHead != noSliceHead {
		c.pool.ReleaseAt(c.sliceHead, frame)
	}
	c.sliceHead = head
	c.enqueue(frame, message.SampleDataBind(c.instrumentID, uint64(uint32(head))))
}

func (c *Controller) insertHeld(pitch float32) {
	i := sort.Search(len(c.heldOrder), func(i int) bool { return c.heldOrder[i] >= pitch })
	c.heldOrder = append(c.heldOrder, 0)
	copy(c.heldOrder[i+1:], c.heldOrder[i:])
	c.heldOrder[i] = pitch
}

func (c *Controller) removeHeld(pitch float32) {
	for i, p := range c.heldOrder {
		if p == pitch {
			c.heldOrder = append(c.heldOrder[:i], c.heldOrder[i+1:]...)
			return
		}
	}
}

// StepArp advances the arpeggiator by durationBeats and emits any note-on/
// note-off events that cross a step boundary, per spec.md §4.7. Called
// once per Musician.update sub-step, with max_priority treated as
// unbounded (spec.md §4.11: "also allow the arpeggiator to emit its
// events (treated as max_priority = INT_MAX)").
func (c *Controller) StepArp(frame int64, durationBeats float64) {
	rate := c.GetControl(message.ControlArpRate)
	if rate <= 0 {
		if c.isGateOpen {
			c.closeGate(frame)
		}
		return
	}
	gateRatio := c.GetControl(message.ControlArpGateRatio)

	prevPos := c.arpStepPos
	newPos := prevPos + rate*durationBeats
	c.arpStepPos = newPos

	prevStep := int64(math.Floor(prevPos))
	newStep := int64(math.Floor(newPos))

	if newStep == prevStep {
		oldPhase := prevPos - float64(prevStep)
		newPhase := newPos - float64(newStep)
		if c.isGateOpen && oldPhase < gateRatio && newPhase >= gateRatio {
			c.closeGate(frame)
		}
		return
	}

	// One or more step boundaries were crossed. Skipped intermediate steps
	// (durationBeats spanning more than one arp step) are collapsed into a
	// single open/close pair at the final step, rather than replayed one
	// by one — a deliberate simplification for large update strides.
	if c.isGateOpen {
		c.closeGate(frame)
	}
	c.openGate(frame)
	newPhase := newPos - float64(newStep)
	if c.isGateOpen && newPhase >= gateRatio {
		c.closeGate(frame)
	}
}

func (c *Controller) openGate(frame int64) {
	if len(c.heldOrder) == 0 {
		return
	}
	pitch := c.pickNextPitch()
	n := c.notes[pitch]
	c.currentArpPitch = pitch
	c.hasCurrentArpPitch = true
	c.isGateOpen = true
	if c.noteOnEvent != nil {
		c.noteOnEvent(pitch)
	}
	c.enqueue(frame, message.NoteOn(c.instrumentID, pitch, message.NoteOnParams{
		Gain:       float32(n.controls.Gain.Get()),
		PitchShift: float32(n.controls.PitchShift.Get()),
	}))
}

func (c *Controller) closeGate(frame int64) {
	if !c.hasCurrentArpPitch {
		c.isGateOpen = false
		return
	}
	pitch := c.currentArpPitch
	c.enqueue(frame, message.NoteOff(c.instrumentID, pitch))

	if n, ok := c.notes[pitch]; ok && n.pendingRemoval {
		delete(c.notes, pitch)
		if c.noteOffEvent != nil {
			c.noteOffEvent(pitch)
		}
	}
	c.hasCurrentArpPitch = false
	c.isGateOpen = false
}

func (c *Controller) pickNextPitch() float32 {
	n := len(c.heldOrder)
	mode := ArpMode(int(c.GetControl(message.ControlArpMode)))
	switch mode {
	case ArpDown:
		idx := c.arpIndex % n
		c.arpIndex++
		return c.heldOrder[n-1-idx]
	case ArpRandom:
		return c.heldOrder[c.rng.Intn(n)]
	default: // ArpUp
		idx := c.arpIndex % n
		c.arpIndex++
		return c.heldOrder[idx]
	}
}

func logQueueDrop(instrumentID uint32, kind message.Kind) {
	droppedMessageHook(instrumentID, kind)
}

// droppedMessageHook is overridable by tests; production code logs.
var droppedMessageHook = func(instrumentID uint32, kind message.Kind) {
	defaultDropLogger(instrumentID, kind)
}
