package engine

import (
	"math"

	"barelymusician/pkg/clock"
	"barelymusician/pkg/control"
	"barelymusician/pkg/dsp"
	"barelymusician/pkg/instrument"
	"barelymusician/pkg/message"
	"barelymusician/pkg/performer"
	"barelymusician/pkg/queue"
	"barelymusician/pkg/slicedata"
)

// slicePoolCapacityPerInstrument bounds how many sample-data slices one
// instrument's slicedata.Pool can hold at once.
const slicePoolCapacityPerInstrument = 64

// InstrumentHandle and PerformerHandle are generational indices: the low
// 32 bits select a pool slot, the high 32 bits are the generation stamped
// into that slot when it was last (re)used. A handle whose generation
// doesn't match the slot's current generation refers to an instrument or
// performer that has since been removed — calls against it are no-ops,
// the same "stale handle is silently inert" contract the teacher's
// vst3go has no equivalent of (it never pools reusable instrument
// slots); this shape is original, chosen because a bare slice index would
// let a held-too-long handle alias a newer instrument after removal.
type InstrumentHandle uint64

// PerformerHandle identifies a performer the same way InstrumentHandle
// identifies an instrument.
type PerformerHandle uint64

func makeHandle(slot, generation uint32) uint64 {
	return uint64(generation)<<32 | uint64(slot)
}

func splitHandle(h uint64) (slot, generation uint32) {
	return uint32(h), uint32(h >> 32)
}

type instrumentEntry struct {
	generation uint32
	active     bool

	registry   *control.Registry
	ring       *queue.Ring
	pool       *slicedata.Pool
	controller *instrument.Controller
	processor  *instrument.Processor
}

type performerEntry struct {
	generation uint32
	active     bool
	perf       *performer.Performer
}

// Musician is the top-level driver, per spec.md §4.11: it owns the
// engine's tempo and playback timestamp, a pool of instruments and a pool
// of performers, and threads the control-thread Update loop and the
// audio-thread Process calls through them. All exported methods on
// Musician are safe to call from exactly one of the two threads, matching
// Controller (control thread) vs Processor (audio thread) throughout the
// rest of the module: methods here that only touch instrumentEntry's
// controller/perf fields are control-thread calls, Process and ProcessMix
// are the audio-thread calls.
type Musician struct {
	sampleRate float64

	tempo         float64
	updateSeconds float64
	currentFrame  int64

	instruments     []*instrumentEntry
	freeInstruments []uint32

	performers     []*performerEntry
	freePerformers []uint32

	nextInstrumentID uint32

	engineRegistry  *EngineRegistry
	engineRing      *queue.Ring
	engineProcessor *Processor

	scratchOut, scratchDelay, scratchSidechain []float32
}

// New creates a musician rendering at sampleRate, with a default tempo of
// 120 BPM, matching spec.md §3's stated default.
func New(sampleRate float64) *Musician {
	engineRing := queue.NewRing(queue.DefaultCapacity)
	engineRegistry := NewEngineControlRegistry()
	return &Musician{
		sampleRate:      sampleRate,
		tempo:           120,
		engineRegistry:  engineRegistry,
		engineRing:      engineRing,
		engineProcessor: NewProcessor(sampleRate, engineRegistry, engineRing),
	}
}

// SampleRate returns the sample rate the musician was created with.
func (m *Musician) SampleRate() float64 { return m.sampleRate }

// SetTempo sets the engine's tempo in beats per minute and notifies the
// audio thread (advisory only; no mix-bus parameter is tempo-synced).
func (m *Musician) SetTempo(tempo float64) {
	if tempo < 0 {
		tempo = 0
	}
	m.tempo = tempo
	m.engineRing.Push(m.currentFrame, message.TempoChange(float32(tempo)))
}

// Tempo returns the current tempo in beats per minute.
func (m *Musician) Tempo() float64 { return m.tempo }

// Timestamp returns the playback position in seconds as of the most
// recent Update call.
func (m *Musician) Timestamp() float64 { return m.updateSeconds }

// BeatsFromSeconds and SecondsFromBeats convert at the musician's current
// tempo, per spec.md §3.
func (m *Musician) BeatsFromSeconds(seconds float64) float64 {
	return clock.BeatsFromSeconds(m.tempo, seconds)
}
func (m *Musician) SecondsFromBeats(beats float64) float64 {
	return clock.SecondsFromBeats(m.tempo, beats)
}

// SetEngineControl and GetEngineControl mutate/read the shared mix-bus
// controls (delay, compressor, sidechain duck), per spec.md §4.9.
func (m *Musician) SetEngineControl(id message.EngineControlID, value float64) {
	m.engineRegistry.Set(id, value)
	m.engineRing.Push(m.currentFrame, message.EngineControlMsg(id, float32(value)))
}

func (m *Musician) GetEngineControl(id message.EngineControlID) float64 {
	if c := m.engineRegistry.Get(id); c != nil {
		return c.Get()
	}
	return 0
}

// AddInstrument creates a new instrument and returns a handle to it.
func (m *Musician) AddInstrument() InstrumentHandle {
	m.nextInstrumentID++
	id := m.nextInstrumentID

	registry := instrument.NewControlRegistry()
	ring := queue.NewRing(queue.DefaultCapacity)
	pool := slicedata.NewPool(slicePoolCapacityPerInstrument)
	entry := &instrumentEntry{
		active:     true,
		registry:   registry,
		ring:       ring,
		pool:       pool,
		controller: instrument.NewController(id, registry, ring, pool),
		processor:  instrument.NewProcessor(id, m.sampleRate, instrument.MaxVoiceCount, registry, ring, pool),
	}

	if n := len(m.freeInstruments); n > 0 {
		slot := m.freeInstruments[n-1]
		m.freeInstruments = m.freeInstruments[:n-1]
		entry.generation = m.instruments[slot].generation + 1
		m.instruments[slot] = entry
		return InstrumentHandle(makeHandle(slot, entry.generation))
	}

	slot := uint32(len(m.instruments))
	m.instruments = append(m.instruments, entry)
	return InstrumentHandle(makeHandle(slot, entry.generation))
}

// RemoveInstrument retires an instrument's slot for reuse. Calls against
// its handle (or any handle sharing the slot from a prior generation) are
// silently ignored afterward.
func (m *Musician) RemoveInstrument(h InstrumentHandle) {
	entry, ok := m.instrumentAt(h)
	if !ok {
		return
	}
	slot, _ := splitHandle(uint64(h))
	entry.active = false
	m.freeInstruments = append(m.freeInstruments, slot)
}

func (m *Musician) instrumentAt(h InstrumentHandle) (*instrumentEntry, bool) {
	slot, generation := splitHandle(uint64(h))
	if int(slot) >= len(m.instruments) {
		return nil, false
	}
	entry := m.instruments[slot]
	if entry == nil || !entry.active || entry.generation != generation {
		return nil, false
	}
	return entry, true
}

// AddPerformer creates a new performer and returns a handle to it.
func (m *Musician) AddPerformer() PerformerHandle {
	entry := &performerEntry{active: true, perf: performer.New()}
	if n := len(m.freePerformers); n > 0 {
		slot := m.freePerformers[n-1]
		m.freePerformers = m.freePerformers[:n-1]
		entry.generation = m.performers[slot].generation + 1
		m.performers[slot] = entry
		return PerformerHandle(makeHandle(slot, entry.generation))
	}
	slot := uint32(len(m.performers))
	m.performers = append(m.performers, entry)
	return PerformerHandle(makeHandle(slot, entry.generation))
}

// RemovePerformer retires a performer's slot for reuse.
func (m *Musician) RemovePerformer(h PerformerHandle) {
	entry, ok := m.performerAt(h)
	if !ok {
		return
	}
	slot, _ := splitHandle(uint64(h))
	entry.active = false
	m.freePerformers = append(m.freePerformers, slot)
}

func (m *Musician) performerAt(h PerformerHandle) (*performerEntry, bool) {
	slot, generation := splitHandle(uint64(h))
	if int(slot) >= len(m.performers) {
		return nil, false
	}
	entry := m.performers[slot]
	if entry == nil || !entry.active || entry.generation != generation {
		return nil, false
	}
	return entry, true
}

// --- Per-instrument control-thread proxies (spec.md §4.10) ---

func (m *Musician) SetNoteOn(h InstrumentHandle, pitch float32) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetNoteOn(m.currentFrame, pitch)
	}
}

func (m *Musician) SetNoteOff(h InstrumentHandle, pitch float32) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetNoteOff(m.currentFrame, pitch)
	}
}

func (m *Musician) SetAllNotesOff(h InstrumentHandle) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetAllNotesOff(m.currentFrame)
	}
}

func (m *Musician) IsNoteOn(h InstrumentHandle, pitch float32) bool {
	e, ok := m.instrumentAt(h)
	return ok && e.controller.IsNoteOn(pitch)
}

func (m *Musician) SetControl(h InstrumentHandle, id message.ControlID, value float64) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetControl(m.currentFrame, id, value)
	}
}

func (m *Musician) GetControl(h InstrumentHandle, id message.ControlID) float64 {
	e, ok := m.instrumentAt(h)
	if !ok {
		return 0
	}
	return e.controller.GetControl(id)
}

func (m *Musician) ResetControl(h InstrumentHandle, id message.ControlID, defaultValue float64) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.ResetControl(m.currentFrame, id, defaultValue)
	}
}

func (m *Musician) ResetAllControls(h InstrumentHandle, defaults map[message.ControlID]float64) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.ResetAllControls(m.currentFrame, defaults)
	}
}

func (m *Musician) SetNoteControl(h InstrumentHandle, pitch float32, id message.NoteControlID, value float64) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetNoteControl(m.currentFrame, pitch, id, value)
	}
}

// SetSampleData acquires slices in the instrument's slice pool and binds
// them, releasing whatever chain was previously bound once the audio
// thread has advanced past the current frame, per spec.md §4.3.
func (m *Musician) SetSampleData(h InstrumentHandle, slices []slicedata.Slice) bool {
	e, ok := m.instrumentAt(h)
	if !ok {
		return false
	}
	head, acquired := e.pool.Acquire(slices)
	if !acquired {
		return false
	}
	e.controller.SetSampleData(m.currentFrame, head)
	return true
}

func (m *Musician) SetNoteOnEvent(h InstrumentHandle, cb func(pitch float32)) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetNoteOnEvent(cb)
	}
}

func (m *Musician) SetNoteOffEvent(h InstrumentHandle, cb func(pitch float32)) {
	if e, ok := m.instrumentAt(h); ok {
		e.controller.SetNoteOffEvent(cb)
	}
}

// --- Per-performer control-thread proxies (spec.md §4.8) ---

func (m *Musician) StartPerformer(h PerformerHandle) {
	if e, ok := m.performerAt(h); ok {
		e.perf.Start()
	}
}
func (m *Musician) StopPerformer(h PerformerHandle) {
	if e, ok := m.performerAt(h); ok {
		e.perf.Stop()
	}
}
func (m *Musician) IsPerformerPlaying(h PerformerHandle) bool {
	e, ok := m.performerAt(h)
	return ok && e.perf.IsPlaying()
}
func (m *Musician) PerformerPosition(h PerformerHandle) float64 {
	e, ok := m.performerAt(h)
	if !ok {
		return 0
	}
	return e.perf.Position()
}
func (m *Musician) SetPerformerPosition(h PerformerHandle, position float64) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetPosition(position)
	}
}
func (m *Musician) SetPerformerLooping(h PerformerHandle, looping bool) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetLooping(looping)
	}
}
func (m *Musician) IsPerformerLooping(h PerformerHandle) bool {
	e, ok := m.performerAt(h)
	return ok && e.perf.IsLooping()
}
func (m *Musician) SetPerformerLoopBegin(h PerformerHandle, beats float64) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetLoopBegin(beats)
	}
}
func (m *Musician) SetPerformerLoopLength(h PerformerHandle, beats float64) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetLoopLength(beats)
	}
}

func (m *Musician) AddTask(h PerformerHandle, position float64, priority int, cb func()) (performer.TaskHandle, bool) {
	e, ok := m.performerAt(h)
	if !ok {
		return 0, false
	}
	return e.perf.AddTask(position, priority, cb), true
}

func (m *Musician) ScheduleOneOffTask(h PerformerHandle, position float64, priority int, cb func()) (performer.TaskHandle, bool) {
	e, ok := m.performerAt(h)
	if !ok {
		return 0, false
	}
	return e.perf.ScheduleOneOffTask(position, priority, cb), true
}

func (m *Musician) RemoveTask(h PerformerHandle, task performer.TaskHandle) {
	if e, ok := m.performerAt(h); ok {
		e.perf.RemoveTask(task)
	}
}

func (m *Musician) SetTaskPosition(h PerformerHandle, task performer.TaskHandle, position float64) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetTaskPosition(task, position)
	}
}

func (m *Musician) SetTaskPriority(h PerformerHandle, task performer.TaskHandle, priority int) {
	if e, ok := m.performerAt(h); ok {
		e.perf.SetTaskPriority(task, priority)
	}
}

// Update advances every playing performer and every instrument's
// arpeggiator up to targetSeconds, splitting the interval at whichever
// performer's next task is nearest (spec.md §4.11: "also allow the
// arpeggiator to emit its events, treated as max_priority = INT_MAX").
// It is a no-op if targetSeconds has already been reached.
func (m *Musician) Update(targetSeconds float64) {
	for m.updateSeconds < targetSeconds {
		remainingSeconds := targetSeconds - m.updateSeconds
		remainingBeats := clock.BeatsFromSeconds(m.tempo, remainingSeconds)
		if math.IsInf(remainingBeats, 0) {
			// Tempo is zero: beat-time never advances, only the audio clock
			// does. Step straight to the target with no task processing.
			m.updateSeconds = targetSeconds
			m.currentFrame = clock.FramesFromSeconds(m.sampleRate, m.updateSeconds)
			break
		}

		stepBeats := remainingBeats
		haveTask := false
		taskPriority := 0
		for _, e := range m.performers {
			if e == nil || !e.active || !e.perf.IsPlaying() {
				continue
			}
			d, p, ok := e.perf.DurationToNextTask()
			if !ok {
				continue
			}
			switch {
			case d < stepBeats:
				stepBeats = d
				taskPriority = p
				haveTask = true
			case d == stepBeats:
				haveTask = true
				if p > taskPriority {
					taskPriority = p
				}
			}
		}

		stepSeconds := clock.SecondsFromBeats(m.tempo, stepBeats)
		if stepSeconds > remainingSeconds || math.IsInf(stepSeconds, 0) {
			stepSeconds = remainingSeconds
		}

		for _, e := range m.performers {
			if e != nil && e.active && e.perf.IsPlaying() {
				e.perf.Update(stepBeats)
			}
		}
		if haveTask {
			for _, e := range m.performers {
				if e != nil && e.active && e.perf.IsPlaying() {
					e.perf.ProcessAllTasksAtPosition(taskPriority)
				}
			}
		}

		m.updateSeconds += stepSeconds
		m.currentFrame = clock.FramesFromSeconds(m.sampleRate, m.updateSeconds)

		for _, e := range m.instruments {
			if e != nil && e.active {
				e.controller.StepArp(m.currentFrame, stepBeats)
			}
		}

		if stepSeconds <= 0 {
			// No performer/instrument state depends on beat position
			// (tempo effectively idle); avoid spinning forever.
			m.updateSeconds = targetSeconds
			m.currentFrame = clock.FramesFromSeconds(m.sampleRate, m.updateSeconds)
			break
		}
	}
}

func (m *Musician) ensureScratch(frameCount int) {
	need := frameCount * 2
	if cap(m.scratchOut) < need {
		m.scratchOut = make([]float32, need)
		m.scratchDelay = make([]float32, need)
		m.scratchSidechain = make([]float32, need)
	}
	m.scratchOut = m.scratchOut[:need]
	m.scratchDelay = m.scratchDelay[:need]
	m.scratchSidechain = m.scratchSidechain[:need]
	dsp.Clear(m.scratchOut)
	dsp.Clear(m.scratchDelay)
	dsp.Clear(m.scratchSidechain)
}

// Process renders one instrument's dry output (its own voices, filter,
// distortion, and pan — no shared mix-bus effects), per spec.md §6's
// low-level process(instrument, output, frame_count, timestamp) call.
// timestampSeconds is the host-reported time this block starts at; it
// becomes every subsequent control-thread call's frame stamp until the
// next Process or ProcessMix call updates it.
func (m *Musician) Process(h InstrumentHandle, output []float32, frameCount, channelCount int, timestampSeconds float64) bool {
	e, ok := m.instrumentAt(h)
	if !ok {
		return false
	}
	startFrame := clock.FramesFromSeconds(m.sampleRate, timestampSeconds)
	m.currentFrame = startFrame

	m.ensureScratch(frameCount)
	e.processor.Process(m.scratchOut, m.scratchDelay, m.scratchSidechain, frameCount, startFrame)
	interleave(m.scratchOut, output, frameCount, channelCount)
	e.pool.Poll()
	return true
}

// ProcessMix renders every active instrument's contribution through the
// shared engine mix bus (spec.md §4.9): each instrument's Process call
// accumulates into the three running sums, then the engine applies duck,
// delay, and compression before writing the final interleaved output.
func (m *Musician) ProcessMix(output []float32, frameCount, channelCount int, timestampSeconds float64) {
	startFrame := clock.FramesFromSeconds(m.sampleRate, timestampSeconds)
	m.currentFrame = startFrame

	m.ensureScratch(frameCount)
	for _, e := range m.instruments {
		if e == nil || !e.active {
			continue
		}
		e.processor.Process(m.scratchOut, m.scratchDelay, m.scratchSidechain, frameCount, startFrame)
	}

	m.engineProcessor.Process(m.scratchOut, m.scratchDelay, m.scratchSidechain, frameCount, startFrame, output, channelCount)

	for _, e := range m.instruments {
		if e != nil && e.active {
			e.pool.Poll()
		}
	}
}

func interleave(stereoSum, output []float32, frameCount, channelCount int) {
	for i := 0; i < frameCount; i++ {
		l, r := stereoSum[i*2], stereoSum[i*2+1]
		o := i * channelCount
		switch channelCount {
		case 1:
			output[o] = (l + r) * 0.5
		default:
			output[o] = l
			if channelCount > 1 {
				output[o+1] = r
			}
			for c := 2; c < channelCount; c++ {
				output[o+c] = 0
			}
		}
	}
}
