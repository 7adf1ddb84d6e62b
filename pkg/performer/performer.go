package performer

import (
	"math"
	"sort"
)

// Performer owns a beat-timeline position and two ordered task sets,
// per spec.md §3: recurring tasks persist across fires, one-off tasks are
// erased after firing. All methods run on the control thread.
type Performer struct {
	position   float64
	loopBegin  float64
	loopLength float64
	isLooping  bool
	isPlaying  bool

	recurring []*Task
	oneOff    []*Task
	nextID    TaskHandle
}

// New creates a stopped, non-looping performer at position 0 with a
// default loop length of 1 beat (matching spec.md's invariant that
// loop_length is always positive once looping is enabled).
func New() *Performer {
	return &Performer{loopLength: 1}
}

// Start and Stop gate whether Update advances the timeline and whether
// DurationToNextTask reports any upcoming task.
func (p *Performer) Start() { p.isPlaying = true }
func (p *Performer) Stop()  { p.isPlaying = false }

// IsPlaying reports whether the performer is currently running.
func (p *Performer) IsPlaying() bool { return p.isPlaying }

// Position returns the current beat position.
func (p *Performer) Position() float64 { return p.position }

// SetLooping enables or disables loop wrapping.
func (p *Performer) SetLooping(looping bool) { p.isLooping = looping }

// IsLooping reports whether the performer loops.
func (p *Performer) IsLooping() bool { return p.isLooping }

// SetLoopBegin sets the loop range's start position in beats.
func (p *Performer) SetLoopBegin(beats float64) { p.loopBegin = beats }

// LoopBegin returns the loop range's start position.
func (p *Performer) LoopBegin() float64 { return p.loopBegin }

// SetLoopLength sets the loop range's length in beats. Non-positive
// lengths are clamped to a minimal positive length so modulo arithmetic
// never divides by zero.
func (p *Performer) SetLoopLength(beats float64) {
	if beats <= 0 {
		beats = 1e-9
	}
	p.loopLength = beats
}

// LoopLength returns the loop range's length.
func (p *Performer) LoopLength() float64 { return p.loopLength }

// loopAround wraps position into [loopBegin, loopBegin+loopLength).
func (p *Performer) loopAround(position float64) float64 {
	m := math.Mod(position-p.loopBegin, p.loopLength)
	if m < 0 {
		m += p.loopLength
	}
	return p.loopBegin + m
}

// SetPosition jumps directly to position (wrapping into the loop range if
// looping is enabled) and discards any one-off task scheduled strictly
// before the new position without firing it, per spec.md §3.
func (p *Performer) SetPosition(position float64) {
	if p.isLooping {
		position = p.loopAround(position)
	}
	p.position = position

	kept := p.oneOff[:0]
	for _, t := range p.oneOff {
		if t.position >= p.position {
			kept = append(kept, t)
		}
	}
	p.oneOff = kept
}

// Update advances position by duration beats, per spec.md §4.8:
// "new_position = loop_begin + ((position + duration - loop_begin) mod
// loop_length) if looped and position + duration would exit the loop
// range." A stopped performer does not advance.
func (p *Performer) Update(duration float64) {
	if !p.isPlaying {
		return
	}
	newPos := p.position + duration
	if p.isLooping {
		end := p.loopBegin + p.loopLength
		if newPos >= end || newPos < p.loopBegin {
			newPos = p.loopAround(newPos)
		}
	}
	p.position = newPos
}

// AddTask schedules a recurring task (persists across fires, re-armed on
// loop) at position with the given priority (lower fires first).
func (p *Performer) AddTask(position float64, priority int, cb func()) TaskHandle {
	p.nextID++
	t := &Task{id: p.nextID, position: position, priority: priority, callback: cb}
	p.recurring = append(p.recurring, t)
	return t.id
}

// ScheduleOneOffTask schedules a task that fires at most once and is then
// erased.
func (p *Performer) ScheduleOneOffTask(position float64, priority int, cb func()) TaskHandle {
	p.nextID++
	t := &Task{id: p.nextID, position: position, priority: priority, oneOff: true, callback: cb}
	p.oneOff = append(p.oneOff, t)
	return t.id
}

// RemoveTask removes a task (recurring or one-off) before it fires.
func (p *Performer) RemoveTask(handle TaskHandle) {
	p.recurring = removeByID(p.recurring, handle)
	p.oneOff = removeByID(p.oneOff, handle)
}

func removeByID(tasks []*Task, id TaskHandle) []*Task {
	for i, t := range tasks {
		if t.id == id {
			return append(tasks[:i], tasks[i+1:]...)
		}
	}
	return tasks
}

func findByID(tasks []*Task, id TaskHandle) *Task {
	for _, t := range tasks {
		if t.id == id {
			return t
		}
	}
	return nil
}

// SetTaskPosition re-positions an existing task.
func (p *Performer) SetTaskPosition(handle TaskHandle, position float64) {
	if t := findByID(p.recurring, handle); t != nil {
		t.position = position
		return
	}
	if t := findByID(p.oneOff, handle); t != nil {
		t.position = position
	}
}

// SetTaskPriority changes an existing task's firing priority.
func (p *Performer) SetTaskPriority(handle TaskHandle, priority int) {
	if t := findByID(p.recurring, handle); t != nil {
		t.priority = priority
		return
	}
	if t := findByID(p.oneOff, handle); t != nil {
		t.priority = priority
	}
}

// ProcessAllTasksAtPosition fires every task whose position equals the
// performer's current position and priority <= maxPriority, in ascending
// (priority, id) order (spec.md §4.8). Recurring tasks are not removed;
// one-off tasks are removed after firing.
func (p *Performer) ProcessAllTasksAtPosition(maxPriority int) {
	var due []*Task
	for _, t := range p.recurring {
		if t.position == p.position && t.priority <= maxPriority {
			due = append(due, t)
		}
	}
	var dueOneOff []*Task
	remaining := p.oneOff[:0]
	for _, t := range p.oneOff {
		if t.position == p.position && t.priority <= maxPriority {
			due = append(due, t)
			dueOneOff = append(dueOneOff, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	p.oneOff = remaining

	sort.Slice(due, func(i, j int) bool {
		if due[i].priority != due[j].priority {
			return due[i].priority < due[j].priority
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		t.callback()
	}
}

// DurationToNextTask returns the beat distance to the next task position
// that would fire in the current (forward) direction of travel, and the
// highest priority among tasks tied at that nearest position (so a caller
// firing with max_priority set to this value is guaranteed not to skip any
// of them). ok is false if the performer isn't playing or no task lies
// ahead (and the performer isn't looping).
func (p *Performer) DurationToNextTask() (duration float64, maxPriority int, ok bool) {
	if !p.isPlaying {
		return 0, 0, false
	}

	best := math.Inf(1)
	found := false
	consider := func(t *Task) {
		d, reachable := p.distanceForward(t.position)
		if !reachable {
			return
		}
		switch {
		case d < best:
			best = d
			maxPriority = t.priority
			found = true
		case d == best && t.priority > maxPriority:
			maxPriority = t.priority
		}
	}
	for _, t := range p.recurring {
		consider(t)
	}
	for _, t := range p.oneOff {
		consider(t)
	}
	if !found {
		return 0, 0, false
	}
	return best, maxPriority, true
}

// distanceForward returns the beat distance from the performer's current
// position to taskPosition moving strictly forward, wrapping through the
// loop range once if the performer is looping.
func (p *Performer) distanceForward(taskPosition float64) (float64, bool) {
	if taskPosition > p.position {
		return taskPosition - p.position, true
	}
	if !p.isLooping {
		return 0, false
	}
	loopEnd := p.loopBegin + p.loopLength
	if taskPosition < p.loopBegin || taskPosition >= loopEnd {
		return 0, false
	}
	if p.position < p.loopBegin || p.position >= loopEnd {
		return 0, false
	}
	return (loopEnd - p.position) + (taskPosition - p.loopBegin), true
}
