// Package performer implements spec.md §4.8: a beat-timeline owner that
// fires ordered callbacks, with looping and recurring/one-off tasks.
// Grounded on original_source/barelymusician/internal/performer.h's
// TaskKey ordering ((position, process_order, task_id), ascending) and
// GetDurationToNextTask contract; there is no teacher (vst3go) equivalent
// of a beat scheduler, so the Go shape (plain struct + slices, no
// std::map) is original, built in the teacher's constructor-and-methods
// style.
package performer

// TaskHandle identifies a scheduled task for later mutation or removal.
type TaskHandle uint64

// Task is one scheduled callback, per spec.md §3: "(position, priority,
// callback, user_data)". User data is whatever the callback closure
// already captures; Go closures replace the C API's void* user_data.
type Task struct {
	id       TaskHandle
	position float64
	priority int
	oneOff   bool
	callback func()
}
