package control

import "barelymusician/pkg/message"

// Registry holds the named set of Controls for one instrument, keyed
// by message.ControlID, grounded on the teacher's
// pkg/framework/param.Registry (map + insertion-order slice). It is
// built once on the control thread when an instrument is created and
// never resized afterward, so the audio thread's lookups never race
// with a map write.
type Registry struct {
	controls map[message.ControlID]*Control
	order    []message.ControlID
}

// NewRegistry creates an empty control registry.
func NewRegistry() *Registry {
	return &Registry{controls: make(map[message.ControlID]*Control)}
}

// Add registers a control under id. Re-adding the same id replaces it.
func (r *Registry) Add(id message.ControlID, c *Control) {
	if _, exists := r.controls[id]; !exists {
		r.order = append(r.order, id)
	}
	r.controls[id] = c
}

// Get returns the control for id, or nil if it isn't registered.
func (r *Registry) Get(id message.ControlID) *Control {
	return r.controls[id]
}

// Set clamps and stores value on the control for id. A message
// targeting an unregistered id is silently ignored.
func (r *Registry) Set(id message.ControlID, value float64) {
	if c, ok := r.controls[id]; ok {
		c.Set(value)
	}
}

// All returns every registered id in insertion order.
func (r *Registry) All() []message.ControlID {
	return r.order
}
