package state

import "math/rand/v2"

// Palette holds the display colors handed out to participants.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#52B788",
}

// Registry tracks who is connected. It owns no drawing data.
type Registry struct {
	order []string
	byID  map[string]Participant
	pick  func(n int) int
}

// NewRegistry builds an empty registry. pick chooses a palette index in
// [0, n); nil means a uniform random choice.
func NewRegistry(pick func(n int) int) *Registry {
	if pick == nil {
		pick = rand.IntN
	}
	return &Registry{
		byID: make(map[string]Participant),
		pick: pick,
	}
}

// Register stores a participant under id with a palette color. Registering an
// id twice returns the existing participant.
func (r *Registry) Register(id string) Participant {
	if p, ok := r.byID[id]; ok {
		return p
	}
	p := Participant{ID: id, Color: Palette[r.pick(len(Palette))]}
	r.byID[id] = p
	r.order = append(r.order, id)
	return p
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns participants in join order.
func (r *Registry) List() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
