package engine

import "slices"

// Roster is the ordered set of entrants for the current round.
type Roster struct {
	order []string
	set   map[string]struct{}
}

func NewRoster() *Roster {
	return &Roster{set: map[string]struct{}{}}
}

func (r *Roster) Reset() {
	r.order = r.order[:0]
	clear(r.set)
}

// Enroll adds id and reports whether it was new. Enrolling twice is a no-op.
func (r *Roster) Enroll(id string) bool {
	if _, ok := r.set[id]; ok {
		return false
	}
	r.set[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

func (r *Roster) Contains(id string) bool {
	_, ok := r.set[id]
	return ok
}

// All returns the entrants in enrollment order. The slice is a copy.
func (r *Roster) All() []string {
	return slices.Clone(r.order)
}

func (r *Roster) Len() int { return len(r.order) }
