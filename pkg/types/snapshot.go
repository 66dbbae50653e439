package types

type EventType string

const (
	EventJoin    EventType = "join"
	EventMessage EventType = "message"
)

// Event is one platform occurrence inside a frame: a participant joining, or a
// broadcast message from Sender.
type Event struct {
	Type   EventType `json:"type"`
	Sender string    `json:"sender"`
	Kind   string    `json:"kind,omitempty"`
}

// Frame is the unit of delivery. Receivers apply Events in order, then run Ticks
// evaluation steps. Live frames carry one tick; replayed frames may carry a run of
// empty ticks collapsed into one.
type Frame struct {
	Seq    uint64  `json:"seq"`
	Events []Event `json:"events,omitempty"`
	Ticks  int     `json:"ticks"`
	Replay bool    `json:"replay,omitempty"`
}
