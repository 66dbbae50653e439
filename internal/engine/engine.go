package engine

import (
	"encoding/json"
	"time"
)

type Phase int

const (
	PhaseAwaitingHost Phase = iota
	PhaseInitializing
	PhaseEnrolling
	PhaseRoundStarting
	PhaseRoundRunning
)

var phaseNames = map[Phase]string{
	PhaseAwaitingHost:  "awaiting_host",
	PhaseInitializing:  "initializing",
	PhaseEnrolling:     "enrolling",
	PhaseRoundStarting: "round_starting",
	PhaseRoundRunning:  "round_running",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Kind discriminates broadcast messages. Kinds the controller does not know are ignored.
type Kind string

const (
	KindEntryClosed Kind = "EntryClosed"
	KindEntry       Kind = "Entry"
)

// Message is a broadcast message as delivered by the transport, tagged with the
// identity of the participant that sent it.
type Message struct {
	Kind   Kind
	Sender string
}

type Reason string

const (
	ReasonPhase    Reason = "phase"
	ReasonTick     Reason = "tick"
	ReasonEnrolled Reason = "enrolled"
)

// Snapshot is the read-only view handed to the presentation side.
type Snapshot struct {
	Phase              Phase    `json:"phase"`
	Reason             Reason   `json:"reason"`
	Self               string   `json:"self"`
	Host               string   `json:"host,omitempty"`
	IsLocalHost        bool     `json:"is_local_host"`
	IsLocalParticipant bool     `json:"is_local_participant"`
	Roster             []string `json:"roster"`
	TicksRemaining     int      `json:"ticks_remaining"`
	CanEnroll          bool     `json:"can_enroll"`
	CanClose           bool     `json:"can_close"`
}

type Presenter interface {
	Present(Snapshot)
}

type PresenterFunc func(Snapshot)

func (f PresenterFunc) Present(s Snapshot) { f(s) }

type Config struct {
	TickRate      int
	RoundDuration time.Duration
}

// State is the per-client session state. It is created once and reset in place on
// every Initializing entry; the Controller is its only writer.
type State struct {
	Identity       *Identity
	Roster         *Roster
	Phase          Phase
	TicksRemaining int

	entryPending bool
}

type Controller struct {
	state     *State
	cfg       Config
	presenter Presenter
}

func NewController(state *State, cfg Config, presenter Presenter) *Controller {
	if presenter == nil {
		presenter = PresenterFunc(func(Snapshot) {})
	}
	return &Controller{state: state, cfg: cfg, presenter: presenter}
}

func (c *Controller) State() *State { return c.state }

// Join consumes a participant-joined notification. Only the first one ever fixes the
// host; the next tick moves the session out of AwaitingHost.
func (c *Controller) Join(participantID string) {
	c.state.Identity.Observe(participantID)
}

// Apply applies one broadcast message. It never fails: messages with an unknown kind,
// or messages the current phase has no edge for, leave the state untouched.
func (c *Controller) Apply(msg Message) {
	s := c.state
	switch msg.Kind {
	case KindEntryClosed:
		if s.Phase != PhaseEnrolling || !s.Identity.IsHost(msg.Sender) {
			return
		}
		s.entryPending = false
		c.transition(PhaseRoundStarting)

	case KindEntry:
		if s.Phase != PhaseEnrolling || msg.Sender == "" || s.Identity.IsHost(msg.Sender) {
			return
		}
		if s.Roster.Enroll(msg.Sender) {
			c.emit(ReasonEnrolled)
		}
	}
}

// Tick runs one evaluation pass. Phases are evaluated in their declared order and
// unconditional transitions cascade inside the same pass; the pass ends at a phase
// that waits on a message, on the countdown, or on the host.
func (c *Controller) Tick() {
	for c.step() {
	}
}

func (c *Controller) step() bool {
	s := c.state
	switch s.Phase {
	case PhaseAwaitingHost:
		if _, ok := s.Identity.Host(); !ok {
			return false
		}
		c.transition(PhaseInitializing)
		return true

	case PhaseInitializing:
		s.Roster.Reset()
		s.entryPending = false
		s.TicksRemaining = c.cfg.RoundTicks()
		c.transition(PhaseEnrolling)
		return false

	case PhaseEnrolling:
		return false

	case PhaseRoundStarting:
		c.transition(PhaseRoundRunning)
		return true

	case PhaseRoundRunning:
		s.TicksRemaining--
		if s.TicksRemaining > 0 {
			c.emit(ReasonTick)
			return false
		}
		s.TicksRemaining = 0
		c.transition(PhaseInitializing)
		return false
	}
	return false
}

// RequestEnroll returns the message to broadcast when the local participant may
// enter the current round. The entry stays pending until the round resets.
func (c *Controller) RequestEnroll() (Message, bool) {
	if !c.canEnroll() {
		return Message{}, false
	}
	c.state.entryPending = true
	return Message{Kind: KindEntry, Sender: c.state.Identity.Self()}, true
}

// AbandonEntry withdraws a pending entry that never made it onto the channel.
func (c *Controller) AbandonEntry() {
	c.state.entryPending = false
}

// RequestClose returns the message to broadcast when the local participant is the
// host and enrollment is open.
func (c *Controller) RequestClose() (Message, bool) {
	if !c.canClose() {
		return Message{}, false
	}
	return Message{Kind: KindEntryClosed, Sender: c.state.Identity.Self()}, true
}

func (c *Controller) Snapshot() Snapshot {
	return c.snapshot(ReasonPhase)
}

func (c *Controller) transition(to Phase) {
	if !c.state.Phase.CanTransitionTo(to) {
		return
	}
	c.state.Phase = to
	c.emit(ReasonPhase)
}

func (c *Controller) emit(reason Reason) {
	c.presenter.Present(c.snapshot(reason))
}

func (c *Controller) snapshot(reason Reason) Snapshot {
	s := c.state
	self := s.Identity.Self()
	host, _ := s.Identity.Host()
	return Snapshot{
		Phase:              s.Phase,
		Reason:             reason,
		Self:               self,
		Host:               host,
		IsLocalHost:        s.Identity.IsHost(self),
		IsLocalParticipant: s.Roster.Contains(self),
		Roster:             s.Roster.All(),
		TicksRemaining:     s.TicksRemaining,
		CanEnroll:          c.canEnroll(),
		CanClose:           c.canClose(),
	}
}

func (c *Controller) canEnroll() bool {
	s := c.state
	self := s.Identity.Self()
	return s.Phase == PhaseEnrolling &&
		!s.Identity.IsHost(self) &&
		!s.entryPending &&
		!s.Roster.Contains(self)
}

func (c *Controller) canClose() bool {
	s := c.state
	return s.Phase == PhaseEnrolling && s.Identity.IsHost(s.Identity.Self())
}
