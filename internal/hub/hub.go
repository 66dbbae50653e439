package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/types"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

var ErrDuplicateID = errors.New("participant id already connected")

type HubMsg interface{ isHubMsg() }

// Connect registers a participant. ID is the proposed identity; empty assigns one.
type Connect struct {
	ID     string
	Outbox chan wire.Frame
	Reply  chan ConnectResult
}

// ConnectResult carries the assigned identity and the history the newcomer has to
// apply before anything sent on its outbox.
type ConnectResult struct {
	ID     string
	Replay []wire.Frame
	Err    error
}

// CheckID reports whether id could connect right now without registering anything.
type CheckID struct {
	ID    string
	Reply chan error
}

type Disconnect struct {
	ID string
}

// Publish queues a broadcast message for the next frame.
type Publish struct {
	Sender string
	Kind   string
}

type GetStats struct {
	Reply chan Stats
}

type Stats struct {
	Clients   int    `json:"clients"`
	Host      string `json:"host,omitempty"`
	Seq       uint64 `json:"seq"`
	LogFrames int    `json:"log_frames"`
	TickRate  int    `json:"tick_rate"`
}

type ShutdownHub struct{}

func (Connect) isHubMsg()     {}
func (CheckID) isHubMsg()     {}
func (Disconnect) isHubMsg()  {}
func (Publish) isHubMsg()     {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Config engine.Config
	Clock  clockwork.Clock
	Logger *zap.Logger
}

// Hub is the relay for the single session. It hands out identities, stamps every
// message with its sender and cuts the stream into numbered frames, one per tick.
type Hub struct {
	inbox   chan HubMsg
	opts    Options
	log     *zap.Logger
	clients map[string]chan wire.Frame
	pending []wire.Event
	history []wire.Frame
	host    string
	seq     uint64
	// session follows the frames the way every client applies them, so the relay
	// knows where a round ends.
	session *engine.Controller
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.TickRate == 0 {
		opts.Config = engine.DefaultConfig()
	}

	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		opts:    opts,
		log:     opts.Logger,
		clients: make(map[string]chan wire.Frame),
		session: engine.NewController(engine.NewState(""), opts.Config, nil),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	ticker := h.opts.Clock.NewTicker(h.opts.Config.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-ticker.Chan():
			h.tick()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				msg.Reply <- h.connect(msg)

			case CheckID:
				var err error
				if _, taken := h.clients[msg.ID]; taken {
					err = ErrDuplicateID
				}
				msg.Reply <- err

			case Disconnect:
				if ch, ok := h.clients[msg.ID]; ok {
					close(ch)
					delete(h.clients, msg.ID)
					h.log.Info("participant left", zap.String("participant_id", msg.ID), zap.Int("clients", len(h.clients)))
				}

			case Publish:
				if _, ok := h.clients[msg.Sender]; !ok {
					h.log.Debug("publish from unknown sender", zap.String("participant_id", msg.Sender))
					break
				}
				h.pending = append(h.pending, wire.Event{Type: wire.EventMessage, Sender: msg.Sender, Kind: msg.Kind})

			case GetStats:
				msg.Reply <- Stats{
					Clients:   len(h.clients),
					Host:      h.host,
					Seq:       h.seq,
					LogFrames: len(h.history),
					TickRate:  h.opts.Config.TickRate,
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) connect(msg Connect) ConnectResult {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, taken := h.clients[id]; taken {
		return ConnectResult{Err: ErrDuplicateID}
	}

	replay := make([]wire.Frame, len(h.history))
	for i, f := range h.history {
		f.Replay = true
		replay[i] = f
	}

	h.clients[id] = msg.Outbox
	if h.host == "" {
		h.host = id
	}
	h.pending = append(h.pending, wire.Event{Type: wire.EventJoin, Sender: id})
	h.log.Info("participant joined", zap.String("participant_id", id), zap.Int("clients", len(h.clients)))

	return ConnectResult{ID: id, Replay: replay}
}

func (h *Hub) tick() {
	// Nothing to drive before the first participant shows up.
	if len(h.history) == 0 && len(h.pending) == 0 {
		return
	}

	h.seq++
	f := wire.Frame{Seq: h.seq, Events: h.pending, Ticks: 1}
	h.pending = nil

	before := h.session.State().Phase
	h.observe(f)
	if before != engine.PhaseEnrolling && h.session.State().Phase == engine.PhaseEnrolling {
		h.checkpoint(f.Seq)
	} else {
		h.record(f)
	}
	h.broadcast(f)
}

func (h *Hub) observe(f wire.Frame) {
	for _, ev := range f.Events {
		switch ev.Type {
		case wire.EventJoin:
			h.session.Join(ev.Sender)
		case wire.EventMessage:
			if m, ok := types.ToEngineMessage(ev); ok {
				h.session.Apply(m)
			}
		}
	}
	for i := 0; i < f.Ticks; i++ {
		h.session.Tick()
	}
}

// checkpoint replaces the history once enrollment (re)opens. From there the session
// only depends on who the host is: one join and one tick rebuild it.
func (h *Hub) checkpoint(seq uint64) {
	host, _ := h.session.State().Identity.Host()
	h.history = []wire.Frame{{
		Seq:    seq,
		Events: []wire.Event{{Type: wire.EventJoin, Sender: host}},
		Ticks:  1,
	}}
	h.log.Debug("history compacted", zap.Uint64("seq", seq))
}

// record appends f to the history, folding consecutive empty frames into one.
func (h *Hub) record(f wire.Frame) {
	if n := len(h.history); n > 0 && len(f.Events) == 0 {
		last := &h.history[n-1]
		if len(last.Events) == 0 {
			last.Ticks += f.Ticks
			last.Seq = f.Seq
			return
		}
	}
	h.history = append(h.history, f)
}

func (h *Hub) broadcast(f wire.Frame) {
	for id, ch := range h.clients {
		select {
		case ch <- f:
			//ok
		default:
			// Client is slow/full - drop them.
			h.log.Warn("client too slow, dropping", zap.String("participant_id", id), zap.Uint64("seq", f.Seq))
			close(ch)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}
