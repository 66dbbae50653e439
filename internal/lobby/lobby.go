package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/types"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

type Msg interface{ isLobbyMsg() }

// Subscribe registers a presentation outbox. The current snapshot is sent at once.
type Subscribe struct {
	ClientID string
	Outbox   chan engine.Snapshot
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

// Joined is a participant-joined notification from the platform.
type Joined struct{ ParticipantID string }

func (Joined) isLobbyMsg() {}

// Deliver is one broadcast message as received from the channel.
type Deliver struct{ Message engine.Message }

func (Deliver) isLobbyMsg() {}

type Tick struct{}

func (Tick) isLobbyMsg() {}

// ApplyFrame applies a relay frame: its events in order, then its ticks.
type ApplyFrame struct{ Frame wire.Frame }

func (ApplyFrame) isLobbyMsg() {}

// Intent is a local UI action. Reply, if set, reports whether a message was sent once
// the send finishes; it needs room for one value.
type Intent struct {
	Kind  engine.Kind
	Reply chan bool
}

func (Intent) isLobbyMsg() {}

// sendResult reports back from a send running outside the loop.
type sendResult struct {
	kind  engine.Kind
	err   error
	reply chan bool
}

func (sendResult) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Snapshot       engine.Snapshot
	NumSubscribers int
	Ticks          uint64
	LastSeq        uint64
}

// Sender puts a message on the broadcast channel. The sender's identity is added by
// the transport.
type Sender interface {
	Send(ctx context.Context, kind engine.Kind) error
}

const sendTimeout = 3 * time.Second

type Options struct {
	Config engine.Config
	Logger *zap.Logger
}

type Lobby struct {
	inbox   chan Msg
	ctrl    *engine.Controller
	sender  Sender
	opts    Options
	log     *zap.Logger
	clients map[string]chan engine.Snapshot
	muted   bool
	ticks   uint64
	lastSeq uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, selfID string, sender Sender, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.TickRate == 0 {
		opts.Config = engine.DefaultConfig()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 256),
		sender:  sender,
		opts:    opts,
		log:     opts.Logger.With(zap.String("self_id", selfID)),
		clients: make(map[string]chan engine.Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}
	l.ctrl = engine.NewController(engine.NewState(selfID), opts.Config, engine.PresenterFunc(l.present))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.ctrl.Snapshot()

			case Unsubscribe:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case Joined:
				l.ctrl.Join(msg.ParticipantID)

			case Deliver:
				l.ctrl.Apply(msg.Message)

			case Tick:
				l.tick()

			case ApplyFrame:
				l.applyFrame(msg.Frame)

			case Intent:
				l.intent(msg)

			case sendResult:
				l.sent(msg)

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Snapshot:       l.ctrl.Snapshot(),
					NumSubscribers: len(l.clients),
					Ticks:          l.ticks,
					LastSeq:        l.lastSeq,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) tick() {
	l.ticks++
	l.ctrl.Tick()
}

func (l *Lobby) applyFrame(f wire.Frame) {
	if f.Seq != 0 && f.Seq <= l.lastSeq {
		l.log.Debug("stale frame dropped", zap.Uint64("seq", f.Seq), zap.Uint64("last_seq", l.lastSeq))
		return
	}

	// Replayed history is applied silently; subscribers only see where it ends up.
	l.muted = f.Replay
	for _, ev := range f.Events {
		switch ev.Type {
		case wire.EventJoin:
			l.ctrl.Join(ev.Sender)
		case wire.EventMessage:
			if m, ok := types.ToEngineMessage(ev); ok {
				l.ctrl.Apply(m)
			}
		}
	}
	for i := 0; i < f.Ticks; i++ {
		l.tick()
	}
	l.muted = false
	l.lastSeq = f.Seq

	if f.Replay {
		l.broadcast(l.ctrl.Snapshot())
	}
}

// intent hands the message to the sender in its own goroutine; ticks and frames keep
// flowing while it is on the wire.
func (l *Lobby) intent(msg Intent) {
	var (
		out engine.Message
		ok  bool
	)
	switch msg.Kind {
	case engine.KindEntry:
		out, ok = l.ctrl.RequestEnroll()
	case engine.KindEntryClosed:
		out, ok = l.ctrl.RequestClose()
	}
	if !ok {
		reply(msg.Reply, false)
		return
	}
	l.broadcast(l.ctrl.Snapshot())

	go func() {
		ctx, cancel := context.WithTimeout(l.ctx, sendTimeout)
		defer cancel()
		res := sendResult{kind: out.Kind, err: l.sender.Send(ctx, out.Kind), reply: msg.Reply}
		select {
		case l.inbox <- res:
		case <-l.ctx.Done():
		}
	}()
}

func (l *Lobby) sent(res sendResult) {
	if res.err != nil {
		l.log.Warn("send intent failed", zap.String("kind", string(res.kind)), zap.Error(res.err))
		if res.kind == engine.KindEntry {
			l.ctrl.AbandonEntry()
		}
		l.broadcast(l.ctrl.Snapshot())
		reply(res.reply, false)
		return
	}
	l.log.Debug("intent sent", zap.String("kind", string(res.kind)))
	reply(res.reply, true)
}

func reply(ch chan bool, v bool) {
	if ch != nil {
		ch <- v
	}
}

func (l *Lobby) present(s engine.Snapshot) {
	if s.Reason == engine.ReasonPhase {
		l.log.Debug("phase changed", zap.Stringer("phase", s.Phase), zap.Int("roster", len(s.Roster)))
	}
	if l.muted {
		return
	}
	l.broadcast(s)
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell subscriber no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap engine.Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Subscriber is slow/full - drop them.
			l.log.Warn("subscriber too slow, dropping", zap.String("subscriber", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so transports and the UI can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
