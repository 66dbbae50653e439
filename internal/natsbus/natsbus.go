// Package natsbus carries one session over a NATS JetStream stream: join
// notifications, broadcast messages and the host's tick markers. Every participant
// reads the session's subjects from the start with an ordered consumer, so all of them
// apply the same messages and ticks in the same order, late joiners included.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/lobby"
)

// HeaderSender names the participant that published a message.
const HeaderSender = "Entry-Sender"

var (
	ErrNoSender = errors.New("message without sender")
	ErrNotHost  = errors.New("tick marker from a participant other than the host")
)

const publishTimeout = 2 * time.Second

type Config struct {
	URL           string
	Stream        string
	SubjectPrefix string
	// Session scopes the subjects; participants of one session share it. It must be a
	// single subject token.
	Session       string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // How long a session's history is kept
	TickInterval  time.Duration
	Clock         clockwork.Clock
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Stream:        "ENTRY",
		SubjectPrefix: "entry",
		Session:       "lobby",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		MaxAge:        time.Hour,
		TickInterval:  engine.DefaultConfig().TickInterval(),
	}
}

func (c Config) sessionSubject(leaf string) string {
	return c.SubjectPrefix + "." + c.Session + "." + leaf
}

func (c Config) JoinSubject() string  { return c.sessionSubject("join") }
func (c Config) EventSubject() string { return c.sessionSubject("event") }
func (c Config) TickSubject() string  { return c.sessionSubject("tick") }

// SessionFilter matches every subject of the configured session.
func (c Config) SessionFilter() string { return c.sessionSubject(">") }

// StreamSubjects covers all sessions under the prefix.
func (c Config) StreamSubjects() []string { return []string{c.SubjectPrefix + ".>"} }

type envelope struct {
	Kind string `json:"kind"`
}

// Bus is one participant's connection. It satisfies lobby.Sender.
type Bus struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    Config
	selfID string
	log    *zap.Logger
}

// Connect dials NATS and makes sure the session stream exists. An empty selfID gets
// a fresh UUID.
func Connect(ctx context.Context, cfg Config, selfID string, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if selfID == "" {
		selfID = uuid.NewString()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = engine.DefaultConfig().TickInterval()
	}
	log := logger.With(zap.String("self_id", selfID))

	opts := []nats.Option{
		nats.Name("entry-lobby " + selfID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	b := &Bus{nc: nc, js: js, cfg: cfg, selfID: selfID, log: log}
	if err := b.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return b, nil
}

func (b *Bus) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        b.cfg.Stream,
		Description: "Entry sessions: joins, broadcast messages and tick markers",
		Subjects:    b.cfg.StreamSubjects(),
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      b.cfg.MaxAge,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	}

	_, err := b.js.Stream(ctx, b.cfg.Stream)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = b.js.CreateStream(ctx, sc)
		if errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			// Another participant created it first.
			return nil
		}
		if err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		b.log.Info("created JetStream stream", zap.String("stream", b.cfg.Stream))
		return nil
	}
	return err
}

func (b *Bus) SelfID() string { return b.selfID }

// Join announces this participant. The first announcement in the stream makes its
// sender the host.
func (b *Bus) Join(ctx context.Context) error {
	return b.publish(ctx, b.cfg.JoinSubject(), nil)
}

func (b *Bus) Send(ctx context.Context, kind engine.Kind) error {
	data, err := json.Marshal(envelope{Kind: string(kind)})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return b.publish(ctx, b.cfg.EventSubject(), data)
}

func (b *Bus) publish(ctx context.Context, subject string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderSender, b.selfID)
	msg.Data = data
	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Run streams the session history and then live messages into the lobby until ctx
// ends. Once the stream names this participant as host, it also starts publishing
// the tick markers everybody advances on.
func (b *Bus) Run(ctx context.Context, inbox chan<- lobby.Msg) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cons, err := b.js.OrderedConsumer(ctx, b.cfg.Stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{b.cfg.SessionFilter()},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	it, err := cons.Messages()
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	go func() {
		<-ctx.Done()
		it.Stop()
	}()

	d := decoder{cfg: b.cfg}
	ticking := false
	for {
		msg, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return nil
			}
			return fmt.Errorf("next message: %w", err)
		}

		m, err := d.decode(msg.Subject(), msg.Headers(), msg.Data())
		if err != nil {
			b.log.Warn("dropping message", zap.String("subject", msg.Subject()), zap.Error(err))
			continue
		}
		if !ticking && d.host == b.selfID {
			ticking = true
			b.log.Info("publishing tick markers as host")
			go b.publishTicks(ctx)
		}
		select {
		case inbox <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// publishTicks puts one marker on the stream per tick interval. A tick the ticker
// drops while a publish is slow is dropped for every participant alike.
func (b *Bus) publishTicks(ctx context.Context) {
	ticker := b.cfg.Clock.NewTicker(b.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := b.publish(ctx, b.cfg.TickSubject(), nil); err != nil && ctx.Err() == nil {
				b.log.Warn("publish tick failed", zap.Error(err))
			}
		}
	}
}

// Close drains the connection so pending publishes are flushed.
func (b *Bus) Close() error {
	var err error
	if drainErr := b.nc.Drain(); drainErr != nil {
		err = multierr.Append(err, fmt.Errorf("drain: %w", drainErr))
	}
	if lastErr := b.nc.LastError(); lastErr != nil {
		err = multierr.Append(err, lastErr)
	}
	return err
}

// decoder maps stream messages onto lobby inputs. It remembers the first joiner so
// only the host's tick markers count.
type decoder struct {
	cfg  Config
	host string
}

func (d *decoder) decode(subject string, header nats.Header, data []byte) (lobby.Msg, error) {
	sender := header.Get(HeaderSender)
	if sender == "" {
		return nil, ErrNoSender
	}

	switch subject {
	case d.cfg.JoinSubject():
		if d.host == "" {
			d.host = sender
		}
		return lobby.Joined{ParticipantID: sender}, nil

	case d.cfg.EventSubject():
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		return lobby.Deliver{Message: engine.Message{Kind: engine.Kind(env.Kind), Sender: sender}}, nil

	case d.cfg.TickSubject():
		if sender != d.host {
			return nil, fmt.Errorf("%w: %s", ErrNotHost, sender)
		}
		return lobby.Tick{}, nil

	default:
		return nil, fmt.Errorf("unexpected subject %q", subject)
	}
}
