package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/entry-lobby/internal/config"
	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/lobby"
	"github.com/DoyleJ11/entry-lobby/internal/natsbus"
	"github.com/DoyleJ11/entry-lobby/internal/present"
	"github.com/DoyleJ11/entry-lobby/internal/tui"
	"github.com/DoyleJ11/entry-lobby/internal/ws"
)

// transport is what the client needs from either broadcast backend.
type transport interface {
	lobby.Sender
	SelfID() string
	Run(ctx context.Context, inbox chan<- lobby.Msg) error
	Close() error
}

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	relayURL := flag.String("url", "", "relay websocket URL (overrides config)")
	transportName := flag.String("transport", "", "broadcast transport: ws or nats (overrides config)")
	lang := flag.String("lang", "", "display language: en or ja (overrides config)")
	id := flag.String("id", "", "proposed participant id (overrides config)")
	session := flag.String("session", "", "NATS session name shared by all participants (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.Client.URL, *relayURL)
	override(&cfg.Client.Transport, *transportName)
	override(&cfg.Client.Lang, *lang)
	override(&cfg.Client.ID, *id)
	override(&cfg.NATS.Session, *session)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs only go to a file when one is configured.
	logger := zap.NewNop()
	if cfg.Log.File != "" {
		if logger, err = config.NewLogger(cfg.Log); err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("client stopped", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		tr   transport
		join func(context.Context) error
	)
	switch cfg.Client.Transport {
	case config.TransportNATS:
		nc := natsbus.DefaultConfig()
		nc.URL = cfg.NATS.URL
		nc.Stream = cfg.NATS.Stream
		nc.SubjectPrefix = cfg.NATS.SubjectPrefix
		nc.Session = cfg.NATS.Session
		nc.MaxAge = cfg.NATS.MaxAge
		nc.TickInterval = cfg.Engine().TickInterval()
		bus, err := natsbus.Connect(dialCtx, nc, cfg.Client.ID, logger.Named("nats"))
		if err != nil {
			return err
		}
		tr, join = bus, bus.Join
	default:
		client, err := ws.Dial(dialCtx, cfg.Client.URL, ws.DialOptions{ID: cfg.Client.ID, Logger: logger.Named("ws")})
		if err != nil {
			return err
		}
		tr = client
	}
	defer tr.Close()

	lb := lobby.NewLobby(ctx, tr.SelfID(), tr, lobby.Options{
		Config: cfg.Engine(),
		Logger: logger.Named("lobby"),
	})
	snaps := make(chan engine.Snapshot, 64)
	lb.Inbox() <- lobby.Subscribe{ClientID: "tui", Outbox: snaps}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Losing the channel ends the session for this participant.
		defer stop()
		return tr.Run(ctx, lb.Inbox())
	})
	if join != nil {
		g.Go(func() error {
			return join(ctx)
		})
	}
	g.Go(func() error {
		p := tea.NewProgram(
			tui.New(present.New(cfg.Client.Lang, cfg.Engine()), snaps, lb.Inbox()),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		_, err := p.Run()
		stop()
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	return g.Wait()
}
