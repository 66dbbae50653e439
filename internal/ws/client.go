package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/hub"
	"github.com/DoyleJ11/entry-lobby/internal/lobby"
	"github.com/DoyleJ11/entry-lobby/internal/types"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

// Client is one participant's connection to the relay. It satisfies lobby.Sender.
type Client struct {
	conn   *websocket.Conn
	selfID string
	log    *zap.Logger
}

type DialOptions struct {
	// ID proposes a participant identity. Empty lets the relay assign one.
	ID     string
	Logger *zap.Logger
}

// Dial connects to the relay's websocket endpoint and waits for the welcome that
// carries this participant's identity.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if opts.ID != "" {
		q := u.Query()
		q.Set("id", opts.ID)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("dial relay: %w", hub.ErrDuplicateID)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	// Replay can arrive in large frames.
	conn.SetReadLimit(1 << 20)

	msg, err := read(ctx, conn)
	if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
		return nil, fmt.Errorf("dial relay: %w", hub.ErrDuplicateID)
	}
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "no welcome")
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if msg.Type != wire.TypeWelcome {
		conn.Close(websocket.StatusProtocolError, "no welcome")
		return nil, fmt.Errorf("read welcome: %w: got %q", types.ErrUnknownType, msg.Type)
	}

	return &Client{
		conn:   conn,
		selfID: msg.SelfID,
		log:    opts.Logger.With(zap.String("self_id", msg.SelfID)),
	}, nil
}

func (c *Client) SelfID() string { return c.selfID }

func (c *Client) Send(ctx context.Context, kind engine.Kind) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, types.Intent(kind))
}

// Run feeds relay frames into the lobby until ctx ends or the relay goes away.
func (c *Client) Run(ctx context.Context, inbox chan<- lobby.Msg) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read relay: %w", err)
		}

		msg, err := types.DecodeServer(data)
		if err != nil {
			c.log.Warn("bad relay message", zap.Error(err))
			continue
		}
		switch msg.Type {
		case wire.TypeFrame:
			select {
			case inbox <- lobby.ApplyFrame{Frame: *msg.Frame}:
			case <-ctx.Done():
				return nil
			}
		case wire.TypeError:
			c.log.Warn("relay rejected message", zap.String("error", msg.Error))
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func read(ctx context.Context, conn *websocket.Conn) (wire.ServerMessage, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return wire.ServerMessage{}, err
	}
	return types.DecodeServer(data)
}
