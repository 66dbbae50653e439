package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/entry-lobby/internal/hub"
	"github.com/DoyleJ11/entry-lobby/internal/types"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

const writeTimeout = 3 * time.Second

var errRelayStopped = errors.New("relay is shutting down")

// Handler upgrades to a websocket and attaches the connection to the relay as one
// participant. An optional "id" query parameter proposes the participant identity.
func Handler(h *hub.Hub, originPatterns []string, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		proposed := r.URL.Query().Get("id")
		if proposed != "" {
			if err := checkID(h, proposed); err != nil {
				httpError(w, err)
				return
			}
		}

		// Nobody joins the session until the upgrade went through.
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan wire.Frame, 256)
		res := connect(h, hub.Connect{ID: proposed, Outbox: out, Reply: make(chan hub.ConnectResult, 1)})
		switch {
		case errors.Is(res.Err, hub.ErrDuplicateID):
			// Lost a race for the id after the check above.
			conn.Close(websocket.StatusPolicyViolation, hub.ErrDuplicateID.Error())
			return
		case res.Err != nil:
			conn.Close(websocket.StatusTryAgainLater, res.Err.Error())
			return
		}
		id := res.ID
		log := logger.With(zap.String("participant_id", id))
		defer send(h, hub.Disconnect{ID: id})

		ctx := r.Context()
		if err := write(ctx, conn, types.Welcome(id)); err != nil {
			return
		}
		for _, f := range res.Replay {
			if err := write(ctx, conn, types.FrameMessage(f)); err != nil {
				return
			}
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for f := range out {
				if err := write(writeCtx, conn, types.FrameMessage(f)); err != nil {
					log.Debug("frame write failed", zap.Uint64("seq", f.Seq), zap.Error(err))
				}
			}
			// Outbox closed: dropped by the relay or shutting down.
			conn.Close(websocket.StatusGoingAway, "relay closed the stream")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			cm, err := types.DecodeClient(data)
			if err != nil {
				_ = write(ctx, conn, types.ErrorMessage(err))
				continue
			}
			if !send(h, hub.Publish{Sender: id, Kind: cm.Kind}) {
				return
			}
		}
	}
}

func checkID(h *hub.Hub, id string) error {
	reply := make(chan error, 1)
	if !send(h, hub.CheckID{ID: id, Reply: reply}) {
		return errRelayStopped
	}
	select {
	case err := <-reply:
		return err
	case <-h.Done():
		return errRelayStopped
	}
}

func connect(h *hub.Hub, msg hub.Connect) hub.ConnectResult {
	if !send(h, msg) {
		return hub.ConnectResult{Err: errRelayStopped}
	}
	select {
	case res := <-msg.Reply:
		return res
	case <-h.Done():
		return hub.ConnectResult{Err: errRelayStopped}
	}
}

func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errRelayStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "failed to join session", http.StatusInternalServerError)
	}
}

// send delivers m unless the relay has already stopped.
func send(h *hub.Hub, m hub.HubMsg) bool {
	select {
	case h.Inbox() <- m:
		return true
	case <-h.Done():
		return false
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg wire.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
