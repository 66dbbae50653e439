package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownType = errors.New("unknown message type")

func DecodeClient(data []byte) (wire.ClientMessage, error) {
	var cm wire.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return cm, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cm.Type != wire.TypeIntent {
		return cm, fmt.Errorf("%w: %q", ErrUnknownType, cm.Type)
	}
	if cm.Kind == "" {
		return cm, fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	return cm, nil
}

func DecodeServer(data []byte) (wire.ServerMessage, error) {
	var sm wire.ServerMessage
	if err := json.Unmarshal(data, &sm); err != nil {
		return sm, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch sm.Type {
	case wire.TypeWelcome:
		if sm.SelfID == "" {
			return sm, fmt.Errorf("%w: welcome without self_id", ErrMalformed)
		}
	case wire.TypeFrame:
		if sm.Frame == nil {
			return sm, fmt.Errorf("%w: frame without body", ErrMalformed)
		}
	case wire.TypeError:
	default:
		return sm, fmt.Errorf("%w: %q", ErrUnknownType, sm.Type)
	}
	return sm, nil
}

func Intent(kind engine.Kind) wire.ClientMessage {
	return wire.ClientMessage{Type: wire.TypeIntent, Kind: string(kind)}
}

func Welcome(selfID string) wire.ServerMessage {
	return wire.ServerMessage{Type: wire.TypeWelcome, SelfID: selfID}
}

func FrameMessage(f wire.Frame) wire.ServerMessage {
	return wire.ServerMessage{Type: wire.TypeFrame, Frame: &f}
}

func ErrorMessage(err error) wire.ServerMessage {
	return wire.ServerMessage{Type: wire.TypeError, Error: err.Error()}
}

// ToEngineMessage converts a message event. Kinds pass through untouched: the
// controller ignores the ones it does not know.
func ToEngineMessage(ev wire.Event) (engine.Message, bool) {
	if ev.Type != wire.EventMessage {
		return engine.Message{}, false
	}
	return engine.Message{Kind: engine.Kind(ev.Kind), Sender: ev.Sender}, true
}
