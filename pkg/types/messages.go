// Package types holds the relay wire protocol. Every websocket message is one JSON
// object with a "type" discriminator.
//
// Client -> Relay
//
//	Intent: {"type":"Intent","kind":"Entry"}
//
// Relay -> Client
//
//	Welcome: {"type":"Welcome","self_id":"..."}
//	Frame:   {"type":"Frame","frame":{...}}
//	Error:   {"type":"Error","error":"..."}
package types

const (
	TypeIntent  = "Intent"
	TypeWelcome = "Welcome"
	TypeFrame   = "Frame"
	TypeError   = "Error"
)

type ClientMessage struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
}

type ServerMessage struct {
	Type   string `json:"type"`
	SelfID string `json:"self_id,omitempty"`
	Frame  *Frame `json:"frame,omitempty"`
	Error  string `json:"error,omitempty"`
}
