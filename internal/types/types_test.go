package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	wire "github.com/DoyleJ11/entry-lobby/pkg/types"
)

func TestDecodeClient(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    wire.ClientMessage
		wantErr error
	}{
		{"entry", `{"type":"Intent","kind":"Entry"}`, wire.ClientMessage{Type: "Intent", Kind: "Entry"}, nil},
		{"unknown kind is still an intent", `{"type":"Intent","kind":"Cheer"}`, wire.ClientMessage{Type: "Intent", Kind: "Cheer"}, nil},
		{"missing kind", `{"type":"Intent"}`, wire.ClientMessage{}, ErrMalformed},
		{"unknown type", `{"type":"LockPick"}`, wire.ClientMessage{}, ErrUnknownType},
		{"bad json", `{"type":`, wire.ClientMessage{}, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClient([]byte(tt.in))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeServer(t *testing.T) {
	frame := FrameMessage(wire.Frame{Seq: 4, Events: []wire.Event{{Type: wire.EventJoin, Sender: "A"}}, Ticks: 1})
	data, err := json.Marshal(frame)
	require.NoError(t, err)

	got, err := DecodeServer(data)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	for _, tc := range []struct {
		in   string
		want error
	}{
		{`{"type":"Welcome"}`, ErrMalformed},
		{`{"type":"Frame"}`, ErrMalformed},
		{`{"type":"StateSnapshot"}`, ErrUnknownType},
		{`[]`, ErrMalformed},
	} {
		_, err := DecodeServer([]byte(tc.in))
		assert.ErrorIs(t, err, tc.want, tc.in)
	}

	got, err = DecodeServer([]byte(`{"type":"Error","error":"nope"}`))
	require.NoError(t, err)
	assert.Equal(t, ErrorMessage(errors.New("nope")), got)
}

func TestToEngineMessage(t *testing.T) {
	m, ok := ToEngineMessage(wire.Event{Type: wire.EventMessage, Sender: "B", Kind: "Entry"})
	assert.True(t, ok)
	assert.Equal(t, engine.Message{Kind: engine.KindEntry, Sender: "B"}, m)

	m, ok = ToEngineMessage(wire.Event{Type: wire.EventMessage, Sender: "B", Kind: "Wave"})
	assert.True(t, ok)
	assert.Equal(t, engine.Kind("Wave"), m.Kind)

	_, ok = ToEngineMessage(wire.Event{Type: wire.EventJoin, Sender: "B"})
	assert.False(t, ok)
}

func TestIntentEncoding(t *testing.T) {
	data, err := json.Marshal(Intent(engine.KindEntryClosed))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Intent","kind":"EntryClosed"}`, string(data))

	data, err = json.Marshal(Welcome("A"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Welcome","self_id":"A"}`, string(data))
}
