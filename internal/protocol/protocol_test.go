package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidFrames(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"register", `{"type":"register","user":"patient-1"}`},
		{"join", `{"type":"join-room","room":"room-1"}`},
		{"leave", `{"type":"leave-room","room":"room-1"}`},
		{"offer", `{"type":"offer","room":"room-1","payload":{"sdp":"v=0"}}`},
		{"answer", `{"type":"answer","room":"room-1","payload":{"sdp":"v=0"}}`},
		{"candidate", `{"type":"candidate","room":"room-1","payload":{"candidate":"..."}}`},
		{"chat", `{"type":"chat-message","room":"room-1","text":"hi"}`},
		{"ping", `{"type":"ping"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Decode([]byte(tc.data))
			require.NoError(t, err)
			assert.NotEmpty(t, env.Type)
		})
	}
}

func TestDecode_RejectsMalformedFrames(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `offer sdp`},
		{"no type", `{"room":"room-1"}`},
		{"unknown type", `{"type":"teleport","room":"room-1"}`},
		{"register without user", `{"type":"register"}`},
		{"join without room", `{"type":"join-room"}`},
		{"offer without payload", `{"type":"offer","room":"room-1"}`},
		{"offer without room", `{"type":"offer","payload":{}}`},
		{"chat without text", `{"type":"chat-message","room":"room-1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestDecode_PayloadStaysOpaque(t *testing.T) {
	env, err := Decode([]byte(`{"type":"offer","room":"r","payload":{"anything":["goes",1,true]}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"anything":["goes",1,true]}`, string(env.Payload))
}
