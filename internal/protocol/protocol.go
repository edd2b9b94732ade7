// Package protocol defines the closed set of message variants exchanged
// over the signaling channel. Every frame is a JSON object tagged by
// "type"; unknown or malformed frames are rejected at decode time so
// nothing shapeless reaches the relay.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client -> server message types.
const (
	TypeRegister    = "register"
	TypeJoinRoom    = "join-room"
	TypeLeaveRoom   = "leave-room"
	TypeOffer       = "offer"
	TypeAnswer      = "answer"
	TypeCandidate   = "candidate"
	TypeChatMessage = "chat-message"
	TypePing        = "ping"
)

// Server -> client message types.
const (
	TypeRegistered        = "registered"
	TypeRoomState         = "room-state"
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeSessionEnded      = "session-ended"
	TypePong              = "pong"
	TypeError             = "error"
)

// Envelope is the decoded form of one inbound frame. Payload stays
// opaque: negotiation blobs are relayed, never interpreted.
type Envelope struct {
	Type    string          `json:"type"`
	User    string          `json:"user,omitempty"`
	Room    string          `json:"room,omitempty"`
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses and structurally validates one inbound frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	switch env.Type {
	case TypeRegister:
		if env.User == "" {
			return Envelope{}, fmt.Errorf("register: user is required")
		}
	case TypeJoinRoom, TypeLeaveRoom:
		if env.Room == "" {
			return Envelope{}, fmt.Errorf("%s: room is required", env.Type)
		}
	case TypeOffer, TypeAnswer, TypeCandidate:
		if env.Room == "" {
			return Envelope{}, fmt.Errorf("%s: room is required", env.Type)
		}
		if len(env.Payload) == 0 {
			return Envelope{}, fmt.Errorf("%s: payload is required", env.Type)
		}
	case TypeChatMessage:
		if env.Room == "" {
			return Envelope{}, fmt.Errorf("chat-message: room is required")
		}
		if env.Text == "" {
			return Envelope{}, fmt.Errorf("chat-message: text is required")
		}
	case TypePing:
	case "":
		return Envelope{}, fmt.Errorf("frame without type")
	default:
		return Envelope{}, fmt.Errorf("unknown frame type %q", env.Type)
	}
	return env, nil
}

// ParticipantEvent announces a join or leave to the rest of a room.
type ParticipantEvent struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// RelayedSignal is an offer/answer/candidate forwarded to room peers,
// annotated with the sender.
type RelayedSignal struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// RelayedChat is a chat message forwarded to room peers with a
// server-assigned timestamp.
type RelayedChat struct {
	Type      string    `json:"type"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomState is the ack sent to a joiner: who was already there.
type RoomState struct {
	Type    string   `json:"type"`
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

type SessionEnded struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type Registered struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type Pong struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Encode marshals a server event. Events are plain structs, so a
// marshal failure is a programming error and reported as such.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}
