package orch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/core"
	"github.com/sehatlink/teleconsult/internal/domain"
	"github.com/sehatlink/teleconsult/internal/protocol"
)

// RelaySignal forwards an opaque negotiation blob to every other live
// member of the room. Content-agnostic: the payload is never inspected.
func (o *Orchestrator) RelaySignal(room domain.RoomID, from domain.UserID, kind string, payload json.RawMessage) core.PublishResult {
	frame, err := protocol.Encode(protocol.RelayedSignal{
		Type:    kind,
		From:    string(from),
		Payload: payload,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("kind", kind).Msg("encode relayed signal")
		return core.PublishResult{}
	}
	res := o.relayToOthers(room, from, frame)
	o.countRelay(kind)
	return res
}

// RelayChat forwards a chat message to the other room members and, as a
// side effect, appends it to the consultation's durable chat log. Live
// delivery takes precedence: a failed append is logged and counted but
// never blocks the broadcast.
func (o *Orchestrator) RelayChat(ctx context.Context, room domain.RoomID, from domain.UserID, text string) core.PublishResult {
	ts := time.Now()
	if o.Chat != nil {
		msg, err := o.Chat.AppendChatByRoom(ctx, room, from, text)
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("room", string(room)).Str("user", string(from)).
				Msg("chat relayed without durable append")
			if o.Metrics != nil {
				o.Metrics.ChatPersistFailures.Inc()
			}
		} else {
			ts = msg.Timestamp
		}
	}

	frame, err := protocol.Encode(protocol.RelayedChat{
		Type:      protocol.TypeChatMessage,
		From:      string(from),
		Text:      text,
		Timestamp: ts,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode relayed chat")
		return core.PublishResult{}
	}
	res := o.relayToOthers(room, from, frame)
	o.countRelay(protocol.TypeChatMessage)
	return res
}

// relayToOthers sends to the room's live members except the sender.
func (o *Orchestrator) relayToOthers(room domain.RoomID, from domain.UserID, frame core.Frame) core.PublishResult {
	members := o.Rooms.Members(room)
	targets := members[:0]
	for _, m := range members {
		if m != from {
			targets = append(targets, m)
		}
	}
	return o.sendTo(targets, frame)
}

func (o *Orchestrator) countRelay(kind string) {
	if o.Metrics != nil {
		o.Metrics.RelayedMessages.WithLabelValues(kind).Inc()
	}
}
