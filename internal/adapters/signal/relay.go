package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/domain"
	"github.com/sehatlink/teleconsult/internal/protocol"
)

// handleNegotiation relays offer/answer/candidate blobs untouched to the
// other live members of the room.
func (ctl *Controller) handleNegotiation(sess *clientSession, env protocol.Envelope) {
	res := ctl.Orch.RelaySignal(domain.RoomID(env.Room), sess.uid, env.Type, env.Payload)
	log.Debug().Str("module", "signal").Str("kind", env.Type).Str("room", env.Room).
		Str("from", string(sess.uid)).Int("sent_to", res.SentTo).Int("dropped", res.Dropped).
		Msg("relayed negotiation")
}

// handleChat relays the message and lets the orchestrator append it to
// the durable chat log. A failed append never suppresses the relay.
func (ctl *Controller) handleChat(ctx context.Context, sess *clientSession, env protocol.Envelope) {
	res := ctl.Orch.RelayChat(ctx, domain.RoomID(env.Room), sess.uid, env.Text)
	log.Debug().Str("module", "signal").Str("room", env.Room).Str("from", string(sess.uid)).
		Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("relayed chat")
}
