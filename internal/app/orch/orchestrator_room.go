package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/domain"
	"github.com/sehatlink/teleconsult/internal/protocol"
)

// JoinRoom adds uid to the room's live set and announces the join to the
// members that were already there, never to the joiner itself. The prior
// members are returned so the adapter can ack the joiner with room state.
func (o *Orchestrator) JoinRoom(uid domain.UserID, room domain.RoomID) []domain.UserID {
	others := o.Rooms.Join(room, uid)
	frame, err := protocol.Encode(protocol.ParticipantEvent{
		Type: protocol.TypeParticipantJoined,
		User: string(uid),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode participant-joined")
	} else {
		o.sendTo(others, frame)
	}
	o.syncGauges()
	return others
}

// LeaveRoom removes uid from the room and announces the departure to the
// remaining members.
func (o *Orchestrator) LeaveRoom(uid domain.UserID, room domain.RoomID) bool {
	remaining, ok := o.Rooms.Leave(room, uid)
	if !ok {
		return false
	}
	o.notifyLeft(room, uid, remaining)
	o.syncGauges()
	return true
}

func (o *Orchestrator) notifyLeft(room domain.RoomID, uid domain.UserID, remaining []domain.UserID) {
	frame, err := protocol.Encode(protocol.ParticipantEvent{
		Type: protocol.TypeParticipantLeft,
		User: string(uid),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode participant-left")
		return
	}
	res := o.sendTo(remaining, frame)
	log.Debug().Str("module", "orch").Str("room", string(room)).Str("user", string(uid)).
		Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("participant-left broadcast")
}

// NotifySessionEnded tells every live member of a room that the session
// was durably ended. It does not force anyone out: leaving the room (or
// dropping the channel) stays a client action.
func (o *Orchestrator) NotifySessionEnded(room domain.RoomID) {
	members := o.Rooms.Members(room)
	if len(members) == 0 {
		return
	}
	frame, err := protocol.Encode(protocol.SessionEnded{
		Type: protocol.TypeSessionEnded,
		Room: string(room),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode session-ended")
		return
	}
	o.sendTo(members, frame)
	log.Info().Str("module", "orch").Str("room", string(room)).Int("members", len(members)).Msg("session-ended broadcast")
}
