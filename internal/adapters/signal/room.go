package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/domain"
	"github.com/sehatlink/teleconsult/internal/protocol"
)

// handleRegister binds the channel to a participant id. The identity is
// asserted by the external auth layer; the coordinator trusts it.
// Re-registering under a new id first reconciles the old one.
func (ctl *Controller) handleRegister(sess *clientSession, env protocol.Envelope) {
	uid := domain.UserID(env.User)
	if sess.registered && sess.uid != uid {
		ctl.Orch.Disconnect(sess.uid, sess.conn)
	}
	sess.uid = uid
	sess.registered = true
	ctl.Orch.Register(uid, sess.conn)
	ctl.sendEvent(sess.conn, protocol.Registered{Type: protocol.TypeRegistered, User: env.User})
}

// handleJoin adds the participant to the room's live set. The other
// members get participant-joined; the joiner gets the room state ack.
func (ctl *Controller) handleJoin(sess *clientSession, env protocol.Envelope) {
	room := domain.RoomID(env.Room)
	others := ctl.Orch.JoinRoom(sess.uid, room)

	members := make([]string, 0, len(others))
	for _, m := range others {
		members = append(members, string(m))
	}
	ctl.sendEvent(sess.conn, protocol.RoomState{
		Type:    protocol.TypeRoomState,
		Room:    env.Room,
		Members: members,
	})
	log.Info().Str("module", "signal").Str("user", string(sess.uid)).Str("room", env.Room).Msg("join")
}

func (ctl *Controller) handleLeave(sess *clientSession, env protocol.Envelope) {
	room := domain.RoomID(env.Room)
	if !ctl.Orch.LeaveRoom(sess.uid, room) {
		ctl.sendError(sess.conn, "not_in_room")
		return
	}
	log.Info().Str("module", "signal").Str("user", string(sess.uid)).Str("room", env.Room).Msg("leave")
}
