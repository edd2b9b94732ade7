// Package orch coordinates the ephemeral registries, the signaling
// relay and the disconnect reconciler. Durable state is touched only
// through the chat log side effect; everything else here lives and dies
// with the process.
package orch

import (
	"context"

	"github.com/sehatlink/teleconsult/internal/app"
	"github.com/sehatlink/teleconsult/internal/core"
	"github.com/sehatlink/teleconsult/internal/domain"
	"github.com/sehatlink/teleconsult/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ChatLog is the durable side of the chat relay, implemented by the
// session manager.
type ChatLog interface {
	AppendChatByRoom(ctx context.Context, room domain.RoomID, sender domain.UserID, text string) (domain.ChatMessage, error)
}

type Orchestrator struct {
	Presence *app.PresenceRegistry
	Rooms    *app.RoomRegistry
	Chat     ChatLog
	Metrics  *metrics.Metrics
}

// Register binds a live connection to a participant id. A second login
// for the same id evicts the prior registry entry without closing the
// prior channel.
func (o *Orchestrator) Register(uid domain.UserID, conn core.SignalConnection) {
	o.Presence.Register(uid, conn)
	o.syncGauges()
}

// Disconnect is the sole recovery path for unannounced channel loss: it
// drops the presence entry and replays the leave-room logic for every
// room the participant occupied. The purge is skipped when conn is no
// longer the registered handle, so a stale channel dying late cannot
// tear down the login that replaced it.
func (o *Orchestrator) Disconnect(uid domain.UserID, conn core.SignalConnection) {
	if !o.Presence.Deregister(uid, conn) {
		log.Debug().Str("module", "orch").Str("user", string(uid)).Msg("disconnect of evicted channel, nothing to reconcile")
		return
	}
	for _, room := range o.Rooms.RoomsOf(uid) {
		remaining, ok := o.Rooms.Leave(room, uid)
		if !ok {
			continue
		}
		o.notifyLeft(room, uid, remaining)
	}
	if o.Metrics != nil {
		o.Metrics.DisconnectsReconciled.Inc()
	}
	o.syncGauges()
	log.Info().Str("module", "orch").Str("user", string(uid)).Msg("disconnect reconciled")
}

// sendTo fans a frame out to the given participants' live connections.
func (o *Orchestrator) sendTo(uids []domain.UserID, frame core.Frame) core.PublishResult {
	var res core.PublishResult
	for _, uid := range uids {
		conn, ok := o.Presence.Get(uid)
		if !ok {
			res.Dropped++
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	return res
}

func (o *Orchestrator) syncGauges() {
	if o.Metrics == nil {
		return
	}
	o.Metrics.ConnectionsActive.Set(float64(o.Presence.Len()))
	o.Metrics.RoomsActive.Set(float64(o.Rooms.Len()))
}
