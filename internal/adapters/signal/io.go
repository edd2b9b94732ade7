package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sehatlink/teleconsult/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump reads frames until the transport drops, then hands the
// channel to the disconnect reconciler.
func (ctl *Controller) readPump(ctx context.Context, sess *clientSession, limiter *rate.Limiter) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(sess.uid)).Msg("readPump closing")
		if sess.registered {
			ctl.Orch.Disconnect(sess.uid, sess.conn)
		}
		sess.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := sess.conn.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("user", string(sess.uid)).Msg("readPump read error")
				return
			}
			if !limiter.Allow() {
				ctl.sendError(sess.conn, "rate_limited")
				continue
			}
			ctl.handleFrame(ctx, sess, data)
		}
	}
}

func (ctl *Controller) handleFrame(ctx context.Context, sess *clientSession, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejected frame")
		ctl.sendError(sess.conn, "bad_payload")
		return
	}

	switch env.Type {
	case protocol.TypeRegister:
		ctl.handleRegister(sess, env)
	case protocol.TypePing:
		ctl.handlePing(sess.conn)
	default:
		if !sess.registered {
			ctl.sendError(sess.conn, "not_registered")
			return
		}
		switch env.Type {
		case protocol.TypeJoinRoom:
			ctl.handleJoin(sess, env)
		case protocol.TypeLeaveRoom:
			ctl.handleLeave(sess, env)
		case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeCandidate:
			ctl.handleNegotiation(sess, env)
		case protocol.TypeChatMessage:
			ctl.handleChat(ctx, sess, env)
		}
	}
}

func (ctl *Controller) sendEvent(c *wsConn, v any) {
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode event")
		return
	}
	_ = c.TrySend(frame)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendEvent(c, protocol.ErrorEvent{Type: protocol.TypeError, Error: msg})
}
