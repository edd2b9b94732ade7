package signal

import "github.com/sehatlink/teleconsult/internal/protocol"

func (ctl *Controller) handlePing(conn *wsConn) {
	ctl.sendEvent(conn, protocol.Pong{Type: protocol.TypePong})
}
