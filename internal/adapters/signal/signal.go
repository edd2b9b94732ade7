// Package signal is the WebSocket adapter for the signaling channel.
// It owns the transport resources; registries and relay logic live in
// the orchestrator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sehatlink/teleconsult/internal/app/orch"
	"github.com/sehatlink/teleconsult/internal/config"
	"github.com/sehatlink/teleconsult/internal/core"
	"github.com/sehatlink/teleconsult/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch *orch.Orchestrator
	Cfg  *config.Config
}

func NewController(o *orch.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{Orch: o, Cfg: cfg}
}

// wsConn wraps one websocket with a buffered outbound queue so slow
// readers never block a broadcast.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// clientSession is the per-channel state: which participant, if any,
// registered on this connection. Mutated only from the read loop.
type clientSession struct {
	conn       *wsConn
	uid        domain.UserID
	registered bool
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the channel until transport
// loss. Application-level errors never close the channel.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}
	sess := &clientSession{conn: conn}
	limiter := rate.NewLimiter(rate.Limit(ctl.Cfg.MsgRate), ctl.Cfg.MsgBurst)

	ctx, cancel := context.WithCancel(ctx)
	log.Info().Str("module", "signal").Str("remote", c.Request.RemoteAddr).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sess, limiter)
	}()
}
