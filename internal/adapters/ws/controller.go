// Package ws accepts websocket connections, authenticates them at the
// handshake and feeds their events into the session manager.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/auth"
	"github.com/avelis/collabd/internal/session"
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

type Controller struct {
	verifier *auth.Verifier
	sessions *session.Manager
	opts     Options
}

func NewController(verifier *auth.Verifier, sessions *session.Manager, opts Options) *Controller {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &Controller{verifier: verifier, sessions: sessions, opts: opts}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake and promotes it to a live
// connection. A bad credential fails the HTTP exchange before any
// upgrade happens, so the client sees a handshake failure and no
// connection state is ever created.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	identity, err := ctl.verifier.Verify(c.Query("token"))
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("handshake rejected")
		c.String(http.StatusUnauthorized, err.Error())
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		wsConn.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := newConn(wsConn, identity, ctl.opts.SendBuffer)
	log.Info().Str("module", "ws").Str("user_id", string(identity.ID)).Str("conn_id", conn.ID()).Msg("connected")

	ctl.sessions.Register(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ping := time.NewTicker(ctl.opts.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn_id", c.ID()).Msg("ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "ws").Str("conn_id", c.ID()).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump owns teardown: whatever kills the read loop (network loss,
// explicit close, supersession by a reconnect) funnels into exactly one
// Disconnect, which runs the room reconciliation before presence is
// dropped.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, c *Conn) {
	pongWait := ctl.opts.PingPeriod * 10 / 9
	defer func() {
		ctl.sessions.Disconnect(c)
		c.Close()
		cancel()
		log.Info().Str("module", "ws").Str("conn_id", c.ID()).Msg("readPump closing")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("module", "ws").Str("conn_id", c.ID()).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(ctx, c, data)
		}
	}
}
