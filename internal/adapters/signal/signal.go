package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/dicetable/internal/app"
	"github.com/dkeye/dicetable/internal/auth"
	"github.com/dkeye/dicetable/internal/core"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

type SignalWSController struct {
	Router  *app.Router
	Hub     *Hub
	Auth    auth.Provider
	Limiter *RateLimiter
	opts    Options
}

// NewSignalWSController wires the websocket shim. provider and limiter may be nil.
func NewSignalWSController(router *app.Router, hub *Hub, provider auth.Provider, limiter *RateLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Router:  router,
		Hub:     hub,
		Auth:    provider,
		Limiter: limiter,
		opts:    opts.withDefaults(),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal authenticates the request, upgrades it and starts the pumps.
// A missing credential means an anonymous connection; a bad one is refused.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	var identity *domain.Identity
	if token := auth.TokenFromRequest(c.Request); token != "" && ctl.Auth != nil {
		id, err := ctl.Auth.Verify(c.Request.Context(), token)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("rejected credential")
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrInvalidToken) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		identity = id
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	ctl.Hub.Register(id, conn)
	ctl.Router.Connect(id, identity, c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(id)).Bool("verified", identity != nil).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
