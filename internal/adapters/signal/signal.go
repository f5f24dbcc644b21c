package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Doubts/internal/app/orch"
	"github.com/dkeye/Doubts/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit   int64
	PingPeriod  time.Duration
	WriteWait   time.Duration
	SendBuffer  int
	AskLimit    int
	AskInterval time.Duration
}

type SignalWSController struct {
	Orch   *orch.Orchestrator
	opts   Options
	asks   *RoomRateLimiter
	routes map[string]handlerFunc
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch: o,
		opts: opts,
		asks: NewRoomRateLimiter(opts.AskLimit, opts.AskInterval),
	}
	ctl.routes = ctl.routeTable()
	return ctl
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

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.NewConnID()
	email, _ := sessions.Default(c).Get(core.SessionEmailKey).(string)
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, max(ctl.opts.SendBuffer, 1)),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sid, conn, email, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
