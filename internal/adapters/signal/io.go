package signal

import (
	"context"
	"time"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.opts.PingPeriod * 10 / 9
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var tick <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-tick:
			deadline := time.Now().Add(ctl.opts.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	if ctl.opts.PingPeriod > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

type handlerFunc func(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error

func (ctl *SignalWSController) routeTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.TypeCreate:       ctl.handleCreate,
		protocol.TypeJoin:         ctl.handleJoin,
		protocol.TypeCheckAdmin:   ctl.handleCheckAdmin,
		protocol.TypeAskDoubt:     ctl.handleAsk,
		protocol.TypeUpvote:       ctl.voteHandler(1),
		protocol.TypeDownvote:     ctl.voteHandler(-1),
		protocol.TypeMarkAnswered: ctl.handleMarkAnswered,
		protocol.TypeLeave:        ctl.handleLeave,
		protocol.TypeClose:        ctl.handleClose,
		protocol.TypePing:         ctl.handlePing,
		protocol.TypeWhoAmI:       ctl.handleWhoAmI,
	}
}

// handleSignal decodes one frame and runs its handler. A failing or
// panicking handler only ever produces an error reply to the sender.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.ConnID, c core.SignalConnection, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Str("conn", string(sid)).Msg("handler panic")
			ctl.sendJSON(c, protocol.Error(msgInternal))
		}
	}()

	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad json")
		ctl.replyError(sid, c, "", err)
		return
	}
	h, ok := ctl.routes[env.Type]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.replyError(sid, c, env.Type, protocol.ErrUnknownType)
		return
	}
	if err := h(ctx, sid, c, env); err != nil {
		ctl.replyError(sid, c, env.Type, err)
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, out protocol.Outbound) {
	if err := c.TrySend(out.Frame()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", out.Type).Msg("sendJSON")
	}
}
