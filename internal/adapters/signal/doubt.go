package signal

import (
	"context"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
)

func (ctl *SignalWSController) handleAsk(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.AskPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return err
	}
	key := ctl.Orch.Identity(sid, p.Email)
	if key == "" {
		key = string(sid)
	}
	if !ctl.asks.Allow(key) {
		return core.ErrRateLimited
	}
	_, err := ctl.Orch.Ask(ctx, sid, p.Email, p.RoomID, p.Doubt)
	return err
}

func (ctl *SignalWSController) voteHandler(delta int) handlerFunc {
	return func(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
		var p protocol.DoubtPayload
		if err := protocol.DecodePayload(env, &p); err != nil {
			return err
		}
		d, err := ctl.Orch.Vote(ctx, sid, p.DoubtID, delta)
		if err != nil {
			return err
		}
		ctl.sendJSON(conn, protocol.System("vote recorded", d.RoomID))
		return nil
	}
}

func (ctl *SignalWSController) handleMarkAnswered(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.DoubtPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return err
	}
	return ctl.Orch.MarkAnswered(ctx, sid, p.RoomID, p.DoubtID)
}
