package signal

import (
	"context"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
)

func (ctl *SignalWSController) handleCreate(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.RoomPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return err
	}
	room, err := ctl.Orch.Create(ctx, sid, p.Email, p.RoomID)
	if err != nil {
		return err
	}
	ctl.sendJSON(conn, protocol.System("room created", room))
	ctl.sendJSON(conn, protocol.AdminStatus(true))
	return nil
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.RoomPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return err
	}
	if err := ctl.Orch.Join(ctx, sid, p.Email, p.RoomID); err != nil {
		return err
	}
	ctl.sendJSON(conn, protocol.System("joined room", p.RoomID))
	return nil
}

func (ctl *SignalWSController) handleCheckAdmin(_ context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.RoomPayload
	if err := protocol.DecodePayload(env, &p); err != nil {
		return err
	}
	ctl.sendJSON(conn, protocol.AdminStatus(ctl.Orch.CheckAdmin(sid, p.Email, p.RoomID)))
	return nil
}

// handleLeave — выход из текущей комнаты, соединение при этом не рвётся.
func (ctl *SignalWSController) handleLeave(_ context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.RoomPayload
	if len(env.Payload) > 0 {
		if err := protocol.DecodePayload(env, &p); err != nil {
			return err
		}
	}
	room := ctl.Orch.Leave(sid, p.RoomID)
	ctl.sendJSON(conn, protocol.System("left room", room))
	return nil
}

func (ctl *SignalWSController) handleClose(ctx context.Context, sid core.ConnID, conn core.SignalConnection, env protocol.Envelope) error {
	var p protocol.RoomPayload
	if len(env.Payload) > 0 {
		if err := protocol.DecodePayload(env, &p); err != nil {
			return err
		}
	}
	return ctl.Orch.Close(ctx, sid, p.RoomID)
}
