package signal

import (
	"context"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
)

func (ctl *SignalWSController) handleWhoAmI(_ context.Context, sid core.ConnID, conn core.SignalConnection, _ protocol.Envelope) error {
	c, _ := ctl.Orch.Whoami(sid)
	ctl.sendJSON(conn, protocol.WhoAmI(c.Email, c.RoomID, c.IsAdmin))
	return nil
}
