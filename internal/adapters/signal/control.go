package signal

import (
	"context"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
)

func (ctl *SignalWSController) handlePing(_ context.Context, _ core.ConnID, conn core.SignalConnection, _ protocol.Envelope) error {
	ctl.sendJSON(conn, protocol.Pong())
	return nil
}
