package signal

import (
	"errors"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	msgInvalidRoom = "Invalid room Id"
	msgRoomClosed  = "room closed"
	msgNotMember   = "not a member of this room"
	msgNotAdmin    = "only the room admin can do that"
	msgNotFound    = "doubt not found"
	msgSlowDown    = "slow down"
	msgBadPayload  = "bad payload"
	msgUnknownType = "unknown message type"
	msgInternal    = "something went wrong"
)

// replyError maps a handler error to the message the client sees.
// Unknown users are dropped without a reply.
func (ctl *SignalWSController) replyError(sid core.ConnID, c core.SignalConnection, typ string, err error) {
	var msg string
	switch {
	case errors.Is(err, core.ErrUnknownUser):
		log.Warn().Str("module", "signal").Str("conn", string(sid)).Str("type", typ).Msg("unknown user, dropping")
		return
	case errors.Is(err, core.ErrInvalidRoom):
		msg = msgInvalidRoom
	case errors.Is(err, core.ErrRoomClosed):
		msg = msgRoomClosed
	case errors.Is(err, core.ErrNotMember):
		msg = msgNotMember
	case errors.Is(err, core.ErrNotAdmin):
		msg = msgNotAdmin
	case errors.Is(err, core.ErrNotFound):
		msg = msgNotFound
	case errors.Is(err, core.ErrRateLimited):
		msg = msgSlowDown
	case errors.Is(err, protocol.ErrUnknownType):
		msg = msgUnknownType
	case errors.Is(err, protocol.ErrBadEnvelope),
		errors.Is(err, protocol.ErrMissingField),
		errors.Is(err, protocol.ErrRoomIDTooLong):
		msg = msgBadPayload
	default:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(sid)).Str("type", typ).Msg("handler failed")
		msg = msgInternal
	}
	ctl.sendJSON(c, protocol.Error(msg))
}
