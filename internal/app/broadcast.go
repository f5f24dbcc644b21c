package app

import (
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats of one broadcast.
type PublishResult struct {
	SentTo  int
	Dropped []core.ConnID
}

type Broadcaster struct {
	Registry *Registry
	Rooms    *Directory
	Policy   Policy
}

// Broadcast attempts every member present at call time exactly once.
// Send failures are logged and handed to the policy; they never abort the loop.
func (b *Broadcaster) Broadcast(room domain.RoomID, f core.Frame) PublishResult {
	res := PublishResult{}
	for _, id := range b.Rooms.Members(room) {
		conn, ok := b.Registry.Conn(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			log.Warn().Err(err).Str("module", "app.broadcast").Str("room", string(room)).Str("conn", string(id)).Msg("send failed")
			res.Dropped = append(res.Dropped, id)
			if b.Policy != nil && b.Policy.OnBackpressure(room, id, err) == CloseConn {
				conn.Close()
				b.Registry.Cancel(id)
			}
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.broadcast").Str("room", string(room)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
