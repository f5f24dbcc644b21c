package domain

import "time"

type DoubtID int64

// Doubt is a question asked in a room. A doubt with empty Text is the
// marker row written on create; it makes the room code known to the store.
type Doubt struct {
	ID        DoubtID   `json:"id"`
	UserID    UserID    `json:"userId"`
	RoomID    RoomID    `json:"roomId"`
	Text      string    `json:"doubt"`
	Upvotes   int       `json:"upvotes"`
	Answered  bool      `json:"answered"`
	CreatedAt time.Time `json:"createdAt"`
}

func (d Doubt) IsMarker() bool { return d.Text == "" }
