package app

import (
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	CloseConn
)

// Policy decides what happens to a member whose send failed during a broadcast.
type Policy interface {
	OnBackpressure(room domain.RoomID, id core.ConnID, err error) BackpressureAction
}

// ClosePolicy closes slow or dead consumers; the read pump then reaps them.
type ClosePolicy struct{}

func (ClosePolicy) OnBackpressure(domain.RoomID, core.ConnID, error) BackpressureAction {
	return CloseConn
}

// LogPolicy only logs; the transport is left to fail on its own.
type LogPolicy struct{}

func (LogPolicy) OnBackpressure(domain.RoomID, core.ConnID, error) BackpressureAction {
	return NoAction
}

func PolicyByName(name string) Policy {
	if name == "log" {
		return LogPolicy{}
	}
	return ClosePolicy{}
}
