// Package coretest provides in-memory doubles for core interfaces.
package coretest

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Doubts/internal/core"
)

// Conn is a SignalConnection backed by a buffered channel.
type Conn struct {
	Send chan core.Frame

	mu     sync.Mutex
	closed bool
	fail   error
}

func NewConn(buf int) *Conn {
	return &Conn{Send: make(chan core.Frame, buf)}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.Send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FailWith makes every following TrySend return err.
func (c *Conn) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

// Message is a decoded outbound envelope.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m Message) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(m.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", m.Type, err)
	}
}

// Next returns the next frame or fails the test after a short wait.
func (c *Conn) Next(t *testing.T) Message {
	t.Helper()
	select {
	case f := <-c.Send:
		var m Message
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for frame")
		return Message{}
	}
}

// Expect returns the next frame and fails unless it has type typ.
func (c *Conn) Expect(t *testing.T, typ string) Message {
	t.Helper()
	m := c.Next(t)
	if m.Type != typ {
		t.Fatalf("expected %q, got %q (%s)", typ, m.Type, m.Payload)
	}
	return m
}

// Empty fails the test if a frame is pending.
func (c *Conn) Empty(t *testing.T) {
	t.Helper()
	select {
	case f := <-c.Send:
		t.Fatalf("unexpected frame %s", f)
	default:
	}
}
