package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConn records frames instead of writing to a socket.
type fakeConn struct {
	id       domain.ConnectionID
	identity domain.Identity
	capacity int

	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func newFakeConn(id string, identity domain.Identity) *fakeConn {
	return &fakeConn{id: domain.ConnectionID(id), identity: identity, capacity: 64}
}

func (c *fakeConn) ID() domain.ConnectionID   { return c.id }
func (c *fakeConn) Identity() domain.Identity { return c.identity }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if len(c.frames) >= c.capacity {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes every recorded frame.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func admit(t *testing.T, reg *Registry, conns ...*fakeConn) {
	t.Helper()
	for _, c := range conns {
		require.NoError(t, reg.Admit(c.identity, c))
	}
}
