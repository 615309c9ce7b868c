package core

import (
	"errors"

	"github.com/dkeye/VoiceBridge/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw outbound payload (a JSON-encoded event).
type Frame []byte

// Connection abstracts a live signaling transport endpoint.
// Owned by the adapter; the adapter must Close() it. The registry only keeps
// a non-owning reference.
type Connection interface {
	ID() domain.ConnectionID
	Identity() domain.Identity
	// TrySend queues a frame without blocking; it fails on a full queue or
	// a closed connection.
	TrySend(Frame) error
	Close()
}
