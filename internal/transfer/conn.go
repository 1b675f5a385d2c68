package transfer

import (
	"context"
	"errors"
)

var (
	// ErrDisconnected is returned once either side has closed the channel
	ErrDisconnected = errors.New("channel disconnected")

	// ErrMessageTooLarge is returned by Send for chunks above MaxChunkSize
	ErrMessageTooLarge = errors.New("channel message too large")
)

// Conn is one end of a duplex chunked transfer channel.
// Send and Receive may be used concurrently with each other, but each of them
// must only be called from one goroutine at a time.
type Conn interface {
	// Name returns the channel tag
	Name() string

	// MaxChunkSize returns the largest chunk payload Send accepts
	MaxChunkSize() int

	// Send delivers msg to the peer, preserving order
	Send(ctx context.Context, msg Message) error

	// Receive blocks until the next message from the peer arrives.
	// Returns ErrDisconnected after either side closed the channel.
	Receive(ctx context.Context) (Message, error)

	// Close tears the channel down; the peer observes it as cancellation
	Close() error
}
