package core

import "errors"

// Frame is a raw encoded message.
type Frame []byte

// ErrBackpressure is returned by TrySend when the outbound buffer is full.
var ErrBackpressure = errors.New("backpressure")

// ErrConnClosed is returned by TrySend after Close.
var ErrConnClosed = errors.New("connection closed")

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
