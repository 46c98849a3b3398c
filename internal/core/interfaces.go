package core

// Frame is a raw outbound payload, already marshaled.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. A full buffer or a
	// closed connection returns an error; the frame is then lost.
	TrySend(Frame) error
	Close()
}
