// Package core holds the transport-facing contracts shared by the
// registries, the orchestrator and the adapters.
package core

// Frame is one serialized protocol message.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats to the caller. Dropped counts
// recipients whose send buffer was full or whose channel was gone.
type PublishResult struct {
	SentTo  int
	Dropped int
}
