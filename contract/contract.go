package contract

import "chat-relay/domain"

// HandleID identifies one live server-side connection. IDs are minted by the
// registry on Add and carry no payload, only identity.
type HandleID string

// FrameSink is one side of an open connection that can accept outbound
// text frames. Implementations must be safe for concurrent use.
type FrameSink interface {
	SendText(payload string) error
	Close() error
}

// Handle pairs a registered sink with the ID the registry minted for it.
type Handle struct {
	ID   HandleID
	Sink FrameSink
}

// Registry is a thread-safe set of currently open connections.
type Registry interface {
	Add(sink FrameSink) HandleID
	Remove(id HandleID)
	Snapshot() []Handle
	Clear() []Handle
	Len() int
}

// Broadcaster attempts delivery of one wire frame to every registered peer.
// Per-peer failures are isolated; nothing is reported back to the caller.
type Broadcaster interface {
	Broadcast(payload string)
}

// ConnectionEvents is the dispatch contract the transport layer invokes
// synchronously on its own goroutines as connections open, close and
// deliver frames.
type ConnectionEvents interface {
	OnOpen(id HandleID)
	OnClose(id HandleID)
	OnFrame(id HandleID, payload string)
}

// MessageSink consumes every accepted inbound message, typically to persist
// it. Implementations must not block on slow storage.
type MessageSink interface {
	Consume(message domain.Message)
}

// HistoryRepository persists accepted messages and reads them back
// newest-first.
type HistoryRepository interface {
	Append(message domain.Message) error
	Recent(limit int) ([]domain.Message, error)
}
