package runtime

import (
	"log/slog"

	"chat-relay/contract"
)

// Broadcaster delivers one wire frame to every peer registered at the moment
// of the call.
//
// Delivery is best-effort with no guarantees regarding ordering across
// senders, durability, or retries. A failure sending to one peer is logged
// and does not abort delivery to the remaining peers, and nothing is
// surfaced to the caller.
//
// Broadcaster is safe for concurrent use by multiple goroutines.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.Registry
}

func NewBroadcaster(log *slog.Logger, registry contract.Registry) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

// Broadcast sends the frame to every peer in a registry snapshot taken at
// entry. Each send is attempted independently.
func (b *Broadcaster) Broadcast(payload string) {
	for _, handle := range b.registry.Snapshot() {
		if err := handle.Sink.SendText(payload); err != nil {
			b.log.Warn("Broadcast delivery failed", "handle", handle.ID, "error", err)
		}
	}
}
