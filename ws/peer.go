package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/errors"
)

// outboxSize bounds the per-peer backlog of undelivered frames. A peer that
// falls this far behind starts losing broadcasts instead of blocking the
// broadcast path.
const outboxSize = 256

// peer wraps one server-side websocket connection. Outbound frames go
// through a buffered outbox drained by a dedicated write goroutine, so a
// slow or dead peer never stalls delivery to the others.
type peer struct {
	conn   *websocket.Conn
	outbox chan string
	done   chan struct{}
	once   sync.Once
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{
		conn:   conn,
		outbox: make(chan string, outboxSize),
		done:   make(chan struct{}),
	}
}

// SendText queues one frame for delivery. It never blocks: a closed peer or
// a full outbox is reported as an error and the frame is dropped.
func (p *peer) SendText(payload string) error {
	select {
	case <-p.done:
		return errors.ErrNotConnected
	default:
	}
	select {
	case p.outbox <- payload:
		return nil
	case <-p.done:
		return errors.ErrNotConnected
	default:
		return errors.ErrOutboxFull
	}
}

// Close shuts the connection down once; later calls are no-ops.
func (p *peer) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}

// writePump drains the outbox onto the wire until the peer is closed or a
// write fails. It is the only goroutine writing to the connection.
func (p *peer) writePump() {
	defer p.Close()
	for {
		select {
		case payload := <-p.outbox:
			if err := p.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}
