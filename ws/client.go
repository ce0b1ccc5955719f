package ws

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/domain"
)

// MessageHandler receives every message decoded from the server stream.
type MessageHandler func(message domain.Message)

// Client holds one outbound connection on behalf of one user. It is a
// two-state machine, disconnected or connected; reconnecting is simply a
// fresh Connect call. All methods are safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	log       *slog.Logger
	username  string
	onMessage MessageHandler

	conn      *websocket.Conn
	send      chan string
	done      chan struct{}
	connected bool
	wg        sync.WaitGroup
}

func NewClient(log *slog.Logger, username string, onMessage MessageHandler) *Client {
	return &Client{log: log, username: username, onMessage: onMessage}
}

// Connect dials the server and, on success, starts the read and write
// pumps. Calling Connect while connected is a no-op. A handshake failure is
// logged and leaves the client disconnected; the caller observes it through
// Connected, not through an error.
func (c *Client) Connect(serverURL string) {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Dial outside the lock so a slow handshake never blocks Send or
	// Connected.
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		c.log.Warn("Connect failed", "url", serverURL, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		// Lost the race to a concurrent Connect; keep the first session.
		_ = conn.Close()
		return
	}

	c.conn = conn
	c.send = make(chan string, outboxSize)
	c.done = make(chan struct{})
	c.connected = true

	c.wg.Add(2)
	go c.readPump(conn)
	go c.writePump(conn, c.send, c.done)

	c.log.Info("Connected", "url", serverURL)
}

// Disconnect requests transport close and flips to disconnected
// immediately, without waiting for the remote close acknowledgment.
// A no-op when already disconnected.
func (c *Client) Disconnect() {
	conn, ok := c.markDisconnected()
	if !ok {
		return
	}
	_ = conn.Close()
	c.wg.Wait()
	c.log.Info("Disconnected")
}

// Send encodes a message from the session's username, body and current time
// and queues it for transmission. Ignored with a log line when not
// connected; transmission failures are logged, never raised.
func (c *Client) Send(body string) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		c.log.Warn("Send ignored: not connected")
		return
	}
	send, done := c.send, c.done
	c.mu.Unlock()

	payload := domain.NewMessage(c.username, body).Encode()
	select {
	case send <- payload:
	case <-done:
		c.log.Warn("Send dropped: connection closed", "body", body)
	}
}

// Connected reports the current session state.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// markDisconnected flips the state exactly once per connection and hands
// back the connection to close. The second caller, whether the read pump or
// an explicit Disconnect, sees ok == false.
func (c *Client) markDisconnected() (*websocket.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, false
	}
	c.connected = false
	close(c.done)
	return c.conn, true
}

// readPump decodes inbound frames and invokes the message handler until the
// connection drops, from any cause. Malformed frames are logged and dropped.
func (c *Client) readPump(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if dropped, ok := c.markDisconnected(); ok {
				_ = dropped.Close()
				c.log.Info("Connection closed", "error", err)
			}
			return
		}

		message, err := domain.Decode(string(payload))
		if err != nil {
			c.log.Warn("Dropping malformed frame", "error", err)
			continue
		}
		if c.onMessage != nil {
			c.onMessage(message)
		}
	}
}

// writePump is the only goroutine writing to the connection; the buffered
// send channel preserves the order of this client's successive Sends.
func (c *Client) writePump(conn *websocket.Conn, send chan string, done chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case payload := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				c.log.Warn("Write failed", "error", err)
				return
			}
		case <-done:
			// Best effort: the connection may already be closed.
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnecting"))
			return
		}
	}
}
