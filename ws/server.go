// Package ws carries the chat wire protocol over websocket connections.
// The server relays every accepted frame to all registered peers; the
// client holds a single connection on behalf of one user.
package ws

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
	"chat-relay/domain"
)

// Server accepts websocket connections, tracks them in the registry and
// relays every accepted message to all of them, the sender included. The
// self-echo is intentional: it lets a client confirm delivery and render
// its own message with server-assigned ordering.
type Server struct {
	mu        sync.Mutex
	log       *slog.Logger
	addr      string
	registry  contract.Registry
	relay     contract.Broadcaster
	sink      contract.MessageSink
	upgrader  websocket.Upgrader
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	listening bool
}

func NewServer(log *slog.Logger, addr string, registry contract.Registry,
	relay contract.Broadcaster, sink contract.MessageSink) *Server {
	return &Server{
		log:      log,
		addr:     addr,
		registry: registry,
		relay:    relay,
		sink:     sink,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the configured address and begins accepting connections in the
// background. Calling Start on a listening server is a no-op. A bind failure
// is returned to the caller and leaves the server stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	s.server = &http.Server{Handler: mux}
	s.listener = listener
	s.listening = true

	server := s.server
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server loop failed", "error", err)
		}
	}()

	s.log.Info("Server listening", "addr", listener.Addr().String())
	return nil
}

// Stop halts acceptance, closes every registered peer and clears the
// registry. It is safe to call from any goroutine and a second call is a
// no-op. Connections observed once Stop has begun are discarded rather than
// registered.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.listening = false
	cancel := s.cancel
	server := s.server
	s.mu.Unlock()

	cancel()
	_ = server.Close()

	for _, handle := range s.registry.Clear() {
		_ = handle.Sink.Close()
	}

	s.wg.Wait()
	s.log.Info("Server stopped")
}

// Addr reports the bound listen address, empty when the server is stopped.
// Useful when the configured port was 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listening {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.listening || s.ctx.Err() != nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.stopping() {
		http.Error(w, "server stopping", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := newPeer(conn)
	id := s.registry.Add(p)

	// Shutdown wins: a connection observed while Stop is underway is
	// discarded instead of being left registered behind Clear. Reserving
	// the waitgroup slot under the lock keeps Stop's Wait race-free.
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		s.registry.Remove(id)
		_ = p.Close()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.OnOpen(id)

	go func() {
		defer s.wg.Done()
		p.writePump()
	}()

	s.readLoop(id, p)
}

// readLoop consumes inbound frames on the handler goroutine until the
// connection drops, then unregisters the peer.
func (s *Server) readLoop(id contract.HandleID, p *peer) {
	defer func() {
		_ = p.Close()
		s.registry.Remove(id)
		s.OnClose(id)
	}()

	for {
		kind, payload, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.OnFrame(id, string(payload))
	}
}

func (s *Server) OnOpen(id contract.HandleID) {
	s.log.Info("Connection established", "handle", id, "peers", s.registry.Len())
}

func (s *Server) OnClose(id contract.HandleID) {
	s.log.Info("Connection closed", "handle", id, "peers", s.registry.Len())
}

// OnFrame decodes one inbound frame. A malformed frame is logged and dropped
// without replying or disconnecting, so one misbehaving peer never affects
// the others. An accepted message is handed to the sink and then the
// original payload is relayed unchanged to every registered peer.
func (s *Server) OnFrame(id contract.HandleID, payload string) {
	message, err := domain.Decode(payload)
	if err != nil {
		s.log.Warn("Dropping malformed frame", "handle", id, "error", err)
		return
	}

	if s.sink != nil {
		s.sink.Consume(message)
	}
	s.relay.Broadcast(payload)
}
