package ws

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/runtime"
)

type captureSink struct {
	messages chan domain.Message
}

func newCaptureSink() captureSink {
	return captureSink{messages: make(chan domain.Message, 16)}
}

func (s captureSink) Consume(message domain.Message) {
	s.messages <- message
}

func newTestServer(t *testing.T, sink captureSink) (*Server, *runtime.Registry) {
	t.Helper()
	log := slog.Default()
	registry := runtime.NewRegistry()
	server := NewServer(log, "127.0.0.1:0", registry, runtime.NewBroadcaster(log, registry), sink)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)
	return server, registry
}

func dialServer(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws", server.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return string(payload)
}

func TestServer_Echoes_Message_Back_To_Sender(t *testing.T) {
	req := require.New(t)
	sink := newCaptureSink()
	server, _ := newTestServer(t, sink)
	conn := dialServer(t, server)

	// When the only connected client sends "hi"
	wire := domain.NewMessage("alice", "hi").Encode()
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(wire)))

	// Then the application callback receives the decoded message
	select {
	case accepted := <-sink.messages:
		req.Equal("alice", accepted.Sender)
		req.Equal("hi", accepted.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the message")
	}

	// And the sender receives its own echo, payload unchanged
	req.Equal(wire, readFrame(t, conn))
}

func TestServer_Relays_To_Every_Connected_Client(t *testing.T) {
	req := require.New(t)
	server, registry := newTestServer(t, newCaptureSink())
	first := dialServer(t, server)
	second := dialServer(t, server)
	req.Eventually(func() bool { return registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	wire := domain.NewMessage("bob", "hello everyone").Encode()
	req.NoError(first.WriteMessage(websocket.TextMessage, []byte(wire)))

	req.Equal(wire, readFrame(t, first))
	req.Equal(wire, readFrame(t, second))
}

func TestServer_Drops_Malformed_Frame_Without_Disturbing_Others(t *testing.T) {
	req := require.New(t)
	sink := newCaptureSink()
	server, registry := newTestServer(t, sink)
	honest := dialServer(t, server)
	garbler := dialServer(t, server)
	req.Eventually(func() bool { return registry.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	// Given one client sends a frame that is not a chat message
	req.NoError(garbler.WriteMessage(websocket.TextMessage, []byte("garbage")))

	// Then nothing reaches the sink and nobody is disconnected
	select {
	case accepted := <-sink.messages:
		t.Fatalf("malformed frame reached the sink: %+v", accepted)
	case <-time.After(200 * time.Millisecond):
	}
	req.Equal(2, registry.Len())

	// And a subsequent valid message still reaches both clients
	wire := domain.NewMessage("clara", "still in business").Encode()
	req.NoError(honest.WriteMessage(websocket.TextMessage, []byte(wire)))
	req.Equal(wire, readFrame(t, honest))
	req.Equal(wire, readFrame(t, garbler))
}

func TestServer_Removes_Peer_On_Disconnect(t *testing.T) {
	req := require.New(t)
	server, registry := newTestServer(t, newCaptureSink())
	conn := dialServer(t, server)
	req.Eventually(func() bool { return registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	req.NoError(conn.Close())

	req.Eventually(func() bool { return registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Stop_Clears_Registry_And_Refuses_New_Connections(t *testing.T) {
	req := require.New(t)
	server, registry := newTestServer(t, newCaptureSink())
	dialServer(t, server)
	req.Eventually(func() bool { return registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	addr := server.Addr()

	server.Stop()

	req.Zero(registry.Len())
	_, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", addr), nil)
	req.Error(err)

	// A second Stop is a no-op
	req.NotPanics(server.Stop)
}

func TestServer_Start_Twice_Is_NoOp(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t, newCaptureSink())
	addr := server.Addr()

	req.NoError(server.Start())
	req.Equal(addr, server.Addr())
}

func TestServer_Start_Fails_When_Port_Taken(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t, newCaptureSink())

	log := slog.Default()
	registry := runtime.NewRegistry()
	rival := NewServer(log, server.Addr(), registry, runtime.NewBroadcaster(log, registry), nil)

	req.Error(rival.Start())
}
