package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast")
	}
	return Message{}
}

func connectClient(t *testing.T, hub *Hub, buf int) *Client {
	t.Helper()
	c := &Client{hub: hub, send: make(chan []byte, buf)}
	if !hub.join(c) {
		t.Fatal("hub is not running")
	}
	return c
}

func TestBroadcastSequence(t *testing.T) {
	hub := runHub(t)
	c := connectClient(t, hub, 8)

	hub.BroadcastGraphChanged("changed", true)
	hub.BroadcastSaved("p-1", "shop")
	hub.BroadcastGraphChanged("saved", false)

	for want := uint64(1); want <= 3; want++ {
		if msg := receive(t, c); msg.Seq != want {
			t.Errorf("message %s seq = %d, want %d", msg.Type, msg.Seq, want)
		}
	}
	if hub.Seq() != 3 {
		t.Errorf("Seq() = %d, want 3", hub.Seq())
	}

	hub.SetStateProvider(func() ([]byte, error) { return []byte(`{}`), nil })
	data, ok := hub.fullState()
	if !ok {
		t.Fatal("fullState() failed")
	}
	var full Message
	if err := json.Unmarshal(data, &full); err != nil {
		t.Fatal(err)
	}
	if full.Type != MsgFullState || full.Seq != 3 {
		t.Errorf("full_state = %s seq %d, want seq 3", full.Type, full.Seq)
	}
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		for range 300 {
			hub.BroadcastGraphChanged("changed", true)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after the hub stopped")
	}
	if hub.join(&Client{hub: hub, send: make(chan []byte, 1)}) {
		t.Error("join succeeded on a stopped hub")
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := runHub(t)
	client := connectClient(t, hub, 256)
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("after register: ClientCount() = %d, want 1", got)
	}

	hub.leave(client)
	time.Sleep(50 * time.Millisecond)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("after unregister: ClientCount() = %d, want 0", got)
	}
}

func TestHubBroadcast_DropsSlowClient(t *testing.T) {
	hub := runHub(t)
	slow := connectClient(t, hub, 1)

	slow.send <- []byte("filler")
	hub.Broadcast([]byte("overflow"))
	time.Sleep(50 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("slow client should be dropped, ClientCount() = %d, want 0", got)
	}
}

func TestHubStopsOnCancel(t *testing.T) {
	hub := NewHub(slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := connectClient(t, hub, 1)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Error("client channel should be closed")
	}
}

func TestBroadcastGraphChanged(t *testing.T) {
	hub := runHub(t)
	client := connectClient(t, hub, 256)

	hub.BroadcastGraphChanged("changed", true)

	msg := receive(t, client)
	if msg.Type != MsgGraphChanged {
		t.Fatalf("type = %q, want %q", msg.Type, MsgGraphChanged)
	}
	var p GraphChanged
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Kind != "changed" || !p.Dirty {
		t.Errorf("payload = %+v", p)
	}
}

func TestBroadcastSavedAndError(t *testing.T) {
	hub := runHub(t)
	client := connectClient(t, hub, 256)

	hub.BroadcastSaved("p-1", "shop")
	hub.BroadcastError("something went wrong")

	saved := receive(t, client)
	var s Saved
	json.Unmarshal(saved.Payload, &s)
	if saved.Type != MsgSaved || s.ProjectID != "p-1" || s.Name != "shop" {
		t.Errorf("saved = %s %+v", saved.Type, s)
	}

	failed := receive(t, client)
	var p ErrorPayload
	json.Unmarshal(failed.Payload, &p)
	if failed.Type != MsgError || p.Message != "something went wrong" {
		t.Errorf("error = %s %v", failed.Type, p)
	}
}

func TestNewMessage_NilPayload(t *testing.T) {
	data, err := NewMessage(MsgSync, nil)
	if err != nil {
		t.Fatalf("NewMessage error: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if msg.Type != MsgSync || msg.Payload != nil {
		t.Errorf("msg = %+v", msg)
	}
}

func TestWebSocketFullStateAndSync(t *testing.T) {
	hub := runHub(t)
	var calls atomic.Int32
	hub.SetStateProvider(func() ([]byte, error) {
		calls.Add(1)
		return []byte(`{"nodes":[],"edges":[]}`), nil
	})

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != MsgFullState || string(msg.Payload) != `{"nodes":[],"edges":[]}` {
		t.Fatalf("first message = %s %s", msg.Type, msg.Payload)
	}

	sync, _ := NewMessage(MsgSync, nil)
	if err := conn.Write(ctx, websocket.MessageText, sync); err != nil {
		t.Fatal(err)
	}
	if msg := read(); msg.Type != MsgFullState {
		t.Fatalf("sync reply = %s", msg.Type)
	}

	hub.BroadcastGraphChanged("loaded", false)
	if msg := read(); msg.Type != MsgGraphChanged {
		t.Fatalf("broadcast = %s", msg.Type)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("state provider calls = %d, want 2", n)
	}
}
