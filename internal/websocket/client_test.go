// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// viewerServer upgrades every request and attaches the connection to hub.
func viewerServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialViewer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)

	if a.ID() >= b.ID() {
		t.Errorf("ids should increase: %d, %d", a.ID(), b.ID())
	}
	if cap(a.send) != 256 {
		t.Errorf("send capacity = %d, want 256", cap(a.send))
	}
}

func TestViewer_ConnectedThenNewMedia(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	srv := viewerServer(t, hub)

	conn := dialViewer(t, srv)
	if msg := readMessage(t, conn); msg.Type != MessageTypeConnected || msg.Data != ConnectedGreeting {
		t.Fatalf("first message = %+v", msg)
	}

	hub.BroadcastNewMedia("/img/twilio/5551234567/1.jpg")
	msg := readMessage(t, conn)
	if msg.Type != MessageTypeNewMedia || msg.Data != "/img/twilio/5551234567/1.jpg" {
		t.Errorf("second message = %+v", msg)
	}
}

func TestViewer_PingPong(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	srv := viewerServer(t, hub)

	conn := dialViewer(t, srv)
	readMessage(t, conn)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("reply = %+v, want pong", msg)
	}
}

func TestViewer_CloseUnregisters(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	srv := viewerServer(t, hub)

	conn := dialViewer(t, srv)
	readMessage(t, conn)
	if hub.GetClientCount() != 1 {
		t.Fatalf("GetClientCount() = %d, want 1", hub.GetClientCount())
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after close, want 0", hub.GetClientCount())
	}
}

func TestViewer_PingAfterDropDoesNotPanic(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// No writePump, so the one-slot buffer stays full after the greeting.
		client := &Client{id: clientIDCounter.Add(1), hub: hub, conn: conn,
			send: make(chan Message, 1), pongs: make(chan struct{}, 1)}
		if !hub.Attach(client) {
			return
		}
		go client.readPump()
		clients <- client
	}))
	t.Cleanup(srv.Close)

	conn := dialViewer(t, srv)
	client := <-clients

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.BroadcastNewMedia("/img/a/b/1.jpg")
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Fatalf("slow viewer not dropped, count = %d", hub.GetClientCount())
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-client.pongs:
	case <-time.After(2 * time.Second):
		t.Fatal("ping after drop was not queued for a reply")
	}
}
