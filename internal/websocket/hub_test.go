// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package websocket

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/photowall/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// runHub starts hub and stops it at test cleanup.
func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newTestClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 16)}
}

// registerClient registers c and consumes its greeting.
func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.Register <- c
	msg := recv(t, c)
	if msg.Type != MessageTypeConnected || msg.Data != ConnectedGreeting {
		t.Fatalf("greeting = %+v", msg)
	}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_GreetingGoesOnlyToNewViewer(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	first := newTestClient(hub)
	registerClient(t, hub, first)

	second := newTestClient(hub)
	registerClient(t, hub, second)

	expectNothing(t, first)
	if hub.GetClientCount() != 2 {
		t.Errorf("GetClientCount() = %d, want 2", hub.GetClientCount())
	}
}

func TestHub_BroadcastNewMediaReachesAllConnected(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	clients := []*Client{newTestClient(hub), newTestClient(hub), newTestClient(hub)}
	for _, c := range clients {
		registerClient(t, hub, c)
	}

	hub.BroadcastNewMedia("/img/twilio/5551234567/1.jpg")

	for i, c := range clients {
		msg := recv(t, c)
		if msg.Type != MessageTypeNewMedia || msg.Data != "/img/twilio/5551234567/1.jpg" {
			t.Errorf("client %d got %+v", i, msg)
		}
	}
}

func TestHub_DisconnectedViewerGetsNothing(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	stay := newTestClient(hub)
	leave := newTestClient(hub)
	registerClient(t, hub, stay)
	registerClient(t, hub, leave)

	hub.Unregister <- leave
	hub.BroadcastNewMedia("/img/instagram/jane/1.jpg")

	if msg := recv(t, stay); msg.Data != "/img/instagram/jane/1.jpg" {
		t.Errorf("remaining viewer got %+v", msg)
	}
	if _, ok := <-leave.send; ok {
		t.Error("departed viewer should have a closed channel and no message")
	}
}

func TestHub_NoBacklogForLateJoiners(t *testing.T) {
	hub := NewHub()

	// Issue a broadcast before the hub loop runs so it is still queued when
	// the viewer registers.
	hub.BroadcastNewMedia("/img/twilio/1/1.jpg")

	late := newTestClient(hub)
	runHub(t, hub)
	registerClient(t, hub, late)
	expectNothing(t, late)

	hub.BroadcastNewMedia("/img/twilio/1/2.jpg")
	if msg := recv(t, late); msg.Data != "/img/twilio/1/2.jpg" {
		t.Errorf("late joiner got %+v", msg)
	}
}

func TestHub_OnConnectHook(t *testing.T) {
	hub := NewHub()
	var calls atomic.Int32
	hub.OnConnect(func() { calls.Add(1) })
	runHub(t, hub)

	registerClient(t, hub, newTestClient(hub))
	registerClient(t, hub, newTestClient(hub))

	if got := calls.Load(); got != 2 {
		t.Errorf("OnConnect calls = %d, want 2", got)
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)

	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 1)}
	hub.Register <- slow
	// Greeting fills the buffer; the broadcast cannot be delivered.
	hub.BroadcastNewMedia("/img/a/b/1.jpg")

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("slow client not dropped, count = %d", hub.GetClientCount())
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := newTestClient(hub)
	registerClient(t, hub, c)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after shutdown", hub.GetClientCount())
	}
}

func TestGetShutdownReason(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()

	if got := getShutdownReason(cancelled); got != ShutdownReasonContextCanceled {
		t.Errorf("cancelled: got %s", got)
	}
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("expired: got %s", got)
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypeNewMedia, Data: "/img/x/1.jpg", seq: 9})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"newMedia","data":"/img/x/1.jpg"}` {
		t.Errorf("MarshalMessage() = %s", data)
	}
}

func TestHub_AttachAfterStop(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	cancel()
	<-done

	select {
	case <-hub.Done():
	default:
		t.Fatal("Done() not closed after RunWithContext returned")
	}

	c := newTestClient(hub)
	attached := make(chan bool, 1)
	go func() { attached <- hub.Attach(c) }()
	select {
	case ok := <-attached:
		if ok {
			t.Error("Attach() = true on a stopped hub")
		}
	case <-time.After(time.Second):
		t.Fatal("Attach() blocked on a stopped hub")
	}

	detached := make(chan struct{})
	go func() {
		hub.detach(c)
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("detach() blocked on a stopped hub")
	}
}
