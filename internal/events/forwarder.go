// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
)

// Broadcaster fans a new media path out to every connected viewer.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	BroadcastNewMedia(path string)
}

// Forwarder relays media stored events to a Broadcaster. It runs as a
// supervised service.
type Forwarder struct {
	bus *Bus
	hub Broadcaster

	readyOnce sync.Once
	ready     chan struct{}

	forwarded atomic.Int64
	malformed atomic.Int64
}

// NewForwarder creates a Forwarder.
func NewForwarder(bus *Bus, hub Broadcaster) *Forwarder {
	return &Forwarder{
		bus:   bus,
		hub:   hub,
		ready: make(chan struct{}),
	}
}

// Ready is closed once the first subscription is in place.
func (f *Forwarder) Ready() <-chan struct{} {
	return f.ready
}

// Serve implements suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	msgs, err := f.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicMediaStored, err)
	}
	f.readyOnce.Do(func() { close(f.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			var ev MediaStoredEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil || ev.Path == "" {
				// Redelivery cannot fix a bad payload.
				f.malformed.Add(1)
				logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed media stored event")
				msg.Ack()
				continue
			}
			f.hub.BroadcastNewMedia(ev.Path)
			f.forwarded.Add(1)
			metrics.EventsForwarded.Inc()
			logging.Ctx(contextFromMessage(msg)).Debug().Str("path", ev.Path).Msg("Forwarded new media to viewers")
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder) String() string {
	return "media-event-forwarder"
}

// ForwarderStats holds runtime counters.
type ForwarderStats struct {
	Forwarded int64
	Malformed int64
}

// Stats returns runtime counters.
func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Forwarded: f.forwarded.Load(),
		Malformed: f.malformed.Load(),
	}
}
