// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package events carries "media stored" events from the downloader to the
// WebSocket hub over an in-process Watermill pub/sub.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
)

// TopicMediaStored is the topic for completed downloads.
const TopicMediaStored = "media.stored"

// Metadata keys copied from the publishing context.
const (
	metadataCorrelationID = "correlation_id"
	metadataRequestID     = "request_id"
)

// MediaStoredEvent is the payload published on TopicMediaStored.
type MediaStoredEvent struct {
	CollectionType models.CollectionType `json:"collection_type"`
	CollectionKey  string                `json:"collection_key"`
	SequenceNumber int                   `json:"sequence_number"`
	Path           string                `json:"path"`
	StoredAt       time.Time             `json:"stored_at"`
}

// Bus publishes and subscribes to media events. Events published while no
// subscriber is attached are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a Bus. buffer is the per-subscriber channel size.
func NewBus(buffer int64) *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, logger),
	}
}

// NotifyStored publishes a MediaStoredEvent for m.
func (b *Bus) NotifyStored(ctx context.Context, m models.StoredMedia) error {
	payload, err := json.Marshal(MediaStoredEvent{
		CollectionType: m.CollectionType,
		CollectionKey:  m.CollectionKey,
		SequenceNumber: m.SequenceNumber,
		Path:           m.PublicPath,
		StoredAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal media stored event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataCorrelationID, id)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataRequestID, id)
	}

	if err := b.pubsub.Publish(TopicMediaStored, msg); err != nil {
		return fmt.Errorf("publish media stored event: %w", err)
	}
	metrics.EventsPublished.Inc()
	return nil
}

// Subscribe returns a channel of media stored messages. The channel is
// closed when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicMediaStored)
}

// Close stops the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// contextFromMessage restores logging identifiers carried in metadata.
func contextFromMessage(msg *message.Message) context.Context {
	ctx := context.Background()
	if id := msg.Metadata.Get(metadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	if id := msg.Metadata.Get(metadataRequestID); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}
	return ctx
}
