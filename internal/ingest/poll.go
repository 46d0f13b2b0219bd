// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/photowall/internal/cache"
	"github.com/tomtom215/photowall/internal/instagram"
	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/media"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
	"github.com/tomtom215/photowall/internal/store"
)

// PollState is the crawler state.
type PollState string

const (
	// PollIdle means no page is being processed.
	PollIdle PollState = "idle"
	// PollPolling means a non-empty page is being processed.
	PollPolling PollState = "polling"
)

// PollConfig configures a PollIngestor.
type PollConfig struct {
	Tag      string
	Token    string
	Interval time.Duration
	// Seen drops media ids already handed to the sink. Nil disables it.
	Seen *cache.SeenSet
}

// PollIngestor crawls the tagged content stream on a fixed interval.
type PollIngestor struct {
	cfg     PollConfig
	api     instagram.API
	cursors CursorStore
	sink    Sink

	state atomic.Value // PollState
	tick  sync.Mutex   // one page at a time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPollIngestor creates an idle PollIngestor.
func NewPollIngestor(cfg PollConfig, api instagram.API, cursors CursorStore, sink Sink) *PollIngestor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	p := &PollIngestor{cfg: cfg, api: api, cursors: cursors, sink: sink}
	p.state.Store(PollIdle)
	return p
}

// State returns the current crawler state.
func (p *PollIngestor) State() PollState {
	return p.state.Load().(PollState)
}

// Running reports whether the polling loop is active.
func (p *PollIngestor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins the polling loop. Calling Start on a running poller is a no-op.
func (p *PollIngestor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	if p.cfg.Tag == "" {
		p.mu.Unlock()
		return errors.New("poll tag is not configured")
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	logging.Info().Str("tag", p.cfg.Tag).Dur("interval", p.cfg.Interval).Msg("Starting tag poller")

	p.wg.Add(1)
	go p.pollLoop(ctx)
	return nil
}

// Stop halts the polling loop and waits for an in-flight tick.
func (p *PollIngestor) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("Tag poller stopped")
	return nil
}

func (p *PollIngestor) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	p.runTick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.runTick(ctx)
			if p.cfg.Seen != nil {
				p.cfg.Seen.Sweep()
			}
		}
	}
}

func (p *PollIngestor) runTick(ctx context.Context) {
	tctx := logging.ContextWithNewCorrelationID(ctx)
	if _, err := p.Poll(tctx); err != nil && ctx.Err() == nil {
		logging.Ctx(tctx).Error().Err(err).Str("tag", p.cfg.Tag).Msg("Poll failed")
	}
}

// Poll runs one tick: read the page after the stored cursor, persist the new
// cursor, then hand image posts to the sink grouped by uploader. It returns
// the number of references scheduled.
func (p *PollIngestor) Poll(ctx context.Context) (int, error) {
	p.tick.Lock()
	defer p.tick.Unlock()
	log := logging.Ctx(ctx)

	cursor, err := p.cursors.GetCursor(p.cfg.Tag)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		metrics.RecordPollTick("error")
		return 0, fmt.Errorf("load cursor: %w", err)
	}

	page, err := p.api.RecentTagged(ctx, p.cfg.Tag, cursor, p.cfg.Token)
	if err != nil {
		metrics.RecordPollTick("error")
		return 0, fmt.Errorf("fetch tag page: %w", err)
	}
	if len(page.Items) == 0 {
		metrics.RecordPollTick("empty")
		log.Debug().Str("tag", p.cfg.Tag).Msg("No new tagged posts")
		return 0, nil
	}

	p.setState(PollPolling)
	defer p.setState(PollIdle)

	if page.NextCursor != "" {
		advanced, err := p.cursors.AdvanceCursor(p.cfg.Tag, page.NextCursor)
		if err != nil {
			metrics.RecordPollTick("error")
			return 0, fmt.Errorf("persist cursor: %w", err)
		}
		if advanced {
			metrics.PollCursorAdvances.Inc()
			log.Debug().Str("tag", p.cfg.Tag).Str("cursor", page.NextCursor).Msg("Cursor persisted")
		}
	} else {
		log.Warn().Str("tag", p.cfg.Tag).Msg("Tag page carries no cursor, relying on seen set")
	}

	order, groups := p.group(ctx, page.Items)

	scheduled := 0
	for _, key := range order {
		batch := groups[key]
		if _, err := p.sink.Ingest(ctx, models.CollectionInstagram, key, batch); err != nil {
			log.Error().Err(err).Str("collection", key).Msg("Failed to schedule polled media")
			continue
		}
		scheduled += len(batch)
	}

	metrics.RecordReferences("instagram_poll", scheduled)
	metrics.RecordPollTick("processed")
	log.Info().Str("tag", p.cfg.Tag).Int("posts", len(page.Items)).Int("scheduled", scheduled).Msg("Tag page processed")
	return scheduled, nil
}

// group keeps image posts, keys them by uploader and preserves page order
// both across and within groups.
func (p *PollIngestor) group(ctx context.Context, items []models.SocialMedia) ([]string, map[string][]models.MediaReference) {
	log := logging.Ctx(ctx)
	var order []string
	groups := make(map[string][]models.MediaReference)

	for i := range items {
		item := &items[i]
		if !item.IsImage() {
			continue
		}
		if p.cfg.Seen != nil && p.cfg.Seen.Seen(item.ID) {
			metrics.DuplicateNotifications.Inc()
			continue
		}

		key := media.CollectionLocator{}.Resolve(media.IdentitySocial, item.Uploader)
		if err := media.ValidateCollectionKey(key); err != nil {
			log.Warn().Str("media_id", logging.SanitizeValue(item.ID)).Msg("Post uploader does not map to a collection")
			continue
		}
		ext, err := media.ExtensionFromURL(item.URL)
		if err != nil {
			log.Warn().Err(err).Str("media_id", logging.SanitizeValue(item.ID)).Msg("Cannot derive extension from delivery URL")
			continue
		}

		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], models.MediaReference{
			SourceURL:      item.URL,
			Extension:      ext,
			CollectionType: models.CollectionInstagram,
			CollectionKey:  key,
		})
	}
	return order, groups
}

func (p *PollIngestor) setState(s PollState) {
	p.state.Store(s)
	metrics.SetPollState(s == PollPolling)
}
