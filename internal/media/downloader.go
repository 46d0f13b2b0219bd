// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
)

// Notifier is told about every file that was stored successfully.
type Notifier interface {
	NotifyStored(ctx context.Context, m models.StoredMedia) error
}

// ErrClosed is returned by Ingest after Close.
var ErrClosed = errors.New("downloader closed")

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// StaticDir is the web root; public paths are relative to it.
	StaticDir string
	// Root is the media root holding collection type directories.
	Root string
	// Timeout bounds a single download. Zero means no timeout.
	Timeout time.Duration
	// MaxConcurrent bounds simultaneous downloads. Zero means 8.
	MaxConcurrent int
}

// Downloader assigns sequence numbers and fetches each item in its own
// goroutine.
type Downloader struct {
	cfg      DownloaderConfig
	alloc    Allocator
	client   *http.Client
	notifier Notifier
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDownloader creates a Downloader. client may be nil.
func NewDownloader(cfg DownloaderConfig, alloc Allocator, notifier Notifier, client *http.Client) *Downloader {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if client == nil {
		client = &http.Client{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Downloader{
		cfg:      cfg,
		alloc:    alloc,
		client:   client,
		notifier: notifier,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ingest reserves consecutive sequence numbers for batch in input order and
// starts one download per item. It returns as soon as numbering is done; the
// returned slice holds the assigned names. Download outcomes are never
// reported to the caller.
func (d *Downloader) Ingest(ctx context.Context, collectionType models.CollectionType, key string, batch []models.MediaReference) ([]models.StoredMedia, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := ValidateCollectionKey(key); err != nil {
		return nil, fmt.Errorf("%w: %q", err, key)
	}

	d.mu.Lock()
	closed := d.closed
	if !closed {
		d.wg.Add(len(batch))
	}
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	dir := filepath.Join(d.cfg.Root, string(collectionType), key)
	start, err := d.alloc.Reserve(ctx, dir, len(batch))
	if err != nil {
		d.wg.Add(-len(batch))
		return nil, fmt.Errorf("reserve sequence numbers: %w", err)
	}
	metrics.SequenceNumbersReserved.WithLabelValues(string(collectionType)).Add(float64(len(batch)))

	items := make([]models.StoredMedia, len(batch))
	for i, ref := range batch {
		item := models.StoredMedia{
			CollectionType: collectionType,
			CollectionKey:  key,
			SequenceNumber: start + i,
			Extension:      ref.Extension,
			SourceURL:      ref.SourceURL,
		}
		item.Path = filepath.Join(dir, item.FileName())
		item.PublicPath = d.publicPath(item.Path)
		items[i] = item
	}

	logging.Ctx(ctx).Info().
		Str("collection_type", string(collectionType)).
		Str("collection_key", logging.SanitizeValue(key)).
		Int("first", start).
		Int("count", len(items)).
		Msg("Sequence numbers assigned")

	detached := logging.Detach(ctx)
	for _, item := range items {
		go d.fetch(detached, item)
	}
	return items, nil
}

// Wait blocks until every started download has finished.
func (d *Downloader) Wait() {
	d.wg.Wait()
}

// Close rejects new batches, cancels in-flight downloads and waits for them.
func (d *Downloader) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

func (d *Downloader) publicPath(p string) string {
	rel, err := filepath.Rel(d.cfg.StaticDir, p)
	if err != nil {
		rel = p
	}
	return "/" + filepath.ToSlash(rel)
}

// fetch downloads one item. item is a private copy.
func (d *Downloader) fetch(ctx context.Context, item models.StoredMedia) {
	defer d.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.ctx, cancel)
	defer stop()

	log := logging.Ctx(ctx).With().
		Str("collection_type", string(item.CollectionType)).
		Str("collection_key", logging.SanitizeValue(item.CollectionKey)).
		Int("sequence", item.SequenceNumber).
		Logger()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		metrics.RecordDownload(string(item.CollectionType), 0, err)
		log.Error().Err(err).Msg("Download not started")
		return
	}
	defer d.sem.Release(1)

	// The timeout covers the transfer only, not time queued for a slot.
	dctx := ctx
	if d.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		dctx, cancelTimeout = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancelTimeout()
	}

	metrics.DownloadsInFlight.Inc()
	start := time.Now()
	err := d.download(dctx, item)
	elapsed := time.Since(start)
	metrics.DownloadsInFlight.Dec()
	metrics.RecordDownload(string(item.CollectionType), elapsed, err)

	if err != nil {
		log.Error().Err(err).Str("source", logging.SanitizeValue(item.SourceURL)).Msg("Download failed")
		return
	}
	log.Info().Str("path", item.PublicPath).Dur("duration", elapsed).Msg("Media stored")

	if d.notifier == nil {
		return
	}
	if err := d.notifier.NotifyStored(ctx, item); err != nil {
		log.Error().Err(err).Msg("Failed to publish stored media")
	}
}

// download streams the source into a hidden temporary file and renames it
// into place.
func (d *Downloader) download(ctx context.Context, item models.StoredMedia) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Dir(item.Path)
	tmp, err := os.CreateTemp(dir, "."+item.FileName()+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), item.Path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
