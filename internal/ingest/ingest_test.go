// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/models"
	"github.com/tomtom215/photowall/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type ingestCall struct {
	collectionType models.CollectionType
	key            string
	batch          []models.MediaReference
}

// recordingSink records every batch it receives.
type recordingSink struct {
	mu     sync.Mutex
	calls  []ingestCall
	err    error
	before func(key string)
}

func (s *recordingSink) Ingest(_ context.Context, ct models.CollectionType, key string, batch []models.MediaReference) ([]models.StoredMedia, error) {
	if s.before != nil {
		s.before(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, ingestCall{ct, key, batch})
	out := make([]models.StoredMedia, len(batch))
	for i := range batch {
		out[i] = models.StoredMedia{CollectionType: ct, CollectionKey: key, SequenceNumber: i + 1, Extension: batch[i].Extension}
	}
	return out, nil
}

func (s *recordingSink) snapshot() []ingestCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ingestCall(nil), s.calls...)
}

// fakeAPI serves canned media and pages and records the tokens used.
type fakeAPI struct {
	mu      sync.Mutex
	media   map[string]*models.SocialMedia
	pages   []*models.TagPage
	mediaFn func(id string) error
	pageErr error
	tokens  []string
	cursors []string
}

func (f *fakeAPI) MediaInfo(_ context.Context, mediaID, token string) (*models.SocialMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.mediaFn != nil {
		if err := f.mediaFn(mediaID); err != nil {
			return nil, err
		}
	}
	m, ok := f.media[mediaID]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *m
	return &cp, nil
}

func (f *fakeAPI) RecentTagged(_ context.Context, _, minTagID, token string) (*models.TagPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.cursors = append(f.cursors, minTagID)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if len(f.pages) == 0 {
		return &models.TagPage{}, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func (f *fakeAPI) seenTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
