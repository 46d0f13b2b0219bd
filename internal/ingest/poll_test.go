// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/photowall/internal/cache"
	"github.com/tomtom215/photowall/internal/models"
	"github.com/tomtom215/photowall/internal/store"
)

func img(id, uploader string) models.SocialMedia {
	return models.SocialMedia{ID: id, Type: "image", URL: "https://cdn.example/" + id + ".jpg?ig_cache_key=a.b", Uploader: uploader}
}

func newPoller(api *fakeAPI, st *store.Store, sink Sink) *PollIngestor {
	return NewPollIngestor(PollConfig{
		Tag:      "smithjones",
		Token:    "default-token",
		Interval: time.Hour,
		Seen:     cache.NewSeenSet(100, time.Hour),
	}, api, st, sink)
}

func TestPoll_EmptyPageLeavesCursor(t *testing.T) {
	st := newTestStore(t)
	sink := &recordingSink{}
	p := newPoller(&fakeAPI{}, st, sink)

	n, err := p.Poll(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Poll() = %d, %v", n, err)
	}
	if _, err := st.GetCursor("smithjones"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCursor() error = %v, want ErrNotFound", err)
	}
	if p.State() != PollIdle {
		t.Errorf("State() = %s, want idle", p.State())
	}
	if len(sink.snapshot()) != 0 {
		t.Error("empty page should not reach the sink")
	}
}

func TestPoll_GroupsImagesByUploader(t *testing.T) {
	st := newTestStore(t)
	sink := &recordingSink{}
	api := &fakeAPI{pages: []*models.TagPage{{
		NextCursor: "1004",
		Items: []models.SocialMedia{
			img("a", "bob"),
			{ID: "v", Type: "video", URL: "https://cdn.example/v.jpg", Uploader: "amy"},
			img("b", "jane"),
			img("c", "bob"),
		},
	}}}
	p := newPoller(api, st, sink)

	n, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("scheduled = %d, want 3", n)
	}

	calls := sink.snapshot()
	if len(calls) != 2 {
		t.Fatalf("sink calls = %d, want 2", len(calls))
	}
	if calls[0].key != "bob" || calls[1].key != "jane" {
		t.Errorf("group order = %s, %s; want bob, jane", calls[0].key, calls[1].key)
	}
	bob := calls[0].batch
	if len(bob) != 2 || bob[0].SourceURL != img("a", "bob").URL || bob[1].SourceURL != img("c", "bob").URL {
		t.Errorf("bob batch = %+v", bob)
	}
	if bob[0].Extension != "jpg" || bob[0].CollectionType != models.CollectionInstagram {
		t.Errorf("reference = %+v", bob[0])
	}
	if tokens := api.seenTokens(); tokens[0] != "default-token" {
		t.Errorf("token = %q", tokens[0])
	}
}

func TestPoll_PersistsCursorBeforeProcessing(t *testing.T) {
	st := newTestStore(t)
	var cursorAtIngest string
	sink := &recordingSink{before: func(string) {
		cursorAtIngest, _ = st.GetCursor("smithjones")
	}}
	api := &fakeAPI{pages: []*models.TagPage{{NextCursor: "2001", Items: []models.SocialMedia{img("a", "bob")}}}}
	p := newPoller(api, st, sink)

	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cursorAtIngest != "2001" {
		t.Errorf("cursor seen by sink = %q, want 2001", cursorAtIngest)
	}
}

func TestPoll_UsesStoredCursorAsLowerBound(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pages: []*models.TagPage{
		{NextCursor: "1002", Items: []models.SocialMedia{img("a", "bob")}},
		{},
	}}
	p := newPoller(api, st, &recordingSink{})

	for i := 0; i < 2; i++ {
		if _, err := p.Poll(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(api.cursors) != 2 || api.cursors[0] != "" || api.cursors[1] != "1002" {
		t.Errorf("cursors passed = %q, want [\"\" \"1002\"]", api.cursors)
	}
}

func TestPoll_SkipsAlreadySeenItems(t *testing.T) {
	st := newTestStore(t)
	sink := &recordingSink{}
	api := &fakeAPI{pages: []*models.TagPage{
		{Items: []models.SocialMedia{img("a", "bob")}},
		{Items: []models.SocialMedia{img("a", "bob"), img("b", "bob")}},
	}}
	p := newPoller(api, st, sink)

	_, _ = p.Poll(context.Background())
	n, err := p.Poll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("second poll scheduled = %d, want 1", n)
	}
}

func TestPoll_APIErrorLeavesCursor(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{pageErr: errors.New("upstream down")}
	p := newPoller(api, st, &recordingSink{})

	if _, err := p.Poll(context.Background()); err == nil {
		t.Fatal("Poll() should fail when the API fails")
	}
	if _, err := st.GetCursor("smithjones"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cursor should be untouched, GetCursor() error = %v", err)
	}
}

func TestPollIngestor_StartIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{}
	p := newPoller(api, st, &recordingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !p.Running() {
		t.Error("Running() = false after Start")
	}

	deadline := time.Now().Add(time.Second)
	for len(api.seenTokens()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if got := len(api.seenTokens()); got != 1 {
		t.Errorf("API calls = %d, want exactly one initial tick", got)
	}
	if p.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestPollIngestor_StartRequiresTag(t *testing.T) {
	p := NewPollIngestor(PollConfig{}, &fakeAPI{}, newTestStore(t), &recordingSink{})
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() without a tag should fail")
	}
}
