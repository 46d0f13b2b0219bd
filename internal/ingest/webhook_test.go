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
	"github.com/tomtom215/photowall/internal/media"
	"github.com/tomtom215/photowall/internal/models"
)

func newWebhook(t *testing.T, sink Sink, api *fakeAPI) (*WebhookIngestor, *cache.SeenSet) {
	t.Helper()
	seen := cache.NewSeenSet(100, time.Minute)
	st := newTestStore(t)
	if err := st.PutCredential("456", models.UserCredential{DisplayName: "jane", AccessToken: "jane-token"}); err != nil {
		t.Fatal(err)
	}
	w := NewWebhookIngestor(WebhookConfig{
		PhoneLocator: media.CollectionLocator{PrefixWidth: 2},
		Filter:       media.NewTagFilter([]string{"smithjones"}),
		DefaultToken: "default-token",
		Seen:         seen,
	}, sink, st, api)
	t.Cleanup(w.Close)
	return w, seen
}

func envelope(account, mediaID string) models.ContentNotification {
	return models.ContentNotification{ObjectID: account, Data: models.ContentNotificationData{MediaID: mediaID}}
}

func TestBuildMMSReferences(t *testing.T) {
	w, _ := newWebhook(t, &recordingSink{}, &fakeAPI{})

	key, refs := w.BuildMMSReferences(MMSMessage{
		From: "+15551234567",
		Media: []MMSAttachment{
			{URL: "https://api.twilio.example/media/a", ContentType: "image/jpeg"},
			{URL: "https://api.twilio.example/media/b", ContentType: "image/png"},
		},
	})

	if key != "5551234567" {
		t.Errorf("key = %q, want 5551234567", key)
	}
	if len(refs) != 2 {
		t.Fatalf("refs = %d, want 2", len(refs))
	}
	if refs[0].SourceURL != "https://api.twilio.example/media/a" || refs[0].Extension != "jpg" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].Extension != "png" || refs[1].CollectionType != models.CollectionTwilio || refs[1].CollectionKey != "5551234567" {
		t.Errorf("refs[1] = %+v", refs[1])
	}
}

func TestHandleMMS(t *testing.T) {
	tests := []struct {
		name      string
		msg       MMSMessage
		want      bool
		wantCalls int
	}{
		{
			name: "no media",
			msg:  MMSMessage{From: "+15551234567"},
			want: false,
		},
		{
			name:      "two photos",
			msg:       MMSMessage{From: "+15551234567", Media: []MMSAttachment{{URL: "u1", ContentType: "image/jpeg"}, {URL: "u2", ContentType: "image/gif"}}},
			want:      true,
			wantCalls: 1,
		},
		{
			name: "sender too short",
			msg:  MMSMessage{From: "+1", Media: []MMSAttachment{{URL: "u1", ContentType: "image/jpeg"}}},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			w, _ := newWebhook(t, sink, &fakeAPI{})

			if got := w.HandleMMS(context.Background(), tt.msg); got != tt.want {
				t.Errorf("HandleMMS() = %v, want %v", got, tt.want)
			}
			if calls := sink.snapshot(); len(calls) != tt.wantCalls {
				t.Errorf("sink calls = %d, want %d", len(calls), tt.wantCalls)
			}
		})
	}
}

func TestHandleMMS_SinkFailureIsNegative(t *testing.T) {
	sink := &recordingSink{err: media.ErrClosed}
	w, _ := newWebhook(t, sink, &fakeAPI{})

	msg := MMSMessage{From: "+15551234567", Media: []MMSAttachment{{URL: "u", ContentType: "image/jpeg"}}}
	if w.HandleMMS(context.Background(), msg) {
		t.Error("HandleMMS() = true, want false when the sink refuses the batch")
	}
}

func TestHandleNotifications_StoredCredential(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m1": {ID: "m1", Type: "image", Tags: []string{"party", "smithjones"}, URL: "https://cdn.example/x/m1.jpg?ig_cache_key=abc.def", Uploader: "jane"},
	}}
	w, _ := newWebhook(t, sink, api)

	if n := w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m1")}); n != 1 {
		t.Fatalf("scheduled = %d, want 1", n)
	}
	w.Wait()

	calls := sink.snapshot()
	if len(calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.collectionType != models.CollectionInstagram || c.key != "jane" {
		t.Errorf("call = %+v", c)
	}
	if len(c.batch) != 1 || c.batch[0].Extension != "jpg" {
		t.Errorf("batch = %+v", c.batch)
	}
	if tokens := api.seenTokens(); len(tokens) != 1 || tokens[0] != "jane-token" {
		t.Errorf("tokens = %v, want [jane-token]", tokens)
	}
}

func TestHandleNotifications_DefaultCredentialFallback(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m2": {ID: "m2", Type: "image", Tags: []string{"smithjones"}, URL: "https://cdn.example/m2.png"},
	}}
	w, _ := newWebhook(t, sink, api)

	w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("789", "m2")})
	w.Wait()

	if tokens := api.seenTokens(); len(tokens) != 1 || tokens[0] != "default-token" {
		t.Errorf("tokens = %v, want [default-token]", tokens)
	}
	calls := sink.snapshot()
	if len(calls) != 1 || calls[0].key != "789" || calls[0].batch[0].Extension != "png" {
		t.Errorf("calls = %+v, want one batch for account 789", calls)
	}
}

func TestHandleNotifications_TagFilterDrops(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m3": {ID: "m3", Type: "image", Tags: []string{"SmithJones"}, URL: "https://cdn.example/m3.jpg"},
	}}
	w, _ := newWebhook(t, sink, api)

	w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m3")})
	w.Wait()

	if calls := sink.snapshot(); len(calls) != 0 {
		t.Errorf("sink calls = %d, want 0 (tag match is case-sensitive)", len(calls))
	}
}

func TestHandleNotifications_DropsRedelivery(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m4": {ID: "m4", Type: "image", Tags: []string{"smithjones"}, URL: "https://cdn.example/m4.jpg"},
	}}
	w, _ := newWebhook(t, sink, api)

	n := w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m4"), envelope("456", "m4")})
	w.Wait()

	if n != 1 {
		t.Errorf("scheduled = %d, want 1", n)
	}
	if calls := sink.snapshot(); len(calls) != 1 {
		t.Errorf("sink calls = %d, want 1", len(calls))
	}
}

func TestHandleNotifications_FailedLookupCanBeRetried(t *testing.T) {
	sink := &recordingSink{}
	fail := true
	api := &fakeAPI{
		media: map[string]*models.SocialMedia{
			"m5": {ID: "m5", Type: "image", Tags: []string{"smithjones"}, URL: "https://cdn.example/m5.jpg"},
		},
	}
	api.mediaFn = func(string) error {
		if fail {
			return errors.New("upstream unavailable")
		}
		return nil
	}
	w, seen := newWebhook(t, sink, api)

	w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m5")})
	w.Wait()
	if seen.Len() != 0 {
		t.Errorf("seen set holds %d ids after failure, want 0", seen.Len())
	}

	fail = false
	if n := w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m5")}); n != 1 {
		t.Fatalf("retry scheduled = %d, want 1", n)
	}
	w.Wait()
	if calls := sink.snapshot(); len(calls) != 1 {
		t.Errorf("sink calls = %d, want 1", len(calls))
	}
}

func TestHandleNotifications_ReturnsBeforeResolution(t *testing.T) {
	release := make(chan struct{})
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m6": {ID: "m6", Type: "image", Tags: []string{"smithjones"}, URL: "https://cdn.example/m6.jpg"},
	}}
	api.mediaFn = func(string) error {
		<-release
		return nil
	}
	w, _ := newWebhook(t, sink, api)

	done := make(chan int, 1)
	go func() {
		done <- w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("456", "m6")})
	}()

	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("scheduled = %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("HandleNotifications blocked on media resolution")
	}

	close(release)
	w.Wait()
	if calls := sink.snapshot(); len(calls) != 1 {
		t.Errorf("sink calls = %d, want 1", len(calls))
	}
}

func TestHandleNotifications_UnlinkedAccountCanBeRetried(t *testing.T) {
	sink := &recordingSink{}
	api := &fakeAPI{media: map[string]*models.SocialMedia{
		"m7": {ID: "m7", Type: "image", Tags: []string{"smithjones"}, URL: "https://cdn.example/m7.jpg"},
	}}
	seen := cache.NewSeenSet(100, time.Minute)
	st := newTestStore(t)
	w := NewWebhookIngestor(WebhookConfig{
		Filter: media.NewTagFilter([]string{"smithjones"}),
		Seen:   seen,
	}, sink, st, api)
	t.Cleanup(w.Close)

	w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("999", "m7")})
	w.Wait()
	if seen.Len() != 0 {
		t.Errorf("seen set holds %d ids after dropping an unlinked account, want 0", seen.Len())
	}
	if calls := sink.snapshot(); len(calls) != 0 {
		t.Fatalf("sink calls = %d, want 0 without a token", len(calls))
	}

	if err := st.PutCredential("999", models.UserCredential{DisplayName: "amy", AccessToken: "amy-token"}); err != nil {
		t.Fatal(err)
	}
	if n := w.HandleNotifications(context.Background(), []models.ContentNotification{envelope("999", "m7")}); n != 1 {
		t.Fatalf("re-delivery scheduled = %d, want 1", n)
	}
	w.Wait()
	if calls := sink.snapshot(); len(calls) != 1 || calls[0].key != "amy" {
		t.Errorf("calls = %+v, want one batch for amy", calls)
	}
}
