// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/photowall/internal/cache"
	"github.com/tomtom215/photowall/internal/instagram"
	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/media"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
	"github.com/tomtom215/photowall/internal/store"
)

// MMSAttachment is one media item of an inbound MMS.
type MMSAttachment struct {
	URL         string
	ContentType string
}

// MMSMessage is the part of an inbound MMS webhook the pipeline uses.
type MMSMessage struct {
	From  string
	Media []MMSAttachment
}

// WebhookConfig configures a WebhookIngestor.
type WebhookConfig struct {
	// PhoneLocator maps MMS senders to collection keys.
	PhoneLocator media.CollectionLocator
	// Filter decides which social posts belong on the wall.
	Filter media.TagFilter
	// DefaultToken is used for accounts with no stored credential.
	DefaultToken string
	// Seen drops re-delivered media ids. Nil disables dedup.
	Seen *cache.SeenSet
}

// WebhookIngestor converts webhook deliveries into downloader batches.
type WebhookIngestor struct {
	cfg   WebhookConfig
	sink  Sink
	creds CredentialStore
	api   instagram.API

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWebhookIngestor creates a WebhookIngestor.
func NewWebhookIngestor(cfg WebhookConfig, sink Sink, creds CredentialStore, api instagram.API) *WebhookIngestor {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebhookIngestor{
		cfg:    cfg,
		sink:   sink,
		creds:  creds,
		api:    api,
		ctx:    ctx,
		cancel: cancel,
	}
}

// BuildMMSReferences returns one reference per attachment in index order
// along with the sender's collection key.
func (w *WebhookIngestor) BuildMMSReferences(msg MMSMessage) (string, []models.MediaReference) {
	key := w.cfg.PhoneLocator.Resolve(media.IdentityPhone, msg.From)
	refs := make([]models.MediaReference, 0, len(msg.Media))
	for _, att := range msg.Media {
		refs = append(refs, models.MediaReference{
			SourceURL:      att.URL,
			Extension:      media.ExtensionFromContentType(att.ContentType),
			CollectionType: models.CollectionTwilio,
			CollectionKey:  key,
		})
	}
	return key, refs
}

// HandleMMS numbers the attachments of msg and schedules their downloads.
// It reports whether a photo was accepted, which selects the reply text.
func (w *WebhookIngestor) HandleMMS(ctx context.Context, msg MMSMessage) bool {
	key, refs := w.BuildMMSReferences(msg)
	log := logging.Ctx(ctx)

	if len(refs) == 0 {
		log.Info().Str("from", logging.SanitizeValue(msg.From)).Msg("MMS without media")
		metrics.RecordWebhook("mms", "no_media")
		return false
	}
	if err := media.ValidateCollectionKey(key); err != nil {
		log.Warn().Str("from", logging.SanitizeValue(msg.From)).Msg("MMS sender does not map to a collection")
		metrics.RecordWebhook("mms", "rejected")
		return false
	}

	metrics.RecordReferences("mms", len(refs))
	stored, err := w.sink.Ingest(ctx, models.CollectionTwilio, key, refs)
	if err != nil {
		log.Error().Err(err).Str("collection", key).Msg("Failed to schedule MMS media")
		metrics.RecordWebhook("mms", "error")
		return false
	}

	log.Info().Str("collection", key).Int("count", len(stored)).Msg("MMS media scheduled")
	metrics.RecordWebhook("mms", "accepted")
	return true
}

// HandleNotifications schedules background resolution of every envelope and
// returns the number scheduled. Re-delivered media ids are dropped.
func (w *WebhookIngestor) HandleNotifications(ctx context.Context, envelopes []models.ContentNotification) int {
	scheduled := 0
	for i := range envelopes {
		env := envelopes[i]
		if w.cfg.Seen != nil && w.cfg.Seen.Seen(env.MediaID()) {
			metrics.DuplicateNotifications.Inc()
			logging.Ctx(ctx).Debug().Str("media_id", logging.SanitizeValue(env.MediaID())).Msg("Dropping re-delivered notification")
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			rctx, cancel := context.WithCancel(logging.Detach(ctx))
			defer cancel()
			stop := context.AfterFunc(w.ctx, cancel)
			defer stop()
			w.resolve(rctx, env)
		}()
		scheduled++
	}
	metrics.RecordWebhook("instagram", "accepted")
	return scheduled
}

// resolve looks up one notified media item and hands it to the sink when it
// passes the tag filter.
func (w *WebhookIngestor) resolve(ctx context.Context, env models.ContentNotification) {
	log := logging.Ctx(ctx).With().
		Str("account_id", logging.SanitizeValue(env.AccountID())).
		Str("media_id", logging.SanitizeValue(env.MediaID())).
		Logger()

	token, identity, err := w.credentialFor(env.AccountID())
	if err != nil {
		log.Error().Err(err).Msg("Credential lookup failed")
		w.forget(env)
		return
	}
	if token == "" {
		log.Warn().Msg("No credential on file and no default token configured, dropping notification")
		w.forget(env)
		return
	}

	m, err := w.api.MediaInfo(ctx, env.MediaID(), token)
	if err != nil {
		log.Error().Err(err).Msg("Media lookup failed")
		w.forget(env)
		return
	}

	if !w.cfg.Filter.Matches(m.Tags) {
		metrics.TagFilterRejections.Inc()
		log.Debug().Strs("tags", m.Tags).Msg("Post does not carry a required tag")
		return
	}

	ext, err := media.ExtensionFromURL(m.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot derive extension from delivery URL")
		return
	}

	key := media.CollectionLocator{}.Resolve(media.IdentitySocial, identity)
	ref := models.MediaReference{
		SourceURL:      m.URL,
		Extension:      ext,
		CollectionType: models.CollectionInstagram,
		CollectionKey:  key,
	}
	metrics.RecordReferences("instagram_webhook", 1)
	if _, err := w.sink.Ingest(ctx, models.CollectionInstagram, key, []models.MediaReference{ref}); err != nil {
		log.Error().Err(err).Str("collection", key).Msg("Failed to schedule notified media")
		return
	}
	log.Info().Str("collection", key).Msg("Notified media scheduled")
}

// credentialFor returns the token to use for accountID and the identity its
// media is collected under.
func (w *WebhookIngestor) credentialFor(accountID string) (token, identity string, err error) {
	cred, err := w.creds.GetCredential(accountID)
	switch {
	case err == nil:
		if cred.DisplayName == "" {
			return cred.AccessToken, accountID, nil
		}
		return cred.AccessToken, cred.DisplayName, nil
	case errors.Is(err, store.ErrNotFound):
		metrics.CredentialFallbacks.Inc()
		logging.Warn().Str("account_id", logging.SanitizeValue(accountID)).Msg("No credential on file, using default token")
		return w.cfg.DefaultToken, accountID, nil
	default:
		return "", "", err
	}
}

// forget lets a later re-delivery retry a notification that failed for a
// transient reason.
func (w *WebhookIngestor) forget(env models.ContentNotification) {
	if w.cfg.Seen != nil {
		w.cfg.Seen.Forget(env.MediaID())
	}
}

// Wait blocks until every scheduled resolution has finished.
func (w *WebhookIngestor) Wait() {
	w.wg.Wait()
}

// Close cancels in-flight resolutions and waits for them.
func (w *WebhookIngestor) Close() {
	w.cancel()
	w.wg.Wait()
}
