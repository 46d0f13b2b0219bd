// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
	"github.com/tomtom215/photowall/internal/models"
)

// InstagramVerify answers the subscription handshake by echoing hub.challenge.
func (h *Handler) InstagramVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge := q.Get("hub.challenge")
	if challenge == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "hub.challenge is required", nil)
		return
	}

	if want := h.config.Instagram.VerifyToken; want != "" {
		got := q.Get("hub.verify_token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			metrics.RecordWebhook("instagram_verify", "forbidden")
			respondError(w, http.StatusForbidden, "FORBIDDEN", "verify token mismatch", nil)
			return
		}
	}

	metrics.RecordWebhook("instagram_verify", "accepted")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// InstagramNotify accepts a batch of content notifications. It responds as
// soon as resolution is scheduled.
func (h *Handler) InstagramNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.RecordWebhook("instagram", "rejected")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read request body", err)
		return
	}

	var batch models.ContentNotificationBatch
	if err := json.Unmarshal(body, &batch.Envelopes); err != nil {
		metrics.RecordWebhook("instagram", "rejected")
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "body must be a JSON array of notifications", nil)
		return
	}
	if apiErr := validateRequest(&batch); apiErr != nil {
		metrics.RecordWebhook("instagram", "rejected")
		respondErrorWithDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	scheduled := h.webhooks.HandleNotifications(r.Context(), batch.Envelopes)
	logging.Ctx(r.Context()).Debug().Int("received", len(batch.Envelopes)).Int("scheduled", scheduled).Msg("Content notifications accepted")

	respondSuccess(w, http.StatusOK, map[string]int{
		"received":  len(batch.Envelopes),
		"scheduled": scheduled,
	})
}
