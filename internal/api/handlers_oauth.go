// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/photowall/internal/logging"
)

// oauthStateTTL bounds how long a user may take at the provider's consent page.
const oauthStateTTL = 10 * time.Minute

// OAuthStart redirects the user to the provider's authorize page.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		respondError(w, http.StatusServiceUnavailable, "OAUTH_DISABLED", "account linking is not configured", nil)
		return
	}

	state := uuid.NewString()
	if err := h.store.PutOAuthState(state, oauthStateTTL); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "unable to start account linking", err)
		return
	}

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback exchanges the authorization code and stores the credential
// for the linked account.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		respondError(w, http.StatusServiceUnavailable, "OAUTH_DISABLED", "account linking is not configured", nil)
		return
	}

	q := r.URL.Query()
	ok, err := h.store.ConsumeOAuthState(q.Get("state"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "unable to verify state", err)
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_STATE", "unknown or expired state", nil)
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		logging.Ctx(r.Context()).Warn().Str("error", logging.SanitizeValue(providerErr)).Msg("Provider refused authorization")
		respondError(w, http.StatusBadRequest, "AUTHORIZATION_DENIED", "authorization was not granted", nil)
		return
	}
	code := q.Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "code is required", nil)
		return
	}

	accountID, cred, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		respondError(w, http.StatusBadRequest, "EXCHANGE_FAILED", "unable to exchange authorization code", err)
		return
	}
	if err := h.store.PutCredential(accountID, cred); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "unable to store credential", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("account_id", logging.SanitizeValue(accountID)).
		Str("display_name", logging.SanitizeValue(cred.DisplayName)).
		Msg("Account linked")
	http.Redirect(w, r, "/", http.StatusFound)
}
