// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/photowall/internal/config"
	"github.com/tomtom215/photowall/internal/ingest"
	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/models"
	ws "github.com/tomtom215/photowall/internal/websocket"
)

// Webhooks turns webhook deliveries into downloads.
// Implemented by *ingest.WebhookIngestor.
type Webhooks interface {
	HandleMMS(ctx context.Context, msg ingest.MMSMessage) bool
	HandleNotifications(ctx context.Context, envelopes []models.ContentNotification) int
}

// Snapshot lists every stored asset. Implemented by *media.Snapshot.
type Snapshot interface {
	ListAll() ([]string, error)
}

// OAuthFlow performs the social account linking flow.
// Implemented by *instagram.OAuth.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, models.UserCredential, error)
}

// Store is the persisted state the handlers touch. Implemented by *store.Store.
type Store interface {
	Ping() error
	PutCredential(accountID string, cred models.UserCredential) error
	PutOAuthState(state string, ttl time.Duration) error
	ConsumeOAuthState(state string) (bool, error)
}

// PollStatus reports the tag poller state for health output.
type PollStatus interface {
	Running() bool
	State() ingest.PollState
}

// Dependencies groups what NewHandler needs. OAuth and Poller are optional.
type Dependencies struct {
	Webhooks Webhooks
	Snapshot Snapshot
	OAuth    OAuthFlow
	Store    Store
	Hub      *ws.Hub
	Poller   PollStatus
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, websocket origin policy (this file)
//   - handlers_helpers.go: JSON response and validation helpers
//   - handlers_health.go: health endpoints
//   - handlers_twilio.go: MMS webhook and TwiML reply
//   - handlers_instagram.go: subscription verification and content notifications
//   - handlers_oauth.go: account linking
//   - handlers_media.go: snapshot and viewer websocket
type Handler struct {
	config    *config.Config
	webhooks  Webhooks
	snapshot  Snapshot
	oauth     OAuthFlow
	store     Store
	wsHub     *ws.Hub
	poller    PollStatus
	startTime time.Time
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		config:    cfg,
		webhooks:  deps.Webhooks,
		snapshot:  deps.Snapshot,
		oauth:     deps.OAuth,
		store:     deps.Store,
		wsHub:     deps.Hub,
		poller:    deps.Poller,
		startTime: time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts the display page's own origin and any
// configured CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin on websocket handshakes.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}

	if h.config != nil {
		for _, allowedOrigin := range h.config.Security.CORSOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				return true
			}
		}
	}

	logging.Warn().Str("origin", logging.SanitizeValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
