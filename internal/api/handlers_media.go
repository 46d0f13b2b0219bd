// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"net/http"

	"github.com/tomtom215/photowall/internal/logging"
	ws "github.com/tomtom215/photowall/internal/websocket"
)

// Media lists every stored asset as a bare JSON array so the display page
// can render the wall before subscribing to updates.
func (h *Handler) Media(w http.ResponseWriter, _ *http.Request) {
	paths, err := h.snapshot.ListAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SNAPSHOT_ERROR", "unable to list media", err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	respondJSON(w, http.StatusOK, paths)
}

// WebSocket upgrades a viewer connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if !h.wsHub.Attach(client) {
		logging.Warn().Msg("WebSocket hub stopped, closing viewer connection")
		_ = conn.Close()
		return
	}
	client.Start()
}
