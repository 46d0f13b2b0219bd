// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	StoreConnected bool    `json:"store_connected"`
	Viewers        int     `json:"viewers"`
	PollerRunning  bool    `json:"poller_running"`
	PollerState    string  `json:"poller_state,omitempty"`
	Uptime         float64 `json:"uptime"`
}

// Health reports store connectivity, viewer count and poller state.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	storeConnected := h.store != nil && h.store.Ping() == nil

	status := "healthy"
	if !storeConnected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:         status,
		StoreConnected: storeConnected,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		health.Viewers = h.wsHub.GetClientCount()
	}
	if h.poller != nil {
		health.PollerRunning = h.poller.Running()
		health.PollerState = string(h.poller.State())
	}

	respondSuccess(w, http.StatusOK, health)
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	ready := h.store != nil && h.store.Ping() == nil

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	respondSuccess(w, statusCode, map[string]interface{}{
		"store_connected": ready,
		"ready_to_serve":  ready,
		"uptime":          time.Since(h.startTime).Seconds(),
	})
}
