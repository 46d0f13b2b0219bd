// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package middleware provides HTTP middleware shared by every route.

Key Components:

  - RequestID: honours or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request count, duration and in-flight gauge labelled
    by chi route pattern

Both are plain func(http.Handler) http.Handler values and plug into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The metrics wrapper forwards Hijack and Flush so websocket upgrades pass
through it unchanged.
*/
package middleware
