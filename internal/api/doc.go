// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package api provides the HTTP surface of Photowall.

Key Components:

  - Router: chi route table and middleware stack (SetupChi)
  - Handler: request handlers; thin adapters over the ingest, media and store packages
  - ChiMiddleware: CORS, rate limiting and security headers from the chi ecosystem

Routes:

	POST /message                    MMS webhook, replies with TwiML
	GET  /instagram/realtime         subscription verification (echoes hub.challenge)
	POST /instagram/realtime         content notifications, 200 before resolution
	GET  /auth/instagram             OAuth start
	GET  /auth/instagram/callback    OAuth callback, stores the credential
	GET  /api/media                  snapshot of every stored asset
	GET  /ws                         viewer websocket
	GET  /health, /health/live, /health/ready
	GET  /metrics                    Prometheus exposition
	GET  /*                          static display page and media files

Webhook handlers acknowledge as soon as work is scheduled. Download outcomes
never influence a response.

Error responses share one JSON envelope:

	{
	  "status": "error",
	  "data": null,
	  "metadata": {"timestamp": "..."},
	  "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}}
	}
*/
package api
