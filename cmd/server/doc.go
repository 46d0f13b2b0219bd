// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package main is the entry point for the Photowall server.

Photowall collects photos sent by MMS or posted with an event hashtag,
stores them under a per-sender directory with sequential names, and pushes
each new file to every display connected over a websocket.

# Application Architecture

	RootSupervisor ("photowall")
	├── IngestSupervisor ("ingest-layer")
	│   ├── media-event-forwarder (bus -> hub)
	│   └── tag-poller (released by the first viewer)
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Flags and optional .env file (go-flags, godotenv)
 2. Configuration: Koanf v2 with defaults, YAML file and environment
 3. Logging: zerolog
 4. Store: BadgerDB credentials, poll cursors and OAuth state
 5. Media: sequence allocator, event bus, downloader, snapshot
 6. Social API: rate-limited client behind a circuit breaker, OAuth flow
 7. Ingest: webhook ingestor and tag poller
 8. Supervisor tree and HTTP server

# Usage

	photowall --config /etc/photowall/config.yaml --env-file .env

Environment variables override the config file, for example:

	TWILIO_AUTH_TOKEN=...        enable MMS signature verification
	INSTAGRAM_ACCESS_TOKEN=...   default token for polling and unlinked accounts
	INSTAGRAM_TAG=smithjones     tag to poll

SIGINT and SIGTERM stop the tree, drain HTTP connections, cancel pending
resolutions and downloads, then close the store.
*/
package main
