// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package supervisor provides process supervision for Photowall using suture v4.

The tree isolates failures by layer:

	RootSupervisor ("photowall")
	├── IngestSupervisor ("ingest-layer")
	│   ├── media-event-forwarder
	│   └── tag-poller (waits for the first viewer)
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Crashed services restart with suture's backoff. Supervisor events are logged
through sutureslog onto the zerolog-backed slog logger from the logging
package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewRunnerService("websocket-hub", hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

See the services subpackage for the wrappers.
*/
package supervisor
