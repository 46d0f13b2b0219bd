// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package services adapts Photowall components to suture.Service.

Each wrapper translates one lifecycle shape into Serve(ctx) error:

  - HTTPServerService: ListenAndServe plus Shutdown with a drain timeout
  - RunnerService: a blocking RunWithContext loop such as the websocket hub
  - PollerService: a Start/Stop poller held back until a Trigger fires

Every wrapper returns ctx.Err() on a requested shutdown so suture does not
count it as a failure, and implements fmt.Stringer for supervisor logs.

The event forwarder already implements Serve and is added to the tree as is.
*/
package services
