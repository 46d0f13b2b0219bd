// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package ingest turns external submissions into batches of media references
for the downloader.

Two ingestors exist:

  - WebhookIngestor handles push deliveries. MMS webhooks are numbered
    synchronously and acknowledged at once; social content notifications are
    scheduled for resolution in the background so the sender gets its 200
    before any API call is made.
  - PollIngestor crawls the tagged content stream on a timer. The page cursor
    is persisted before the page is processed, so a crash mid-page skips the
    remaining items rather than replaying them.

Neither ingestor waits for downloads. Download failures are logged and
counted by the downloader, never reported back here.
*/
package ingest
