// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

/*
Package media turns batches of remote media references into numbered files on
disk and reports each completed file to a Notifier.

# Storage Layout

Every file lands at

	{static}/{mediaDir}/{collectionType}/{collectionKey}/{sequenceNumber}.{extension}

where the collection directory is created on first write and never removed.

# Sequence Numbers

An Allocator reserves a contiguous block of numbers for a batch before any
network I/O begins, so numbering within a batch follows input order and never
depends on which download finishes first. Two allocators are provided:

  - SerializedAllocator holds a per-directory lock across create, enumerate
    and reserve, and remembers handed-out numbers whose files have not landed
    yet. It is the default.
  - NaiveAllocator enumerates the directory and returns count+1 with no
    locking. Two overlapping calls for the same directory can receive the
    same start number. It exists to reproduce that hazard.

Numbers are never reused: a failed download leaves a gap.

# Downloads

Downloader.Ingest reserves numbers synchronously and then starts one
goroutine per item. Each goroutine owns a copy of its StoredMedia, so
notifications always name the file that goroutine wrote. Files are written to
a hidden temporary name and renamed into place, so enumeration never sees a
partial file. A failed item is logged and counted; siblings are unaffected.

# Snapshot

Snapshot.ListAll walks the media root and returns every completed file
relative to it, skipping the placeholder that keeps empty directories in
version control.
*/
package media
