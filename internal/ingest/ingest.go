// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package ingest

import (
	"context"

	"github.com/tomtom215/photowall/internal/models"
)

// Sink numbers a batch for one collection and schedules its downloads.
// Implemented by *media.Downloader.
type Sink interface {
	Ingest(ctx context.Context, collectionType models.CollectionType, key string, batch []models.MediaReference) ([]models.StoredMedia, error)
}

// CredentialStore looks up linked social accounts.
type CredentialStore interface {
	GetCredential(accountID string) (models.UserCredential, error)
}

// CursorStore persists the tag stream cursor.
type CursorStore interface {
	GetCursor(tag string) (string, error)
	AdvanceCursor(tag, token string) (bool, error)
}
