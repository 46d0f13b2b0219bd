// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package models holds the data types shared between the ingestors, the
// media pipeline, the store and the HTTP layer.
package models

import (
	"strconv"
	"time"
)

// CollectionType names the top-level storage bucket for a producer.
type CollectionType string

const (
	// CollectionTwilio holds media received as MMS.
	CollectionTwilio CollectionType = "twilio"
	// CollectionInstagram holds media discovered on the social stream.
	CollectionInstagram CollectionType = "instagram"
)

// MediaReference describes one remote file to acquire. It is created by an
// ingestor, consumed by the downloader and then discarded.
type MediaReference struct {
	SourceURL      string
	Extension      string // without the leading dot
	CollectionType CollectionType
	CollectionKey  string
}

// StoredMedia is a media item that has been assigned a sequence number
// within its collection. The number is never reassigned, even when the
// download fails.
type StoredMedia struct {
	CollectionType CollectionType `json:"collectionType"`
	CollectionKey  string         `json:"collectionKey"`
	SequenceNumber int            `json:"sequenceNumber"`
	Extension      string         `json:"extension"`
	SourceURL      string         `json:"-"`

	// Path is the destination on disk.
	Path string `json:"-"`
	// PublicPath is the URL path viewers load the asset from.
	PublicPath string `json:"path"`
}

// FileName returns "{sequenceNumber}.{extension}".
func (m StoredMedia) FileName() string {
	return strconv.Itoa(m.SequenceNumber) + "." + m.Extension
}

// UserCredential is persisted per social account id and overwritten
// wholesale on each authorization.
type UserCredential struct {
	DisplayName string    `json:"displayName"`
	AccessToken string    `json:"accessToken"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PollCursor marks the newest item already seen for a tracked tag.
type PollCursor struct {
	Tag       string    `json:"tag"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updatedAt"`
}
