// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package models

// ContentNotification is one envelope of a realtime content notification:
//
//	[{"subscription_id":"1","object":"user","object_id":"1234",
//	  "changed_aspect":"media","time":1297286541,"data":{"media_id":"987_1234"}}]
//
// object_id is the account id that posted the media.
type ContentNotification struct {
	SubscriptionID string                  `json:"subscription_id"`
	Object         string                  `json:"object"`
	ObjectID       string                  `json:"object_id" validate:"required"`
	ChangedAspect  string                  `json:"changed_aspect"`
	Time           int64                   `json:"time"`
	Data           ContentNotificationData `json:"data"`
}

// ContentNotificationData carries the id of the media that changed.
type ContentNotificationData struct {
	MediaID string `json:"media_id" validate:"required"`
}

// AccountID returns the id of the account the notification is about.
func (n *ContentNotification) AccountID() string { return n.ObjectID }

// MediaID returns the external media id.
func (n *ContentNotification) MediaID() string { return n.Data.MediaID }

// ContentNotificationBatch wraps a decoded notification array for validation.
type ContentNotificationBatch struct {
	Envelopes []ContentNotification `json:"envelopes" validate:"required,min=1,dive"`
}

// SocialMedia is the resolved view of a post returned by the media info
// lookup and the tag stream.
type SocialMedia struct {
	ID       string
	Type     string // "image" or "video"
	Tags     []string
	URL      string // highest-resolution delivery URL
	Uploader string // uploader display name
}

// IsImage reports whether the post is a still image.
func (m *SocialMedia) IsImage() bool { return m.Type == "image" }

// TagPage is one page of the tagged content stream, newest first.
type TagPage struct {
	Items []SocialMedia
	// NextCursor is the cursor token of the newest item on the page.
	NextCursor string
}
