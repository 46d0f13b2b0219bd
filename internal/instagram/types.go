// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package instagram

import (
	"fmt"

	"github.com/tomtom215/photowall/internal/models"
)

// meta is the status block present on every response.
type meta struct {
	Code         int    `json:"code"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// APIError is returned when the API answers with a non-200 meta code.
type APIError struct {
	Endpoint string
	Code     int
	Type     string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram %s: %d %s: %s", e.Endpoint, e.Code, e.Type, e.Message)
}

type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type images struct {
	StandardResolution *image `json:"standard_resolution"`
	LowResolution      *image `json:"low_resolution"`
	Thumbnail          *image `json:"thumbnail"`
}

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// mediaItem is one post as delivered by the API.
type mediaItem struct {
	ID     string   `json:"id" validate:"required"`
	Type   string   `json:"type" validate:"required"`
	Tags   []string `json:"tags"`
	Images images   `json:"images"`
	User   user     `json:"user"`
}

type mediaResponse struct {
	Meta meta      `json:"meta"`
	Data mediaItem `json:"data"`
}

type pagination struct {
	MinTagID string `json:"min_tag_id"`
}

type tagResponse struct {
	Meta       meta        `json:"meta"`
	Data       []mediaItem `json:"data"`
	Pagination pagination  `json:"pagination"`
}

// bestImage returns the URL of the widest rendition.
func (m *mediaItem) bestImage() string {
	var best *image
	for _, img := range []*image{m.Images.StandardResolution, m.Images.LowResolution, m.Images.Thumbnail} {
		if img == nil || img.URL == "" {
			continue
		}
		if best == nil || img.Width > best.Width {
			best = img
		}
	}
	if best == nil {
		return ""
	}
	return best.URL
}

func (m *mediaItem) toSocial() models.SocialMedia {
	return models.SocialMedia{
		ID:       m.ID,
		Type:     m.Type,
		Tags:     append([]string(nil), m.Tags...),
		URL:      m.bestImage(),
		Uploader: m.User.Username,
	}
}
