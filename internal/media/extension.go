// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"errors"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// fallbackExtension is used when a content type is missing or unknown.
const fallbackExtension = "bin"

// ErrNoExtension is returned when a delivery URL path has no extension.
var ErrNoExtension = errors.New("delivery URL has no file extension")

// ExtensionFromURL returns the extension of the URL's path component without
// the leading dot. The query string is ignored: CDN URLs carry cache keys
// such as "?ig_cache_key=abc.def".
func ExtensionFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "", ErrNoExtension
	}
	return ext, nil
}

// ExtensionFromContentType maps a MIME type such as "image/jpeg" to its
// canonical extension ("jpg").
func ExtensionFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fallbackExtension
	}
	m := mimetype.Lookup(mediaType)
	if m == nil {
		return fallbackExtension
	}
	ext := strings.TrimPrefix(m.Extension(), ".")
	if ext == "" {
		return fallbackExtension
	}
	return ext
}
