// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package logging

import (
	"fmt"
	"strings"
)

// maxLogValueLength caps untrusted values so a hostile sender cannot flood logs.
const maxLogValueLength = 256

// SanitizeValue escapes control characters in untrusted input (sender numbers,
// media ids, URLs) before it is written to logs.
func SanitizeValue(s string) string {
	if len(s) > maxLogValueLength {
		s = s[:maxLogValueLength] + "..."
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskToken keeps the first and last four characters of an access token.
// Tokens of eight characters or fewer are fully masked.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
