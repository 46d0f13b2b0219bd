// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"errors"
	"strings"
)

// IdentityKind says how a submitter identity maps to a collection key.
type IdentityKind int

const (
	// IdentityPhone is a telephony sender such as "+15551234567".
	IdentityPhone IdentityKind = iota
	// IdentitySocial is a social account display name.
	IdentitySocial
)

// ErrInvalidCollectionKey is returned for keys that are empty or would
// escape the collection directory.
var ErrInvalidCollectionKey = errors.New("invalid collection key")

// CollectionLocator derives collection keys from submitter identities.
type CollectionLocator struct {
	// PrefixWidth is the number of leading characters dropped from phone
	// identities ("+1" is 2).
	PrefixWidth int
}

// Resolve returns the collection key for an identity. Phone identities lose
// their fixed-width international prefix; social identities are used as is.
func (l CollectionLocator) Resolve(kind IdentityKind, value string) string {
	if kind != IdentityPhone {
		return value
	}
	r := []rune(value)
	if l.PrefixWidth <= 0 {
		return value
	}
	if len(r) <= l.PrefixWidth {
		return ""
	}
	return string(r[l.PrefixWidth:])
}

// ValidateCollectionKey rejects keys that cannot be used as a single path
// element.
func ValidateCollectionKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return ErrInvalidCollectionKey
	case strings.ContainsAny(key, `/\`+"\x00"):
		return ErrInvalidCollectionKey
	}
	return nil
}
