// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"errors"
	"testing"
)

func TestTagFilter_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tags     []string
		required []string
		want     bool
	}{
		{"required tag present", []string{"shinergasp", "party"}, []string{"shinergasp"}, true},
		{"required tag absent", []string{"other"}, []string{"shinergasp"}, false},
		{"any of several required", []string{"b"}, []string{"a", "b"}, true},
		{"case differs", []string{"ShinerGasp"}, []string{"shinergasp"}, false},
		{"no tags", nil, []string{"shinergasp"}, false},
		{"no required tags", []string{"shinergasp"}, nil, false},
		{"whitespace is significant", []string{" shinergasp"}, []string{"shinergasp"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewTagFilter(tt.required).Matches(tt.tags); got != tt.want {
				t.Errorf("Matches(%v) with required %v = %v, want %v", tt.tags, tt.required, got, tt.want)
			}
		})
	}
}

func TestTagFilter_RequiredIsCopied(t *testing.T) {
	req := []string{"shinergasp"}
	f := NewTagFilter(req)
	req[0] = "changed"
	if !f.Matches([]string{"shinergasp"}) {
		t.Error("filter should not observe mutations of the input slice")
	}
}

func TestCollectionLocator_Resolve(t *testing.T) {
	t.Parallel()

	loc := CollectionLocator{PrefixWidth: 2}
	tests := []struct {
		name  string
		kind  IdentityKind
		value string
		want  string
	}{
		{"us phone", IdentityPhone, "+15551234567", "5551234567"},
		{"short phone", IdentityPhone, "+1", ""},
		{"empty phone", IdentityPhone, "", ""},
		{"social name verbatim", IdentitySocial, "jane_doe", "jane_doe"},
		{"social name keeps prefix", IdentitySocial, "+1jane", "+1jane"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := loc.Resolve(tt.kind, tt.value); got != tt.want {
				t.Errorf("Resolve(%v, %q) = %q, want %q", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}

func TestCollectionLocator_ZeroWidth(t *testing.T) {
	loc := CollectionLocator{}
	if got := loc.Resolve(IdentityPhone, "+15551234567"); got != "+15551234567" {
		t.Errorf("Resolve() = %q, want input unchanged", got)
	}
}

func TestValidateCollectionKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key   string
		valid bool
	}{
		{"5551234567", true},
		{"jane_doe", true},
		{"jane.doe", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"../etc", false},
		{"a\x00b", false},
	}

	for _, tt := range tests {
		err := ValidateCollectionKey(tt.key)
		if tt.valid && err != nil {
			t.Errorf("ValidateCollectionKey(%q) = %v, want nil", tt.key, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidCollectionKey) {
			t.Errorf("ValidateCollectionKey(%q) = %v, want ErrInvalidCollectionKey", tt.key, err)
		}
	}
}

func TestExtensionFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"query with period ignored", "https://host/path/img.jpg?ig_cache_key=abc.def", "jpg", false},
		{"plain", "https://cdn.example.com/a/b/photo.png", "png", false},
		{"fragment ignored", "https://host/x.gif#frag.bmp", "gif", false},
		{"dotted directory", "https://host/v1.2/photo.jpeg", "jpeg", false},
		{"no extension", "https://host/path/image", "", true},
		{"query only extension", "https://host/image?x=a.jpg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtensionFromURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtensionFromURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtensionFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtensionFromContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpg"},
		{"image/png", "png"},
		{"image/gif", "gif"},
		{"IMAGE/JPEG", "jpg"},
		{"image/jpeg; charset=binary", "jpg"},
		{"", "bin"},
		{"not a media type", "bin"},
		{"application/x-photowall-unknown", "bin"},
	}

	for _, tt := range tests {
		if got := ExtensionFromContentType(tt.contentType); got != tt.want {
			t.Errorf("ExtensionFromContentType(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
