// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

// TagFilter accepts a post when it carries at least one required tag.
// Comparison is exact and case-sensitive.
type TagFilter struct {
	required []string
}

// NewTagFilter creates a filter over the given required tags.
func NewTagFilter(required []string) TagFilter {
	return TagFilter{required: append([]string(nil), required...)}
}

// Matches reports whether any required tag appears in tags.
func (f TagFilter) Matches(tags []string) bool {
	if len(f.required) == 0 || len(tags) == 0 {
		return false
	}
	present := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		present[t] = struct{}{}
	}
	for _, r := range f.required {
		if _, ok := present[r]; ok {
			return true
		}
	}
	return false
}

// Required returns a copy of the required tags.
func (f TagFilter) Required() []string {
	return append([]string(nil), f.required...)
}
