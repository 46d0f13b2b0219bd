// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package cache provides a bounded, expiring set used to suppress repeated
// content notifications.
package cache

import (
	"sync"
	"time"
)

type seenEntry struct {
	key       string
	expiresAt time.Time
	prev      *seenEntry
	next      *seenEntry
}

// SeenSet remembers keys for a fixed window. It holds at most capacity keys;
// the least recently touched key is evicted first.
//
// Lookups and inserts are O(1): a map indexes nodes of a doubly-linked list
// ordered by recency.
type SeenSet struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*seenEntry

	// head.next is the most recent, tail.prev the least recent
	head *seenEntry
	tail *seenEntry
}

// NewSeenSet creates a set holding up to capacity keys for ttl each.
func NewSeenSet(capacity int, ttl time.Duration) *SeenSet {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &SeenSet{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*seenEntry, capacity),
		head:     &seenEntry{},
		tail:     &seenEntry{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// Seen reports whether key was recorded within the window. A key that was not
// seen is recorded before returning, so concurrent callers observe exactly
// one false per key.
func (s *SeenSet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		if now.Before(e.expiresAt) {
			s.unlink(e)
			s.pushFront(e)
			return true
		}
		s.remove(e)
	}

	e := &seenEntry{key: key, expiresAt: now.Add(s.ttl)}
	s.pushFront(e)
	s.items[key] = e

	for len(s.items) > s.capacity {
		s.remove(s.tail.prev)
	}
	return false
}

// Forget drops key so the next Seen call treats it as new. Used when a
// recorded key could not be processed and should be retried.
func (s *SeenSet) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
}

// Len returns the number of recorded keys, expired or not.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes expired keys and returns how many were removed.
func (s *SeenSet) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for e := s.tail.prev; e != s.head; {
		prev := e.prev
		if !now.Before(e.expiresAt) {
			s.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Internal helpers, lock held.

func (s *SeenSet) pushFront(e *seenEntry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *SeenSet) unlink(e *seenEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (s *SeenSet) remove(e *seenEntry) {
	if e == s.head || e == s.tail {
		return
	}
	s.unlink(e)
	delete(s.items, e.key)
}
