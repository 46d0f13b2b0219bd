// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/models"
)

// GetCursor returns the persisted cursor token for tag, or ErrNotFound when
// the tag has never been polled.
func (s *Store) GetCursor(tag string) (string, error) {
	var cursor models.PollCursor
	if err := s.getJSON(cursorKeyPrefix+tag, &cursor); err != nil {
		return "", err
	}
	return cursor.Token, nil
}

// AdvanceCursor stores token for tag unless the stored cursor is already
// newer, keeping the cursor monotonically non-decreasing. It reports whether
// the stored value changed.
func (s *Store) AdvanceCursor(tag, token string) (bool, error) {
	if token == "" {
		return false, errors.New("cursor token is required")
	}
	key := []byte(cursorKeyPrefix + tag)
	defer s.lockKey(string(key))()

	var advanced bool
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		advanced = false

		var current models.PollCursor
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get cursor: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return fmt.Errorf("decode cursor: %w", err)
			}
		}

		if current.Token != "" && !CursorNewer(token, current.Token) {
			return nil
		}

		data, err := json.Marshal(models.PollCursor{Tag: tag, Token: token, UpdatedAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("marshal cursor: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	return advanced, err
}

// CursorNewer reports whether candidate sorts after current. Numeric tokens
// compare numerically (without parsing, so arbitrarily long ids work);
// anything else compares lexically.
func CursorNewer(candidate, current string) bool {
	if isDigits(candidate) && isDigits(current) {
		c, o := trimLeadingZeros(candidate), trimLeadingZeros(current)
		if len(c) != len(o) {
			return len(c) > len(o)
		}
		return c > o
	}
	return candidate > current
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
