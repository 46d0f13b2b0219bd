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
)

// PutOAuthState records a pending authorization state that expires after ttl.
func (s *Store) PutOAuthState(state string, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(oauthStateKeyPrefix+state), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// ConsumeOAuthState deletes state and reports whether it was pending.
// A state can be consumed at most once.
func (s *Store) ConsumeOAuthState(state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	key := []byte(oauthStateKeyPrefix + state)

	var found bool
	err := s.updateWithRetry(func(txn *badger.Txn) error {
		found = false
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get oauth state: %w", err)
		}
		found = true
		return txn.Delete(key)
	})
	return found, err
}
