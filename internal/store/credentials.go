// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/models"
)

// GetCredential returns the credential stored for accountID, or ErrNotFound.
func (s *Store) GetCredential(accountID string) (models.UserCredential, error) {
	var cred models.UserCredential
	if err := s.getJSON(credentialKeyPrefix+accountID, &cred); err != nil {
		return models.UserCredential{}, err
	}
	return cred, nil
}

// PutCredential replaces the credential for accountID. Existing fields are
// never merged.
func (s *Store) PutCredential(accountID string, cred models.UserCredential) error {
	if accountID == "" {
		return errors.New("account id is required")
	}
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = time.Now().UTC()
	}
	if err := s.setJSON(credentialKeyPrefix+accountID, cred); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

// Credentials returns every stored credential keyed by account id.
func (s *Store) Credentials() (map[string]models.UserCredential, error) {
	creds := make(map[string]models.UserCredential)
	prefix := []byte(credentialKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			accountID := strings.TrimPrefix(string(item.Key()), credentialKeyPrefix)

			var cred models.UserCredential
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &cred)
			}); err != nil {
				return fmt.Errorf("decode credential %s: %w", accountID, err)
			}
			creds[accountID] = cred
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}
