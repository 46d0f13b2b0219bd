// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

// Package store is the persistent key/value store for social account
// credentials, poll cursors and pending OAuth states, backed by BadgerDB.
//
// Key layout:
//
//	credential:{accountId} -> models.UserCredential (JSON)
//	cursor:{tagName}       -> models.PollCursor (JSON)
//	oauth_state:{state}    -> empty value with TTL
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	credentialKeyPrefix = "credential:"
	cursorKeyPrefix     = "cursor:"
	oauthStateKeyPrefix = "oauth_state:"
)

// maxConflictRetries bounds retries of read-modify-write transactions that
// lose a conflict to a concurrent writer.
const maxConflictRetries = 5

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("store: not found")

// Config configures the store.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Store owns the BadgerDB handle. It is opened once at startup and closed
// after every service using it has stopped.
type Store struct {
	db *badger.DB

	// keyLocks serializes read-modify-write operations per key.
	keyLocks sync.Map // map[string]*sync.Mutex
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.ValueLogFileSize = 16 << 20 // records are tiny
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing BadgerDB connection.
func NewFromDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is open and readable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return errors.New("store is closed")
	}
	return s.db.View(func(_ *badger.Txn) error { return nil })
}

// getJSON loads the JSON value stored at key into v.
func (s *Store) getJSON(key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// setJSON overwrites key with the JSON encoding of v.
func (s *Store) setJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// lockKey locks the in-process mutex for key and returns its unlock func.
func (s *Store) lockKey(key string) func() {
	v, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// updateWithRetry runs fn in a read-write transaction, retrying when a
// concurrent transaction touching the same keys commits first.
func (s *Store) updateWithRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
