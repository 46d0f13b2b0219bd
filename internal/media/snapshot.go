// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshot lists the stored media under a root directory.
type Snapshot struct {
	root        string
	placeholder string
}

// NewSnapshot creates a Snapshot over root.
func NewSnapshot(root, placeholder string) *Snapshot {
	return &Snapshot{root: root, placeholder: placeholder}
}

// ListAll returns every stored file below the root as a slash-separated
// path relative to it, in lexical walk order. A missing root yields an
// empty list. Results reflect the filesystem at call time.
func (s *Snapshot) ListAll() ([]string, error) {
	paths := []string{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && errors.Is(err, os.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !isStoredName(d.Name(), s.placeholder) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
