// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// AllocatorSerialized selects SerializedAllocator.
	AllocatorSerialized = "serialized"
	// AllocatorNaive selects NaiveAllocator.
	AllocatorNaive = "naive"
)

// Allocator reserves n consecutive sequence numbers in a collection
// directory and returns the first. The directory is created if absent.
type Allocator interface {
	Reserve(ctx context.Context, dir string, n int) (int, error)
}

// NewAllocator returns the allocator named by kind.
func NewAllocator(kind, placeholder string) (Allocator, error) {
	switch kind {
	case AllocatorSerialized, "":
		return NewSerializedAllocator(placeholder), nil
	case AllocatorNaive:
		return NewNaiveAllocator(placeholder), nil
	default:
		return nil, fmt.Errorf("unknown allocator %q", kind)
	}
}

// countStored returns the number of completed files in dir. Subdirectories,
// the placeholder and hidden in-progress files are not counted.
func countStored(dir, placeholder string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isStoredName(e.Name(), placeholder) {
			continue
		}
		n++
	}
	return n, nil
}

func isStoredName(name, placeholder string) bool {
	return name != placeholder && !strings.HasPrefix(name, ".")
}

// NaiveAllocator numbers from the current file count with no coordination.
// Overlapping calls for one directory may return the same start.
type NaiveAllocator struct {
	placeholder string

	// afterEnumerate runs between counting and returning; tests use it to
	// force two calls to overlap.
	afterEnumerate func(dir string)
}

// NewNaiveAllocator creates a NaiveAllocator.
func NewNaiveAllocator(placeholder string) *NaiveAllocator {
	return &NaiveAllocator{placeholder: placeholder}
}

// Reserve implements Allocator.
func (a *NaiveAllocator) Reserve(ctx context.Context, dir string, n int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create collection dir: %w", err)
	}
	count, err := countStored(dir, a.placeholder)
	if err != nil {
		return 0, fmt.Errorf("enumerate collection: %w", err)
	}
	if a.afterEnumerate != nil {
		a.afterEnumerate(dir)
	}
	return count + 1, nil
}

// SerializedAllocator serializes reservations per directory and remembers
// the next free number, so blocks handed out before their files land are
// never issued twice.
type SerializedAllocator struct {
	placeholder string

	mu   sync.Mutex
	dirs map[string]*dirSequence
}

type dirSequence struct {
	mu   sync.Mutex
	next int
}

// NewSerializedAllocator creates a SerializedAllocator.
func NewSerializedAllocator(placeholder string) *SerializedAllocator {
	return &SerializedAllocator{
		placeholder: placeholder,
		dirs:        make(map[string]*dirSequence),
	}
}

func (a *SerializedAllocator) sequence(dir string) *dirSequence {
	a.mu.Lock()
	defer a.mu.Unlock()
	seq, ok := a.dirs[dir]
	if !ok {
		seq = &dirSequence{}
		a.dirs[dir] = seq
	}
	return seq
}

// Reserve implements Allocator.
func (a *SerializedAllocator) Reserve(ctx context.Context, dir string, n int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	seq := a.sequence(dir)
	seq.mu.Lock()
	defer seq.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create collection dir: %w", err)
	}
	count, err := countStored(dir, a.placeholder)
	if err != nil {
		return 0, fmt.Errorf("enumerate collection: %w", err)
	}
	// Files added behind our back still push the counter forward.
	if count+1 > seq.next {
		seq.next = count + 1
	}
	start := seq.next
	seq.next += n
	return start, nil
}
