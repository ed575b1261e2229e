// Package types provides shared types used across the dupes codebase.
package types

import (
	"cmp"
	"slices"
)

// FileInfo holds metadata for a scanned file.
// Size is a snapshot taken at discovery time and is never refreshed.
type FileInfo struct {
	Path string
	Size int64
}

// Sorted is an ordered collection that maintains sort order by a key function.
// T is the element type, K is the comparable key type.
// Once constructed, items are guaranteed to be sorted by key.
type Sorted[T any, K cmp.Ordered] struct {
	items   []T
	keyFunc func(T) K
}

// NewSorted creates a sorted collection from items using keyFunc for ordering.
// Items are copied and sorted at construction time.
func NewSorted[T any, K cmp.Ordered](items []T, keyFunc func(T) K) Sorted[T, K] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(keyFunc(a), keyFunc(b))
	})
	return Sorted[T, K]{items: sorted, keyFunc: keyFunc}
}

// Items returns the sorted items.
func (s Sorted[T, K]) Items() []T { return s.items }

// First returns the first item (smallest key), or zero value if empty.
func (s Sorted[T, K]) First() T {
	if len(s.items) == 0 {
		var zero T
		return zero
	}
	return s.items[0]
}

// Len returns the number of items.
func (s Sorted[T, K]) Len() int { return len(s.items) }

// Paths is a lexicographically ordered set of file paths.
type Paths = Sorted[string, string]

// NewPaths creates a Paths set. Duplicate entries collapse into one, so a
// file reached through the same root twice is only listed once.
func NewPaths(paths []string) Paths {
	sorted := NewSorted(paths, func(p string) string { return p })
	sorted.items = slices.Compact(sorted.items)
	return sorted
}

// SizeGroup contains every path sharing one exact byte length.
type SizeGroup struct {
	Size  int64
	Paths Paths
}

// SizeGroups is a collection of size groups in ascending size order.
type SizeGroups = Sorted[SizeGroup, int64]

// NewSizeGroups creates SizeGroups sorted by size.
func NewSizeGroups(groups []SizeGroup) SizeGroups {
	return NewSorted(groups, func(g SizeGroup) int64 { return g.Size })
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
