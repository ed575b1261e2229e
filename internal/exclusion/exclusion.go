// Package exclusion indexes the content of the negative directory set.
//
// Building an Index walks and size-indexes the negative roots immediately.
// Digests are computed per size the first time that size is queried, then
// memoised, so negative files whose size never needs hashing on the positive
// side are never read. Prime hashes everything up front instead.
//
// After Build returns, the set of negative paths never changes. Digest sets
// are filled at most once per size under a sync.Once, so Contains is safe to
// call from concurrent size-group workers.
package exclusion

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivoronin/dupes/internal/hasher"
	"github.com/ivoronin/dupes/internal/logging"
	"github.com/ivoronin/dupes/internal/pathfilter"
	"github.com/ivoronin/dupes/internal/scanner"
	"github.com/ivoronin/dupes/internal/screener"
	"github.com/ivoronin/dupes/internal/types"
)

// Index maps size to the digests present in the negative set.
type Index struct {
	bySize map[int64]types.Paths
	hasher hasher.Hasher
	log    *log.Logger

	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	once    sync.Once
	digests map[types.Digest]struct{}
}

// Options configures Build.
type Options struct {
	Filter   *pathfilter.Filter
	Hasher   hasher.Hasher // nil uses SHA-256
	Workers  int
	Progress io.Writer // nil disables the spinner
	Logger   *log.Logger
}

// Build walks roots and returns an Index over them. With no roots the index
// is empty and never excludes anything.
func Build(roots []string, opts Options) *Index {
	if len(roots) == 0 {
		return newIndex(opts.Hasher, opts.Logger)
	}

	files := scanner.New(roots, opts.Filter, opts.Workers, opts.Progress, opts.Logger).Run()
	idx := FromGroups(screener.New(files, 0, opts.Progress).Run(), opts.Hasher, opts.Logger)
	idx.log.Debug("negative set indexed", "roots", len(roots), "files", len(files), "sizes", len(idx.bySize))
	return idx
}

// FromGroups builds an Index from an existing size index. Build uses it
// once the negative roots have been walked and screened.
func FromGroups(groups types.SizeGroups, h hasher.Hasher, logger *log.Logger) *Index {
	idx := newIndex(h, logger)
	for _, g := range groups.Items() {
		idx.bySize[g.Size] = g.Paths
	}
	return idx
}

func newIndex(h hasher.Hasher, logger *log.Logger) *Index {
	if h == nil {
		h = hasher.SHA256{}
	}
	return &Index{
		bySize:  make(map[int64]types.Paths),
		hasher:  h,
		log:     logging.Component(logger, "exclusion"),
		entries: make(map[int64]*entry),
	}
}

// Enabled reports whether any negative file was found.
func (i *Index) Enabled() bool { return i != nil && len(i.bySize) > 0 }

// Has reports whether the negative set contains any file of this size.
func (i *Index) Has(size int64) bool {
	if i == nil {
		return false
	}
	_, ok := i.bySize[size]
	return ok
}

// Contains reports whether a negative file of this size has digest d.
// The first call for a size hashes every negative file of that size.
func (i *Index) Contains(size int64, d types.Digest) bool {
	if !i.Has(size) {
		return false
	}
	_, ok := i.digests(size)[d]
	return ok
}

// Prime hashes every negative size now, using up to workers goroutines.
func (i *Index) Prime(workers int) {
	if !i.Enabled() {
		return
	}
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for size := range i.bySize {
		g.Go(func() error {
			i.digests(size)
			return nil
		})
	}
	_ = g.Wait()
}

// digests returns the memoised digest set for size, computing it once.
func (i *Index) digests(size int64) map[types.Digest]struct{} {
	i.mu.Lock()
	e, ok := i.entries[size]
	if !ok {
		e = &entry{}
		i.entries[size] = e
	}
	i.mu.Unlock()

	e.once.Do(func() {
		paths := i.bySize[size]
		e.digests = make(map[types.Digest]struct{}, paths.Len())
		for _, p := range paths.Items() {
			d, err := i.hasher.HashFile(p)
			if err != nil {
				// Best effort: an unreadable negative file simply excludes nothing.
				i.log.Warn("cannot hash negative file", "path", p, "err", err)
				continue
			}
			e.digests[d] = struct{}{}
		}
	})
	return e.digests
}
