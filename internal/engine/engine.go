// Package engine turns the size index into the final report.
//
// # Per-Group Policy
//
// Every size group is processed independently, in one of four ways:
//
//	size > ceiling          → KindAvoided, all paths, nothing hashed
//	1 path, !alwaysHash     → KindUnique if showUniques, nothing hashed
//	otherwise               → hash every path (sequentially, one open file at a time)
//	                              ├──► read error      → FileError, path dropped
//	                              ├──► digest excluded → path dropped
//	                              └──► bin by digest   → KindDuplicate if 2+ paths
//	                                                     (or 1 path and showUniques)
//
// # Concurrency Model
//
// Size groups are fanned out to an errgroup limited to Workers goroutines.
// Each goroutine writes only to its own slot of a preallocated slice, so no
// locking is needed for result assembly. The exclusion index is shared and
// read-only from the engine's point of view.
//
// # Ordering
//
// Slots are indexed by the group's position in the ascending size index.
// Within a group, bins are sorted by digest and paths within a bin keep the
// size index's lexicographic order. Output therefore never depends on which
// goroutine finished first.
package engine

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/ivoronin/dupes/internal/exclusion"
	"github.com/ivoronin/dupes/internal/hasher"
	"github.com/ivoronin/dupes/internal/logging"
	"github.com/ivoronin/dupes/internal/progress"
	"github.com/ivoronin/dupes/internal/types"
)

// fmtBytes is a shorthand for humanize.IBytes (human-readable byte sizes).
var fmtBytes = humanize.IBytes

// Options configures an Engine.
type Options struct {
	// Ceiling is the disambiguation ceiling. Groups of a strictly larger
	// size are listed without hashing. Zero disables the ceiling.
	Ceiling int64

	// AlwaysHash hashes singleton size groups too.
	AlwaysHash bool

	// ShowUniques reports unhashed singleton groups and single-member bins.
	ShowUniques bool

	// Workers bounds how many size groups are hashed at once.
	Workers int

	// Progress receives the spinner; nil disables it.
	Progress io.Writer

	// Hasher computes digests; nil uses SHA-256.
	Hasher hasher.Hasher

	// Exclusion suppresses files whose content exists in the negative set.
	// Nil disables exclusion.
	Exclusion *exclusion.Index

	// Sink receives read errors in report order; nil discards them.
	Sink ErrorSink

	Logger *log.Logger
}

// stats tracks engine progress.
type stats struct {
	totalGroups int
	doneGroups  atomic.Int64
	hashedFiles atomic.Int64
	hashedBytes atomic.Uint64
	avoided     atomic.Int64
	excluded    atomic.Int64
	failed      atomic.Int64
	bins        atomic.Int64
	startTime   time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Compared %d/%d sizes, hashed %d files (%s), %d bins, %d excluded, %d avoided, %d errors in %.1fs",
		s.doneGroups.Load(), s.totalGroups, s.hashedFiles.Load(), fmtBytes(s.hashedBytes.Load()),
		s.bins.Load(), s.excluded.Load(), s.avoided.Load(), s.failed.Load(),
		time.Since(s.startTime).Seconds())
}

// Engine bins files by size and content.
//
// The engine is designed for single-use: create with New(), call Run() once.
type Engine struct {
	// Config (immutable, set by New)
	groups types.SizeGroups
	opts   Options
	hasher hasher.Hasher
	sink   ErrorSink
	log    *log.Logger

	// Runtime (initialized in Run)
	bar   *progress.Bar
	stats *stats
}

// New creates an Engine over a size index.
func New(groups types.SizeGroups, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	h := opts.Hasher
	if h == nil {
		h = hasher.SHA256{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = Discard
	}
	return &Engine{
		groups: groups,
		opts:   opts,
		hasher: h,
		sink:   sink,
		log:    logging.Component(opts.Logger, "engine"),
	}
}

// Run processes every size group and returns the ordered result. Read errors
// are delivered to the sink after all groups finish, in report order.
func (e *Engine) Run() types.Result {
	e.bar = progress.New(e.opts.Progress)
	e.stats = &stats{totalGroups: e.groups.Len(), startTime: time.Now()}
	e.bar.Describe(e.stats)

	items := e.groups.Items()
	reports := make([]types.SizeReport, len(items))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, group := range items {
		g.Go(func() error {
			reports[i] = e.processGroup(group)
			e.stats.doneGroups.Add(1)
			e.bar.Describe(e.stats)
			return nil
		})
	}
	_ = g.Wait() // workers never fail; per-file errors live in the reports

	var result types.Result
	for _, r := range reports {
		if r.Empty() {
			continue
		}
		result.Sizes = append(result.Sizes, r)
		for _, fe := range r.Errors {
			e.sink.ReadError(fe)
		}
	}

	e.bar.Finish(e.stats)
	e.log.Debug("comparison finished", "sizes", len(items), "reported", len(result.Sizes),
		"hashed", e.stats.hashedFiles.Load(), "errors", e.stats.failed.Load())
	return result
}

// processGroup applies the per-group policy to one size group.
func (e *Engine) processGroup(g types.SizeGroup) types.SizeReport {
	report := types.SizeReport{Size: g.Size}
	paths := g.Paths.Items()

	if e.opts.Ceiling > 0 && g.Size > e.opts.Ceiling {
		e.stats.avoided.Add(1)
		report.Records = append(report.Records, types.Record{
			Kind:  types.KindAvoided,
			Size:  g.Size,
			Paths: paths,
		})
		return report
	}

	if len(paths) == 1 && !e.opts.AlwaysHash {
		if e.opts.ShowUniques {
			report.Records = append(report.Records, types.Record{
				Kind:  types.KindUnique,
				Size:  g.Size,
				Paths: paths,
			})
		}
		return report
	}

	bins, errs := e.hashGroup(g.Size, paths)
	report.Errors = errs

	minMembers := 2
	if e.opts.ShowUniques {
		minMembers = 1
	}
	for _, b := range bins.Items() {
		if len(b.paths) < minMembers {
			continue
		}
		e.stats.bins.Add(1)
		report.Records = append(report.Records, types.Record{
			Kind:   types.KindDuplicate,
			Size:   g.Size,
			Hashed: true,
			Digest: b.digest,
			Paths:  b.paths,
		})
	}
	return report
}

// bin collects the paths that share one digest.
type bin struct {
	digest types.Digest
	paths  []string
}

// hashGroup hashes paths one at a time and bins the survivors by digest.
// Paths arrive sorted, so each bin's paths stay sorted as they are appended.
func (e *Engine) hashGroup(size int64, paths []string) (types.Sorted[bin, string], []types.FileError) {
	var errs []types.FileError
	byDigest := make(map[types.Digest]*bin)

	for _, p := range paths {
		d, err := e.hasher.HashFile(p)
		if err != nil {
			e.stats.failed.Add(1)
			errs = append(errs, types.FileError{Size: size, Path: p, Err: err})
			continue
		}
		e.stats.hashedFiles.Add(1)
		e.stats.hashedBytes.Add(uint64(size))

		if e.opts.Exclusion.Contains(size, d) {
			e.stats.excluded.Add(1)
			continue
		}

		b, ok := byDigest[d]
		if !ok {
			b = &bin{digest: d}
			byDigest[d] = b
		}
		b.paths = append(b.paths, p)
	}

	bins := make([]bin, 0, len(byDigest))
	for _, b := range byDigest {
		bins = append(bins, *b)
	}
	return types.NewSorted(bins, func(b bin) string { return b.digest.Key() }), errs
}
