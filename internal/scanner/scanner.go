// Package scanner enumerates regular files under a set of root directories.
//
// # Concurrency Model
//
//  1. WALKER GOROUTINES (fan-out)
//     - One goroutine per directory discovered
//     - Concurrent directory reads limited by walkerSem
//     - Each walker: acquire → list → release → spawn child walkers
//
//  2. COLLECTOR GOROUTINE (fan-in)
//     - Drains resultCh into a slice until the channel is closed
//
//  3. MAIN GOROUTINE
//     - Spawns root walkers, waits for walkerWg, closes resultCh, waits for the collector
//
// Enumeration order depends on goroutine scheduling. Nothing downstream relies
// on it: the screener sorts sizes and paths before anything is reported.
//
// # Filtering
//
// The PathFilter is consulted for every entry, directories included. An
// excluded directory is never listed, so nothing beneath it is visited.
// Symlinks, devices, sockets and FIFOs are skipped; symlinks are not followed.
// The one exception is a root given as a symlink, which is resolved once so
// that `-d` accepts a linked directory or file. Its entries are still reported
// under the link path.
// Entries whose metadata cannot be read are dropped without surfacing an
// error (they are logged at debug level only).
package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dupes/internal/logging"
	"github.com/ivoronin/dupes/internal/pathfilter"
	"github.com/ivoronin/dupes/internal/progress"
	"github.com/ivoronin/dupes/internal/types"
)

// Scanner discovers regular files using parallel directory traversal.
//
// The scanner is designed for single-use: create with New(), call Run() once.
type Scanner struct {
	// Config (immutable, set by New)
	paths    []string           // Root paths to scan
	filter   *pathfilter.Filter // Exclusion predicate (nil allows all)
	workers  int                // Max concurrent directory reads
	progress io.Writer          // Progress output (nil disables)
	log      *log.Logger        // Debug diagnostics for skipped entries

	// Runtime (initialized in Run)
	walkerWg  sync.WaitGroup       // Tracks in-flight walker goroutines
	walkerSem types.Semaphore      // Limits concurrent directory reads
	resultCh  chan *types.FileInfo // Fan-in channel: walkers → collector
	stats     *stats               // Atomic counters for progress tracking
	bar       *progress.Bar        // Progress display (thread-safe)
}

// New creates a Scanner for discovering files.
func New(paths []string, filter *pathfilter.Filter, workers int, progressOut io.Writer, logger *log.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		paths:    paths,
		filter:   filter,
		workers:  workers,
		progress: progressOut,
		log:      logging.Component(logger, "scanner"),
	}
}

// stats tracks scanning progress using atomic counters for lock-free updates.
type stats struct {
	dirs      atomic.Int64 // Directories listed
	files     atomic.Int64 // Regular files accepted
	bytes     atomic.Int64 // Bytes across accepted files
	skipped   atomic.Int64 // Entries dropped (excluded or unreadable)
	startTime time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Walked %d dirs, found %d files (%s), skipped %d in %.1fs",
		s.dirs.Load(), s.files.Load(), humanize.IBytes(uint64(s.bytes.Load())),
		s.skipped.Load(), time.Since(s.startTime).Seconds())
}

// Run executes the scan and returns every accepted regular file.
func (s *Scanner) Run() []*types.FileInfo {
	s.walkerSem = types.NewSemaphore(s.workers)
	s.bar = progress.New(s.progress)
	s.stats = &stats{startTime: time.Now()}
	s.bar.Describe(s.stats)
	s.resultCh = make(chan *types.FileInfo, 1000) // Buffer smooths producer/consumer rates

	var results []*types.FileInfo
	collectorWg := sync.WaitGroup{}

	collectorWg.Add(1)
	go func() {
		for r := range s.resultCh {
			results = append(results, r)
		}
		collectorWg.Done()
	}()

	for _, p := range s.paths {
		s.walkRoot(p)
	}

	s.walkerWg.Wait()
	close(s.resultCh)
	collectorWg.Wait()

	s.bar.Finish(s.stats)
	s.log.Debug("walk finished", "roots", len(s.paths), "files", len(results), "skipped", s.stats.skipped.Load())
	return results
}

// walkRoot starts the walk at a root. A root that is itself a regular file is
// emitted as a single entry. A symlinked root is resolved.
func (s *Scanner) walkRoot(root string) {
	if !s.filter.Allows(root) {
		s.stats.skipped.Add(1)
		return
	}
	info, err := os.Lstat(root)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(root)
	}
	if err != nil {
		s.stats.skipped.Add(1)
		s.log.Debug("skipping root", "path", root, "err", err)
		return
	}
	switch {
	case info.IsDir():
		s.walkDirectory(root)
	case info.Mode().IsRegular():
		s.emit(&types.FileInfo{Path: root, Size: info.Size()})
	default:
		s.stats.skipped.Add(1)
	}
}

// walkDirectory spawns a goroutine to process one directory and recursively spawn children.
//
// Semaphore pattern:
//   - walkerWg.Add(1) BEFORE goroutine spawn (prevents race with Wait)
//   - acquire semaphore at goroutine start (blocks if at concurrency limit)
//   - release semaphore after listing, before children are spawned
func (s *Scanner) walkDirectory(dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		s.walkerSem.Acquire()
		files, subdirs, err := s.listDirectory(dir)
		s.walkerSem.Release()
		if err != nil {
			s.stats.skipped.Add(1)
			s.log.Debug("skipping directory", "path", dir, "err", err)
		}
		s.stats.dirs.Add(1)

		for _, f := range files {
			s.emit(f)
		}
		s.bar.Describe(s.stats)

		for _, sub := range subdirs {
			s.walkDirectory(sub)
		}
	}()
}

func (s *Scanner) emit(f *types.FileInfo) {
	s.resultCh <- f
	s.stats.files.Add(1)
	s.stats.bytes.Add(f.Size)
}

// listDirectory reads a single directory, returning files and subdirectories.
// Entries listed before a read error are still returned.
//
// Uses batched ReadDir (1000 entries per batch) to bound memory on huge directories.
func (s *Scanner) listDirectory(dirPath string) (files []*types.FileInfo, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return files, subdirs, err
			}
			break
		}

		for _, entry := range entries {
			f, sub := s.processEntry(dirPath, entry)
			if f != nil {
				files = append(files, f)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return files, subdirs, nil
}

// processEntry processes a single directory entry, returning a file or subdirectory path.
// Returns (nil, "") for entries that should be skipped (symlinks, devices, excluded items).
func (s *Scanner) processEntry(dirPath string, entry os.DirEntry) (file *types.FileInfo, subdir string) {
	fullPath := filepath.Join(dirPath, entry.Name())

	if !s.filter.Allows(fullPath) {
		s.stats.skipped.Add(1)
		return nil, ""
	}

	if entry.IsDir() {
		return nil, fullPath
	}

	if !entry.Type().IsRegular() {
		return nil, ""
	}

	// Info() may trigger additional stat call (platform-dependent)
	info, err := entry.Info()
	if err != nil {
		s.stats.skipped.Add(1)
		s.log.Debug("skipping file", "path", fullPath, "err", err)
		return nil, ""
	}

	return &types.FileInfo{Path: fullPath, Size: info.Size()}, ""
}
