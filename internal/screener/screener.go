// Package screener builds the size index: the cheap first-pass discriminator.
//
// # Processing Pipeline
//
//	Input: []*types.FileInfo (all scanned files)
//	    │
//	    ├──► Drop files below minSize
//	    │
//	    ├──► Group by exact size, collapsing repeated paths
//	    │
//	    └──► Output: types.SizeGroups (ascending size, paths sorted)
//
// # Why This Design?
//
//   - Size grouping is O(n) and needs no I/O
//   - Singleton groups are content-unique without hashing
//   - Sorting here makes output independent of walk order
package screener

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dupes/internal/progress"
	"github.com/ivoronin/dupes/internal/types"
)

// Screener groups files by size.
//
// The screener is designed for single-use: create with New(), call Run() once.
type Screener struct {
	files    []*types.FileInfo // Files to index
	minSize  int64             // Files strictly smaller are dropped
	progress io.Writer         // Progress output (nil disables)
}

// New creates a Screener. A minSize of 0 keeps every file.
func New(files []*types.FileInfo, minSize int64, progressOut io.Writer) *Screener {
	return &Screener{
		files:    files,
		minSize:  minSize,
		progress: progressOut,
	}
}

// stats tracks screening progress.
type stats struct {
	groups      int
	ambiguous   int
	indexed     int
	indexedSize int64
	startTime   time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Indexed %d files (%s) into %d sizes, %d shared by several files in %.1fs",
		s.indexed, humanize.IBytes(uint64(s.indexedSize)), s.groups, s.ambiguous,
		time.Since(s.startTime).Seconds())
}

// Run returns the size index in ascending size order.
func (s *Screener) Run() types.SizeGroups {
	bar := progress.New(s.progress)
	st := &stats{startTime: time.Now()}

	bySize := make(map[int64][]string)
	for _, f := range s.files {
		if f.Size < s.minSize {
			continue
		}
		bySize[f.Size] = append(bySize[f.Size], f.Path)
	}

	groups := make([]types.SizeGroup, 0, len(bySize))
	for size, paths := range bySize {
		g := types.SizeGroup{Size: size, Paths: types.NewPaths(paths)}
		groups = append(groups, g)

		st.indexed += g.Paths.Len()
		st.indexedSize += size * int64(g.Paths.Len())
		if g.Paths.Len() > 1 {
			st.ambiguous++
		}
	}
	st.groups = len(groups)

	bar.Finish(st)
	return types.NewSizeGroups(groups)
}
