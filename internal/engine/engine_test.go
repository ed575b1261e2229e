//go:build unix

package engine

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivoronin/dupes/internal/exclusion"
	"github.com/ivoronin/dupes/internal/hasher"
	"github.com/ivoronin/dupes/internal/scanner"
	"github.com/ivoronin/dupes/internal/screener"
	"github.com/ivoronin/dupes/internal/testfs"
	"github.com/ivoronin/dupes/internal/types"
)

// xyTree is the three-file tree used throughout: a and b share content, c differs.
func xyTree() testfs.FileTree {
	return testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/pos",
				Files: []testfs.File{
					{Path: []string{"a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
					{Path: []string{"b"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
					{Path: []string{"c"}, Chunks: []testfs.Chunk{{Pattern: 'Y', Size: "1"}}},
				},
			},
		},
	}
}

// index walks a root and builds its size index.
func index(t *testing.T, minSize int64, roots ...string) types.SizeGroups {
	t.Helper()
	files := scanner.New(roots, nil, 2, nil, nil).Run()
	return screener.New(files, minSize, nil).Run()
}

// view is a compact, root-relative rendering of a record.
type view struct {
	Kind   types.Kind
	Size   int64
	Hashed bool
	Paths  []string
}

func views(h *testfs.Harness, res types.Result) []view {
	var out []view
	for _, r := range res.Records() {
		out = append(out, view{Kind: r.Kind, Size: r.Size, Hashed: r.Hashed, Paths: h.Logical(r.Paths)})
	}
	return out
}

// failing wraps a Hasher and fails for selected paths.
type failing struct {
	hasher.Hasher
	fail map[string]bool
}

var errInjected = errors.New("injected read failure")

func (f failing) HashFile(path string) (types.Digest, error) {
	if f.fail[path] {
		return types.Digest{}, errInjected
	}
	return f.Hasher.HashFile(path)
}

// =============================================================================
// Section 1: Scenarios
// =============================================================================

func TestDuplicatesOnly(t *testing.T) {
	h := testfs.New(t, xyTree())

	res := New(index(t, 0, h.Path("/pos")), Options{}).Run()

	assert.Equal(t, []view{
		{Kind: types.KindDuplicate, Size: 1, Hashed: true, Paths: []string{"/pos/a", "/pos/b"}},
	}, views(h, res))
}

func TestShowUniquesAddsSingletonBins(t *testing.T) {
	h := testfs.New(t, xyTree())

	res := New(index(t, 0, h.Path("/pos")), Options{ShowUniques: true}).Run()

	got := views(h, res)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []view{
		{Kind: types.KindDuplicate, Size: 1, Hashed: true, Paths: []string{"/pos/a", "/pos/b"}},
		{Kind: types.KindDuplicate, Size: 1, Hashed: true, Paths: []string{"/pos/c"}},
	}, got)
}

func TestShowUniquesReportsUnhashedSingletonGroup(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"only"}, Chunks: []testfs.Chunk{{Pattern: 'Q', Size: "7"}}},
		},
	}}})

	res := New(index(t, 0, h.Path("/pos")), Options{ShowUniques: true}).Run()

	require.Len(t, res.Records(), 1)
	rec := res.Records()[0]
	assert.Equal(t, types.KindUnique, rec.Kind)
	assert.Empty(t, rec.Label())
	assert.Equal(t, []string{"/pos/only"}, h.Logical(rec.Paths))
}

func TestCeilingBoundary(t *testing.T) {
	h := testfs.New(t, xyTree())
	groups := index(t, 0, h.Path("/pos"))

	tests := []struct {
		name    string
		ceiling int64
		want    types.Kind
	}{
		{"unlimited", 0, types.KindDuplicate},
		{"size equal to ceiling is compared", 1, types.KindDuplicate},
		{"ceiling well above size", 1 << 20, types.KindDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(groups, Options{Ceiling: tt.ceiling}).Run()
			require.Len(t, res.Records(), 1)
			assert.Equal(t, tt.want, res.Records()[0].Kind)
		})
	}
}

func TestCeilingBelowSizeListsWholeGroup(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "2"}}},
			{Path: []string{"b"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "2"}}},
			{Path: []string{"c"}, Chunks: []testfs.Chunk{{Pattern: 'Y', Size: "2"}}},
		},
	}}})
	counter := hasher.NewCounting(nil)

	res := New(index(t, 0, h.Path("/pos")), Options{Ceiling: 1, Hasher: counter}).Run()

	assert.Equal(t, []view{
		{Kind: types.KindAvoided, Size: 2, Paths: []string{"/pos/a", "/pos/b", "/pos/c"}},
	}, views(h, res))
	assert.Zero(t, counter.Calls())
	assert.Empty(t, res.Records()[0].Label())
}

func TestExclusionShrinksBin(t *testing.T) {
	tree := xyTree()
	tree.Volumes = append(tree.Volumes, testfs.Volume{
		MountPoint: "/neg",
		Files: []testfs.File{
			{Path: []string{"copy-of-a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
		},
	})
	h := testfs.New(t, tree)
	groups := index(t, 0, h.Path("/pos"))
	idx := exclusion.Build([]string{h.Path("/neg")}, exclusion.Options{Workers: 1})

	t.Run("singletons hidden", func(t *testing.T) {
		res := New(groups, Options{Exclusion: idx}).Run()
		assert.Empty(t, res.Sizes)
	})

	t.Run("singletons visible", func(t *testing.T) {
		res := New(groups, Options{Exclusion: idx, AlwaysHash: true, ShowUniques: true}).Run()
		assert.Equal(t, []view{
			{Kind: types.KindDuplicate, Size: 1, Hashed: true, Paths: []string{"/pos/c"}},
		}, views(h, res))
	})
}

func TestMinSizeAboveEverythingIsEmpty(t *testing.T) {
	h := testfs.New(t, xyTree())

	res := New(index(t, 2, h.Path("/pos")), Options{ShowUniques: true, AlwaysHash: true}).Run()

	assert.Empty(t, res.Sizes)
	assert.Empty(t, res.Records())
}

// =============================================================================
// Section 2: Hashing Boundaries
// =============================================================================

func TestSingletonNeverHashedWithoutAlwaysHash(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"one"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1"}}},
			{Path: []string{"two"}, Chunks: []testfs.Chunk{{Pattern: 'B', Size: "2"}}},
		},
	}}})
	groups := index(t, 0, h.Path("/pos"))

	for _, show := range []bool{false, true} {
		counter := hasher.NewCounting(nil)
		New(groups, Options{ShowUniques: show, Hasher: counter}).Run()
		assert.Zero(t, counter.Calls(), "showUniques=%v", show)
	}

	counter := hasher.NewCounting(nil)
	res := New(groups, Options{AlwaysHash: true, ShowUniques: true, Hasher: counter}).Run()
	assert.Equal(t, int64(2), counter.Calls())
	for _, r := range res.Records() {
		assert.True(t, r.Hashed)
		assert.Len(t, r.Label(), 64)
	}
}

func TestAlwaysHashSingletonHiddenWithoutShowUniques(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"one"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1"}}},
		},
	}}})
	counter := hasher.NewCounting(nil)

	res := New(index(t, 0, h.Path("/pos")), Options{AlwaysHash: true, Hasher: counter}).Run()

	assert.Equal(t, int64(1), counter.Calls())
	assert.Empty(t, res.Sizes)
}

func TestSameSizeDifferentContentSplitsBins(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"p1"}, Chunks: []testfs.Chunk{{Pattern: 'P', Size: "4KiB"}}},
			{Path: []string{"p2"}, Chunks: []testfs.Chunk{{Pattern: 'P', Size: "4KiB"}}},
			{Path: []string{"q1"}, Chunks: []testfs.Chunk{{Pattern: 'P', Size: "4095"}, {Pattern: 'Q', Size: "1"}}},
			{Path: []string{"q2"}, Chunks: []testfs.Chunk{{Pattern: 'P', Size: "4095"}, {Pattern: 'Q', Size: "1"}}},
		},
	}}})

	res := New(index(t, 0, h.Path("/pos")), Options{}).Run()

	recs := res.Records()
	require.Len(t, recs, 2)
	assert.Less(t, recs[0].Digest.Key(), recs[1].Digest.Key(), "bins are in ascending digest order")
	assert.ElementsMatch(t,
		[][]string{{"/pos/p1", "/pos/p2"}, {"/pos/q1", "/pos/q2"}},
		[][]string{h.Logical(recs[0].Paths), h.Logical(recs[1].Paths)})
}

// =============================================================================
// Section 3: Read Errors
// =============================================================================

func TestReadErrorExcludesFileAndReachesSink(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "3"}}},
			{Path: []string{"b"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "3"}}},
			{Path: []string{"bad"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "3"}}},
			{Path: []string{"big1"}, Chunks: []testfs.Chunk{{Pattern: 'Z', Size: "5"}}},
			{Path: []string{"big2"}, Chunks: []testfs.Chunk{{Pattern: 'Z', Size: "5"}}},
		},
	}}})
	sink := &Collect{}
	fh := failing{Hasher: hasher.SHA256{}, fail: map[string]bool{
		h.Path("/pos/bad"):  true,
		h.Path("/pos/big2"): true,
	}}

	res := New(index(t, 0, h.Path("/pos")), Options{Hasher: fh, Sink: sink, Workers: 4}).Run()

	assert.Equal(t, []view{
		{Kind: types.KindDuplicate, Size: 3, Hashed: true, Paths: []string{"/pos/a", "/pos/b"}},
	}, views(h, res))

	require.Len(t, res.Sizes, 2, "size 5 is reported for its error alone")
	assert.Empty(t, res.Sizes[1].Records)

	require.Len(t, sink.Errors, 2)
	assert.Equal(t, int64(3), sink.Errors[0].Size)
	assert.Equal(t, h.Path("/pos/bad"), sink.Errors[0].Path)
	assert.Equal(t, int64(5), sink.Errors[1].Size)
	assert.ErrorIs(t, sink.Errors[1], errInjected)
	assert.Equal(t, sink.Errors, res.Errors())
}

func TestUnreadableFileIsReportedNotFatal(t *testing.T) {
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/pos",
		Files: []testfs.File{
			{Path: []string{"a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "3"}}},
			{Path: []string{"locked"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "3"}}, Unreadable: true},
		},
	}}})
	if os.Getuid() == 0 {
		t.Skip("root can read anything")
	}

	res := New(index(t, 0, h.Path("/pos")), Options{}).Run()

	require.Len(t, res.Errors(), 1)
	assert.Equal(t, h.Path("/pos/locked"), res.Errors()[0].Path)
	assert.Empty(t, res.Records(), "the readable survivor is a singleton bin")
}

func TestErrorSinkFunc(t *testing.T) {
	var got []string
	sink := ErrorSinkFunc(func(fe types.FileError) { got = append(got, fe.Path) })
	sink.ReadError(types.FileError{Path: "x"})
	Discard.ReadError(types.FileError{Path: "y"})
	LogSink{}.ReadError(types.FileError{Path: "z"})
	assert.Equal(t, []string{"x"}, got)
}

// =============================================================================
// Section 4: Properties
// =============================================================================

func manySizesTree() testfs.FileTree {
	var files []testfs.File
	for size := 1; size <= 20; size++ {
		for n := range 3 {
			pattern := 'A' + rune(n%2)
			files = append(files, testfs.File{
				Path:   []string{fmt.Sprintf("s%02d/f%d", size, n)},
				Chunks: []testfs.Chunk{{Pattern: pattern, Size: fmt.Sprint(size)}},
			})
		}
	}
	return testfs.FileTree{Volumes: []testfs.Volume{{MountPoint: "/pos", Files: files}}}
}

func TestIdempotentAcrossRunsAndWorkerCounts(t *testing.T) {
	h := testfs.New(t, manySizesTree())
	opts := Options{ShowUniques: true}

	opts.Workers = 1
	first := New(index(t, 0, h.Path("/pos")), opts).Run()
	opts.Workers = 8
	second := New(index(t, 0, h.Path("/pos")), opts).Run()

	assert.Equal(t, first, second)
}

func TestOrderingSizesAscendingAndBinsDisjoint(t *testing.T) {
	h := testfs.New(t, manySizesTree())
	groups := index(t, 0, h.Path("/pos"))

	res := New(groups, Options{ShowUniques: true, Workers: 4}).Run()

	require.Len(t, res.Sizes, 20)
	seen := make(map[string]bool)
	for i, sr := range res.Sizes {
		if i > 0 {
			assert.Less(t, res.Sizes[i-1].Size, sr.Size)
		}
		var members []string
		for j, r := range sr.Records {
			if j > 0 {
				assert.Less(t, sr.Records[j-1].Digest.Key(), r.Digest.Key())
			}
			assert.True(t, slices.IsSorted(r.Paths))
			for _, p := range r.Paths {
				assert.False(t, seen[p], "path %s in more than one bin", p)
				seen[p] = true
			}
			members = append(members, r.Paths...)
		}
		slices.Sort(members)
		assert.Equal(t, groupsOfSize(groups, sr.Size).First().Paths.Items(), members,
			"bins of size %d cover the whole group", sr.Size)
	}
}

func TestExclusionIsMonotonic(t *testing.T) {
	tree := manySizesTree()
	tree.Volumes = append(tree.Volumes, testfs.Volume{
		MountPoint: "/neg",
		Files: []testfs.File{
			{Path: []string{"match"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "5"}}},
		},
	})
	h := testfs.New(t, tree)
	groups := index(t, 0, h.Path("/pos"))
	opts := Options{AlwaysHash: true, ShowUniques: true, Workers: 4}

	before := New(groups, opts).Run()
	opts.Exclusion = exclusion.Build([]string{h.Path("/neg")}, exclusion.Options{Workers: 1})
	after := New(groups, opts).Run()

	excluded := []string{h.Path("/pos/s05/f0"), h.Path("/pos/s05/f2")}
	for _, r := range after.Records() {
		for _, p := range excluded {
			assert.NotContains(t, r.Paths, p)
		}
	}

	// Every remaining bin existed before; nothing new appears.
	prior := make(map[string]bool)
	for _, r := range before.Records() {
		prior[r.Digest.Key()] = true
	}
	for _, r := range after.Records() {
		assert.True(t, prior[r.Digest.Key()])
	}
	assert.Len(t, after.Records(), len(before.Records())-1)
}

// groupsOfSize filters a size index to a single size.
func groupsOfSize(groups types.SizeGroups, size int64) types.SizeGroups {
	var out []types.SizeGroup
	for _, g := range groups.Items() {
		if g.Size == size {
			out = append(out, g)
		}
	}
	return types.NewSizeGroups(out)
}
