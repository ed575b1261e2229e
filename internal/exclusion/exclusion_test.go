//go:build unix

package exclusion

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivoronin/dupes/internal/hasher"
	"github.com/ivoronin/dupes/internal/pathfilter"
	"github.com/ivoronin/dupes/internal/testfs"
	"github.com/ivoronin/dupes/internal/types"
)

func negativeTree() testfs.FileTree {
	return testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/neg",
				Files: []testfs.File{
					{Path: []string{"x1"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
					{Path: []string{"y3"}, Chunks: []testfs.Chunk{{Pattern: 'Y', Size: "3"}}},
					{Path: []string{"skip/z3"}, Chunks: []testfs.Chunk{{Pattern: 'Z', Size: "3"}}},
				},
			},
		},
	}
}

func digestOf(t *testing.T, path string) types.Digest {
	t.Helper()
	d, err := hasher.HashFile(path)
	require.NoError(t, err)
	return d
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Section 1: Membership
// =============================================================================

func TestContainsMatchesBySizeAndDigest(t *testing.T) {
	h := testfs.New(t, negativeTree())
	idx := Build([]string{h.Path("/neg")}, Options{Workers: 2})

	require.True(t, idx.Enabled())
	assert.True(t, idx.Has(1))
	assert.True(t, idx.Has(3))
	assert.False(t, idx.Has(2))

	dir := t.TempDir()
	assert.True(t, idx.Contains(1, digestOf(t, writeFile(t, dir+"/x", "X"))))
	assert.False(t, idx.Contains(1, digestOf(t, writeFile(t, dir+"/q", "Q"))))
	assert.True(t, idx.Contains(3, digestOf(t, writeFile(t, dir+"/zzz", "ZZZ"))))
	assert.False(t, idx.Contains(2, digestOf(t, writeFile(t, dir+"/xx", "XX"))))
}

func TestBuildAppliesPathFilter(t *testing.T) {
	h := testfs.New(t, negativeTree())
	idx := Build([]string{h.Path("/neg")}, Options{Filter: pathfilter.MustNew("/skip$"), Workers: 2})

	dir := t.TempDir()
	assert.True(t, idx.Contains(3, digestOf(t, writeFile(t, dir+"/yyy", "YYY"))))
	assert.False(t, idx.Contains(3, digestOf(t, writeFile(t, dir+"/zzz", "ZZZ"))))
}

func TestEmptyIndex(t *testing.T) {
	idx := Build(nil, Options{})

	assert.False(t, idx.Enabled())
	assert.False(t, idx.Contains(1, types.Digest{}))

	var nilIdx *Index
	assert.False(t, nilIdx.Enabled())
	assert.False(t, nilIdx.Contains(1, types.Digest{}))
}

// =============================================================================
// Section 2: Deferred and Eager Hashing
// =============================================================================

func TestDigestsComputedOnlyForQueriedSizes(t *testing.T) {
	h := testfs.New(t, negativeTree())
	counter := hasher.NewCounting(nil)
	idx := Build([]string{h.Path("/neg")}, Options{Hasher: counter, Workers: 2})

	assert.Zero(t, counter.Calls(), "building must not hash")

	idx.Contains(1, types.Digest{})
	assert.Equal(t, int64(1), counter.Calls())

	// Memoised: repeated queries for the same size do not re-hash.
	idx.Contains(1, types.Digest{})
	idx.Contains(1, types.Digest{1})
	assert.Equal(t, int64(1), counter.Calls())

	// Sizes absent from the negative set never hash.
	idx.Contains(99, types.Digest{})
	assert.Equal(t, int64(1), counter.Calls())
}

func TestPrimeHashesEverything(t *testing.T) {
	h := testfs.New(t, negativeTree())
	counter := hasher.NewCounting(nil)
	idx := Build([]string{h.Path("/neg")}, Options{Hasher: counter, Workers: 2})

	idx.Prime(4)
	assert.Equal(t, int64(3), counter.Calls())

	idx.Contains(3, types.Digest{})
	assert.Equal(t, int64(3), counter.Calls())
}

func TestConcurrentQueriesHashOnce(t *testing.T) {
	h := testfs.New(t, negativeTree())
	counter := hasher.NewCounting(nil)
	idx := Build([]string{h.Path("/neg")}, Options{Hasher: counter, Workers: 2})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx.Contains(3, types.Digest{})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2), counter.Calls())
}

// =============================================================================
// Section 3: Best-Effort Failures
// =============================================================================

func TestUnreadableNegativeFileExcludesNothing(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read anything")
	}
	h := testfs.New(t, testfs.FileTree{Volumes: []testfs.Volume{{
		MountPoint: "/neg",
		Files: []testfs.File{
			{Path: []string{"locked"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}, Unreadable: true},
		},
	}}})
	idx := Build([]string{h.Path("/neg")}, Options{Workers: 1})

	dir := t.TempDir()
	assert.True(t, idx.Has(1))
	assert.False(t, idx.Contains(1, digestOf(t, writeFile(t, dir+"/x", "X"))))
}

func TestFromGroups(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir+"/a", "abc")
	groups := types.NewSizeGroups([]types.SizeGroup{{Size: 3, Paths: types.NewPaths([]string{p})}})

	idx := FromGroups(groups, nil, nil)
	assert.True(t, idx.Contains(3, digestOf(t, p)))
}
