// Package testfs sows fixture directory trees for tests.
//
// Tests describe a tree declaratively and the Harness creates it under
// t.TempDir():
//
//	given := testfs.FileTree{
//	    Volumes: []testfs.Volume{
//	        {
//	            MountPoint: "/pos",
//	            Files: []testfs.File{
//	                {Path: []string{"a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
//	                {Path: []string{"b"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
//	            },
//	        },
//	        {
//	            MountPoint: "/neg",
//	            Files: []testfs.File{
//	                {Path: []string{"copy-of-a"}, Chunks: []testfs.Chunk{{Pattern: 'X', Size: "1"}}},
//	            },
//	        },
//	    },
//	}
//	h := testfs.New(t, given)
//	result := run(h.Path("/pos"), h.Path("/neg"))
//	assert.Equal(t, []string{"/pos/a", "/pos/b"}, h.Logical(paths))
//
// Subdirectories are created automatically from file paths (mkdir -p semantics).
// File paths are relative to the volume mount point.
package testfs

import "github.com/dustin/go-humanize"

// FileTree describes a filesystem state to create.
type FileTree struct {
	Volumes []Volume `json:"volumes"`
}

// Volume is a directory subtree rooted at MountPoint (relative to the harness root).
type Volume struct {
	// MountPoint is the logical absolute path of this subtree, e.g. "/pos".
	MountPoint string `json:"mountPoint"`

	// Files in this volume (regular files, possibly hardlinked).
	Files []File `json:"files,omitempty"`

	// Symlinks in this volume.
	Symlinks []Symlink `json:"symlinks,omitempty"`

	// Dirs are extra empty directories to create.
	Dirs []string `json:"dirs,omitempty"`
}

// File defines a regular file, possibly with hardlinks.
//
//   - Path[0] is created with content from Chunks
//   - Path[1:] are hardlinked to Path[0]
//
// Same chunks = same content = same digest.
type File struct {
	// Path contains one or more paths relative to the volume.
	Path []string `json:"path"`

	// Chunks specifies file content as a sequence of filled regions.
	Chunks []Chunk `json:"chunks,omitempty"`

	// Unreadable removes all permission bits after the file is written,
	// so opening it for hashing fails (unless running as root).
	Unreadable bool `json:"unreadable,omitempty"`
}

// Chunk defines a region of file content filled with a pattern byte.
type Chunk struct {
	// Pattern is the fill byte for this chunk region.
	Pattern rune `json:"pattern"`

	// Size accepts go-humanize notation: "1", "100", "1KiB", "1MiB".
	Size string `json:"size"`
}

// TotalSize calculates the sum of all chunk sizes in bytes.
func (f *File) TotalSize() int64 {
	var total int64
	for _, c := range f.Chunks {
		size, _ := humanize.ParseBytes(c.Size)
		total += int64(size)
	}
	return total
}

// Symlink defines a symbolic link at Path (relative to the volume) pointing to Target.
type Symlink struct {
	Path   string `json:"path"`
	Target string `json:"target"`
}
