package testfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Harness owns a sown FileTree under t.TempDir().
type Harness struct {
	t    *testing.T
	root string
}

// New creates a temporary directory, sows given into it and returns the harness.
// Unreadable files get their permissions restored on cleanup so TempDir
// removal succeeds.
func New(t *testing.T, given FileTree) *Harness {
	t.Helper()

	h := &Harness{t: t, root: t.TempDir()}
	if err := SowFileTree(h.root, given); err != nil {
		t.Fatalf("failed to setup files: %v", err)
	}

	t.Cleanup(func() {
		for _, vol := range given.Volumes {
			for _, f := range vol.Files {
				if f.Unreadable && len(f.Path) > 0 {
					_ = os.Chmod(filepath.Join(h.root, vol.MountPoint, f.Path[0]), 0o644)
				}
			}
		}
	})
	return h
}

// Root returns the temporary directory root path.
func (h *Harness) Root() string { return h.root }

// Path maps a logical path such as "/pos/a" to its location on disk.
func (h *Harness) Path(logical string) string {
	return filepath.Join(h.root, logical)
}

// Logical maps on-disk paths back to logical paths, preserving order.
func (h *Harness) Logical(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = "/" + strings.TrimPrefix(strings.TrimPrefix(p, h.root), "/")
	}
	return out
}
