// Package hasher computes full-content SHA-256 digests with bounded memory.
package hasher

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ivoronin/dupes/internal/types"
)

// blockSize is the read buffer size (64KB).
const blockSize = 64 * 1024

// Hasher computes the digest of a file by path.
type Hasher interface {
	HashFile(path string) (types.Digest, error)
}

// SHA256 is the production Hasher.
type SHA256 struct{}

// HashFile opens path, streams it through HashReader and closes it again,
// whether or not hashing succeeded.
func (SHA256) HashFile(path string) (types.Digest, error) {
	return HashFile(path)
}

// HashFile hashes the complete content of the file at path.
func HashFile(path string) (d types.Digest, err error) {
	f, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer func() { _ = f.Close() }()

	return HashReader(f)
}

// HashReader consumes r to EOF through a fixed-size buffer. The digest does
// not depend on how the reader splits its data into chunks. On a read error
// no digest is returned.
func HashReader(r io.Reader) (types.Digest, error) {
	var d types.Digest
	h := sha256.New()
	buf := make([]byte, blockSize)
	// Hide WriterTo so the copy always goes through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return d, fmt.Errorf("read: %w", err)
	}
	h.Sum(d[:0])
	return d, nil
}

// Counting wraps a Hasher and counts HashFile calls. Safe for concurrent use.
type Counting struct {
	Hasher Hasher
	calls  atomic.Int64
}

// NewCounting wraps h, or the SHA256 hasher when h is nil.
func NewCounting(h Hasher) *Counting {
	if h == nil {
		h = SHA256{}
	}
	return &Counting{Hasher: h}
}

// HashFile counts the call and delegates.
func (c *Counting) HashFile(path string) (types.Digest, error) {
	c.calls.Add(1)
	return c.Hasher.HashFile(path)
}

// Calls returns the number of HashFile invocations so far.
func (c *Counting) Calls() int64 { return c.calls.Load() }
