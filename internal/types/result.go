package types

import (
	"crypto/sha256"
	"fmt"
)

// Digest is the SHA-256 of a file's complete content.
type Digest [sha256.Size]byte

// String returns the digest as uppercase hex.
func (d Digest) String() string { return fmt.Sprintf("%X", d[:]) }

// Key returns the digest as a string usable for ordering and map keys.
// Byte-wise string comparison matches digest order.
func (d Digest) Key() string { return string(d[:]) }

// Kind classifies a reported record.
type Kind int

const (
	// KindAvoided lists a whole size group that was not hashed because it is above the ceiling.
	KindAvoided Kind = iota
	// KindUnique lists a file whose size is shared by no other file.
	KindUnique
	// KindDuplicate lists a bin of files with identical size and digest.
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindAvoided:
		return "avoided"
	case KindUnique:
		return "unique"
	case KindDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Record is one reported entry: a size, an optional digest and a path set.
type Record struct {
	Kind   Kind
	Size   int64
	Hashed bool   // Digest is meaningful
	Digest Digest // zero unless Hashed
	Paths  []string
}

// Label returns the uppercase hex digest, or "" when the record was never hashed.
func (r Record) Label() string {
	if !r.Hashed {
		return ""
	}
	return r.Digest.String()
}

// FileError is a per-file read failure tied to the size group being processed.
type FileError struct {
	Size int64
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// SizeReport holds everything reported for one size: records in digest order
// and read errors in path order.
type SizeReport struct {
	Size    int64
	Records []Record
	Errors  []FileError
}

// Empty reports whether nothing at all is reported for this size.
func (s SizeReport) Empty() bool { return len(s.Records) == 0 && len(s.Errors) == 0 }

// Result is the engine output: size reports in ascending size order.
type Result struct {
	Sizes []SizeReport
}

// Records returns every record in report order.
func (r Result) Records() []Record {
	var out []Record
	for _, s := range r.Sizes {
		out = append(out, s.Records...)
	}
	return out
}

// Errors returns every read error in report order.
func (r Result) Errors() []FileError {
	var out []FileError
	for _, s := range r.Sizes {
		out = append(out, s.Errors...)
	}
	return out
}
