package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1k", "1M", "1MB", "1GiB", etc.
//
// A bare single-letter suffix (k, M, G, T in either case) is binary, so "1k"
// is 1024 and "32M" is 32MiB. Two-letter SI suffixes such as "KB" keep their
// decimal meaning.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(binarySuffix(s))
	if err != nil {
		return 0, err
	}
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size too large: %s", s)
	}
	return int64(bytes), nil
}

// binarySuffix rewrites a trailing bare k/M/G/T into its IEC form.
func binarySuffix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || !strings.ContainsRune("kKmMgGtT", rune(s[len(s)-1])) {
		return s
	}
	switch prev := s[len(s)-2]; {
	case prev >= '0' && prev <= '9', prev == '.', prev == ' ':
		return s + "iB"
	}
	return s
}
