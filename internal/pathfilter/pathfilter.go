// Package pathfilter decides which paths a walk may visit.
//
// A Filter holds an optional exclusion expression built from one or more
// regular expressions. The same predicate prunes directory descent and drops
// individual files, so an excluded directory is never entered.
package pathfilter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Filter is an immutable path predicate. The zero value and a nil *Filter
// allow every valid UTF-8 path.
type Filter struct {
	re *regexp.Regexp
}

// New compiles patterns into a single alternation. An empty pattern list
// yields a filter that allows every valid UTF-8 path.
func New(patterns []string) (*Filter, error) {
	if len(patterns) == 0 {
		return &Filter{}, nil
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	alts := make([]string, len(patterns))
	for i, p := range patterns {
		alts[i] = "(?:" + p + ")"
	}
	re, err := regexp.Compile(strings.Join(alts, "|"))
	if err != nil {
		return nil, fmt.Errorf("exclude expression: %w", err)
	}
	return &Filter{re: re}, nil
}

// MustNew is like New but panics on an invalid pattern. Intended for tests.
func MustNew(patterns ...string) *Filter {
	f, err := New(patterns)
	if err != nil {
		panic(err)
	}
	return f
}

// Allows reports whether path is not excluded. Paths that are not valid
// UTF-8 cannot be matched as text and are always excluded, with or without
// patterns.
func (f *Filter) Allows(path string) bool {
	if !utf8.ValidString(path) {
		return false
	}
	if f == nil || f.re == nil {
		return true
	}
	return !f.re.MatchString(path)
}

// String returns the combined expression, or "" when nothing is excluded.
func (f *Filter) String() string {
	if f == nil || f.re == nil {
		return ""
	}
	return f.re.String()
}
