package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ivoronin/dupes/internal/pathfilter"
	"github.com/ivoronin/dupes/internal/report"
)

// ErrInvalidOutput is returned for an output mode no formatter handles.
var ErrInvalidOutput = errors.New("invalid output format")

// ErrInvalidWorkers is returned when fewer than one worker is requested.
var ErrInvalidWorkers = errors.New("workers must be at least 1")

// Options is a fully validated run configuration.
type Options struct {
	Roots          []string
	NegativeRoots  []string
	Filter         *pathfilter.Filter
	MinSize        int64
	Ceiling        int64 // 0 means no ceiling
	AlwaysHash     bool
	ShowUniques    bool
	Output         string
	Workers        int
	EagerExclusion bool
	ShowProgress   bool
	LogLevel       string
}

// Resolve validates cfg and applies the implied settings:
//   - negative roots imply AlwaysHash and ShowUniques
//   - AlwaysHash disables the ceiling
//   - a ceiling of 0 means unlimited
//   - structured output disables progress
//
// It touches no filesystem state, so every error it returns happens before
// any walk begins.
func Resolve(cfg *Config) (*Options, error) {
	opts := &Options{
		Roots:          slices.Clone(cfg.Dirs),
		NegativeRoots:  slices.Clone(cfg.AntiDirs),
		AlwaysHash:     cfg.AlwaysHash || len(cfg.AntiDirs) > 0,
		ShowUniques:    cfg.ShowNonDuplicates || len(cfg.AntiDirs) > 0,
		Output:         cfg.Output,
		Workers:        cfg.Workers,
		EagerExclusion: cfg.EagerExclusion,
		LogLevel:       "info",
	}
	if len(opts.Roots) == 0 {
		opts.Roots = slices.Clone(DefaultDirs)
	}
	if cfg.Verbose {
		opts.LogLevel = "debug"
	}

	var err error
	if opts.Filter, err = pathfilter.New(cfg.Exclude); err != nil {
		return nil, fmt.Errorf("invalid --exclude-path: %w", err)
	}

	if opts.MinSize, err = parseSize(orDefault(cfg.IgnoreSmallerThan, DefaultMinSize)); err != nil {
		return nil, fmt.Errorf("invalid --ignore-smaller-than: %w", err)
	}

	if opts.Ceiling, err = parseSize(orDefault(cfg.AvoidCompareAbove, DefaultCeiling)); err != nil {
		return nil, fmt.Errorf("invalid --avoid-compare-if-larger: %w", err)
	}
	if opts.AlwaysHash {
		opts.Ceiling = 0
	}

	if cfg.EmitJSON {
		opts.Output = "json"
	}
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}
	if !slices.Contains(report.Available(), opts.Output) {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidOutput, opts.Output, report.Available())
	}

	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, opts.Workers)
	}

	opts.ShowProgress = !cfg.NoProgress && !report.Structured(opts.Output)
	return opts, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
