package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ivoronin/dupes/internal/config"
	"github.com/ivoronin/dupes/internal/engine"
	"github.com/ivoronin/dupes/internal/exclusion"
	"github.com/ivoronin/dupes/internal/logging"
	"github.com/ivoronin/dupes/internal/report"
	"github.com/ivoronin/dupes/internal/scanner"
	"github.com/ivoronin/dupes/internal/screener"
	"github.com/ivoronin/dupes/internal/types"
)

// newRootCmd creates the dupes command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Find duplicate files (according to SHA-256)",
		Long: `Groups files by size, then hashes only the sizes shared by several files
and lists the files whose content is identical.

With one or more negative directories (-D), files whose content also exists
under a negative directory are left out, and every other file is listed:
the result is the content present under -d but missing from -D.

Examples:
  dupes                          # duplicates under the current directory
  dupes -d ~/photos -i 100k      # ignore files smaller than 100 kB
  dupes -d new -D backup         # what in new/ is not in backup/
  dupes -d . -e '/\.git$' -j     # skip .git directories, JSON output`,
		Version:       version + " (" + commit + ")",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			opts, err := config.Resolve(cfg)
			if err != nil {
				return err
			}
			return runDupes(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "YAML config file")
	f.StringArrayP("dir", "d", nil, "Base directory (repeatable, default .)")
	f.StringArrayP("anti-dir", "D", nil, "Negative directory (repeatable): leave out files whose content is present there (implies -A and -S)")
	f.StringArrayP("exclude-path", "e", nil, "Regular expression of paths to skip (repeatable); applies to -d and -D, and excluded directories are not entered")
	f.StringP("ignore-smaller-than", "i", "", "Ignore files smaller than this size (e.g. 100, 1k, 4KiB)")
	f.StringP("avoid-compare-if-larger", "a", "", "Compare files larger than this by size only (default 32MiB, 0 for unlimited)")
	f.BoolP("always-hash", "A", false, "Hash even sizes held by a single file (implies -a 0)")
	f.BoolP("show-non-duplicates", "S", false, "List unique files too")
	f.StringP("output", "o", "", "Output format: "+strings.Join(report.Available(), ", ")+" (default text)")
	f.BoolP("emit-json", "j", false, "Shorthand for --output json")
	f.IntP("workers", "w", runtime.NumCPU(), "Number of parallel workers")
	f.Bool("eager-exclusion", false, "Hash the whole negative tree before comparing")
	f.Bool("no-progress", false, "Disable progress output")
	f.BoolP("verbose", "v", false, "Debug logging")
	f.SetNormalizeFunc(normalizeFlagName)

	return cmd
}

// normalizeFlagName accepts underscore spellings such as --anti_dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// runDupes executes the pipeline: exclusion index → scan → screen → compare → report.
func runDupes(opts *config.Options, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, logging.Config{Level: opts.LogLevel})
	var progressOut io.Writer
	if opts.ShowProgress {
		progressOut = stderr
	}
	logger.Debug("starting", "roots", opts.Roots, "negative", opts.NegativeRoots,
		"exclude", opts.Filter.String(), "min_size", opts.MinSize, "ceiling", opts.Ceiling,
		"workers", opts.Workers)

	formatter, err := report.Get(opts.Output)
	if err != nil {
		return err
	}

	// Phase 1: Index the negative set (digests stay deferred unless eager)
	idx := exclusion.Build(opts.NegativeRoots, exclusion.Options{
		Filter:   opts.Filter,
		Workers:  opts.Workers,
		Progress: progressOut,
		Logger:   logger,
	})
	if opts.EagerExclusion {
		idx.Prime(opts.Workers)
	}

	// Phase 2: Scan positive roots
	files := scanner.New(opts.Roots, opts.Filter, opts.Workers, progressOut, logger).Run()

	// Phase 3: Group by size
	groups := screener.New(files, opts.MinSize, progressOut).Run()

	// Phase 4: Hash ambiguous sizes, apply exclusion, bin
	result := engine.New(groups, engine.Options{
		Ceiling:     opts.Ceiling,
		AlwaysHash:  opts.AlwaysHash,
		ShowUniques: opts.ShowUniques,
		Workers:     opts.Workers,
		Progress:    progressOut,
		Exclusion:   idx,
		Sink:        engine.LogSink{Logger: logging.Component(logger, "engine")},
		Logger:      logger,
	}).Run()

	logSummary(logger, result)

	// Phase 5: Render
	if err := formatter.Format(stdout, result); err != nil {
		return fmt.Errorf("write %s output: %w", opts.Output, err)
	}
	return nil
}

func logSummary(logger *log.Logger, r types.Result) {
	var dup, uniq, avoided int
	for _, rec := range r.Records() {
		switch rec.Kind {
		case types.KindDuplicate:
			dup++
		case types.KindUnique:
			uniq++
		case types.KindAvoided:
			avoided++
		}
	}
	logger.Debug("done", "sizes", len(r.Sizes), "bins", dup, "unique", uniq, "avoided", avoided, "errors", len(r.Errors()))
}
