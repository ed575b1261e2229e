// Package config loads dupes settings and resolves them into pipeline options.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional YAML file, DUPES_* environment variables and command-line flags.
//
//	v := viper.New()
//	config.BindFlags(v, cmd.Flags())
//	cfg, err := config.Load(v, cfgFile)
//	...
//	opts, err := config.Resolve(cfg)
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultCeiling = "32MiB"
	DefaultMinSize = "0"
	DefaultOutput  = "text"
)

// DefaultDirs is the positive root list used when none is given.
var DefaultDirs = []string{"."}

// Config is the raw, unvalidated configuration.
type Config struct {
	Dirs              []string `mapstructure:"dirs"`
	AntiDirs          []string `mapstructure:"anti_dirs"`
	Exclude           []string `mapstructure:"exclude"`
	IgnoreSmallerThan string   `mapstructure:"ignore_smaller_than"`
	AvoidCompareAbove string   `mapstructure:"avoid_compare_if_larger"`
	AlwaysHash        bool     `mapstructure:"always_hash"`
	ShowNonDuplicates bool     `mapstructure:"show_non_duplicates"`
	Output            string   `mapstructure:"output"`
	EmitJSON          bool     `mapstructure:"emit_json"`
	Workers           int      `mapstructure:"workers"`
	EagerExclusion    bool     `mapstructure:"eager_exclusion"`
	NoProgress        bool     `mapstructure:"no_progress"`
	Verbose           bool     `mapstructure:"verbose"`
}

// flagKeys maps viper keys to the flag names that set them.
var flagKeys = map[string]string{
	"dirs":                    "dir",
	"anti_dirs":               "anti-dir",
	"exclude":                 "exclude-path",
	"ignore_smaller_than":     "ignore-smaller-than",
	"avoid_compare_if_larger": "avoid-compare-if-larger",
	"always_hash":             "always-hash",
	"show_non_duplicates":     "show-non-duplicates",
	"output":                  "output",
	"emit_json":               "emit-json",
	"workers":                 "workers",
	"eager_exclusion":         "eager-exclusion",
	"no_progress":             "no-progress",
	"verbose":                 "verbose",
}

// BindFlags binds every flag present in fs to its viper key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dirs", DefaultDirs)
	v.SetDefault("anti_dirs", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("ignore_smaller_than", DefaultMinSize)
	v.SetDefault("avoid_compare_if_larger", DefaultCeiling)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("workers", runtime.NumCPU())
}

// Load reads configuration into a Config. A non-empty cfgFile must exist;
// without one, no file is read.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("DUPES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
