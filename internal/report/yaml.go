package report

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ivoronin/dupes/internal/types"
)

// yamlOutput is the full YAML document.
type yamlOutput struct {
	Records []yamlRecord `yaml:"records"`
	Errors  []yamlError  `yaml:"errors,omitempty"`
}

type yamlRecord struct {
	Kind   string   `yaml:"kind"`
	Size   int64    `yaml:"size"`
	Digest string   `yaml:"digest,omitempty"`
	Paths  []string `yaml:"paths"`
}

type yamlError struct {
	Size  int64  `yaml:"size"`
	Path  string `yaml:"path"`
	Error string `yaml:"error"`
}

// YAMLFormatter writes records with an explicit kind, followed by read errors.
type YAMLFormatter struct{}

// Format writes r to w.
func (f *YAMLFormatter) Format(w io.Writer, r types.Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(f.buildOutput(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func (f *YAMLFormatter) buildOutput(r types.Result) yamlOutput {
	out := yamlOutput{Records: make([]yamlRecord, 0)}
	for _, rec := range r.Records() {
		out.Records = append(out.Records, yamlRecord{
			Kind:   rec.Kind.String(),
			Size:   rec.Size,
			Digest: rec.Label(),
			Paths:  rec.Paths,
		})
	}
	for _, fe := range r.Errors() {
		out.Errors = append(out.Errors, yamlError{Size: fe.Size, Path: fe.Path, Error: fe.Err.Error()})
	}
	return out
}

func init() {
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var _ Formatter = (*YAMLFormatter)(nil)
