package report

import (
	"encoding/json"
	"io"

	"github.com/ivoronin/dupes/internal/types"
)

// triple is one record as [label, size, [paths...]]. Unhashed records carry
// an empty label.
type triple struct {
	Label string
	Size  int64
	Paths []string
}

// MarshalJSON encodes the triple as a three-element array.
func (t triple) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{t.Label, t.Size, t.Paths})
}

// JSONFormatter writes a single array of triples on one line.
// Read errors are not part of the document; they reach stderr through the
// engine's error sink.
type JSONFormatter struct{}

// Format writes r to w.
func (f *JSONFormatter) Format(w io.Writer, r types.Result) error {
	return json.NewEncoder(w).Encode(f.buildOutput(r))
}

func (f *JSONFormatter) buildOutput(r types.Result) []triple {
	out := make([]triple, 0)
	for _, rec := range r.Records() {
		paths := rec.Paths
		if paths == nil {
			paths = []string{}
		}
		out = append(out, triple{Label: rec.Label(), Size: rec.Size, Paths: paths})
	}
	return out
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
}

var _ Formatter = (*JSONFormatter)(nil)
