package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ivoronin/dupes/internal/types"
)

// TextFormatter writes the indented human-readable layout:
//
//	1
//	  error reading /pos/bad: permission denied
//	  2D711642B726B04401627CA9FBAC32F5C8530FB1903CC4DB02258717921A4881
//	    /pos/a
//	    /pos/b
//	7
//	  /pos/only
//	40000000 (avoiding disambiguation)
//	  /pos/big1
//	  /pos/big2
type TextFormatter struct{}

// Format writes r to w.
func (f *TextFormatter) Format(w io.Writer, r types.Result) error {
	bw := bufio.NewWriter(w)
	for _, sr := range r.Sizes {
		writeSize(bw, sr)
	}
	return bw.Flush()
}

func writeSize(w *bufio.Writer, sr types.SizeReport) {
	if len(sr.Records) == 1 && sr.Records[0].Kind == types.KindAvoided {
		fmt.Fprintf(w, "%d (avoiding disambiguation)\n", sr.Size)
		writePaths(w, "  ", sr.Records[0].Paths)
		return
	}

	fmt.Fprintf(w, "%d\n", sr.Size)
	for _, fe := range sr.Errors {
		fmt.Fprintf(w, "  error reading %s: %v\n", fe.Path, fe.Err)
	}
	for _, rec := range sr.Records {
		if !rec.Hashed {
			writePaths(w, "  ", rec.Paths)
			continue
		}
		fmt.Fprintf(w, "  %s\n", rec.Label())
		writePaths(w, "    ", rec.Paths)
	}
}

func writePaths(w *bufio.Writer, indent string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "%s%s\n", indent, p)
	}
}

func init() {
	Register("text", func() Formatter { return &TextFormatter{} })
}

var _ Formatter = (*TextFormatter)(nil)
