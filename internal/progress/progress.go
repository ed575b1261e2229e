// Package progress renders phase spinners.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Bar wraps a progressbar spinner. All methods are no-ops when disabled,
// and safe to call from several goroutines when enabled.
type Bar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// New creates a spinner writing to w. A nil w disables it.
func New(w io.Writer) *Bar {
	if w == nil {
		return &Bar{}
	}

	return &Bar{w: w, bar: progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(false),
	)}
}

// Describe updates the spinner description.
func (b *Bar) Describe(s fmt.Stringer) {
	if b.bar != nil {
		b.bar.Describe(s.String())
	}
}

// Finish clears the spinner and prints a one-line phase summary.
func (b *Bar) Finish(s fmt.Stringer) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(b.w, "✔ "+s.String())
	}
}
