// Package progress renders a single self-overwriting progress line for one
// file transfer on an interactive terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// margin reserves room on the progress line for the brackets and the
// percentage column.
const margin = 12

// minBarWidth keeps the bar legible on very narrow terminals.
const minBarWidth = 10

// Interactive reports whether f is attached to a terminal. The decision
// whether to render progress at all is made once at startup from this.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reporter accumulates transferred-byte deltas for a single transfer and,
// when enabled, redraws a fraction bar plus percentage after each update.
// A disabled reporter only maintains the running sum.
type Reporter struct {
	total   int64
	current int64
	out     io.Writer
	enabled bool
	done    bool
	width   int
}

// New creates a reporter for a transfer of total bytes, writing to out.
// A zero total is treated as already complete: nothing is ever rendered
// and no percentage is computed for it.
func New(total int64, out io.Writer, enabled bool) *Reporter {
	r := &Reporter{
		total:   total,
		out:     out,
		enabled: enabled,
		width:   terminalWidth(out),
	}
	if total == 0 {
		r.done = true
	}
	return r
}

// Update records delta freshly transferred bytes and redraws the line.
// Once the total has been reached and the line terminated, later updates
// keep accumulating but never draw again.
func (r *Reporter) Update(delta int64) {
	r.current += delta
	if !r.enabled || r.done {
		return
	}

	frac := float64(r.current) / float64(r.total)
	if frac > 1 {
		frac = 1
	}

	barWidth := r.width - margin
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	filled := int(frac * float64(barWidth))

	fmt.Fprintf(r.out, "\r[%-*s] %6.2f%%", barWidth, strings.Repeat("=", filled), frac*100)

	if r.current >= r.total {
		fmt.Fprintln(r.out)
		r.done = true
	}
}

// Current returns the bytes accounted for so far.
func (r *Reporter) Current() int64 {
	return r.current
}

// terminalWidth returns the column count of out when it is a terminal,
// falling back to a conventional 80 columns otherwise.
func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}
