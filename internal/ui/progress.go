package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Progress prints the one-line "querying... ok/failed" indicator shown while
// a provider call is in flight.
type Progress struct {
	out io.Writer
}

// NewProgress writes to out; a nil writer discards output.
func NewProgress(out io.Writer) *Progress {
	if out == nil {
		out = io.Discard
	}
	return &Progress{out: out}
}

// Start opens the line for a provider/model query.
func (p *Progress) Start(provider, model string) {
	fmt.Fprintf(p.out, "🔍 Consulting 🤖 %s 🧠 %s...", provider, model)
}

// Done closes the line with a success mark.
func (p *Progress) Done() {
	fmt.Fprintln(p.out, color.GreenString(" ✅"))
}

// Fail closes the line with a failure mark and reason.
func (p *Progress) Fail(format string, args ...any) {
	fmt.Fprintln(p.out, color.RedString(" ❌ "+format, args...))
}
