package gline

import (
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const ellipsis = "…"

// WordwrapWithRuneWidth wraps s at word boundaries to fit width cells, then
// hard-wraps any word that is still too long. ANSI sequences are kept and
// do not count towards the width.
func WordwrapWithRuneWidth(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}

// fitWidth returns s unchanged when it fits in width cells, otherwise cut
// down to width cells ending in an ellipsis.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.PrintableRuneWidth(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), ellipsis)
}
