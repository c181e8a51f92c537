package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitLine forces s to exactly width columns (ANSI-aware), cutting with an ellipsis or padding.
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	// Bound the width computation on pathological lines.
	if len(s) > 8192 {
		s = xansi.Cut(s, 0, width)
	}
	w := xansi.StringWidth(s)
	if w > width {
		ell := glyphEllipsis()
		ew := xansi.StringWidth(ell)
		if width <= ew {
			return xansi.Cut(s, 0, width)
		}
		s = xansi.Cut(s, 0, width-ew) + ell
		w = xansi.StringWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// splitEnds places left and right on one line of the given width, with left truncated first.
func splitEnds(left, right string, width int) string {
	rw := xansi.StringWidth(right)
	if rw >= width {
		return fitLine(right, width)
	}
	return fitLine(left, width-rw) + right
}
