package tui

import (
	"os"
	"strings"
	"sync"
)

// Some terminal fonts render the outline markers poorly; OUTLINER_TUI_GLYPHS=ascii swaps them for
// plain characters.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("OUTLINER_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

// glyphFor picks the marker in front of a note.
func glyphFor(hasChildren, collapsed bool) string {
	ascii := glyphs() == glyphSetASCII
	switch {
	case !hasChildren:
		if ascii {
			return "*"
		}
		return "•"
	case collapsed:
		if ascii {
			return ">"
		}
		return "▸"
	default:
		if ascii {
			return "v"
		}
		return "▾"
	}
}

func glyphEllipsis() string {
	if glyphs() == glyphSetASCII {
		return "..."
	}
	return "…"
}
