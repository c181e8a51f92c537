package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

var (
	mdMu sync.Mutex
	// Renderers are cached by style and wrap width. Building one with WithAutoStyle can block on
	// terminal queries, so the style is chosen up front.
	mdRenderers = map[string]*glamour.TermRenderer{}
	// Rendered output per style, width and source; notes are re-rendered on every frame.
	mdCache = map[string]string{}
)

const mdCacheMax = 2048

// renderNote renders a note's markup for rendered mode: compact, no block margins, trailing
// padding trimmed from every line.
func renderNote(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdMu.Lock()
	if out, ok := mdCache[key+"\x00"+md]; ok {
		mdMu.Unlock()
		return out
	}
	r := mdRenderers[key]
	mdMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(noteStyleConfig(style)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	lines := strings.Split(strings.Trim(out, "\n"), "\n")
	for i, l := range lines {
		lines[i] = trimPadding(l)
	}
	out = strings.Join(lines, "\n")

	mdMu.Lock()
	if len(mdCache) >= mdCacheMax {
		mdCache = map[string]string{}
	}
	mdCache[key+"\x00"+md] = out
	mdMu.Unlock()
	return out
}

// trimPadding drops trailing spaces, including styled ones, which glamour adds to fill the wrap
// width.
func trimPadding(line string) string {
	plain := xansi.Strip(line)
	w := xansi.StringWidth(strings.TrimRight(plain, " "))
	if w == xansi.StringWidth(plain) {
		return line
	}
	return xansi.Truncate(line, w, "")
}

func noteStyleConfig(styleName string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if styleName == "light" {
		cfg = styles.LightStyleConfig
	}
	zero := uint(0)
	cfg.Document.Margin = &zero
	cfg.Paragraph.Margin = &zero
	cfg.BlockQuote.Margin = &zero
	cfg.List.Margin = &zero
	cfg.Heading.Margin = &zero
	cfg.Code.Margin = &zero
	cfg.CodeBlock.Margin = &zero
	cfg.Table.Margin = &zero
	cfg.Document.BlockPrefix = ""
	cfg.Document.BlockSuffix = ""

	text := mdColor(colorSurfaceFg, styleName)
	cfg.Text.Color = text
	cfg.Heading.Color = text
	cfg.H1.Color = text
	cfg.H1.BackgroundColor = nil
	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	cfg.Code.Color = text
	cfg.CodeBlock.Color = text
	if cfg.CodeBlock.BackgroundColor == nil {
		cfg.CodeBlock.BackgroundColor = mdColor(colorControlBg, styleName)
	}
	link := mdColor(colorAccent, styleName)
	underline := true
	cfg.Link.Color = link
	cfg.Link.Underline = &underline
	cfg.LinkText.Color = link
	cfg.LinkText.Underline = &underline
	return cfg
}

func markdownStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func mdColor(c lipgloss.AdaptiveColor, styleName string) *string {
	s := c.Dark
	if styleName == "light" {
		s = c.Light
	}
	return &s
}
