package publish

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"outliner-cli/internal/model"
	"outliner-cli/internal/notestore"
)

type RenderOptions struct {
	// IncludeMeta adds a front section with page id and timestamps.
	IncludeMeta bool
	// SkipCollapsed omits the descendants of collapsed notes.
	SkipCollapsed bool
}

// PageMarkdown renders a page as a nested Markdown bullet list.
func PageMarkdown(p model.Page, notes []model.Note) string {
	return RenderPageMarkdown(p, notes, RenderOptions{})
}

func RenderPageMarkdown(p model.Page, notes []model.Note, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = p.ID
	}
	writeLn("# " + title)
	writeLn("")

	if opt.IncludeMeta {
		writeLn("- ID: " + p.ID)
		if !p.CreatedAt.IsZero() {
			writeLn("- Created: " + p.CreatedAt.UTC().Format(time.RFC3339))
		}
		writeLn("- Notes: " + strconv.Itoa(len(notes)))
		writeLn("")
	}

	ns := notestore.New(nil)
	ns.ReplaceAll(p.ID, notes)
	var rows []notestore.Row
	if opt.SkipCollapsed {
		rows = ns.VisibleRows()
	} else {
		rows = ns.DocumentRows()
	}
	for _, r := range rows {
		renderNoteLine(&buf, r)
	}
	return buf.String()
}

// renderNoteLine writes one bullet. Multi-line content continues under the bullet's indentation.
func renderNoteLine(buf *bytes.Buffer, r notestore.Row) {
	prefix := strings.Repeat("  ", r.Depth)
	lines := strings.Split(strings.TrimRight(r.Note.Content, "\n"), "\n")
	buf.WriteString(prefix + "- " + lines[0] + "\n")
	for _, l := range lines[1:] {
		buf.WriteString(prefix + "  " + l + "\n")
	}
}
