// Package docs holds the topics shown by `outliner docs`. A topic is one markdown file under
// content/; its first heading is the title and the paragraph after it the summary.
package docs

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed content/*.md
var contentFS embed.FS

type Topic struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Index lists every topic in file name order.
func Index() []Topic {
	entries, err := fs.ReadDir(contentFS, "content")
	if err != nil {
		return []Topic{}
	}
	out := make([]Topic, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok || name == "" || e.IsDir() {
			continue
		}
		b, err := contentFS.ReadFile("content/" + e.Name())
		if err != nil {
			continue
		}
		out = append(out, describe(name, string(b)))
	}
	return out
}

// Lookup finds a topic by name, ignoring case. A prefix matching exactly one topic is enough.
func Lookup(query string) (Topic, string, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return Topic{}, "", false
	}
	var hit []Topic
	for _, t := range Index() {
		if t.Name == query {
			hit = []Topic{t}
			break
		}
		if strings.HasPrefix(t.Name, query) {
			hit = append(hit, t)
		}
	}
	if len(hit) != 1 {
		return Topic{}, "", false
	}
	b, err := contentFS.ReadFile("content/" + hit[0].Name + ".md")
	if err != nil {
		return Topic{}, "", false
	}
	return hit[0], string(b), true
}

func describe(name, body string) Topic {
	t := Topic{Name: name, Title: name}
	var para []string
	seenTitle := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case !seenTitle && strings.HasPrefix(line, "# "):
			t.Title = strings.TrimSpace(line[2:])
			seenTitle = true
		case line == "" || strings.HasPrefix(line, "#"):
			if len(para) > 0 {
				t.Summary = strings.Join(para, " ")
				return t
			}
		default:
			para = append(para, line)
		}
	}
	t.Summary = strings.Join(para, " ")
	return t
}
