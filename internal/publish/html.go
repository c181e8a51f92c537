package publish

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Raw HTML in note content is escaped, not passed through.
		html.WithHardWraps(),
	),
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// RenderHTML converts Markdown to an HTML fragment.
func RenderHTML(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderHTMLDocument wraps the rendered Markdown in a standalone page.
func RenderHTMLDocument(title, src string) (string, error) {
	body, err := RenderHTML(src)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	err = pageTemplate.Execute(&b, struct {
		Title string
		Body  template.HTML
	}{Title: strings.TrimSpace(title), Body: template.HTML(body)})
	return b.String(), err
}
