package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"outliner-cli/internal/model"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.New("invalid --format (expected md|html)")
	}
}

type WriteOptions struct {
	Format    Format
	Overwrite bool
	Render    RenderOptions
}

type WriteResult struct {
	Written []string `json:"written"`
}

// Render produces the page in the requested format.
func Render(p model.Page, notes []model.Note, f Format, opt RenderOptions) (string, error) {
	md := RenderPageMarkdown(p, notes, opt)
	if f == FormatHTML {
		return RenderHTMLDocument(p.Title, md)
	}
	return md, nil
}

// WritePage writes <toDir>/pages/<pageId>.<ext>.
func WritePage(p model.Page, notes []model.Note, toDir string, opt WriteOptions) (WriteResult, error) {
	if strings.TrimSpace(p.ID) == "" {
		return WriteResult{}, errors.New("missing page id")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if opt.Format == "" {
		opt.Format = FormatMarkdown
	}

	out, err := Render(p, notes, opt.Format, opt.Render)
	if err != nil {
		return WriteResult{}, err
	}

	outDir := filepath.Join(toDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	outPath := filepath.Join(outDir, p.ID+"."+string(opt.Format))
	if err := writeFile(outPath, []byte(out), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
