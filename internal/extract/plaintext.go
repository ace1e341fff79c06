package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PlainText extracts text files as-is, using the file name as the title.
type PlainText struct{}

func (PlainText) Extract(_ context.Context, path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	return &Extraction{
		Title:   strings.TrimSuffix(name, filepath.Ext(name)),
		Content: strings.TrimSpace(string(data)),
	}, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// HTMLFile extracts an HTML document by stripping markup. It is the
// fallback for saved pages; live URLs go through the page fetcher instead.
type HTMLFile struct{}

func (HTMLFile) Extract(_ context.Context, path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	title, content := StripHTML(string(data))
	if title == "" {
		name := filepath.Base(path)
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return &Extraction{Title: title, Content: content}, nil
}

// StripHTML removes scripts, styles and tags from markup and returns the
// document title and the remaining text.
func StripHTML(markup string) (title, content string) {
	if m := titleRe.FindStringSubmatch(markup); m != nil {
		title = strings.TrimSpace(m[1])
	}
	text := scriptRe.ReplaceAllString(markup, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	content = blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return title, content
}
