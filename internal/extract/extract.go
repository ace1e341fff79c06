// Package extract classifies files by extension and pulls text out of
// documents and web pages. Rich format parsers (PDF, Office) plug in behind
// the Extractor interface; the built-in implementations cover plain text
// and HTML.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Class is the coarse media class of a file.
type Class string

const (
	ClassImage    Class = "image"
	ClassVideo    Class = "video"
	ClassAudio    Class = "audio"
	ClassDocument Class = "document"
	ClassUnknown  Class = "unknown"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true, ".mkv": true, ".webm": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".flac": true, ".aac": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".txt": true, ".rtf": true,
	".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true,
	".csv": true,
	".md": true, ".markdown": true,
	".html": true, ".htm": true,
}

// Classify maps a file path to its media class by extension.
func Classify(path string) Class {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return ClassImage
	case videoExts[ext]:
		return ClassVideo
	case audioExts[ext]:
		return ClassAudio
	case documentExts[ext]:
		return ClassDocument
	default:
		return ClassUnknown
	}
}

// Extraction is the text content pulled from a document.
type Extraction struct {
	Title   string
	Content string
}

// Extractor pulls text from a document file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry with the built-in plain-text extractor
// bound to the text-like extensions.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	plain := PlainText{}
	for _, ext := range []string{".txt", ".md", ".markdown", ".csv", ".rtf"} {
		r.Register(ext, plain)
	}
	html := HTMLFile{}
	for _, ext := range []string{".html", ".htm"} {
		r.Register(ext, html)
	}
	return r
}

// Register binds an extractor to a file extension (with leading dot).
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Extract dispatches to the extractor registered for the path's extension.
func (r *Registry) Extract(ctx context.Context, path string) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %q", ext)
	}
	return e.Extract(ctx, path)
}
