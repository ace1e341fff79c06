// Package perception turns media into text through a vision- and
// audio-capable model provider: image captions, tags, OCR, audio
// transcription, translation and page summarization.
package perception

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/medialens/medialens/internal/llm"
)

// Engine runs perception tasks against an llm.Provider. Image results are
// memoized by path for the lifetime of a batch so duplicate inputs do not
// hit the provider twice; ReleaseCache drops the memo between batches.
type Engine struct {
	provider llm.Provider
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// New creates a perception engine.
func New(provider llm.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: provider,
		logger:   logger,
		cache:    make(map[string]string),
	}
}

// ReleaseCache drops all memoized perception results.
func (e *Engine) ReleaseCache() {
	e.mu.Lock()
	e.cache = make(map[string]string)
	e.mu.Unlock()
}

func (e *Engine) cached(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.cache[key]
	return v, ok
}

func (e *Engine) remember(key, value string) {
	e.mu.Lock()
	e.cache[key] = value
	e.mu.Unlock()
}

// imageDataURL reads an image file and encodes it as a data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	case ".bmp":
		mime = "image/bmp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (e *Engine) vision(ctx context.Context, imagePath, system, instruction string) (string, error) {
	url, err := imageDataURL(imagePath)
	if err != nil {
		return "", err
	}
	temp := 0.3
	resp, err := e.provider.Complete(ctx, llm.UserPrompt(system, instruction, url), &llm.RequestOptions{Temperature: &temp})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Caption describes the image in one concise sentence.
func (e *Engine) Caption(ctx context.Context, imagePath string) (string, error) {
	if v, ok := e.cached("caption:" + imagePath); ok {
		return v, nil
	}
	out, err := e.vision(ctx, imagePath,
		"You describe images for a search index.",
		"Describe this image in one concise sentence. Return only the description.")
	if err != nil {
		return "", err
	}
	e.remember("caption:"+imagePath, out)
	return out, nil
}

// Tags lists the salient objects and concepts in the image.
func (e *Engine) Tags(ctx context.Context, imagePath string) ([]string, error) {
	raw, err := e.vision(ctx, imagePath,
		"You tag images for a search index.",
		"List up to 10 tags for this image as a comma-separated line. Return only the tags.")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

// OCR transcribes visible text in the image. No text yields an empty string.
func (e *Engine) OCR(ctx context.Context, imagePath string) (string, error) {
	if v, ok := e.cached("ocr:" + imagePath); ok {
		return v, nil
	}
	out, err := e.vision(ctx, imagePath,
		"You transcribe text visible in images.",
		"Transcribe any readable text in this image. If there is none, return an empty response.")
	if err != nil {
		return "", err
	}
	e.remember("ocr:"+imagePath, out)
	return out, nil
}

// Transcribe converts an audio file into text.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return e.provider.Transcribe(ctx, audioPath)
}

// Translate renders a caption or tag line in Korean. On provider failure the
// original text comes back along with the error so callers can keep going.
func (e *Engine) Translate(ctx context.Context, text string, asCaption bool) (string, error) {
	kind := "image descriptions"
	if !asCaption {
		kind = "tags"
	}
	temp := 0.3
	resp, err := e.provider.Complete(ctx, llm.UserPrompt(
		fmt.Sprintf("You are a translator that converts English %s to Korean.", kind),
		"Translate this to Korean: "+text,
	), &llm.RequestOptions{Temperature: &temp})
	if err != nil {
		e.logger.Warn("translation failed, keeping original", "error", err)
		return text, err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Summarize reads long page content in paragraph-packed pieces and returns a
// five-line summary. The pieces are presented as sequential turns of one
// conversation so the model sees the whole document before summarizing.
func (e *Engine) Summarize(ctx context.Context, content string) (string, error) {
	pieces := packParagraphs(content, 1500)
	if len(pieces) == 0 {
		return "", fmt.Errorf("no content to summarize")
	}

	prompt := &llm.Prompt{
		SystemPrompt: "You read long documents part by part and understand the whole before answering.",
	}
	for i, p := range pieces {
		prompt.Messages = append(prompt.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("This is part %d/%d of the document:\n\n%s", i+1, len(pieces), p),
		})
	}
	prompt.Messages = append(prompt.Messages, llm.Message{
		Role:    llm.RoleUser,
		Content: "Summarize the entire document in 5 lines of at most 50 characters each.",
	})

	temp := 0.3
	resp, err := e.provider.Complete(ctx, prompt, &llm.RequestOptions{Temperature: &temp})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// packParagraphs groups paragraphs into pieces of roughly budget tokens,
// estimating four characters per token.
func packParagraphs(content string, budget int) []string {
	var pieces []string
	var current []string
	length := 0

	for _, para := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		cost := len(para) / 4
		if length+cost > budget && len(current) > 0 {
			pieces = append(pieces, strings.Join(current, "\n\n"))
			current = current[:0]
			length = 0
		}
		current = append(current, para)
		length += cost
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, "\n\n"))
	}
	return pieces
}
