// Package search embeds user queries and ranks vector store matches:
// trailing media keywords select a type filter, duplicate sources collapse
// to their best hit, and low scores survive only on tag matches.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/medialens/medialens/internal/record"
	"github.com/medialens/medialens/internal/vector"
)

// typeKeywords maps trailing query words to the content type they select.
// Korean media words come first since the original corpus is Korean.
var typeKeywords = map[string]string{
	"사진": "image", "이미지": "image", "그림": "image",
	"photo": "image", "image": "image", "picture": "image",
	"영상": "video", "비디오": "video", "동영상": "video",
	"video": "video", "clip": "video",
	"음성": "audio", "오디오": "audio", "소리": "audio",
	"audio": "audio", "sound": "audio", "voice": "audio",
}

// Result is one ranked search hit.
type Result struct {
	ID      string            `json:"id"`
	Score   float32           `json:"score"`
	Type    string            `json:"type"`
	Locator string            `json:"file_path"`
	Payload map[string]string `json:"payload"`
}

// Searcher runs ranked similarity search over the store.
type Searcher struct {
	embedder *vector.Embedder
	store    vector.Store
	logger   *slog.Logger
}

// New creates a searcher.
func New(embedder *vector.Embedder, store vector.Store, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{embedder: embedder, store: store, logger: logger}
}

// InferType strips a trailing media keyword from the query and returns the
// cleaned query plus the content type it selects. No keyword means no
// filter.
func InferType(query string) (cleaned, contentType string) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", ""
	}
	last := strings.ToLower(fields[len(fields)-1])
	if ct, ok := typeKeywords[last]; ok {
		return strings.Join(fields[:len(fields)-1], " "), ct
	}
	return strings.Join(fields, " "), ""
}

// Search embeds the query and returns up to topK deduplicated results in
// descending score order. Results under threshold are dropped unless one of
// the query words appears in the hit's tags. No matches is an empty result,
// not an error.
func (s *Searcher) Search(ctx context.Context, query string, topK int, threshold float32) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}

	cleaned, contentType := InferType(query)
	if cleaned == "" {
		cleaned = strings.TrimSpace(query)
	}

	qvec, err := s.embedder.EmbedOne(ctx, cleaned)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyText) {
			return []Result{}, nil
		}
		return nil, err
	}

	var filter vector.Filter
	if contentType != "" {
		filter = vector.Filter{"type": contentType}
	}

	// Over-fetch so dedup and thresholding still leave topK results.
	matches, err := s.store.Query(ctx, qvec, topK*3, filter)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search executed",
		"query", cleaned, "type", contentType, "raw_matches", len(matches))

	ranked := rank(matches, strings.Fields(cleaned), threshold)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// rank deduplicates matches by source locator keeping the best score, then
// applies the threshold with the tag-match exception and sorts descending.
func rank(matches []vector.Match, queryWords []string, threshold float32) []Result {
	best := make(map[string]vector.Match)
	order := make([]string, 0, len(matches))

	for _, m := range matches {
		key := record.Locator(m.Payload)
		if key == "" {
			key = m.ID
		}
		prev, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || m.Score > prev.Score {
			best[key] = m
		}
	}

	results := make([]Result, 0, len(order))
	for _, key := range order {
		m := best[key]
		if m.Score < threshold && !tagsMatch(m.Payload["tags"], queryWords) {
			continue
		}
		results = append(results, Result{
			ID:      m.ID,
			Score:   m.Score,
			Type:    m.Payload["type"],
			Locator: record.Locator(m.Payload),
			Payload: m.Payload,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// tagsMatch reports whether any query word appears inside the stored tag
// line.
func tagsMatch(tags string, queryWords []string) bool {
	if tags == "" {
		return false
	}
	lower := strings.ToLower(tags)
	for _, w := range queryWords {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
