// Package chunk splits long text into overlapping segments for independent
// embedding. Two splitters exist: a sentence-based one with character overlap
// used for documents and transcripts, and a word-based one with paragraph
// preference used for crawled web pages.
package chunk

import (
	"regexp"
	"strings"
)

// Chunk is a bounded contiguous slice of source text.
type Chunk struct {
	Index int
	Text  string
}

// Profile is a chunk size / overlap pair in characters (sentence splitter)
// or words (paragraph splitter tiers).
type Profile struct {
	Size    int
	Overlap int
}

var sentenceRe = regexp.MustCompile(`[^.!?。]+[.!?。]*`)

// SplitSentences greedily accumulates sentences into chunks of at most size
// characters, seeding each chunk after the first with the last overlap
// characters of its predecessor. A single sentence longer than size becomes
// its own oversized chunk; sentences are never split.
func SplitSentences(text string, size, overlap int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}

	sentences := sentenceRe.FindAllString(text, -1)

	var chunks []Chunk
	var current []rune

	flush := func() {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(current)})
	}

	for _, raw := range sentences {
		sentence := []rune(strings.TrimSpace(raw))
		if len(sentence) == 0 {
			continue
		}

		if len(current)+len(sentence) > size {
			if len(current) > 0 {
				flush()
				tail := current
				if len(tail) > overlap {
					tail = tail[len(tail)-overlap:]
				}
				next := make([]rune, 0, len(tail)+1+len(sentence))
				next = append(next, tail...)
				next = append(next, ' ')
				next = append(next, sentence...)
				current = next
			} else {
				current = sentence
			}
		} else {
			if len(current) > 0 {
				current = append(current, ' ')
			}
			current = append(current, sentence...)
		}
	}

	if len(current) > 0 {
		flush()
	}
	return chunks
}

// wordTier returns the effective chunk size and overlap (in words) for a text
// of totalWords length. Short texts collapse to a single chunk.
func wordTier(totalWords int) (size, overlap int) {
	switch {
	case totalWords < 300:
		return totalWords, 0
	case totalWords < 1000:
		return 500, 100
	default:
		return 800, 200
	}
}

// SplitWords splits text on paragraph boundaries first, packing whole
// paragraphs into chunks by word count. A paragraph longer than the tier size
// falls back to fixed-stride slicing with overlap. Chunks smaller than 30% of
// the tier size merge into their predecessor to avoid fragment pollution.
func SplitWords(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	totalWords := len(strings.Fields(text))
	size, overlap := wordTier(totalWords)
	minWords := size * 3 / 10

	var raw []string
	var current []string

	flushCurrent := func() {
		if len(current) > 0 {
			raw = append(raw, strings.Join(current, " "))
			current = nil
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		if len(current)+len(words) <= size {
			current = append(current, words...)
			continue
		}

		flushCurrent()

		if len(words) > size {
			for i := 0; i < len(words); i += size - overlap {
				end := min(i+size, len(words))
				if end-i >= minWords {
					raw = append(raw, strings.Join(words[i:end], " "))
				}
			}
			continue
		}
		current = words
	}
	flushCurrent()

	// Merge undersized fragments into their predecessor.
	var merged []string
	for _, c := range raw {
		if len(merged) > 0 && len(strings.Fields(c)) < minWords {
			merged[len(merged)-1] += " " + c
			continue
		}
		merged = append(merged, c)
	}

	chunks := make([]Chunk, len(merged))
	for i, c := range merged {
		chunks[i] = Chunk{Index: i, Text: c}
	}
	return chunks
}
