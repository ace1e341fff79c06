// Package record defines the content record types the pipeline produces and
// their mapping onto embeddable vector requests with flat payloads.
package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/medialens/medialens/internal/chunk"
	"github.com/medialens/medialens/internal/vector"
)

// Kind is the content type of a record.
type Kind string

const (
	KindImage          Kind = "image"
	KindVideo          Kind = "video"
	KindAudio          Kind = "audio"
	KindVideoWithAudio Kind = "video_with_audio"
	KindDocument       Kind = "document"
	KindURL            Kind = "url"
)

// VectorRequest is one embeddable unit: the deterministic vector ID, the
// text to embed and the payload stored next to the vector.
type VectorRequest struct {
	ID      string
	Text    string
	Payload map[string]string
}

// ContentRecord is the sealed union of everything the pipeline can store.
type ContentRecord interface {
	// Kind returns the content type tag.
	Kind() Kind
	// Locator returns the file path or URL the record came from.
	Locator() string
	// Requests expands the record into its vector requests. A record can
	// yield zero requests when it has nothing embeddable.
	Requests() []VectorRequest
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(time.RFC3339)
}

// Image is a captioned still image. It fans out to a caption vector and,
// when OCR found text, a second OCR vector sharing the same payload.
type Image struct {
	Path      string
	Caption   string
	Tags      []string
	OCR       string
	CreatedAt time.Time
}

func (r *Image) Kind() Kind      { return KindImage }
func (r *Image) Locator() string { return r.Path }

func (r *Image) Requests() []VectorRequest {
	payload := map[string]string{
		"file_path": r.Path,
		"type":      string(KindImage),
		"timestamp": stamp(r.CreatedAt),
		"caption":   r.Caption,
		"tags":      strings.Join(r.Tags, ", "),
		"ocr":       r.OCR,
	}
	base := vector.DeriveID(r.Path, string(KindImage))

	var reqs []VectorRequest
	if r.Caption != "" {
		reqs = append(reqs, VectorRequest{
			ID:      vector.DeriveSubID(base, "caption"),
			Text:    r.Caption,
			Payload: payload,
		})
	}
	if r.OCR != "" {
		reqs = append(reqs, VectorRequest{
			ID:      vector.DeriveSubID(base, "ocr"),
			Text:    r.OCR,
			Payload: payload,
		})
	}
	return reqs
}

// Frame is a single sampled video frame with its caption.
type Frame struct {
	Path        string
	FrameNumber int
	Offset      float64 // seconds from the start of the video
	Caption     string
	Tags        []string
	CreatedAt   time.Time
}

func (r *Frame) Kind() Kind      { return KindVideo }
func (r *Frame) Locator() string { return r.Path }

func (r *Frame) Requests() []VectorRequest {
	if r.Caption == "" {
		return nil
	}
	base := vector.DeriveID(r.Path, string(KindVideo))
	return []VectorRequest{{
		ID:   vector.DeriveSubID(base, r.FrameNumber),
		Text: r.Caption,
		Payload: map[string]string{
			"file_path":       r.Path,
			"type":            string(KindVideo),
			"timestamp":       stamp(r.CreatedAt),
			"frame_number":    strconv.Itoa(r.FrameNumber),
			"video_timestamp": strconv.FormatFloat(r.Offset, 'f', -1, 64),
			"caption":         r.Caption,
			"tags":            strings.Join(r.Tags, ", "),
		},
	}}
}

// Segment is one transcript chunk of an audio file, or of a video routed
// through the audio path when its track carries meaningful sound.
type Segment struct {
	Path      string
	Index     int
	Text      string
	FromVideo bool
	CreatedAt time.Time
}

func (r *Segment) Kind() Kind {
	if r.FromVideo {
		return KindVideoWithAudio
	}
	return KindAudio
}

func (r *Segment) Locator() string { return r.Path }

func (r *Segment) Requests() []VectorRequest {
	if r.Text == "" {
		return nil
	}
	kind := r.Kind()
	base := vector.DeriveID(r.Path, string(kind))
	return []VectorRequest{{
		ID:   vector.DeriveSubID(base, r.Index),
		Text: r.Text,
		Payload: map[string]string{
			"file_path": r.Path,
			"type":      string(kind),
			"timestamp": stamp(r.CreatedAt),
			"frame":     strconv.Itoa(r.Index),
			"caption":   r.Text,
		},
	}}
}

// Document is an extracted text document. Long content fans out into one
// request per chunk; every chunk keeps the parent title and its own index.
type Document struct {
	Path      string
	Title     string
	Content   string
	Profile   chunk.Profile
	CreatedAt time.Time
}

func (r *Document) Kind() Kind      { return KindDocument }
func (r *Document) Locator() string { return r.Path }

func (r *Document) Requests() []VectorRequest {
	chunks := chunk.SplitSentences(r.Content, r.Profile.Size, r.Profile.Overlap)
	if len(chunks) == 0 {
		return nil
	}
	base := vector.DeriveID(r.Path, string(KindDocument))

	reqs := make([]VectorRequest, 0, len(chunks))
	for _, c := range chunks {
		reqs = append(reqs, VectorRequest{
			ID:   vector.DeriveSubID(base, c.Index),
			Text: c.Text,
			Payload: map[string]string{
				"file_path":   r.Path,
				"type":        string(KindDocument),
				"timestamp":   stamp(r.CreatedAt),
				"title":       r.Title,
				"chunk_index": strconv.Itoa(c.Index),
				"content":     c.Text,
			},
		})
	}
	return reqs
}

// Page is a crawled web page reduced to its comprehensive summary. Only the
// summary is embedded; title and domain travel in the payload.
type Page struct {
	URL       string
	Title     string
	Domain    string
	Summary   string
	CreatedAt time.Time
}

func (r *Page) Kind() Kind      { return KindURL }
func (r *Page) Locator() string { return r.URL }

func (r *Page) Requests() []VectorRequest {
	if r.Summary == "" {
		return nil
	}
	base := vector.DeriveID(r.URL, string(KindURL))
	return []VectorRequest{{
		ID:   vector.DeriveSubID(base, "summary"),
		Text: r.Summary,
		Payload: map[string]string{
			"file_path": r.URL,
			"type":      string(KindURL),
			"timestamp": stamp(r.CreatedAt),
			"title":     r.Title,
			"domain":    r.Domain,
			"summary":   r.Summary,
		},
	}}
}

// Locator extracts the source path or URL from a stored payload.
func Locator(payload map[string]string) string {
	return payload["file_path"]
}
