package record

import (
	"strings"
	"testing"

	"github.com/medialens/medialens/internal/chunk"
)

func TestImage_CaptionAndOCR(t *testing.T) {
	img := &Image{
		Path:    "/media/cat.jpg",
		Caption: "a cat on a sofa",
		Tags:    []string{"cat", "sofa"},
		OCR:     "SALE 50%",
	}

	reqs := img.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests (caption + ocr), got %d", len(reqs))
	}
	if !strings.HasSuffix(reqs[0].ID, "_image_caption") {
		t.Errorf("unexpected caption ID: %q", reqs[0].ID)
	}
	if !strings.HasSuffix(reqs[1].ID, "_image_ocr") {
		t.Errorf("unexpected ocr ID: %q", reqs[1].ID)
	}
	if reqs[0].Text != "a cat on a sofa" || reqs[1].Text != "SALE 50%" {
		t.Errorf("unexpected texts: %q, %q", reqs[0].Text, reqs[1].Text)
	}
	if reqs[0].Payload["tags"] != "cat, sofa" {
		t.Errorf("unexpected tags payload: %q", reqs[0].Payload["tags"])
	}
	if reqs[0].Payload["type"] != "image" {
		t.Errorf("unexpected type payload: %q", reqs[0].Payload["type"])
	}
}

func TestImage_NoOCR(t *testing.T) {
	img := &Image{Path: "/media/cat.jpg", Caption: "a cat"}
	reqs := img.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request without ocr text, got %d", len(reqs))
	}
}

func TestFrame_IDCarriesFrameNumber(t *testing.T) {
	f := &Frame{Path: "/media/clip.mp4", FrameNumber: 450, Offset: 15.0, Caption: "a dog running"}
	reqs := f.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if !strings.HasSuffix(reqs[0].ID, "_video_450") {
		t.Errorf("unexpected ID: %q", reqs[0].ID)
	}
	if reqs[0].Payload["frame_number"] != "450" {
		t.Errorf("unexpected frame_number: %q", reqs[0].Payload["frame_number"])
	}
	if reqs[0].Payload["video_timestamp"] != "15" {
		t.Errorf("unexpected video_timestamp: %q", reqs[0].Payload["video_timestamp"])
	}
}

func TestFrame_EmptyCaptionSkipped(t *testing.T) {
	f := &Frame{Path: "/media/clip.mp4", FrameNumber: 0}
	if reqs := f.Requests(); reqs != nil {
		t.Errorf("expected no requests for captionless frame, got %d", len(reqs))
	}
}

func TestSegment_KindDependsOnSource(t *testing.T) {
	audio := &Segment{Path: "/media/talk.mp3", Index: 2, Text: "hello"}
	video := &Segment{Path: "/media/talk.mp4", Index: 2, Text: "hello", FromVideo: true}

	if audio.Kind() != KindAudio {
		t.Errorf("expected audio kind, got %q", audio.Kind())
	}
	if video.Kind() != KindVideoWithAudio {
		t.Errorf("expected video_with_audio kind, got %q", video.Kind())
	}

	if !strings.HasSuffix(audio.Requests()[0].ID, "_audio_2") {
		t.Errorf("unexpected audio ID: %q", audio.Requests()[0].ID)
	}
	if !strings.HasSuffix(video.Requests()[0].ID, "_video_with_audio_2") {
		t.Errorf("unexpected video ID: %q", video.Requests()[0].ID)
	}
}

func TestDocument_FanOut(t *testing.T) {
	sentence := strings.Repeat("a", 39) + "."
	content := strings.TrimSpace(strings.Repeat(sentence+" ", 60))

	doc := &Document{
		Path:    "/docs/report.txt",
		Title:   "Quarterly Report",
		Content: content,
		Profile: chunk.Profile{Size: 1000, Overlap: 200},
	}

	reqs := doc.Requests()
	if len(reqs) < 2 {
		t.Fatalf("expected multi-chunk fan-out, got %d requests", len(reqs))
	}
	for i, req := range reqs {
		if req.Payload["title"] != "Quarterly Report" {
			t.Errorf("chunk %d lost parent title", i)
		}
		if req.Payload["chunk_index"] == "" {
			t.Errorf("chunk %d missing chunk_index", i)
		}
		if req.Text != req.Payload["content"] {
			t.Errorf("chunk %d payload content differs from embedded text", i)
		}
	}
	if !strings.HasSuffix(reqs[0].ID, "_document_0") {
		t.Errorf("unexpected first chunk ID: %q", reqs[0].ID)
	}
}

func TestDocument_EmptyContent(t *testing.T) {
	doc := &Document{Path: "/docs/empty.txt", Profile: chunk.Profile{Size: 1000, Overlap: 200}}
	if reqs := doc.Requests(); reqs != nil {
		t.Errorf("expected no requests for empty document, got %d", len(reqs))
	}
}

func TestPage_SummaryVector(t *testing.T) {
	p := &Page{
		URL:     "https://example.com/article",
		Title:   "An Article",
		Domain:  "example.com",
		Summary: "the page in two lines",
	}

	reqs := p.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if !strings.HasSuffix(reqs[0].ID, "_url_summary") {
		t.Errorf("unexpected ID: %q", reqs[0].ID)
	}
	if reqs[0].Text != "the page in two lines" {
		t.Errorf("unexpected embedded text: %q", reqs[0].Text)
	}
	if reqs[0].Payload["domain"] != "example.com" {
		t.Errorf("unexpected domain: %q", reqs[0].Payload["domain"])
	}
}

func TestLocator(t *testing.T) {
	img := &Image{Path: "/media/cat.jpg", Caption: "a cat"}
	payload := img.Requests()[0].Payload
	if Locator(payload) != "/media/cat.jpg" {
		t.Errorf("unexpected locator: %q", Locator(payload))
	}
}
