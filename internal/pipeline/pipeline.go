// Package pipeline dispatches ingestion requests by content type, drives
// perception, chunking and embedding, and persists the resulting vectors.
// Failures are isolated per unit so one bad file never sinks a batch.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medialens/medialens/internal/chunk"
	"github.com/medialens/medialens/internal/config"
	"github.com/medialens/medialens/internal/extract"
	"github.com/medialens/medialens/internal/perception"
	"github.com/medialens/medialens/internal/record"
	"github.com/medialens/medialens/internal/vector"
)

// Request is one ingestion job: a file URL or local path plus its declared
// content type.
type Request struct {
	FileURL    string `json:"file_url"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	SaveFrames bool   `json:"save_frames"`
}

// Result summarizes a completed ingestion.
type Result struct {
	Locator string      `json:"file_path"`
	Type    record.Kind `json:"type"`
	Vectors int         `json:"vectors"`
}

// Pipeline wires perception, extraction, embedding and storage together.
type Pipeline struct {
	perception *perception.Engine
	embedder   *vector.Embedder
	store      vector.Store
	extractors *extract.Registry
	fetcher    extract.PageFetcher
	chunks     config.ChunkConfig
	ingest     config.IngestConfig
	logger     *slog.Logger
	tracer     trace.Tracer
	http       *http.Client
}

// New creates a pipeline.
func New(
	engine *perception.Engine,
	embedder *vector.Embedder,
	store vector.Store,
	extractors *extract.Registry,
	fetcher extract.PageFetcher,
	chunks config.ChunkConfig,
	ingest config.IngestConfig,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if extractors == nil {
		extractors = extract.NewRegistry()
	}
	if fetcher == nil {
		fetcher = extract.NewHTTPFetcher()
	}
	return &Pipeline{
		perception: engine,
		embedder:   embedder,
		store:      store,
		extractors: extractors,
		fetcher:    fetcher,
		chunks:     chunks,
		ingest:     ingest,
		logger:     logger,
		tracer:     otel.Tracer("medialens/pipeline"),
		http:       &http.Client{Timeout: 2 * time.Minute},
	}
}

// ReleaseCache drops memoized perception results. Bulk runs call it
// between image batches.
func (p *Pipeline) ReleaseCache() {
	p.perception.ReleaseCache()
}

var knownTypes = map[string]bool{
	"image": true, "video": true, "audio": true, "document": true, "url": true,
}

// Ingest validates, fetches and processes one request. The returned error is
// always a *Failure carrying the stage that died.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Ingest",
		trace.WithAttributes(
			attribute.String("media.type", req.FileType),
			attribute.String("media.locator", req.FileURL),
		))
	defer span.End()

	if req.FileURL == "" {
		return nil, failf(ValidationFailure, req.FileURL, "file_url is required")
	}
	if !knownTypes[req.FileType] {
		return nil, failf(ValidationFailure, req.FileURL, "unknown file_type %q", req.FileType)
	}

	if req.FileType == "url" {
		return p.processURL(ctx, req.FileURL)
	}

	local, cleanup, err := p.localize(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	switch req.FileType {
	case "image":
		return p.processImage(ctx, local, req.FileURL)
	case "video":
		return p.processVideo(ctx, local, req.FileURL, req.SaveFrames)
	case "audio":
		return p.processAudio(ctx, local, req.FileURL, false)
	default:
		return p.processDocument(ctx, local, req.FileURL)
	}
}

// localize makes the request content available as a local file. Remote URLs
// are reachability-checked and downloaded to a temp file which the cleanup
// function removes; local paths pass through with a no-op cleanup.
func (p *Pipeline) localize(ctx context.Context, req Request) (string, func(), error) {
	if !strings.HasPrefix(req.FileURL, "http://") && !strings.HasPrefix(req.FileURL, "https://") {
		if _, err := os.Stat(req.FileURL); err != nil {
			return "", nil, fail(ValidationFailure, req.FileURL, err)
		}
		return req.FileURL, func() {}, nil
	}

	if err := extract.Reachable(ctx, p.http, req.FileURL); err != nil {
		return "", nil, fail(ValidationFailure, req.FileURL, err)
	}

	name := req.FileName
	if name == "" {
		name = filepath.Base(req.FileURL)
	}

	f, err := os.CreateTemp(p.ingest.TempDir, "medialens-*-"+filepath.Base(name))
	if err != nil {
		return "", nil, fail(ValidationFailure, req.FileURL, err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.FileURL, nil)
	if err != nil {
		cleanup()
		return "", nil, fail(ValidationFailure, req.FileURL, err)
	}
	resp, err := p.http.Do(httpReq)
	if err != nil {
		cleanup()
		return "", nil, failf(ValidationFailure, req.FileURL, "download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cleanup()
		return "", nil, failf(ValidationFailure, req.FileURL, "download: %s", resp.Status)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		cleanup()
		return "", nil, failf(ValidationFailure, req.FileURL, "download: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fail(ValidationFailure, req.FileURL, err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// persist embeds every vector request of the records and upserts the
// survivors. Items whose embedding fails are skipped; zero survivors is an
// embedding failure, a store rejection is a store failure.
func (p *Pipeline) persist(ctx context.Context, locator string, records ...record.ContentRecord) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	var reqs []record.VectorRequest
	var kind record.Kind
	for _, rec := range records {
		kind = rec.Kind()
		reqs = append(reqs, rec.Requests()...)
	}
	if len(reqs) == 0 {
		return nil, failf(EmbeddingFailure, locator, "no embeddable content")
	}

	texts := make([]string, len(reqs))
	for i, r := range reqs {
		texts[i] = r.Text
	}

	vectors := p.embedder.EmbedBatch(ctx, texts)
	if len(vectors) == 0 {
		return nil, failf(EmbeddingFailure, locator, "all %d embeddings failed", len(reqs))
	}

	stored := make([]vector.Record, len(vectors))
	for i, v := range vectors {
		req := reqs[v.Index]
		stored[i] = vector.Record{ID: req.ID, Vector: v.Vector, Payload: req.Payload}
	}

	if err := p.store.Upsert(ctx, stored); err != nil {
		return nil, fail(StoreFailure, locator, err)
	}

	p.logger.Info("content ingested",
		"locator", locator, "type", kind, "vectors", len(stored), "skipped", len(reqs)-len(stored))
	return &Result{Locator: locator, Type: kind, Vectors: len(stored)}, nil
}

// processImage captions, tags and OCRs an image, translating the caption
// and tags to Korean. Tag, OCR and translation failures degrade to empty
// values; only a failed caption kills the unit.
func (p *Pipeline) processImage(ctx context.Context, local, locator string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processImage")
	defer span.End()

	caption, err := p.perception.Caption(ctx, local)
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}

	tags, err := p.perception.Tags(ctx, local)
	if err != nil {
		p.logger.Warn("tagging failed, continuing without tags", "locator", locator, "error", err)
	}

	ocr, err := p.perception.OCR(ctx, local)
	if err != nil {
		p.logger.Warn("ocr failed, continuing without text", "locator", locator, "error", err)
		ocr = ""
	}

	caption, _ = p.perception.Translate(ctx, caption, true)
	if len(tags) > 0 {
		line, terr := p.perception.Translate(ctx, strings.Join(tags, ", "), false)
		if terr == nil {
			tags = splitTags(line)
		}
	}

	return p.persist(ctx, locator, &record.Image{
		Path:    locator,
		Caption: caption,
		Tags:    tags,
		OCR:     ocr,
	})
}

func splitTags(line string) []string {
	var tags []string
	for _, t := range strings.Split(line, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// processAudio transcribes an audio file and stores one vector per
// transcript chunk.
func (p *Pipeline) processAudio(ctx context.Context, local, locator string, fromVideo bool) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processAudio",
		trace.WithAttributes(attribute.Bool("media.from_video", fromVideo)))
	defer span.End()

	transcript, err := p.perception.Transcribe(ctx, local)
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}

	profile := p.profileFor("audio")
	chunks := chunk.SplitSentences(transcript, profile.Size, profile.Overlap)
	if len(chunks) == 0 {
		return nil, failf(PerceptionFailure, locator, "empty transcript")
	}

	records := make([]record.ContentRecord, len(chunks))
	for i, c := range chunks {
		records[i] = &record.Segment{
			Path:      locator,
			Index:     c.Index,
			Text:      c.Text,
			FromVideo: fromVideo,
		}
	}
	return p.persist(ctx, locator, records...)
}

// processDocument extracts text and stores the chunked document.
func (p *Pipeline) processDocument(ctx context.Context, local, locator string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processDocument")
	defer span.End()

	extraction, err := p.extractors.Extract(ctx, local)
	if err != nil {
		return nil, fail(ExtractionFailure, locator, err)
	}
	if strings.TrimSpace(extraction.Content) == "" {
		return nil, failf(ExtractionFailure, locator, "document has no text content")
	}

	return p.persist(ctx, locator, &record.Document{
		Path:    locator,
		Title:   extraction.Title,
		Content: extraction.Content,
		Profile: chunk.Profile(p.profileFor("document")),
	})
}

// processURL fetches a page, summarizes it and stores a single summary
// vector.
func (p *Pipeline) processURL(ctx context.Context, pageURL string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processURL")
	defer span.End()

	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fail(ExtractionFailure, pageURL, err)
	}
	if strings.TrimSpace(page.Content) == "" {
		return nil, failf(ExtractionFailure, pageURL, "page has no text content")
	}

	summary, err := p.perception.Summarize(ctx, page.Content)
	if err != nil {
		return nil, fail(PerceptionFailure, pageURL, err)
	}

	return p.persist(ctx, pageURL, &record.Page{
		URL:     pageURL,
		Title:   page.Title,
		Domain:  page.Domain,
		Summary: summary,
	})
}

func (p *Pipeline) profileFor(contentType string) config.ChunkProfile {
	var profile config.ChunkProfile
	switch contentType {
	case "document":
		profile = p.chunks.Document
	case "audio":
		profile = p.chunks.Audio
	case "crawled":
		profile = p.chunks.Crawled
	default:
		profile = p.chunks.Default
	}
	if profile == (config.ChunkProfile{}) {
		profile = config.ChunkProfile{Size: 500, Overlap: 100}
	}
	return profile
}
