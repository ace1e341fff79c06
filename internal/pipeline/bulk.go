package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/medialens/medialens/internal/extract"
)

// BulkResult aggregates a directory-scale run.
type BulkResult struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	PerType   map[string]int `json:"per_type"`
	Failures  []string       `json:"failures,omitempty"`
}

// IngestDirectory walks the given paths (files or directories), classifies
// every file by extension and ingests what it recognizes. Images run on a
// bounded concurrent pool in batches, with the perception cache released
// between batches; videos, audio and documents run sequentially. A failed
// unit is counted and reported, never fatal.
func (p *Pipeline) IngestDirectory(ctx context.Context, paths []string) (*BulkResult, error) {
	media, err := ClassifyMedia(paths)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{
		Skipped: media.Skipped,
		PerType: make(map[string]int),
	}

	p.logger.Info("bulk ingestion starting",
		"images", len(media.Images), "videos", len(media.Videos),
		"audio", len(media.Audios), "documents", len(media.Documents), "skipped", media.Skipped)

	p.ingestImages(ctx, media.Images, result)

	for _, path := range media.Videos {
		p.ingestOne(ctx, Request{FileURL: path, FileType: "video"}, result)
	}
	for _, path := range media.Audios {
		p.ingestOne(ctx, Request{FileURL: path, FileType: "audio"}, result)
	}
	for _, path := range media.Documents {
		p.ingestOne(ctx, Request{FileURL: path, FileType: "document"}, result)
	}

	p.logger.Info("bulk ingestion finished",
		"processed", result.Processed, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// ingestImages processes images in batches of the configured concurrency.
// Each batch runs on its own bounded pool with a batch-local result slice
// merged after the pool drains, then the perception cache is dropped.
func (p *Pipeline) ingestImages(ctx context.Context, images []string, result *BulkResult) {
	concurrency := p.ingest.ImageConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	for start := 0; start < len(images); start += concurrency {
		batch := images[start:min(start+concurrency, len(images))]

		type unit struct {
			res *Result
			err error
		}
		local := make([]unit, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, path := range batch {
			g.Go(func() error {
				res, err := p.Ingest(gctx, Request{FileURL: path, FileType: "image"})
				local[i] = unit{res: res, err: err}
				return nil
			})
		}
		g.Wait()

		for i, u := range local {
			p.record(batch[i], u.res, u.err, result)
		}

		p.perception.ReleaseCache()
		p.logger.Info("image batch done", "batch_end", start+len(batch), "total", len(images))
	}
}

func (p *Pipeline) ingestOne(ctx context.Context, req Request, result *BulkResult) {
	res, err := p.Ingest(ctx, req)
	p.record(req.FileURL, res, err, result)
}

// record folds one unit outcome into the aggregate. Image batches call it
// after their pool drains, so no locking is needed within a run.
func (p *Pipeline) record(path string, res *Result, err error, result *BulkResult) {
	if err != nil {
		result.Failed++
		result.Failures = append(result.Failures, err.Error())
		p.logger.Warn("unit failed", "locator", path, "error", err)
		return
	}
	result.Processed++
	result.PerType[string(res.Type)]++
}

// ClassifiedMedia groups discovered file paths by content class.
type ClassifiedMedia struct {
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
	Audios    []string `json:"audios"`
	Documents []string `json:"documents"`
	Skipped   int      `json:"skipped"`
}

// ClassifyMedia expands files and directories into per-class path lists,
// deduplicating while keeping first-seen order.
func ClassifyMedia(paths []string) (*ClassifiedMedia, error) {
	seen := make(map[string]bool)
	media := &ClassifiedMedia{}

	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		switch extract.Classify(path) {
		case extract.ClassImage:
			media.Images = append(media.Images, path)
		case extract.ClassVideo:
			media.Videos = append(media.Videos, path)
		case extract.ClassAudio:
			media.Audios = append(media.Audios, path)
		case extract.ClassDocument:
			media.Documents = append(media.Documents, path)
		default:
			media.Skipped++
		}
	}

	for _, root := range paths {
		info, statErr := os.Stat(root)
		if statErr != nil {
			return nil, statErr
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}
	return media, nil
}
