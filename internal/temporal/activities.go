package temporal

import (
	"context"

	"github.com/medialens/medialens/internal/pipeline"
)

// ClassifiedMedia is the serializable classification passed back to the
// workflow.
type ClassifiedMedia struct {
	Images    []string
	Videos    []string
	Audios    []string
	Documents []string
	Skipped   int
}

// IngestItem is one unit of work handed to an activity.
type IngestItem struct {
	Path       string
	Type       string
	SaveFrames bool
}

// IngestItemResult is the serializable outcome of one ingestion.
type IngestItemResult struct {
	Locator string
	Type    string
	Vectors int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ClassifyMediaActivity walks the input paths and buckets every file by
// content class.
func ClassifyMediaActivity(_ context.Context, paths []string) (ClassifiedMedia, error) {
	media, err := pipeline.ClassifyMedia(paths)
	if err != nil {
		return ClassifiedMedia{}, err
	}
	return ClassifiedMedia{
		Images:    media.Images,
		Videos:    media.Videos,
		Audios:    media.Audios,
		Documents: media.Documents,
		Skipped:   media.Skipped,
	}, nil
}

// IngestMediaActivity runs the full pipeline for one file.
func IngestMediaActivity(ctx context.Context, item IngestItem) (IngestItemResult, error) {
	res, err := deps.Pipeline.Ingest(ctx, pipeline.Request{
		FileURL:    item.Path,
		FileType:   item.Type,
		SaveFrames: item.SaveFrames,
	})
	if err != nil {
		return IngestItemResult{}, err
	}
	return IngestItemResult{
		Locator: res.Locator,
		Type:    string(res.Type),
		Vectors: res.Vectors,
	}, nil
}

// ReleaseCacheActivity drops memoized perception results between image
// waves.
func ReleaseCacheActivity(_ context.Context) error {
	deps.Pipeline.ReleaseCache()
	return nil
}
