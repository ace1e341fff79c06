// Package temporal runs directory-scale ingestion as a durable workflow.
// Every file becomes its own activity so a crashed worker resumes mid-run
// instead of re-processing the whole batch.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BulkIngestInput holds the workflow parameters.
type BulkIngestInput struct {
	// Paths are files or directories to ingest.
	Paths []string

	// SaveFrames keeps sampled video frames on disk after processing.
	SaveFrames bool

	// ImageConcurrency bounds how many image activities run at once
	// (0 uses the pipeline default).
	ImageConcurrency int
}

// BulkIngestOutput holds the aggregated workflow result.
type BulkIngestOutput struct {
	Processed int
	Skipped   int
	Failed    int
	PerType   map[string]int
	Failures  []string
}

// BulkIngestWorkflow classifies the input paths, fans images out across
// concurrent activities and runs the heavier media types sequentially.
// A failed unit is recorded and the run continues.
func BulkIngestWorkflow(ctx workflow.Context, input BulkIngestInput) (*BulkIngestOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var media ClassifiedMedia
	if err := workflow.ExecuteActivity(ctx, ClassifyMediaActivity, input.Paths).Get(ctx, &media); err != nil {
		return nil, err
	}

	output := &BulkIngestOutput{
		Skipped: media.Skipped,
		PerType: make(map[string]int),
	}

	concurrency := input.ImageConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	// Images in bounded waves of futures.
	for start := 0; start < len(media.Images); start += concurrency {
		end := min(start+concurrency, len(media.Images))
		futures := make([]workflow.Future, 0, end-start)
		for _, path := range media.Images[start:end] {
			futures = append(futures, workflow.ExecuteActivity(ctx, IngestMediaActivity, IngestItem{
				Path: path,
				Type: "image",
			}))
		}
		for _, f := range futures {
			collect(ctx, f, output)
		}
		if err := workflow.ExecuteActivity(ctx, ReleaseCacheActivity).Get(ctx, nil); err != nil {
			workflow.GetLogger(ctx).Warn("cache release failed", "error", err)
		}
	}

	sequential := []struct {
		paths []string
		kind  string
	}{
		{media.Videos, "video"},
		{media.Audios, "audio"},
		{media.Documents, "document"},
	}
	for _, group := range sequential {
		for _, path := range group.paths {
			f := workflow.ExecuteActivity(ctx, IngestMediaActivity, IngestItem{
				Path:       path,
				Type:       group.kind,
				SaveFrames: input.SaveFrames,
			})
			collect(ctx, f, output)
		}
	}

	return output, nil
}

// collect folds one activity outcome into the aggregate.
func collect(ctx workflow.Context, f workflow.Future, output *BulkIngestOutput) {
	var res IngestItemResult
	if err := f.Get(ctx, &res); err != nil {
		output.Failed++
		output.Failures = append(output.Failures, err.Error())
		return
	}
	output.Processed++
	output.PerType[res.Type]++
}
