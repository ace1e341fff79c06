package pipeline

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medialens/medialens/internal/media"
	"github.com/medialens/medialens/internal/record"
)

// processVideo routes a video by its soundtrack: tracks louder than the
// configured RMS threshold go through transcription as video_with_audio,
// quiet or silent videos get frame sampling and captioning.
func (p *Pipeline) processVideo(ctx context.Context, local, locator string, saveFrames bool) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.processVideo")
	defer span.End()

	info, err := media.Probe(ctx, local)
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}

	if info.HasAudio {
		loud, err := p.hasMeaningfulAudio(ctx, local)
		if err != nil {
			p.logger.Warn("audio volume check failed, falling back to frames",
				"locator", locator, "error", err)
		} else if loud {
			return p.transcribeVideoAudio(ctx, local, locator)
		}
	}

	return p.captionFrames(ctx, local, locator, info, saveFrames)
}

// hasMeaningfulAudio extracts the track to a temp file and compares its
// mean RMS against the threshold.
func (p *Pipeline) hasMeaningfulAudio(ctx context.Context, local string) (bool, error) {
	audioPath, cleanup, err := p.tempPath("audio-*.m4a")
	if err != nil {
		return false, err
	}
	defer cleanup()

	if err := media.ExtractAudio(ctx, local, audioPath); err != nil {
		return false, err
	}
	rms, err := media.MeanRMS(ctx, audioPath)
	if err != nil {
		return false, err
	}

	threshold := p.ingest.VolumeThreshold
	if threshold == 0 {
		threshold = 30
	}
	p.logger.Debug("audio volume probed", "rms", rms, "threshold", threshold)
	return rms > threshold, nil
}

// transcribeVideoAudio runs the audio path on the video's extracted track,
// tagging the segments as video_with_audio.
func (p *Pipeline) transcribeVideoAudio(ctx context.Context, local, locator string) (*Result, error) {
	audioPath, cleanup, err := p.tempPath("audio-*.m4a")
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}
	defer cleanup()

	if err := media.ExtractAudio(ctx, local, audioPath); err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}
	return p.processAudio(ctx, audioPath, locator, true)
}

// captionFrames samples frames at the duration-tier interval and captions
// each one. Frames whose caption fails are skipped.
func (p *Pipeline) captionFrames(ctx context.Context, local, locator string, info *media.Info, saveFrames bool) (*Result, error) {
	interval := media.FrameInterval(info.Duration)
	stride := media.FrameStride(info.FPS, interval)

	ctx, span := p.tracer.Start(ctx, "pipeline.captionFrames",
		trace.WithAttributes(
			attribute.Float64("video.duration", info.Duration),
			attribute.Int("video.stride", stride),
		))
	defer span.End()

	frameDir, err := os.MkdirTemp(p.ingest.TempDir, "frames-")
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}
	if !saveFrames {
		defer os.RemoveAll(frameDir)
	}

	frames, err := media.SampleFrames(ctx, local, info.FPS, stride, frameDir)
	if err != nil {
		return nil, fail(PerceptionFailure, locator, err)
	}
	if len(frames) == 0 {
		return nil, failf(PerceptionFailure, locator, "no frames sampled")
	}

	var records []record.ContentRecord
	for _, frame := range frames {
		caption, err := p.perception.Caption(ctx, frame.Path)
		if err != nil {
			p.logger.Warn("frame caption failed, skipping frame",
				"locator", locator, "frame", frame.FrameNumber, "error", err)
			continue
		}
		caption, _ = p.perception.Translate(ctx, caption, true)
		records = append(records, &record.Frame{
			Path:        locator,
			FrameNumber: frame.FrameNumber,
			Offset:      frame.Offset,
			Caption:     caption,
		})
	}
	if len(records) == 0 {
		return nil, failf(PerceptionFailure, locator, "all %d frame captions failed", len(frames))
	}

	return p.persist(ctx, locator, records...)
}

// tempPath reserves a temp file name and returns a cleanup for it.
func (p *Pipeline) tempPath(pattern string) (string, func(), error) {
	f, err := os.CreateTemp(p.ingest.TempDir, pattern)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	f.Close()
	// ffmpeg refuses to overwrite unless -y; the file exists either way.
	return name, func() { os.Remove(name) }, nil
}
