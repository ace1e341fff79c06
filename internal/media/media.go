// Package media wraps ffmpeg and ffprobe for the probing and extraction the
// pipeline needs: stream info, audio tracks, mean volume and frame sampling.
package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Info describes a media file's streams.
type Info struct {
	Duration float64
	FPS      float64
	HasAudio bool
}

// Probe reads duration, frame rate and audio presence with ffprobe.
func Probe(ctx context.Context, path string) (*Info, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &Info{}
	info.Duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if info.FPS == 0 {
				info.FPS = parseRate(s.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// parseRate converts an ffprobe rational like "30000/1001" to a float.
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// ExtractAudio pulls the audio track of a video into an AAC file.
func ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", videoPath,
		"-vn", "-c:a", "aac",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg audio extract: %w: %s", err, stderr.String())
	}
	return nil
}

// MeanRMS decodes an audio file to mono 16-bit PCM and returns the root mean
// square amplitude of its samples. Silence is near zero; the pipeline treats
// values above its configured threshold as a meaningful soundtrack.
func MeanRMS(ctx context.Context, audioPath string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", audioPath,
		"-f", "s16le", "-ac", "1", "-ar", "8000",
		"-",
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg pcm decode: %w", err)
	}
	return pcmRMS(out), nil
}

// pcmRMS computes the RMS of little-endian signed 16-bit samples.
func pcmRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// FrameInterval returns the sampling interval in seconds for a video of the
// given duration. Short clips are sampled densely, long ones sparsely.
func FrameInterval(duration float64) int {
	switch {
	case duration < 60:
		return 15
	case duration < 300:
		return 30
	default:
		return 45
	}
}

// FrameStride converts a sampling interval to a stride in frames.
func FrameStride(fps float64, intervalSeconds int) int {
	stride := int(fps * float64(intervalSeconds))
	if stride < 1 {
		stride = 1
	}
	return stride
}

// SampledFrame is one extracted frame image.
type SampledFrame struct {
	Path        string
	FrameNumber int
	Offset      float64 // seconds from the start
}

// SampleFrames extracts every stride-th frame of a video as JPEG files under
// dir and returns them in order.
func SampleFrames(ctx context.Context, videoPath string, fps float64, stride int, dir string) ([]SampledFrame, error) {
	pattern := filepath.Join(dir, "frame_%06d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", videoPath,
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))'", stride),
		"-vsync", "vfr",
		pattern,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame sampling: %w: %s", err, stderr.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing frames: %w", err)
	}

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "frame_") && strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]SampledFrame, len(names))
	for i, name := range names {
		number := i * stride
		offset := 0.0
		if fps > 0 {
			offset = float64(number) / fps
		}
		frames[i] = SampledFrame{
			Path:        filepath.Join(dir, name),
			FrameNumber: number,
			Offset:      offset,
		}
	}
	return frames, nil
}
