package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyProvider fails the first failCount calls then succeeds.
type flakyProvider struct {
	failCount int
	calls     int
	err       error
}

func (f *flakyProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	f.calls++
	if f.calls <= f.failCount {
		return nil, f.err
	}
	return &Response{Content: "ok"}, nil
}

func (f *flakyProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failCount {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *flakyProvider) Transcribe(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failCount {
		return "", f.err
	}
	return "transcript", nil
}

func (f *flakyProvider) Name() string { return "flaky" }

func fastRetry(max int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: max,
		RetryDelay: time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyProvider{failCount: 2, err: errors.New("503 service unavailable")}
	p := NewRetryProvider(inner, fastRetry(3))

	resp, err := p.Complete(context.Background(), UserPrompt("", "hi"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	inner := &flakyProvider{failCount: 10, err: errors.New("401 Unauthorized")}
	p := NewRetryProvider(inner, fastRetry(5))

	_, err := p.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", inner.calls)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	inner := &flakyProvider{failCount: 10, err: errors.New("500 Internal Server Error")}
	p := NewRetryProvider(inner, fastRetry(2))

	_, err := p.Transcribe(context.Background(), "clip.mp3")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", inner.calls)
	}
}

func TestRetry_RespectsCancellation(t *testing.T) {
	inner := &flakyProvider{failCount: 10, err: errors.New("503 slow down")}
	p := NewRetryProvider(inner, &RetryConfig{
		MaxRetries: 5,
		RetryDelay: 50 * time.Millisecond,
		MaxDelay:   time.Second,
		Timeout:    time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Embed(ctx, []string{"a"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("502 Bad Gateway"), true},
		{"auth", errors.New("403 Forbidden"), false},
		{"not found", errors.New("404 Not Found"), false},
		{"validation", errors.New("422 Unprocessable Entity"), false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"unknown", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
