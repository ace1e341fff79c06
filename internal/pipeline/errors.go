package pipeline

import (
	"errors"
	"fmt"
)

// FailureKind classifies where in the pipeline a unit of work died.
type FailureKind string

const (
	ValidationFailure FailureKind = "validation"
	PerceptionFailure FailureKind = "perception"
	EmbeddingFailure  FailureKind = "embedding"
	StoreFailure      FailureKind = "store"
	ExtractionFailure FailureKind = "extraction"
)

// Failure is the pipeline's error type. It carries the stage that failed
// and the locator of the unit being processed so bulk runs can report which
// inputs died where.
type Failure struct {
	Kind    FailureKind
	Locator string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s failure: %s", f.Kind, f.Locator)
	}
	return fmt.Sprintf("%s failure: %s: %v", f.Kind, f.Locator, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches any *Failure of the same kind, so callers can write
// errors.Is(err, &Failure{Kind: EmbeddingFailure}).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Locator == "" || t.Locator == f.Locator)
}

func fail(kind FailureKind, locator string, err error) error {
	return &Failure{Kind: kind, Locator: locator, Err: err}
}

func failf(kind FailureKind, locator, format string, args ...any) error {
	return &Failure{Kind: kind, Locator: locator, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain; ok is false when the
// error is not a pipeline failure.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
