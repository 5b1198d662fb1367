package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when the interactive crop stage ends without a
// region. It marks a normal user cancellation, not a failure; no storage or
// document call has happened when Run returns it.
var ErrCancelled = errors.New("pipeline cancelled")

// ValidationError rejects bad input before any expensive work. The reason is
// meant to be shown to the end user as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// TimeoutError is raised only by the compression stage. It is a hard stop:
// callers must not fall back to the uncompressed original and should tell the
// user to pick a smaller file.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("image compression timed out after %s", e.Timeout)
}

// CompressionError covers non-timeout normalization failures. The pipeline
// recovers from these by continuing with the original bytes, so it surfaces
// only in logs.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress image: %v", e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// UploadError wraps failures from the upload stage with the filename so
// multi-file callers can report which file failed.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
