package download

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies a download failure
type Reason string

const (
	ReasonInvalidStream Reason = "invalid_stream"
	ReasonNetwork       Reason = "network"
	ReasonDisk          Reason = "disk"
	ReasonTruncated     Reason = "truncated"
)

// Error is returned by Downloader.Download
type Error struct {
	Reason Reason
	Path   string
	Err    error
}

// ErrInvalidStream matches any *Error with ReasonInvalidStream via errors.Is
var ErrInvalidStream = &Error{Reason: ReasonInvalidStream}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s failed (%s): %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("download %s failed (%s)", e.Path, e.Reason)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same Reason
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Reason == t.Reason
	}
	return false
}

// Retryable reports whether downloading again may succeed
func (e *Error) Retryable() bool {
	if e.Reason == ReasonInvalidStream {
		return false
	}
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}
