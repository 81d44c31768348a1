package pipeline

import "fmt"

// ErrorKind tells callers which stage a run failed in
type ErrorKind string

const (
	// KindProviderError means metadata or the stream list could not be fetched
	KindProviderError ErrorKind = "ProviderError"
	// KindNoSuitableStream means selection found no video or no audio candidate
	KindNoSuitableStream ErrorKind = "NoSuitableStream"
	// KindDownloadError means a stream transfer failed after selection
	KindDownloadError ErrorKind = "DownloadError"
	// KindMergeError means the merge tool failed; intermediates are kept
	KindMergeError ErrorKind = "MergeError"
	// KindCleanupWarning means an intermediate could not be deleted after success
	KindCleanupWarning ErrorKind = "CleanupWarning"
	// KindCanceled means the run's context was canceled
	KindCanceled ErrorKind = "Canceled"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// Failure describes why a run failed, or a non-fatal warning
type Failure struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause
func (f *Failure) Unwrap() error {
	return f.Err
}
