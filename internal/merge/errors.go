package merge

import (
	"fmt"
	"strings"
)

// Reason classifies a merge failure
type Reason string

const (
	ReasonMissingInput Reason = "missing_input"
	ReasonOutputExists Reason = "output_exists"
	ReasonToolNotFound Reason = "tool_not_found"
	ReasonToolFailure  Reason = "tool_failure"
)

// Error is returned by Service.Merge. Output holds the tool's combined output when available.
type Error struct {
	Reason Reason
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("merge failed (%s)", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + lastLine(out)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
