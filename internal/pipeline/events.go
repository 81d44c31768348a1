package pipeline

import (
	"github.com/ytget/yt-merger/internal/model"
)

// Status is the terminal classification of a run
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Outcome is delivered once per run through Listener.OnDone
type Outcome struct {
	RunID      string
	Status     Status
	OutputPath string     // set when Completed
	Failure    *Failure   // set when Failed
	Warnings   []*Failure // cleanup warnings of a completed run
}

// Completed reports whether the run produced its output
func (o Outcome) Completed() bool {
	return o.Status == StatusCompleted
}

// Err returns the failure as an error, or nil
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Listener receives the events of one run, in order, from the goroutine
// executing it.
type Listener interface {
	OnLog(message string)
	// OnProgress reports 0..100 for the current download stage; it
	// restarts for each stage.
	OnProgress(percent int)
	OnDone(outcome Outcome)
}

// StateListener is optionally implemented by a Listener to observe state changes
type StateListener interface {
	OnState(state model.PipelineState)
}

// MetadataListener is optionally implemented by a Listener to receive the
// video metadata once fetched
type MetadataListener interface {
	OnMetadata(meta model.VideoMetadata)
}

// ListenerFuncs adapts plain functions to Listener, StateListener and
// MetadataListener. Nil fields are ignored.
type ListenerFuncs struct {
	Log      func(message string)
	Progress func(percent int)
	Done     func(outcome Outcome)
	State    func(state model.PipelineState)
	Metadata func(meta model.VideoMetadata)
}

func (f ListenerFuncs) OnLog(message string) {
	if f.Log != nil {
		f.Log(message)
	}
}

func (f ListenerFuncs) OnProgress(percent int) {
	if f.Progress != nil {
		f.Progress(percent)
	}
}

func (f ListenerFuncs) OnDone(outcome Outcome) {
	if f.Done != nil {
		f.Done(outcome)
	}
}

func (f ListenerFuncs) OnState(state model.PipelineState) {
	if f.State != nil {
		f.State(state)
	}
}

func (f ListenerFuncs) OnMetadata(meta model.VideoMetadata) {
	if f.Metadata != nil {
		f.Metadata(meta)
	}
}

// MultiListener fans events out to several listeners in order
type MultiListener []Listener

func (m MultiListener) OnLog(message string) {
	for _, l := range m {
		l.OnLog(message)
	}
}

func (m MultiListener) OnProgress(percent int) {
	for _, l := range m {
		l.OnProgress(percent)
	}
}

func (m MultiListener) OnDone(outcome Outcome) {
	for _, l := range m {
		l.OnDone(outcome)
	}
}

func (m MultiListener) OnState(state model.PipelineState) {
	for _, l := range m {
		if sl, ok := l.(StateListener); ok {
			sl.OnState(state)
		}
	}
}

func (m MultiListener) OnMetadata(meta model.VideoMetadata) {
	for _, l := range m {
		if ml, ok := l.(MetadataListener); ok {
			ml.OnMetadata(meta)
		}
	}
}
