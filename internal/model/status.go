package model

// DownloadState represents the state of a single stream download
type DownloadState string

const (
	// DownloadStatePending means the download has not started yet
	DownloadStatePending DownloadState = "Pending"

	// DownloadStateInProgress means bytes are being transferred
	DownloadStateInProgress DownloadState = "InProgress"

	// DownloadStateCompleted means the whole stream is on disk
	DownloadStateCompleted DownloadState = "Completed"

	// DownloadStateFailed means the transfer was aborted
	DownloadStateFailed DownloadState = "Failed"
)

// String returns the string representation of DownloadState
func (ds DownloadState) String() string {
	return string(ds)
}

// IsFinished returns true if the download reached Completed or Failed
func (ds DownloadState) IsFinished() bool {
	return ds == DownloadStateCompleted || ds == DownloadStateFailed
}

// PipelineState represents the stage a pipeline run is in
type PipelineState string

const (
	PipelineStateIdle             PipelineState = "Idle"
	PipelineStateSelecting        PipelineState = "Selecting"
	PipelineStateDownloadingVideo PipelineState = "DownloadingVideo"
	PipelineStateDownloadingAudio PipelineState = "DownloadingAudio"
	PipelineStateMerging          PipelineState = "Merging"
	PipelineStateCleaningUp       PipelineState = "CleaningUp"
	PipelineStateCompleted        PipelineState = "Completed"
	PipelineStateFailed           PipelineState = "Failed"
)

// pipelineTransitions lists the forward edge of every non-terminal state.
// Failed is reachable from all of them.
var pipelineTransitions = map[PipelineState]PipelineState{
	PipelineStateIdle:             PipelineStateSelecting,
	PipelineStateSelecting:        PipelineStateDownloadingVideo,
	PipelineStateDownloadingVideo: PipelineStateDownloadingAudio,
	PipelineStateDownloadingAudio: PipelineStateMerging,
	PipelineStateMerging:          PipelineStateCleaningUp,
	PipelineStateCleaningUp:       PipelineStateCompleted,
}

// String returns the string representation of PipelineState
func (ps PipelineState) String() string {
	return string(ps)
}

// IsTerminal returns true for Completed and Failed
func (ps PipelineState) IsTerminal() bool {
	return ps == PipelineStateCompleted || ps == PipelineStateFailed
}

// IsDownloading returns true while one of the two streams is being fetched
func (ps PipelineState) IsDownloading() bool {
	return ps == PipelineStateDownloadingVideo || ps == PipelineStateDownloadingAudio
}

// CanTransition reports whether the state machine allows moving from ps to next
func (ps PipelineState) CanTransition(next PipelineState) bool {
	if ps.IsTerminal() {
		return false
	}
	if next == PipelineStateFailed {
		return true
	}
	return pipelineTransitions[ps] == next
}
