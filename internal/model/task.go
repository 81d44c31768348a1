package model

import (
	"fmt"
	"time"
)

// DownloadTask is one stream being fetched to a local path.
// It is owned by the downloader processing it.
type DownloadTask struct {
	Stream          StreamDescriptor
	DestinationPath string
	BytesDownloaded int64
	State           DownloadState
}

// NewDownloadTask creates a pending task for stream
func NewDownloadTask(stream StreamDescriptor, destination string) *DownloadTask {
	return &DownloadTask{
		Stream:          stream,
		DestinationPath: destination,
		State:           DownloadStatePending,
	}
}

// Percent returns floor(BytesDownloaded/TotalBytes*100), clamped to 0..100
func (dt *DownloadTask) Percent() int {
	if dt.Stream.TotalBytes <= 0 {
		return 0
	}
	p := dt.BytesDownloaded * 100 / dt.Stream.TotalBytes
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// PipelineRun is the state of one URL going through the pipeline.
// Created per invocation and never shared between runs.
type PipelineRun struct {
	ID         string
	URL        string
	OutputDir  string
	TempDir    string
	Metadata   *VideoMetadata
	Selection  SelectionResult
	VideoTask  *DownloadTask
	AudioTask  *DownloadTask
	OutputPath string
	State      PipelineState
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewPipelineRun creates an idle run
func NewPipelineRun(id, url, outputDir, tempDir string) *PipelineRun {
	return &PipelineRun{
		ID:        id,
		URL:       url,
		OutputDir: outputDir,
		TempDir:   tempDir,
		State:     PipelineStateIdle,
		StartedAt: time.Now(),
	}
}

// Transition moves the run to next, enforcing the state machine.
// Merging additionally requires both download tasks to be completed.
func (r *PipelineRun) Transition(next PipelineState) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("invalid pipeline transition %s -> %s", r.State, next)
	}
	if next == PipelineStateMerging && !r.downloadsCompleted() {
		return fmt.Errorf("cannot merge before both downloads completed")
	}
	r.State = next
	if next.IsTerminal() {
		r.FinishedAt = time.Now()
	}
	return nil
}

// IntermediatePaths returns the paths of the downloaded video and audio files
// that exist for this run so far.
func (r *PipelineRun) IntermediatePaths() []string {
	var paths []string
	for _, t := range []*DownloadTask{r.VideoTask, r.AudioTask} {
		if t != nil && t.DestinationPath != "" {
			paths = append(paths, t.DestinationPath)
		}
	}
	return paths
}

// GetDisplayTitle returns the video title, or the URL before metadata is known
func (r *PipelineRun) GetDisplayTitle() string {
	if r.Metadata != nil && r.Metadata.Title != "" {
		return r.Metadata.Title
	}
	return r.URL
}

func (r *PipelineRun) downloadsCompleted() bool {
	return r.VideoTask != nil && r.AudioTask != nil &&
		r.VideoTask.State == DownloadStateCompleted &&
		r.AudioTask.State == DownloadStateCompleted
}
