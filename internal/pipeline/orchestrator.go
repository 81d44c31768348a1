package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/download"
	"github.com/ytget/yt-merger/internal/logging"
	"github.com/ytget/yt-merger/internal/merge"
	"github.com/ytget/yt-merger/internal/model"
	"github.com/ytget/yt-merger/internal/platform"
	"github.com/ytget/yt-merger/internal/provider"
	"github.com/ytget/yt-merger/internal/selection"
)

// Run constants
const (
	RunIDPrefix         = "run-"
	DefaultFetchTimeout = 60 * time.Second
	DefaultRetryBackoff = 2 * time.Second

	videoSuffix = "video"
	audioSuffix = "audio"
)

// Merger combines a video and an audio file into outputPath
type Merger interface {
	Merge(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// Request describes a single run
type Request struct {
	URL       string
	OutputDir string
	TempDir   string // defaults to OutputDir
	LogDir    string // per-run log files; empty disables them
}

// Orchestrator sequences the stages of a run
type Orchestrator struct {
	provider     provider.StreamProvider
	downloader   download.StreamDownloader
	merger       Merger
	policy       selection.Policy
	retries      int
	retryBackoff time.Duration
	fetchTimeout time.Duration
	logger       *logrus.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPolicy sets the stream selection policy
func WithPolicy(p selection.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithRetries enables bounded retries of failed downloads
func WithRetries(retries int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if retries >= 0 {
			o.retries = retries
		}
		if backoff >= 0 {
			o.retryBackoff = backoff
		}
	}
}

// WithFetchTimeout bounds the metadata fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithLogger mirrors run logs to l; nil disables mirroring
func WithLogger(l *logrus.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an orchestrator
func New(p provider.StreamProvider, d download.StreamDownloader, m Merger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:     p,
		downloader:   d,
		merger:       m,
		policy:       selection.DefaultPolicy(),
		retryBackoff: DefaultRetryBackoff,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes a run synchronously and returns its outcome, which is also
// passed to l.OnDone.
func (o *Orchestrator) Run(ctx context.Context, req Request, l Listener) Outcome {
	return o.run(ctx, generateRunID(), req, l)
}

// Handle tracks a run started in the background
type Handle struct {
	id      string
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// ID returns the run id
func (h *Handle) ID() string {
	return h.id
}

// Done is closed once the run reached a terminal state
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes and returns its outcome
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// Cancel requests the run to stop at the next checkpoint
func (h *Handle) Cancel() {
	h.cancel()
}

// Start executes a run on its own goroutine
func (o *Orchestrator) Start(ctx context.Context, req Request, l Listener) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     generateRunID(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		defer cancel()
		h.outcome = o.run(ctx, h.id, req, l)
	}()
	return h
}

func (o *Orchestrator) run(ctx context.Context, id string, req Request, l Listener) Outcome {
	if l == nil {
		l = ListenerFuncs{}
	}
	if req.OutputDir == "" {
		req.OutputDir = "."
	}
	if req.TempDir == "" {
		req.TempDir = req.OutputDir
	}

	runLog := logging.NewRunLogger(o.logger, l.OnLog)
	defer runLog.Close()

	r := &runState{
		o:        o,
		req:      req,
		run:      model.NewPipelineRun(id, req.URL, req.OutputDir, req.TempDir),
		listener: l,
		runLog:   runLog,
		log:      runLog.WithFields(logrus.Fields{"run_id": id, "url": req.URL}),
	}
	r.listenState, _ = l.(StateListener)
	r.listenMeta, _ = l.(MetadataListener)

	outcome := r.execute(ctx)
	l.OnDone(outcome)
	return outcome
}

// runState carries one run through its stages. Used by a single goroutine.
type runState struct {
	o           *Orchestrator
	req         Request
	run         *model.PipelineRun
	listener    Listener
	listenState StateListener
	listenMeta  MetadataListener
	runLog      *logging.RunLogger
	log         *logrus.Entry
}

func (r *runState) execute(ctx context.Context) Outcome {
	run := r.run
	container := r.o.policy.ContainerOrDefault()

	if err := r.transition(model.PipelineStateSelecting); err != nil {
		return r.fail(KindProviderError, "invalid state", err)
	}
	if run.URL == "" {
		return r.fail(KindProviderError, "no URL given", nil)
	}

	r.log.Infof("Fetching video information for %s", run.URL)
	fetchCtx, cancelFetch := context.WithTimeout(ctx, r.o.fetchTimeout)
	meta, streams, err := r.o.provider.Fetch(fetchCtx, run.URL)
	cancelFetch()
	if err != nil {
		if ctx.Err() != nil {
			return r.fail(KindCanceled, "canceled while fetching video information", ctx.Err())
		}
		return r.fail(KindProviderError, "failed to fetch video information", err)
	}
	if meta == nil {
		return r.fail(KindProviderError, "provider returned no metadata", nil)
	}
	run.Metadata = meta
	if r.listenMeta != nil {
		r.listenMeta.OnMetadata(*meta)
	}

	if r.req.LogDir != "" {
		logPath := filepath.Join(r.req.LogDir, platform.SanitizeTitle(meta.Title)+logging.RunLogExtension)
		if err := r.runLog.AttachFile(logPath); err != nil {
			r.log.Warnf("Could not create run log file: %v", err)
		}
	}
	r.log.Infof("Title: %s", meta.Title)
	r.log.Debugf("Provider returned %d streams", len(streams))

	run.Selection = selection.Select(streams, r.o.policy)
	if run.Selection.Video == nil {
		return r.fail(KindNoSuitableStream, fmt.Sprintf("no adaptive video stream in %s container", container), nil)
	}
	if run.Selection.Audio == nil {
		return r.fail(KindNoSuitableStream, fmt.Sprintf("no audio-only stream in %s container", container), nil)
	}
	r.log.Infof("Selected video %s (%s) and audio %s (%s)",
		run.Selection.Video.Label(), humanize.Bytes(uint64(max(run.Selection.Video.TotalBytes, 0))),
		run.Selection.Audio.Label(), humanize.Bytes(uint64(max(run.Selection.Audio.TotalBytes, 0))))

	run.OutputPath = filepath.Join(run.OutputDir, platform.SanitizeTitle(meta.Title)+"."+container)
	if _, err := os.Stat(run.OutputPath); err == nil {
		return r.fail(KindMergeError, "output file already exists", &merge.Error{Reason: merge.ReasonOutputExists,
			Err: fmt.Errorf("%s already exists", run.OutputPath)})
	}
	for _, dir := range []string{run.OutputDir, run.TempDir} {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			return r.fail(KindDownloadError, "failed to create directory",
				&download.Error{Reason: download.ReasonDisk, Path: dir, Err: err})
		}
	}

	// Video
	if err := ctx.Err(); err != nil {
		return r.failCanceled(err)
	}
	run.VideoTask = model.NewDownloadTask(*run.Selection.Video, r.intermediatePath(videoSuffix, container))
	if err := r.transition(model.PipelineStateDownloadingVideo); err != nil {
		return r.fail(KindDownloadError, "invalid state", err)
	}
	r.log.Infof("Downloading video stream to %s", run.VideoTask.DestinationPath)
	if err := r.download(ctx, run.VideoTask); err != nil {
		return r.failDownload(ctx, "video download failed", err)
	}
	r.log.Info("Video download finished")

	// Audio
	if err := ctx.Err(); err != nil {
		return r.failCanceled(err)
	}
	run.AudioTask = model.NewDownloadTask(*run.Selection.Audio, r.intermediatePath(audioSuffix, container))
	if err := r.transition(model.PipelineStateDownloadingAudio); err != nil {
		return r.fail(KindDownloadError, "invalid state", err)
	}
	r.log.Infof("Downloading audio stream to %s", run.AudioTask.DestinationPath)
	if err := r.download(ctx, run.AudioTask); err != nil {
		return r.failDownload(ctx, "audio download failed", err)
	}
	r.log.Info("Audio download finished")

	// Merge
	if err := ctx.Err(); err != nil {
		return r.failCanceled(err)
	}
	if err := r.transition(model.PipelineStateMerging); err != nil {
		return r.fail(KindMergeError, "invalid state", err)
	}
	r.log.Infof("Merging into %s", run.OutputPath)
	if err := r.o.merger.Merge(ctx, run.VideoTask.DestinationPath, run.AudioTask.DestinationPath, run.OutputPath); err != nil {
		if ctx.Err() != nil {
			return r.failCanceled(ctx.Err())
		}
		r.log.Warnf("Intermediate files kept for manual recovery: %v", run.IntermediatePaths())
		return r.fail(KindMergeError, "merge failed", err)
	}

	// Cleanup
	if err := r.transition(model.PipelineStateCleaningUp); err != nil {
		return r.fail(KindMergeError, "invalid state", err)
	}
	warnings := Cleanup(run, r.log)
	if err := r.transition(model.PipelineStateCompleted); err != nil {
		return r.fail(KindCleanupWarning, "invalid state", err)
	}

	if len(warnings) > 0 {
		r.log.Warnf("Completed with %d cleanup warning(s): %s", len(warnings), run.OutputPath)
	} else {
		r.log.Infof("Completed: %s", run.OutputPath)
	}
	return Outcome{
		RunID:      run.ID,
		Status:     StatusCompleted,
		OutputPath: run.OutputPath,
		Warnings:   warnings,
	}
}

func (r *runState) intermediatePath(kind, container string) string {
	return filepath.Join(r.run.TempDir, fmt.Sprintf("%s.%s.%s", r.run.ID, kind, container))
}

// download runs the downloader with bounded retries on retryable errors
func (r *runState) download(ctx context.Context, task *model.DownloadTask) error {
	var lastErr error
	for attempt := 0; attempt <= r.o.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.o.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			r.log.Infof("Retrying %s download, attempt %d", task.Stream.Kind, attempt+1)
		}

		err := r.o.downloader.Download(ctx, task, r.listener.OnProgress)
		if err == nil {
			return nil
		}
		lastErr = err
		r.log.Debugf("Download attempt %d failed: %v", attempt+1, err)

		var dlErr *download.Error
		if ctx.Err() != nil || (errors.As(err, &dlErr) && !dlErr.Retryable()) {
			return err
		}
	}
	return lastErr
}

func (r *runState) transition(next model.PipelineState) error {
	if err := r.run.Transition(next); err != nil {
		return err
	}
	r.log.Debugf("State: %s", next)
	if r.listenState != nil {
		r.listenState.OnState(next)
	}
	return nil
}

// failDownload fails the run, then removes partial intermediates
func (r *runState) failDownload(ctx context.Context, message string, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return r.failCanceled(err)
	}
	outcome := r.fail(KindDownloadError, message, err)
	Cleanup(r.run, r.log)
	return outcome
}

func (r *runState) failCanceled(err error) Outcome {
	outcome := r.fail(KindCanceled, "run canceled", err)
	Cleanup(r.run, r.log)
	return outcome
}

func (r *runState) fail(kind ErrorKind, message string, err error) Outcome {
	f := &Failure{Kind: kind, Message: message, Err: err}
	if !r.run.State.IsTerminal() {
		_ = r.transition(model.PipelineStateFailed)
	}
	r.log.Errorf("Failed: %v", f)
	return Outcome{
		RunID:   r.run.ID,
		Status:  StatusFailed,
		Failure: f,
	}
}

// Cleanup deletes the run's intermediate files. Absent files are skipped, so
// calling it again is a no-op. Deletion errors are returned as warnings.
func Cleanup(run *model.PipelineRun, log logrus.FieldLogger) []*Failure {
	var warnings []*Failure
	for _, path := range run.IntermediatePaths() {
		removed, err := platform.RemoveIfExists(path)
		if err != nil {
			w := &Failure{Kind: KindCleanupWarning, Message: "could not delete " + path, Err: err}
			if log != nil {
				log.Warnf("Could not delete intermediate %s: %v", path, err)
			}
			warnings = append(warnings, w)
			continue
		}
		if removed && log != nil {
			log.Infof("Deleted intermediate %s", path)
		}
	}
	return warnings
}

// generateRunID generates a unique, time ordered run id
func generateRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(RunIDPrefix+"%d", time.Now().UnixNano())
	}
	return RunIDPrefix + id.String()
}
