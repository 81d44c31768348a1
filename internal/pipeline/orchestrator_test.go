package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-merger/internal/download"
	"github.com/ytget/yt-merger/internal/merge"
	"github.com/ytget/yt-merger/internal/model"
	"github.com/ytget/yt-merger/internal/selection"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type fakeProvider struct {
	mu       sync.Mutex
	title    string
	streams  []model.StreamDescriptor
	fetchErr error
	block    bool // Fetch waits for ctx
	readers  map[string]func() io.Reader
	openErrs map[string]int // fail the first n opens of a stream
	opened   []string
	fetching int
	maxFetch int
}

func (f *fakeProvider) Fetch(ctx context.Context, url string) (*model.VideoMetadata, []model.StreamDescriptor, error) {
	f.mu.Lock()
	f.fetching++
	if f.fetching > f.maxFetch {
		f.maxFetch = f.fetching
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.fetching--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if f.fetchErr != nil {
		return nil, nil, f.fetchErr
	}
	return &model.VideoMetadata{ID: "abc", Title: f.title, SourceURL: url}, f.streams, nil
}

func (f *fakeProvider) Open(_ context.Context, stream model.StreamDescriptor) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, stream.ID)
	if f.openErrs[stream.ID] > 0 {
		f.openErrs[stream.ID]--
		return nil, errors.New("stream temporarily unavailable")
	}
	if mk, ok := f.readers[stream.ID]; ok {
		return io.NopCloser(mk()), nil
	}
	return io.NopCloser(io.LimitReader(zeroReader{}, stream.TotalBytes)), nil
}

func (f *fakeProvider) openedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

type fakeMerger struct {
	mu     sync.Mutex
	calls  [][3]string
	err    error
	exists map[string]bool
	after  func(videoPath, audioPath string) error // runs after a successful merge
}

func (m *fakeMerger) Merge(_ context.Context, videoPath, audioPath, outputPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, [3]string{videoPath, audioPath, outputPath})
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, p := range []string{videoPath, audioPath} {
		if _, err := os.Stat(p); err != nil {
			return &merge.Error{Reason: merge.ReasonMissingInput, Err: err}
		}
	}
	if err := os.WriteFile(outputPath, []byte("merged"), 0o644); err != nil {
		return err
	}
	if m.after != nil {
		return m.after(videoPath, audioPath)
	}
	return nil
}

func (m *fakeMerger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// recorder keeps every event in order
type recorder struct {
	mu       sync.Mutex
	events   []string
	logs     []string
	progress map[model.PipelineState][]int
	states   []model.PipelineState
	outcomes []Outcome
	current  model.PipelineState
}

func newRecorder() *recorder {
	return &recorder{progress: make(map[model.PipelineState][]int), current: model.PipelineStateIdle}
}

func (r *recorder) OnLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, message)
	r.events = append(r.events, "log")
}

func (r *recorder) OnProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[r.current] = append(r.progress[r.current], percent)
	r.events = append(r.events, "progress")
}

func (r *recorder) OnDone(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	r.events = append(r.events, "done")
}

func (r *recorder) OnState(state model.PipelineState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = state
	r.states = append(r.states, state)
	r.events = append(r.events, "state:"+string(state))
}

func (r *recorder) totalProgressEvents() int {
	n := 0
	for _, p := range r.progress {
		n += len(p)
	}
	return n
}

func scenarioStreams() []model.StreamDescriptor {
	return []model.StreamDescriptor{
		{ID: "137", Kind: model.StreamKindVideo, Container: "mp4", Quality: 1080, QualityLabel: "1080p", Adaptive: true, TotalBytes: 5_000_000},
		{ID: "136", Kind: model.StreamKindVideo, Container: "mp4", Quality: 720, QualityLabel: "720p", Adaptive: true, TotalBytes: 3_000_000},
		{ID: "140", Kind: model.StreamKindAudio, Container: "mp4", Quality: 128_000, QualityLabel: "128kbps", Adaptive: true, TotalBytes: 500_000},
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestOrchestrator(p *fakeProvider, m *fakeMerger, opts ...Option) *Orchestrator {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(p, download.New(p, download.WithChunkSize(64*1024)), m, opts...)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_Success(t *testing.T) {
	outDir := t.TempDir()
	tempDir := t.TempDir()
	p := &fakeProvider{title: "My Clip: Part 1!", streams: scenarioStreams()}
	m := &fakeMerger{}
	rec := newRecorder()

	o := newTestOrchestrator(p, m)
	outcome := o.Run(context.Background(), Request{URL: "https://youtu.be/abc", OutputDir: outDir, TempDir: tempDir}, rec)

	if !outcome.Completed() {
		t.Fatalf("Expected Completed, got %+v (%v)", outcome, outcome.Err())
	}
	expectedOutput := filepath.Join(outDir, "My_Clip_Part_1.mp4")
	if outcome.OutputPath != expectedOutput {
		t.Errorf("OutputPath = %s, expected %s", outcome.OutputPath, expectedOutput)
	}
	if !strings.HasPrefix(outcome.RunID, RunIDPrefix) {
		t.Errorf("RunID = %s, expected prefix %s", outcome.RunID, RunIDPrefix)
	}
	if len(outcome.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", outcome.Warnings)
	}

	opened := p.openedIDs()
	if len(opened) != 2 || opened[0] != "137" || opened[1] != "140" {
		t.Errorf("Opened streams = %v, expected [137 140]", opened)
	}

	if m.callCount() != 1 {
		t.Fatalf("Expected one merge call, got %d", m.callCount())
	}
	call := m.calls[0]
	if filepath.Dir(call[0]) != tempDir || filepath.Dir(call[1]) != tempDir {
		t.Errorf("Intermediates should live in temp dir: %v", call)
	}
	if !strings.HasPrefix(filepath.Base(call[0]), outcome.RunID) || !strings.HasPrefix(filepath.Base(call[1]), outcome.RunID) {
		t.Errorf("Intermediates should be namespaced by run id: %v", call)
	}
	if call[0] == call[1] {
		t.Error("Video and audio intermediates must differ")
	}

	if names := listDir(t, tempDir); len(names) != 0 {
		t.Errorf("Intermediates left behind: %v", names)
	}

	expectedStates := []model.PipelineState{
		model.PipelineStateSelecting,
		model.PipelineStateDownloadingVideo,
		model.PipelineStateDownloadingAudio,
		model.PipelineStateMerging,
		model.PipelineStateCleaningUp,
		model.PipelineStateCompleted,
	}
	if len(rec.states) != len(expectedStates) {
		t.Fatalf("States = %v, expected %v", rec.states, expectedStates)
	}
	for i := range expectedStates {
		if rec.states[i] != expectedStates[i] {
			t.Errorf("State %d = %s, expected %s", i, rec.states[i], expectedStates[i])
		}
	}

	for _, stage := range []model.PipelineState{model.PipelineStateDownloadingVideo, model.PipelineStateDownloadingAudio} {
		values := rec.progress[stage]
		if len(values) == 0 {
			t.Fatalf("No progress for %s", stage)
		}
		for i := 1; i < len(values); i++ {
			if values[i] < values[i-1] {
				t.Errorf("%s progress decreased: %v", stage, values)
				break
			}
		}
		if values[len(values)-1] != 100 {
			t.Errorf("%s progress should end at 100, got %d", stage, values[len(values)-1])
		}
	}
	if rec.totalProgressEvents() != len(rec.progress[model.PipelineStateDownloadingVideo])+len(rec.progress[model.PipelineStateDownloadingAudio]) {
		t.Error("Progress events must only occur during download stages")
	}

	if len(rec.outcomes) != 1 {
		t.Fatalf("Expected exactly one OnDone, got %d", len(rec.outcomes))
	}
	if rec.events[len(rec.events)-1] != "done" {
		t.Error("OnDone must be the last event")
	}
	if len(rec.logs) == 0 {
		t.Error("Expected log events")
	}
}

func TestRun_NoAudioStream(t *testing.T) {
	streams := scenarioStreams()[:2]
	p := &fakeProvider{title: "Clip", streams: streams}
	m := &fakeMerger{}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, rec)

	if outcome.Completed() || outcome.Failure == nil || outcome.Failure.Kind != KindNoSuitableStream {
		t.Fatalf("Expected NoSuitableStream, got %+v", outcome)
	}
	if len(p.openedIDs()) != 0 {
		t.Error("No download should be attempted")
	}
	if m.callCount() != 0 {
		t.Error("No merge should be attempted")
	}
	if rec.totalProgressEvents() != 0 {
		t.Error("No progress events expected")
	}
	if last := rec.states[len(rec.states)-1]; last != model.PipelineStateFailed {
		t.Errorf("Final state = %s, expected Failed", last)
	}
}

func TestRun_NoVideoStream(t *testing.T) {
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()[2:]}
	outcome := newTestOrchestrator(p, &fakeMerger{}).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, nil)

	if outcome.Failure == nil || outcome.Failure.Kind != KindNoSuitableStream {
		t.Fatalf("Expected NoSuitableStream, got %+v", outcome)
	}
}

func TestRun_ProviderError(t *testing.T) {
	p := &fakeProvider{fetchErr: errors.New("video unavailable")}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, &fakeMerger{}).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, rec)

	if outcome.Failure == nil || outcome.Failure.Kind != KindProviderError {
		t.Fatalf("Expected ProviderError, got %+v", outcome)
	}
	if !strings.Contains(outcome.Err().Error(), "video unavailable") {
		t.Errorf("Failure should carry the cause: %v", outcome.Err())
	}
}

func TestRun_EmptyURL(t *testing.T) {
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	outcome := newTestOrchestrator(p, &fakeMerger{}).Run(context.Background(), Request{OutputDir: t.TempDir()}, nil)

	if outcome.Failure == nil || outcome.Failure.Kind != KindProviderError {
		t.Fatalf("Expected ProviderError, got %+v", outcome)
	}
}

func TestRun_AudioFailsMidTransfer(t *testing.T) {
	tempDir := t.TempDir()
	p := &fakeProvider{
		title:   "Clip",
		streams: scenarioStreams(),
		readers: map[string]func() io.Reader{
			"140": func() io.Reader {
				return io.MultiReader(bytes.NewReader(make([]byte, 1000)), iotest.ErrReader(errors.New("connection reset")))
			},
		},
	}
	m := &fakeMerger{}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir(), TempDir: tempDir}, rec)

	if outcome.Failure == nil || outcome.Failure.Kind != KindDownloadError {
		t.Fatalf("Expected DownloadError, got %+v", outcome)
	}
	var dlErr *download.Error
	if !errors.As(outcome.Err(), &dlErr) || dlErr.Reason != download.ReasonNetwork {
		t.Errorf("Expected network download error in chain, got %v", outcome.Err())
	}
	if m.callCount() != 0 {
		t.Error("No merge should be attempted")
	}
	if names := listDir(t, tempDir); len(names) != 0 {
		t.Errorf("Partial files should be removed, found %v", names)
	}
}

func TestRun_VideoFailsMidTransfer(t *testing.T) {
	tempDir := t.TempDir()
	p := &fakeProvider{
		title:   "Clip",
		streams: scenarioStreams(),
		readers: map[string]func() io.Reader{
			"137": func() io.Reader {
				return io.MultiReader(bytes.NewReader(make([]byte, 4096)), iotest.ErrReader(errors.New("connection reset")))
			},
		},
	}
	m := &fakeMerger{}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir(), TempDir: tempDir}, rec)

	if outcome.Failure == nil || outcome.Failure.Kind != KindDownloadError {
		t.Fatalf("Expected DownloadError, got %+v", outcome)
	}
	if opened := p.openedIDs(); len(opened) != 1 || opened[0] != "137" {
		t.Errorf("Opened streams = %v, expected only [137]", opened)
	}
	if m.callCount() != 0 {
		t.Error("No merge should be attempted")
	}
	if names := listDir(t, tempDir); len(names) != 0 {
		t.Errorf("Partial video should be removed, found %v", names)
	}
	if len(rec.progress[model.PipelineStateDownloadingAudio]) != 0 {
		t.Error("Audio stage must not report progress")
	}
	expectedStates := []model.PipelineState{
		model.PipelineStateSelecting,
		model.PipelineStateDownloadingVideo,
		model.PipelineStateFailed,
	}
	if len(rec.states) != len(expectedStates) {
		t.Fatalf("States = %v, expected %v", rec.states, expectedStates)
	}
	for i := range expectedStates {
		if rec.states[i] != expectedStates[i] {
			t.Errorf("State %d = %s, expected %s", i, rec.states[i], expectedStates[i])
		}
	}
}

func TestRun_CompletedWithCleanupWarning(t *testing.T) {
	tempDir := t.TempDir()
	outDir := t.TempDir()
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	// Replace the audio intermediate with a non-empty directory so it cannot be deleted
	m := &fakeMerger{after: func(_, audioPath string) error {
		if err := os.Remove(audioPath); err != nil {
			return err
		}
		return os.MkdirAll(filepath.Join(audioPath, "locked"), 0o755)
	}}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: outDir, TempDir: tempDir}, rec)

	if !outcome.Completed() {
		t.Fatalf("Expected Completed, got %+v (%v)", outcome, outcome.Err())
	}
	if outcome.Failure != nil {
		t.Errorf("Completed outcome must not carry a failure: %v", outcome.Failure)
	}
	if len(outcome.Warnings) != 1 || outcome.Warnings[0].Kind != KindCleanupWarning {
		t.Fatalf("Warnings = %v, expected one CleanupWarning", outcome.Warnings)
	}
	if _, err := os.Stat(outcome.OutputPath); err != nil {
		t.Errorf("Output should exist: %v", err)
	}
	names := listDir(t, tempDir)
	if len(names) != 1 || !strings.HasSuffix(names[0], ".audio.mp4") {
		t.Errorf("Only the undeletable audio intermediate should remain, found %v", names)
	}
	if last := rec.states[len(rec.states)-1]; last != model.PipelineStateCompleted {
		t.Errorf("Final state = %s, expected Completed", last)
	}
}

func TestRun_EmptyContainerUsesDefault(t *testing.T) {
	outDir := t.TempDir()
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	m := &fakeMerger{}

	o := newTestOrchestrator(p, m, WithPolicy(selection.Policy{Resolution: 1080}))
	outcome := o.Run(context.Background(), Request{URL: "u", OutputDir: outDir}, nil)

	if !outcome.Completed() {
		t.Fatalf("Expected Completed, got %+v (%v)", outcome, outcome.Err())
	}
	if expected := filepath.Join(outDir, "Clip."+selection.DefaultContainer); outcome.OutputPath != expected {
		t.Errorf("OutputPath = %s, expected %s", outcome.OutputPath, expected)
	}
	call := m.calls[0]
	for _, path := range call[:2] {
		if !strings.HasSuffix(path, "."+selection.DefaultContainer) {
			t.Errorf("Intermediate %s should carry the default container extension", path)
		}
	}
}

func TestRun_MergeFailsKeepsIntermediates(t *testing.T) {
	tempDir := t.TempDir()
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	m := &fakeMerger{err: &merge.Error{Reason: merge.ReasonToolFailure, Output: "Invalid data", Err: errors.New("exit status 1")}}

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir(), TempDir: tempDir}, nil)

	if outcome.Failure == nil || outcome.Failure.Kind != KindMergeError {
		t.Fatalf("Expected MergeError, got %+v", outcome)
	}
	var mErr *merge.Error
	if !errors.As(outcome.Err(), &mErr) || mErr.Output != "Invalid data" {
		t.Errorf("Merge diagnostics should be preserved, got %v", outcome.Err())
	}
	if names := listDir(t, tempDir); len(names) != 2 {
		t.Errorf("Both intermediates should remain, found %v", names)
	}
}

func TestRun_ZeroTotalBytes(t *testing.T) {
	streams := scenarioStreams()
	streams[0].TotalBytes = 0
	p := &fakeProvider{title: "Clip", streams: streams}
	rec := newRecorder()

	outcome := newTestOrchestrator(p, &fakeMerger{}, WithRetries(3, 0)).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, rec)

	if outcome.Failure == nil || outcome.Failure.Kind != KindDownloadError {
		t.Fatalf("Expected DownloadError, got %+v", outcome)
	}
	if !errors.Is(outcome.Err(), download.ErrInvalidStream) {
		t.Errorf("Expected InvalidStream, got %v", outcome.Err())
	}
	if rec.totalProgressEvents() != 0 {
		t.Errorf("Expected no progress events, got %v", rec.progress)
	}
	if len(p.openedIDs()) != 0 {
		t.Error("Invalid stream must not be retried or opened")
	}
}

func TestRun_RetriesDownload(t *testing.T) {
	p := &fakeProvider{title: "Clip", streams: scenarioStreams(), openErrs: map[string]int{"140": 1}}

	outcome := newTestOrchestrator(p, &fakeMerger{}, WithRetries(1, 0)).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, nil)

	if !outcome.Completed() {
		t.Fatalf("Expected Completed after retry, got %v", outcome.Err())
	}
	opened := p.openedIDs()
	if len(opened) != 3 {
		t.Errorf("Opened = %v, expected audio opened twice", opened)
	}
}

func TestRun_NoRetriesByDefault(t *testing.T) {
	p := &fakeProvider{title: "Clip", streams: scenarioStreams(), openErrs: map[string]int{"140": 1}}

	outcome := newTestOrchestrator(p, &fakeMerger{}).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, nil)

	if outcome.Failure == nil || outcome.Failure.Kind != KindDownloadError {
		t.Fatalf("Expected DownloadError, got %+v", outcome)
	}
}

func TestRun_OutputExists(t *testing.T) {
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outDir, "Clip.mp4"), []byte("unrelated"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	m := &fakeMerger{}

	outcome := newTestOrchestrator(p, m).Run(context.Background(), Request{URL: "u", OutputDir: outDir}, nil)

	var mErr *merge.Error
	if !errors.As(outcome.Err(), &mErr) || mErr.Reason != merge.ReasonOutputExists {
		t.Fatalf("Expected output exists failure, got %v", outcome.Err())
	}
	if len(p.openedIDs()) != 0 || m.callCount() != 0 {
		t.Error("Nothing should be downloaded or merged")
	}
	data, _ := os.ReadFile(filepath.Join(outDir, "Clip.mp4"))
	if string(data) != "unrelated" {
		t.Error("Existing file must not be touched")
	}
}

func TestRun_WritesRunLog(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	p := &fakeProvider{title: "My Clip", streams: scenarioStreams()}

	outcome := newTestOrchestrator(p, &fakeMerger{}).Run(context.Background(), Request{URL: "u", OutputDir: t.TempDir(), LogDir: logDir}, nil)
	if !outcome.Completed() {
		t.Fatalf("Run failed: %v", outcome.Err())
	}

	data, err := os.ReadFile(filepath.Join(logDir, "My_Clip.log"))
	if err != nil {
		t.Fatalf("Run log not written: %v", err)
	}
	if !strings.Contains(string(data), "INFO - Completed") {
		t.Errorf("Run log missing completion line: %s", data)
	}
}

func TestStart_Cancel(t *testing.T) {
	p := &fakeProvider{block: true}
	rec := newRecorder()

	h := newTestOrchestrator(p, &fakeMerger{}).Start(context.Background(), Request{URL: "u", OutputDir: t.TempDir()}, rec)
	if !strings.HasPrefix(h.ID(), RunIDPrefix) {
		t.Errorf("ID = %s", h.ID())
	}
	h.Cancel()

	<-h.Done()
	outcome := h.Wait()
	if outcome.Failure == nil || outcome.Failure.Kind != KindCanceled {
		t.Fatalf("Expected Canceled, got %+v", outcome)
	}
	if outcome.RunID != h.ID() {
		t.Errorf("Outcome RunID = %s, expected %s", outcome.RunID, h.ID())
	}
	if len(rec.outcomes) != 1 {
		t.Errorf("Expected one OnDone, got %d", len(rec.outcomes))
	}
}

func TestStart_Completes(t *testing.T) {
	p := &fakeProvider{title: "Clip", streams: scenarioStreams()}
	done := make(chan Outcome, 1)

	h := newTestOrchestrator(p, &fakeMerger{}).Start(context.Background(), Request{URL: "u", OutputDir: t.TempDir()},
		ListenerFuncs{Done: func(o Outcome) { done <- o }})

	outcome := h.Wait()
	if !outcome.Completed() {
		t.Fatalf("Expected Completed, got %v", outcome.Err())
	}
	if got := <-done; got.OutputPath != outcome.OutputPath {
		t.Errorf("Listener outcome %s differs from Wait outcome %s", got.OutputPath, outcome.OutputPath)
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	dir := t.TempDir()
	run := model.NewPipelineRun("run-1", "u", dir, dir)
	run.VideoTask = model.NewDownloadTask(model.StreamDescriptor{}, filepath.Join(dir, "run-1.video.mp4"))
	run.AudioTask = model.NewDownloadTask(model.StreamDescriptor{}, filepath.Join(dir, "run-1.audio.mp4"))
	for _, p := range run.IntermediatePaths() {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if warnings := Cleanup(run, nil); len(warnings) != 0 {
		t.Fatalf("First cleanup warnings: %v", warnings)
	}
	if warnings := Cleanup(run, nil); len(warnings) != 0 {
		t.Errorf("Second cleanup should be a no-op, got %v", warnings)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("Files left: %v", names)
	}
}

func TestCleanup_ReportsWarnings(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory cannot be removed with os.Remove
	blocked := filepath.Join(dir, "run-1.video.mp4")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	run := model.NewPipelineRun("run-1", "u", dir, dir)
	run.VideoTask = model.NewDownloadTask(model.StreamDescriptor{}, blocked)

	warnings := Cleanup(run, nil)
	if len(warnings) != 1 || warnings[0].Kind != KindCleanupWarning {
		t.Fatalf("Expected one CleanupWarning, got %v", warnings)
	}
}

func TestMultiListener(t *testing.T) {
	a, b := newRecorder(), newRecorder()
	var plainLogs []string
	m := MultiListener{a, b, ListenerFuncs{Log: func(s string) { plainLogs = append(plainLogs, s) }}}

	m.OnState(model.PipelineStateSelecting)
	m.OnLog("hello")
	m.OnProgress(42)
	m.OnDone(Outcome{Status: StatusCompleted})

	for _, r := range []*recorder{a, b} {
		if len(r.states) != 1 || len(r.logs) != 1 || len(r.outcomes) != 1 {
			t.Errorf("Recorder missed events: %+v", r.events)
		}
		if got := r.progress[model.PipelineStateSelecting]; len(got) != 1 || got[0] != 42 {
			t.Errorf("progress = %v", got)
		}
	}
	if len(plainLogs) != 1 {
		t.Errorf("plain listener logs = %v", plainLogs)
	}
}
