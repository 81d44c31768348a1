package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ytget/yt-merger/internal/model"
)

// Service limits
const (
	DefaultMaxParallel = 2
	MaxRunLogLines     = 200
)

// RunInfo is a snapshot of a run managed by Service
type RunInfo struct {
	ID         string
	URL        string
	Title      string
	State      model.PipelineState
	Percent    int
	Logs       []string
	Outcome    *Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// IsFinished reports whether the run has an outcome
func (ri RunInfo) IsFinished() bool {
	return ri.Outcome != nil
}

// GetDisplayTitle returns the title, or the URL before it is known
func (ri RunInfo) GetDisplayTitle() string {
	if ri.Title != "" {
		return ri.Title
	}
	return ri.URL
}

type managedRun struct {
	info   RunInfo
	req    Request
	cancel context.CancelFunc
}

// Service runs several URLs through an Orchestrator, at most maxParallel at a time
type Service struct {
	orchestrator *Orchestrator
	defaults     Request
	runs         map[string]*managedRun
	runsMutex    sync.RWMutex
	sem          *semaphore.Weighted
	maxParallel  int
	wg           sync.WaitGroup
	onUpdate     func(RunInfo) // callback for UI updates
}

// NewService creates a run manager. defaults supplies the directories for every run.
func NewService(o *Orchestrator, defaults Request, maxParallel int) *Service {
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	return &Service{
		orchestrator: o,
		defaults:     defaults,
		runs:         make(map[string]*managedRun),
		sem:          semaphore.NewWeighted(int64(maxParallel)),
		maxParallel:  maxParallel,
	}
}

// SetUpdateCallback sets the callback function for run updates
func (s *Service) SetUpdateCallback(callback func(RunInfo)) {
	s.runsMutex.Lock()
	s.onUpdate = callback
	s.runsMutex.Unlock()
}

// AddRun queues url with the default directories. A URL that is still
// running is rejected.
func (s *Service) AddRun(url string) (RunInfo, error) {
	return s.AddRequest(Request{URL: url})
}

// AddRequest queues req; empty directories fall back to the service defaults
func (s *Service) AddRequest(req Request) (RunInfo, error) {
	url := req.URL
	if req.OutputDir == "" {
		req.OutputDir = s.defaults.OutputDir
	}
	if req.TempDir == "" {
		req.TempDir = s.defaults.TempDir
	}
	if req.LogDir == "" {
		req.LogDir = s.defaults.LogDir
	}

	s.runsMutex.Lock()
	for _, r := range s.runs {
		if r.info.URL == url && !r.info.IsFinished() {
			s.runsMutex.Unlock()
			return RunInfo{}, fmt.Errorf("run already exists for URL: %s", url)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &managedRun{
		info: RunInfo{
			ID:        generateRunID(),
			URL:       url,
			State:     model.PipelineStateIdle,
			StartedAt: time.Now(),
		},
		req:    req,
		cancel: cancel,
	}
	s.runs[r.info.ID] = r
	info := snapshot(r)
	s.wg.Add(1)
	s.runsMutex.Unlock()

	s.notifyUpdate(info)
	go s.startRun(ctx, r)

	return info, nil
}

// GetRun returns a snapshot of a run by ID
func (s *Service) GetRun(id string) (RunInfo, bool) {
	s.runsMutex.RLock()
	defer s.runsMutex.RUnlock()
	r, exists := s.runs[id]
	if !exists {
		return RunInfo{}, false
	}
	return snapshot(r), true
}

// GetAllRuns returns snapshots of all runs, oldest first
func (s *Service) GetAllRuns() []RunInfo {
	s.runsMutex.RLock()
	runs := make([]RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, snapshot(r))
	}
	s.runsMutex.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs
}

// StopRun cancels a queued or running run
func (s *Service) StopRun(id string) error {
	s.runsMutex.RLock()
	r, exists := s.runs[id]
	var finished bool
	if exists {
		finished = r.info.IsFinished()
	}
	s.runsMutex.RUnlock()

	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	if finished {
		return fmt.Errorf("run is not active: %s", id)
	}
	r.cancel()
	return nil
}

// Wait blocks until every added run has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// startRun waits for a free slot and executes the run
func (s *Service) startRun(ctx context.Context, r *managedRun) {
	defer s.wg.Done()
	defer r.cancel()

	listener := ListenerFuncs{
		Log: func(message string) {
			s.update(r, func(info *RunInfo) {
				info.Logs = append(info.Logs, message)
				if len(info.Logs) > MaxRunLogLines {
					info.Logs = info.Logs[len(info.Logs)-MaxRunLogLines:]
				}
			})
		},
		Progress: func(percent int) {
			s.update(r, func(info *RunInfo) { info.Percent = percent })
		},
		Metadata: func(meta model.VideoMetadata) {
			s.update(r, func(info *RunInfo) { info.Title = meta.Title })
		},
		State: func(state model.PipelineState) {
			s.update(r, func(info *RunInfo) {
				info.State = state
				if state.IsDownloading() {
					info.Percent = 0
				}
			})
		},
		Done: func(outcome Outcome) {
			s.update(r, func(info *RunInfo) {
				o := outcome
				info.Outcome = &o
				info.FinishedAt = time.Now()
				if o.Completed() {
					info.Percent = 100
				}
			})
		},
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.update(r, func(info *RunInfo) {
			info.State = model.PipelineStateFailed
			info.Outcome = &Outcome{
				RunID:   info.ID,
				Status:  StatusFailed,
				Failure: &Failure{Kind: KindCanceled, Message: "canceled before start", Err: err},
			}
			info.FinishedAt = time.Now()
		})
		return
	}
	defer s.sem.Release(1)

	s.orchestrator.run(ctx, r.info.ID, r.req, listener)
}

func (s *Service) update(r *managedRun, fn func(*RunInfo)) {
	s.runsMutex.Lock()
	fn(&r.info)
	info := snapshot(r)
	s.runsMutex.Unlock()

	s.notifyUpdate(info)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(info RunInfo) {
	s.runsMutex.RLock()
	cb := s.onUpdate
	s.runsMutex.RUnlock()
	if cb != nil {
		cb(info)
	}
}

func snapshot(r *managedRun) RunInfo {
	info := r.info
	info.Logs = append([]string(nil), r.info.Logs...)
	return info
}
